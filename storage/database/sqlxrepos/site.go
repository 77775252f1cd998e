package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
)

var settingsColumns = []string{
	"site_id", "tagline", "logo_url", "favicon_url", "primary_email", "phone_number", "address",
	"newsletter_from_email", "newsletter_from_name", "google_analytics_id",
	"facebook_url", "instagram_url", "youtube_url", "updated_at",
}

type siteRepository struct {
	repository
}

var _ site.Repository = (*siteRepository)(nil)

func NewSiteRepository(exec core.DBExecutor) *siteRepository {
	return &siteRepository{repository{exec: exec}}
}

func (repo siteRepository) CreateSite(ctx context.Context, s site.Site, exec ...core.DBExecutor) (site.Site, error) {
	exe := repo.getExec(exec)
	s.ID = newID()
	q := builder(exe).Insert("sites").
		Columns("id", "domain", "name", "created_at", "updated_at").
		Values(s.ID, s.Domain, s.Name, s.CreatedAt, s.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return site.Site{}, site.ErrDomainExists
		}
		return site.Site{}, errors.Wrap(err, "inserting site")
	}
	return s, nil
}

func (repo siteRepository) UpdateSite(ctx context.Context, s site.Site, exec ...core.DBExecutor) (site.Site, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("sites").
		Set("domain", s.Domain).
		Set("name", s.Name).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": s.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return site.Site{}, site.ErrDomainExists
		}
		return site.Site{}, errors.Wrap(err, "updating site")
	}
	if n == 0 {
		return site.Site{}, site.ErrNotFound
	}
	return s, nil
}

func (repo siteRepository) GetSite(ctx context.Context, filter site.GetFilter, exec ...core.DBExecutor) (site.Site, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select("id", "domain", "name", "created_at", "updated_at").From("sites")
	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Domain != "":
		q = q.Where(sq.Eq{"domain": filter.Domain})
	default:
		return site.Site{}, site.ErrNotFound
	}

	var s site.Site
	if err := getOne(ctx, exe, &s, q); err != nil {
		return site.Site{}, trapNoRowsErr(err, site.ErrNotFound, "finding site")
	}
	return s, nil
}

func (repo siteRepository) QuerySites(ctx context.Context, exec ...core.DBExecutor) ([]site.Site, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select("id", "domain", "name", "created_at", "updated_at").From("sites").
		OrderBy("created_at ASC", "domain ASC")
	var sites []site.Site
	if err := selectAll(ctx, exe, &sites, q); err != nil {
		return nil, errors.Wrap(err, "querying sites")
	}
	return sites, nil
}

func (repo siteRepository) DeleteSite(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("sites").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting site")
	}
	if n == 0 {
		return site.ErrNotFound
	}
	return nil
}

func (repo siteRepository) GetSettings(ctx context.Context, siteID string, exec ...core.DBExecutor) (site.Settings, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(settingsColumns...).From("site_settings").Where(sq.Eq{"site_id": siteID})
	var s site.Settings
	if err := getOne(ctx, exe, &s, q); err != nil {
		return site.Settings{}, trapNoRowsErr(err, site.ErrSettingsNotFound, "finding site settings")
	}
	return s, nil
}

// SaveSettings inserts or replaces the settings of a site.
func (repo siteRepository) SaveSettings(ctx context.Context, s site.Settings, exec ...core.DBExecutor) (site.Settings, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Insert("site_settings").Columns(settingsColumns...).Values(
		s.SiteID, s.Tagline, s.LogoURL, s.FaviconURL, s.PrimaryEmail, s.PhoneNumber, s.Address,
		s.NewsletterFromEmail, s.NewsletterFromName, s.GoogleAnalyticsID,
		s.FacebookURL, s.InstagramURL, s.YoutubeURL, s.UpdatedAt,
	).Suffix(`ON CONFLICT (site_id) DO UPDATE SET
		tagline = excluded.tagline,
		logo_url = excluded.logo_url,
		favicon_url = excluded.favicon_url,
		primary_email = excluded.primary_email,
		phone_number = excluded.phone_number,
		address = excluded.address,
		newsletter_from_email = excluded.newsletter_from_email,
		newsletter_from_name = excluded.newsletter_from_name,
		google_analytics_id = excluded.google_analytics_id,
		facebook_url = excluded.facebook_url,
		instagram_url = excluded.instagram_url,
		youtube_url = excluded.youtube_url,
		updated_at = excluded.updated_at`)
	if _, err := execute(ctx, exe, q); err != nil {
		return site.Settings{}, errors.Wrap(err, "saving site settings")
	}
	return s, nil
}
