package site

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("site")
	ErrSettingsNotFound = core.NewNotFoundError("site settings")
	ErrDomainExists     = errors.New("a site with this domain already exists")
)

type (
	Repository interface {
		CreateSite(ctx context.Context, s Site, exec ...core.DBExecutor) (Site, error)
		UpdateSite(ctx context.Context, s Site, exec ...core.DBExecutor) (Site, error)
		GetSite(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Site, error)
		QuerySites(ctx context.Context, exec ...core.DBExecutor) ([]Site, error)
		DeleteSite(ctx context.Context, id string, exec ...core.DBExecutor) error
		GetSettings(ctx context.Context, siteID string, exec ...core.DBExecutor) (Settings, error)
		SaveSettings(ctx context.Context, settings Settings, exec ...core.DBExecutor) (Settings, error)
	}

	Service struct {
		repo          Repository
		defaultDomain string
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, defaultDomain: conf.DefaultSiteDomain}
}

func (svc *Service) checkDomain(ctx context.Context, domain string, excludedID string) error {
	s, err := svc.repo.GetSite(ctx, GetFilter{Domain: domain})
	if err == nil && s.ID != excludedID {
		return core.NewValidationError(ErrDomainExists, core.FieldError{Field: "domain", Error: ErrDomainExists.Error()})
	}
	if err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking domain uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSite) (Site, error) {
	if err := svc.checkDomain(ctx, ns.Domain, ""); err != nil {
		return Site{}, err
	}
	now := core.Now()
	return svc.repo.CreateSite(ctx, Site{Domain: ns.Domain, Name: ns.Name, CreatedAt: now, UpdatedAt: now})
}

func (svc *Service) Update(ctx context.Context, orig Site, us UpdateSite) (Site, error) {
	if err := svc.checkDomain(ctx, us.Domain, orig.ID); err != nil {
		return Site{}, err
	}
	orig.Domain = us.Domain
	orig.Name = us.Name
	orig.UpdatedAt = core.Now()
	return svc.repo.UpdateSite(ctx, orig)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSite(ctx, id)
}

func (svc *Service) List(ctx context.Context) ([]Site, error) {
	return svc.repo.QuerySites(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Site, error) {
	return svc.repo.GetSite(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByDomain(ctx context.Context, domain string) (Site, error) {
	return svc.repo.GetSite(ctx, GetFilter{Domain: core.CleanString(domain, true /* lower */)})
}

// Current resolves the site serving a request from its Host header (port ignored).
// Unknown hosts fall back to the configured default domain, then to the first site.
func (svc *Service) Current(ctx context.Context, host string) (Site, error) {
	domain := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		domain = h
	}
	domain = strings.TrimSuffix(domain, ".")

	for _, d := range []string{domain, svc.defaultDomain} {
		if d == "" {
			continue
		}
		s, err := svc.GetByDomain(ctx, d)
		if err == nil {
			return s, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return Site{}, errors.Wrap(err, "finding site by domain")
		}
	}

	sites, err := svc.repo.QuerySites(ctx)
	if err != nil {
		return Site{}, errors.Wrap(err, "querying sites")
	}
	if len(sites) == 0 {
		return Site{}, ErrNotFound
	}
	return sites[0], nil
}

// GetSettings returns ErrSettingsNotFound for sites without settings.
func (svc *Service) GetSettings(ctx context.Context, siteID string) (Settings, error) {
	return svc.repo.GetSettings(ctx, siteID)
}

// SettingsOrNil is GetSettings where missing settings are not an error.
func (svc *Service) SettingsOrNil(ctx context.Context, siteID string) (*Settings, error) {
	settings, err := svc.repo.GetSettings(ctx, siteID)
	if err != nil {
		if errors.Cause(err) == ErrSettingsNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (svc *Service) SaveSettings(ctx context.Context, siteID string, us UpdateSettings) (Settings, error) {
	if _, err := svc.GetByID(ctx, siteID); err != nil {
		return Settings{}, err
	}
	return svc.repo.SaveSettings(ctx, Settings{
		SiteID:              siteID,
		Tagline:             us.Tagline,
		LogoURL:             us.LogoURL,
		FaviconURL:          us.FaviconURL,
		PrimaryEmail:        us.PrimaryEmail,
		PhoneNumber:         us.PhoneNumber,
		Address:             us.Address,
		NewsletterFromEmail: us.NewsletterFromEmail,
		NewsletterFromName:  us.NewsletterFromName,
		GoogleAnalyticsID:   us.GoogleAnalyticsID,
		FacebookURL:         us.FacebookURL,
		InstagramURL:        us.InstagramURL,
		YoutubeURL:          us.YoutubeURL,
		UpdatedAt:           core.Now(),
	})
}
