package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

var (
	// errors
	ErrPageNotFound        = core.NewNotFoundError("page")
	ErrTeamMemberNotFound  = core.NewNotFoundError("team member")
	ErrTestimonialNotFound = core.NewNotFoundError("testimonial")
	ErrSlugExists          = errors.New("this slug is already in use")
)

type Repository interface {
	CreatePage(ctx context.Context, p Page, exec ...core.DBExecutor) (Page, error)
	UpdatePage(ctx context.Context, p Page, exec ...core.DBExecutor) (Page, error)
	GetPage(ctx context.Context, filter PageFilter, exec ...core.DBExecutor) (Page, error)
	// QueryPages returns pages ordered by (order, title).
	QueryPages(ctx context.Context, filter PageFilter, exec ...core.DBExecutor) ([]Page, error)
	DeletePages(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

	CreateTeamMember(ctx context.Context, m TeamMember, exec ...core.DBExecutor) (TeamMember, error)
	UpdateTeamMember(ctx context.Context, m TeamMember, exec ...core.DBExecutor) (TeamMember, error)
	GetTeamMember(ctx context.Context, id string, exec ...core.DBExecutor) (TeamMember, error)
	// QueryTeamMembers returns members ordered by (order, name), optionally only the active ones.
	QueryTeamMembers(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]TeamMember, error)
	DeleteTeamMembers(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

	CreateTestimonial(ctx context.Context, t Testimonial, exec ...core.DBExecutor) (Testimonial, error)
	UpdateTestimonial(ctx context.Context, t Testimonial, exec ...core.DBExecutor) (Testimonial, error)
	GetTestimonial(ctx context.Context, id string, exec ...core.DBExecutor) (Testimonial, error)
	// QueryTestimonials returns testimonials newest first, optionally only the featured ones.
	QueryTestimonials(ctx context.Context, featuredOnly bool, exec ...core.DBExecutor) ([]Testimonial, error)
	DeleteTestimonials(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Home holds what the school home page shows besides the news.
type Home struct {
	Testimonials []Testimonial `json:"testimonials"`
}

func (svc *Service) Home(ctx context.Context) (Home, error) {
	testimonials, err := svc.repo.QueryTestimonials(ctx, true)
	if err != nil {
		return Home{}, errors.Wrap(err, "querying testimonials")
	}
	return Home{Testimonials: testimonials}, nil
}

// PageDetail returns a published page of the site.
func (svc *Service) PageDetail(ctx context.Context, siteID, slug string) (Page, error) {
	published := true
	return svc.repo.GetPage(ctx, PageFilter{Slug: slug, SiteID: siteID, IsPublished: &published})
}

func (svc *Service) TeamList(ctx context.Context) ([]TeamMember, error) {
	return svc.repo.QueryTeamMembers(ctx, true)
}

func PagePath(slug string) string {
	return "/" + slug + "/"
}

func (svc *Service) SitemapPages(ctx context.Context, siteID string) ([]core.SitemapEntry, error) {
	published := true
	pages, err := svc.repo.QueryPages(ctx, PageFilter{SiteID: siteID, IsPublished: &published})
	if err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	entries := make([]core.SitemapEntry, 0, len(pages))
	for _, p := range pages {
		entries = append(entries, core.SitemapEntry{
			Loc:        PagePath(p.Slug),
			LastMod:    p.UpdatedAt,
			ChangeFreq: core.ChangeFreqMonthly,
			Priority:   0.5,
		})
	}
	return entries, nil
}

// Pages

func (svc *Service) fillPage(ctx context.Context, p *Page, data PageData) error {
	p.Slug = data.Slug
	if p.Slug == "" {
		p.Slug = core.Slugify(data.Title)
	}
	other, err := svc.repo.GetPage(ctx, PageFilter{Slug: p.Slug})
	if err == nil && other.ID != p.ID {
		return core.NewFieldError("slug", ErrSlugExists.Error())
	} else if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "checking slug uniqueness")
	}

	p.SiteID = data.SiteID
	p.Title = data.Title
	p.Content = core.SanitizeHTML(data.Content)
	p.FeaturedImageURL = data.FeaturedImageURL
	p.IsPublished = data.IsPublished
	p.Order = data.Order
	p.MetaTitle = data.MetaTitle
	p.MetaDescription = data.MetaDescription
	p.MetaKeywords = data.MetaKeywords
	return nil
}

func (svc *Service) CreatePage(ctx context.Context, data PageData) (Page, error) {
	now := core.Now()
	p := Page{CreatedAt: now, UpdatedAt: now}
	if err := svc.fillPage(ctx, &p, data); err != nil {
		return Page{}, err
	}
	return svc.repo.CreatePage(ctx, p)
}

func (svc *Service) UpdatePage(ctx context.Context, orig Page, data PageData) (Page, error) {
	p := orig
	p.UpdatedAt = core.Now()
	if err := svc.fillPage(ctx, &p, data); err != nil {
		return Page{}, err
	}
	return svc.repo.UpdatePage(ctx, p)
}

func (svc *Service) GetPage(ctx context.Context, id string) (Page, error) {
	return svc.repo.GetPage(ctx, PageFilter{ID: id})
}

func (svc *Service) ListPages(ctx context.Context, siteID string) ([]Page, error) {
	return svc.repo.QueryPages(ctx, PageFilter{SiteID: siteID})
}

func (svc *Service) DeletePages(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeletePages(ctx, ids)
}

// Team members

func (svc *Service) CreateTeamMember(ctx context.Context, data TeamMemberData) (TeamMember, error) {
	now := core.Now()
	return svc.repo.CreateTeamMember(ctx, TeamMember{
		Name:      data.Name,
		Title:     data.Title,
		PhotoURL:  data.PhotoURL,
		Bio:       data.Bio,
		Email:     data.Email,
		IsActive:  data.IsActive,
		Order:     data.Order,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) UpdateTeamMember(ctx context.Context, orig TeamMember, data TeamMemberData) (TeamMember, error) {
	m := orig
	m.Name = data.Name
	m.Title = data.Title
	m.PhotoURL = data.PhotoURL
	m.Bio = data.Bio
	m.Email = data.Email
	m.IsActive = data.IsActive
	m.Order = data.Order
	m.UpdatedAt = core.Now()
	return svc.repo.UpdateTeamMember(ctx, m)
}

func (svc *Service) GetTeamMember(ctx context.Context, id string) (TeamMember, error) {
	return svc.repo.GetTeamMember(ctx, id)
}

func (svc *Service) ListTeamMembers(ctx context.Context) ([]TeamMember, error) {
	return svc.repo.QueryTeamMembers(ctx, false)
}

func (svc *Service) DeleteTeamMembers(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteTeamMembers(ctx, ids)
}

// Testimonials

func (svc *Service) CreateTestimonial(ctx context.Context, data TestimonialData) (Testimonial, error) {
	now := core.Now()
	return svc.repo.CreateTestimonial(ctx, Testimonial{
		Name:         data.Name,
		Relationship: data.Relationship,
		Quote:        data.Quote,
		PhotoURL:     data.PhotoURL,
		IsFeatured:   data.IsFeatured,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) UpdateTestimonial(ctx context.Context, orig Testimonial, data TestimonialData) (Testimonial, error) {
	t := orig
	t.Name = data.Name
	t.Relationship = data.Relationship
	t.Quote = data.Quote
	t.PhotoURL = data.PhotoURL
	t.IsFeatured = data.IsFeatured
	t.UpdatedAt = core.Now()
	return svc.repo.UpdateTestimonial(ctx, t)
}

func (svc *Service) GetTestimonial(ctx context.Context, id string) (Testimonial, error) {
	return svc.repo.GetTestimonial(ctx, id)
}

func (svc *Service) ListTestimonials(ctx context.Context) ([]Testimonial, error) {
	return svc.repo.QueryTestimonials(ctx, false)
}

func (svc *Service) DeleteTestimonials(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteTestimonials(ctx, ids)
}
