package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/school"
)

var (
	pageColumns = []string{
		"id", "site_id", "title", "slug", "content", "featured_image_url", "is_published", "sort_order",
		"meta_title", "meta_description", "meta_keywords", "created_at", "updated_at",
	}
	teamMemberColumns  = []string{"id", "name", "title", "photo_url", "bio", "email", "is_active", "sort_order", "created_at", "updated_at"}
	testimonialColumns = []string{"id", "name", "relationship", "quote", "photo_url", "is_featured", "created_at", "updated_at"}
)

type schoolRepository struct {
	repository
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{repository{exec: exec}}
}

// Pages

func (repo schoolRepository) CreatePage(ctx context.Context, p school.Page, exec ...core.DBExecutor) (school.Page, error) {
	exe := repo.getExec(exec)
	p.ID = newID()
	q := builder(exe).Insert("school_pages").Columns(pageColumns...).Values(
		p.ID, p.SiteID, p.Title, p.Slug, p.Content, p.FeaturedImageURL, p.IsPublished, p.Order,
		p.MetaTitle, p.MetaDescription, p.MetaKeywords, p.CreatedAt, p.UpdatedAt,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return school.Page{}, core.NewFieldError("slug", school.ErrSlugExists.Error())
		}
		return school.Page{}, errors.Wrap(err, "inserting page")
	}
	return p, nil
}

func (repo schoolRepository) UpdatePage(ctx context.Context, p school.Page, exec ...core.DBExecutor) (school.Page, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("school_pages").SetMap(map[string]interface{}{
		"site_id":            p.SiteID,
		"title":              p.Title,
		"slug":               p.Slug,
		"content":            p.Content,
		"featured_image_url": p.FeaturedImageURL,
		"is_published":       p.IsPublished,
		"sort_order":         p.Order,
		"meta_title":         p.MetaTitle,
		"meta_description":   p.MetaDescription,
		"meta_keywords":      p.MetaKeywords,
		"updated_at":         p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return school.Page{}, core.NewFieldError("slug", school.ErrSlugExists.Error())
		}
		return school.Page{}, errors.Wrap(err, "updating page")
	}
	if n == 0 {
		return school.Page{}, school.ErrPageNotFound
	}
	return p, nil
}

func filterPages(q sq.SelectBuilder, filter school.PageFilter) sq.SelectBuilder {
	if filter.ID != "" {
		q = q.Where(sq.Eq{"id": filter.ID})
	}
	if filter.Slug != "" {
		q = q.Where(sq.Eq{"slug": filter.Slug})
	}
	if filter.SiteID != "" {
		q = q.Where(sq.Eq{"site_id": filter.SiteID})
	}
	if filter.IsPublished != nil {
		q = q.Where(sq.Eq{"is_published": *filter.IsPublished})
	}
	return q
}

func (repo schoolRepository) GetPage(ctx context.Context, filter school.PageFilter, exec ...core.DBExecutor) (school.Page, error) {
	if filter.ID == "" && filter.Slug == "" {
		return school.Page{}, school.ErrPageNotFound
	}
	exe := repo.getExec(exec)
	var p school.Page
	if err := getOne(ctx, exe, &p, filterPages(builder(exe).Select(pageColumns...).From("school_pages"), filter)); err != nil {
		return school.Page{}, trapNoRowsErr(err, school.ErrPageNotFound, "finding page")
	}
	return p, nil
}

func (repo schoolRepository) QueryPages(ctx context.Context, filter school.PageFilter, exec ...core.DBExecutor) ([]school.Page, error) {
	exe := repo.getExec(exec)
	q := filterPages(builder(exe).Select(pageColumns...).From("school_pages"), filter).OrderBy("sort_order ASC", "title ASC")

	pages := make([]school.Page, 0)
	if err := selectAll(ctx, exe, &pages, q); err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	return pages, nil
}

func (repo schoolRepository) DeletePages(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("school_pages").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting pages")
}

// Team members

func (repo schoolRepository) CreateTeamMember(ctx context.Context, m school.TeamMember, exec ...core.DBExecutor) (school.TeamMember, error) {
	exe := repo.getExec(exec)
	m.ID = newID()
	q := builder(exe).Insert("team_members").Columns(teamMemberColumns...).
		Values(m.ID, m.Name, m.Title, m.PhotoURL, m.Bio, m.Email, m.IsActive, m.Order, m.CreatedAt, m.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		return school.TeamMember{}, errors.Wrap(err, "inserting team member")
	}
	return m, nil
}

func (repo schoolRepository) UpdateTeamMember(ctx context.Context, m school.TeamMember, exec ...core.DBExecutor) (school.TeamMember, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("team_members").SetMap(map[string]interface{}{
		"name":       m.Name,
		"title":      m.Title,
		"photo_url":  m.PhotoURL,
		"bio":        m.Bio,
		"email":      m.Email,
		"is_active":  m.IsActive,
		"sort_order": m.Order,
		"updated_at": m.UpdatedAt,
	}).Where(sq.Eq{"id": m.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		return school.TeamMember{}, errors.Wrap(err, "updating team member")
	}
	if n == 0 {
		return school.TeamMember{}, school.ErrTeamMemberNotFound
	}
	return m, nil
}

func (repo schoolRepository) GetTeamMember(ctx context.Context, id string, exec ...core.DBExecutor) (school.TeamMember, error) {
	exe := repo.getExec(exec)
	var m school.TeamMember
	q := builder(exe).Select(teamMemberColumns...).From("team_members").Where(sq.Eq{"id": id})
	if err := getOne(ctx, exe, &m, q); err != nil {
		return school.TeamMember{}, trapNoRowsErr(err, school.ErrTeamMemberNotFound, "finding team member")
	}
	return m, nil
}

func (repo schoolRepository) QueryTeamMembers(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]school.TeamMember, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(teamMemberColumns...).From("team_members").OrderBy("sort_order ASC", "name ASC")
	if activeOnly {
		q = q.Where(sq.Eq{"is_active": true})
	}

	members := make([]school.TeamMember, 0)
	if err := selectAll(ctx, exe, &members, q); err != nil {
		return nil, errors.Wrap(err, "querying team members")
	}
	return members, nil
}

func (repo schoolRepository) DeleteTeamMembers(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("team_members").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting team members")
}

// Testimonials

func (repo schoolRepository) CreateTestimonial(ctx context.Context, t school.Testimonial, exec ...core.DBExecutor) (school.Testimonial, error) {
	exe := repo.getExec(exec)
	t.ID = newID()
	q := builder(exe).Insert("testimonials").Columns(testimonialColumns...).
		Values(t.ID, t.Name, t.Relationship, t.Quote, t.PhotoURL, t.IsFeatured, t.CreatedAt, t.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		return school.Testimonial{}, errors.Wrap(err, "inserting testimonial")
	}
	return t, nil
}

func (repo schoolRepository) UpdateTestimonial(ctx context.Context, t school.Testimonial, exec ...core.DBExecutor) (school.Testimonial, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("testimonials").SetMap(map[string]interface{}{
		"name":         t.Name,
		"relationship": t.Relationship,
		"quote":        t.Quote,
		"photo_url":    t.PhotoURL,
		"is_featured":  t.IsFeatured,
		"updated_at":   t.UpdatedAt,
	}).Where(sq.Eq{"id": t.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		return school.Testimonial{}, errors.Wrap(err, "updating testimonial")
	}
	if n == 0 {
		return school.Testimonial{}, school.ErrTestimonialNotFound
	}
	return t, nil
}

func (repo schoolRepository) GetTestimonial(ctx context.Context, id string, exec ...core.DBExecutor) (school.Testimonial, error) {
	exe := repo.getExec(exec)
	var t school.Testimonial
	q := builder(exe).Select(testimonialColumns...).From("testimonials").Where(sq.Eq{"id": id})
	if err := getOne(ctx, exe, &t, q); err != nil {
		return school.Testimonial{}, trapNoRowsErr(err, school.ErrTestimonialNotFound, "finding testimonial")
	}
	return t, nil
}

func (repo schoolRepository) QueryTestimonials(ctx context.Context, featuredOnly bool, exec ...core.DBExecutor) ([]school.Testimonial, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(testimonialColumns...).From("testimonials").OrderBy("created_at DESC")
	if featuredOnly {
		q = q.Where(sq.Eq{"is_featured": true})
	}

	testimonials := make([]school.Testimonial, 0)
	if err := selectAll(ctx, exe, &testimonials, q); err != nil {
		return nil, errors.Wrap(err, "querying testimonials")
	}
	return testimonials, nil
}

func (repo schoolRepository) DeleteTestimonials(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("testimonials").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting testimonials")
}
