package news

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

// slugFor returns the given slug, or the one derived from name.
func slugFor(slug, name string) string {
	if slug != "" {
		return slug
	}
	return core.Slugify(name)
}

func (svc *Service) checkCategory(ctx context.Context, c *Category, data CategoryData) error {
	c.Slug = slugFor(data.Slug, data.Name)
	if c.Slug == "" {
		return core.NewFieldError("slug", "this field is required")
	}
	other, err := svc.repo.GetCategory(ctx, GetFilter{Slug: c.Slug})
	if err == nil && other.ID != c.ID {
		return core.NewFieldError("slug", ErrSlugExists.Error())
	} else if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "checking slug uniqueness")
	}

	c.ParentID = null.String{}
	if data.ParentID != "" {
		if data.ParentID == c.ID {
			return core.NewFieldError("parent_id", "a category cannot be its own parent")
		}
		if _, err := svc.repo.GetCategory(ctx, GetFilter{ID: data.ParentID}); err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("parent_id", "unknown category")
			}
			return errors.Wrap(err, "finding parent category")
		}
		c.ParentID = null.StringFrom(data.ParentID)
	}

	c.Name = data.Name
	c.Description = data.Description
	c.Order = data.Order
	return nil
}

func (svc *Service) CreateCategory(ctx context.Context, data CategoryData) (Category, error) {
	now := core.Now()
	c := Category{CreatedAt: now, UpdatedAt: now}
	if err := svc.checkCategory(ctx, &c, data); err != nil {
		return Category{}, err
	}
	return svc.repo.CreateCategory(ctx, c)
}

func (svc *Service) UpdateCategory(ctx context.Context, orig Category, data CategoryData) (Category, error) {
	c := orig
	c.UpdatedAt = core.Now()
	if err := svc.checkCategory(ctx, &c, data); err != nil {
		return Category{}, err
	}
	return svc.repo.UpdateCategory(ctx, c)
}

func (svc *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, GetFilter{ID: id})
}

// ListCategories returns all the categories, ordered by (order, name).
func (svc *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, false, 0)
}

// DeleteCategories deletes the categories with their subcategories.
func (svc *Service) DeleteCategories(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteCategories(ctx, ids)
}

func (svc *Service) checkTag(ctx context.Context, t *Tag, data TagData) error {
	t.Slug = slugFor(data.Slug, data.Name)
	if t.Slug == "" {
		return core.NewFieldError("slug", "this field is required")
	}
	other, err := svc.repo.GetTag(ctx, GetFilter{Slug: t.Slug})
	if err == nil && other.ID != t.ID {
		return core.NewFieldError("slug", ErrSlugExists.Error())
	} else if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	t.Name = data.Name
	return nil
}

func (svc *Service) CreateTag(ctx context.Context, data TagData) (Tag, error) {
	var t Tag
	if err := svc.checkTag(ctx, &t, data); err != nil {
		return Tag{}, err
	}
	return svc.repo.CreateTag(ctx, t)
}

func (svc *Service) UpdateTag(ctx context.Context, orig Tag, data TagData) (Tag, error) {
	t := orig
	if err := svc.checkTag(ctx, &t, data); err != nil {
		return Tag{}, err
	}
	return svc.repo.UpdateTag(ctx, t)
}

func (svc *Service) GetTag(ctx context.Context, id string) (Tag, error) {
	return svc.repo.GetTag(ctx, GetFilter{ID: id})
}

func (svc *Service) ListTags(ctx context.Context) ([]Tag, error) {
	return svc.repo.QueryTags(ctx, nil)
}

func (svc *Service) DeleteTags(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteTags(ctx, ids)
}

// ListComments is the moderation list, newest first.
func (svc *Service) ListComments(ctx context.Context, filter CommentFilter) ([]Comment, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Oldest = false
	return svc.repo.QueryComments(ctx, filter)
}

func (svc *Service) ApproveComments(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.SetCommentsActive(ctx, ids, true)
}

func (svc *Service) HideComments(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.SetCommentsActive(ctx, ids, false)
}
