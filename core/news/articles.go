package news

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

const defaultSlug = "article"

// ArticlePage is one page of an article listing.
type ArticlePage struct {
	Articles   []Article       `json:"articles"`
	Pagination core.Pagination `json:"pagination"`
}

// uniqueSlug returns base, or base-2, base-3... for the first one not used by another article.
func (svc *Service) uniqueSlug(ctx context.Context, exec core.DBExecutor, base, excludedID string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		exists, err := svc.repo.SlugExists(ctx, slug, excludedID, exec)
		if err != nil {
			return "", errors.Wrap(err, "checking slug uniqueness")
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// fill copies data into a, checking its references and applying the save rules:
// sanitized content, unique slug and publication date.
func (svc *Service) fill(ctx context.Context, exec core.DBExecutor, a *Article, data ArticleData) error {
	if data.Slug == "" {
		base := core.Slugify(data.Title)
		if base == "" {
			base = defaultSlug
		}
		slug, err := svc.uniqueSlug(ctx, exec, base, a.ID)
		if err != nil {
			return err
		}
		a.Slug = slug
	} else {
		exists, err := svc.repo.SlugExists(ctx, data.Slug, a.ID, exec)
		if err != nil {
			return errors.Wrap(err, "checking slug uniqueness")
		}
		if exists {
			return core.NewFieldError("slug", ErrSlugExists.Error())
		}
		a.Slug = data.Slug
	}

	a.CategoryID = null.String{}
	if data.CategoryID != "" {
		if _, err := svc.repo.GetCategory(ctx, GetFilter{ID: data.CategoryID}, exec); err != nil {
			if errors.Cause(err) == ErrCategoryNotFound {
				return core.NewFieldError("category_id", "unknown category")
			}
			return errors.Wrap(err, "finding category")
		}
		a.CategoryID = null.StringFrom(data.CategoryID)
	}

	a.Tags = []Tag{}
	if len(data.TagIDs) > 0 {
		tags, err := svc.repo.QueryTags(ctx, data.TagIDs, exec)
		if err != nil {
			return errors.Wrap(err, "querying tags")
		}
		if len(tags) != len(uniq(data.TagIDs)) {
			return core.NewFieldError("tag_ids", "unknown tag")
		}
		a.Tags = tags
	}

	a.AuthorID = null.NewString(data.AuthorID, data.AuthorID != "")
	a.SiteID = data.SiteID
	a.Title = data.Title
	a.Excerpt = data.Excerpt
	a.Content = core.SanitizeHTML(data.Content)
	a.FeaturedImageURL = data.FeaturedImageURL
	a.FeaturedImageCaption = data.FeaturedImageCaption
	a.Status = data.Status
	a.IsFeatured = data.IsFeatured
	a.MetaTitle = data.MetaTitle
	a.MetaDescription = data.MetaDescription
	a.MetaKeywords = data.MetaKeywords
	if data.PublishedAt != nil {
		a.PublishedAt = null.TimeFrom(data.PublishedAt.UTC())
	}
	if a.Status == StatusPublished && !a.PublishedAt.Valid {
		a.PublishedAt = null.TimeFrom(core.Now())
	}
	return nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (svc *Service) CreateArticle(ctx context.Context, data ArticleData) (Article, error) {
	var art Article
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		now := core.Now()
		a := Article{CreatedAt: now, UpdatedAt: now}
		if err := svc.fill(ctx, exec, &a, data); err != nil {
			return err
		}
		created, err := svc.repo.CreateArticle(ctx, a, exec)
		if err != nil {
			return errors.Wrap(err, "creating article")
		}
		art, err = svc.repo.GetArticle(ctx, GetFilter{ID: created.ID}, exec)
		return err
	})
	if err != nil {
		return Article{}, err
	}
	svc.published(ctx, art)
	return art, nil
}

// UpdateArticle replaces orig's fields by data. A status change must be an allowed transition.
func (svc *Service) UpdateArticle(ctx context.Context, orig Article, data ArticleData) (Article, error) {
	if !CanTransition(orig.Status, data.Status) {
		return Article{}, invalidTransition(orig.Status, data.Status)
	}

	var art Article
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		a := orig
		a.UpdatedAt = core.Now()
		if err := svc.fill(ctx, exec, &a, data); err != nil {
			return err
		}
		if _, err := svc.repo.UpdateArticle(ctx, a, exec); err != nil {
			return errors.Wrap(err, "updating article")
		}
		var err error
		art, err = svc.repo.GetArticle(ctx, GetFilter{ID: a.ID}, exec)
		return err
	})
	if err != nil {
		return Article{}, err
	}
	svc.published(ctx, art)
	return art, nil
}

func invalidTransition(from, to string) error {
	return core.NewFieldError("status", fmt.Sprintf("cannot change status from %s to %s", from, to))
}

// Transition moves an article to another status.
func (svc *Service) Transition(ctx context.Context, id, status string) (Article, error) {
	orig, err := svc.repo.GetArticle(ctx, GetFilter{ID: id})
	if err != nil {
		return Article{}, err
	}
	valid := false
	for _, s := range Statuses {
		valid = valid || s == status
	}
	if !valid {
		return Article{}, core.NewFieldError("status", "must be one of: draft, published, archived")
	}
	if !CanTransition(orig.Status, status) {
		return Article{}, invalidTransition(orig.Status, status)
	}

	a := orig
	a.Status = status
	a.UpdatedAt = core.Now()
	if status == StatusPublished && !a.PublishedAt.Valid {
		a.PublishedAt = null.TimeFrom(a.UpdatedAt)
	}
	if _, err = svc.repo.UpdateArticle(ctx, a); err != nil {
		return Article{}, errors.Wrap(err, "updating article")
	}
	svc.published(ctx, a)
	return a, nil
}

func (svc *Service) GetArticle(ctx context.Context, id string) (Article, error) {
	return svc.repo.GetArticle(ctx, GetFilter{ID: id})
}

// ListArticles is the admin listing: every status, newest first.
func (svc *Service) ListArticles(ctx context.Context, filter AdminFilter) (ArticlePage, error) {
	af := ArticleFilter{
		SiteID:     filter.SiteID,
		CategoryID: filter.CategoryID,
		Search:     core.CleanString(filter.Search),
		Ordering:   []core.DBOrdering{{Field: "updated_at"}},
	}
	if filter.Status != "" {
		af.Statuses = []string{filter.Status}
	}
	return svc.page(ctx, af, filter.Page, core.PageSize)
}

func (svc *Service) DeleteArticles(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteArticles(ctx, ids)
}

// BulkPublish publishes the given drafts and returns how many were published.
func (svc *Service) BulkPublish(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drafts, err := svc.repo.QueryArticles(ctx, ArticleFilter{IDs: ids, Statuses: []string{StatusDraft}})
	if err != nil {
		return 0, errors.Wrap(err, "querying drafts")
	}
	if len(drafts) == 0 {
		return 0, nil
	}
	draftIDs := make([]string, 0, len(drafts))
	for _, a := range drafts {
		draftIDs = append(draftIDs, a.ID)
	}

	n, err := svc.repo.SetStatus(ctx, draftIDs, []string{StatusDraft}, StatusPublished, core.Now())
	if err != nil {
		return 0, errors.Wrap(err, "publishing articles")
	}
	if n > 0 && svc.observer != nil {
		articles, err := svc.repo.QueryArticles(ctx, ArticleFilter{IDs: draftIDs, Statuses: []string{StatusPublished}})
		if err != nil {
			return n, errors.Wrap(err, "querying published articles")
		}
		svc.published(ctx, articles...)
	}
	return n, nil
}

// BulkArchive archives the given drafts and published articles.
func (svc *Service) BulkArchive(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := svc.repo.SetStatus(ctx, ids, []string{StatusDraft, StatusPublished}, StatusArchived, core.Now())
	return n, errors.Wrap(err, "archiving articles")
}
