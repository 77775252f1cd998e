package news

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

var (
	// errors
	ErrArticleNotFound  = core.NewNotFoundError("article")
	ErrCategoryNotFound = core.NewNotFoundError("category")
	ErrTagNotFound      = core.NewNotFoundError("tag")
	ErrAuthorNotFound   = core.NewNotFoundError("author")
	ErrCommentNotFound  = core.NewNotFoundError("comment")
	ErrLikeNotFound     = core.NewNotFoundError("like")
	ErrBookmarkNotFound = core.NewNotFoundError("bookmark")
	ErrSlugExists       = errors.New("this slug is already in use")
	ErrEmptyComment     = errors.New("comment cannot be empty")
)

type (
	Repository interface {
		CreateCategory(ctx context.Context, c Category, exec ...core.DBExecutor) (Category, error)
		UpdateCategory(ctx context.Context, c Category, exec ...core.DBExecutor) (Category, error)
		GetCategory(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Category, error)
		// QueryCategories returns categories ordered by (order, name), optionally only the top-level ones.
		QueryCategories(ctx context.Context, topLevel bool, limit int, exec ...core.DBExecutor) ([]Category, error)
		// TopCategories returns the categories with the most published articles on a site (at least one).
		TopCategories(ctx context.Context, siteID string, limit int, exec ...core.DBExecutor) ([]Category, error)
		// DeleteCategories also deletes subcategories, their articles are kept without category.
		DeleteCategories(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateTag(ctx context.Context, t Tag, exec ...core.DBExecutor) (Tag, error)
		UpdateTag(ctx context.Context, t Tag, exec ...core.DBExecutor) (Tag, error)
		GetTag(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Tag, error)
		// QueryTags returns tags ordered by name, all of them when no ids are given.
		QueryTags(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Tag, error)
		TopTags(ctx context.Context, siteID string, limit int, exec ...core.DBExecutor) ([]Tag, error)
		DeleteTags(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		GetAuthor(ctx context.Context, username string, exec ...core.DBExecutor) (Author, error)

		// CreateArticle and UpdateArticle also save the article's tags.
		CreateArticle(ctx context.Context, a Article, exec ...core.DBExecutor) (Article, error)
		UpdateArticle(ctx context.Context, a Article, exec ...core.DBExecutor) (Article, error)
		// GetArticle and QueryArticles load the category, author and tags of the articles.
		GetArticle(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Article, error)
		QueryArticles(ctx context.Context, filter ArticleFilter, exec ...core.DBExecutor) ([]Article, error)
		CountArticles(ctx context.Context, filter ArticleFilter, exec ...core.DBExecutor) (int, error)
		SlugExists(ctx context.Context, slug, excludedID string, exec ...core.DBExecutor) (bool, error)
		DeleteArticles(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		// IncrementViewCount atomically increments the view count and returns the new value.
		IncrementViewCount(ctx context.Context, id string, exec ...core.DBExecutor) (int, error)
		// SetStatus moves the articles currently in one of `from` to status `to`.
		// Articles published by it get publishedAt unless they already have a publication date.
		SetStatus(ctx context.Context, ids []string, from []string, to string, publishedAt time.Time, exec ...core.DBExecutor) (int, error)
		// ClaimNewsletter sets newsletter_sent_at if still unset, and reports whether it did.
		ClaimNewsletter(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (bool, error)
		ReleaseNewsletter(ctx context.Context, id string, exec ...core.DBExecutor) error

		GetLike(ctx context.Context, articleID, userID string, exec ...core.DBExecutor) (Like, error)
		CreateLike(ctx context.Context, l Like, exec ...core.DBExecutor) (Like, error)
		DeleteLike(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountLikes(ctx context.Context, articleID string, exec ...core.DBExecutor) (int, error)
		LikedArticles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Article, error)

		GetBookmark(ctx context.Context, articleID, userID string, exec ...core.DBExecutor) (Bookmark, error)
		CreateBookmark(ctx context.Context, b Bookmark, exec ...core.DBExecutor) (Bookmark, error)
		DeleteBookmark(ctx context.Context, id string, exec ...core.DBExecutor) error
		BookmarkedArticles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Article, error)

		CreateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
		GetComment(ctx context.Context, id string, exec ...core.DBExecutor) (Comment, error)
		QueryComments(ctx context.Context, filter CommentFilter, exec ...core.DBExecutor) ([]Comment, error)
		DeleteComments(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		SetCommentsActive(ctx context.Context, ids []string, active bool, exec ...core.DBExecutor) (int, error)
	}

	// PublishObserver is notified every time an article is saved as published.
	PublishObserver interface {
		ArticlePublished(ctx context.Context, a Article)
	}

	Service struct {
		db       core.DB
		repo     Repository
		observer PublishObserver
		logger   core.Logger
	}
)

// NewService returns a news Service. observer may be nil.
func NewService(db core.DB, repo Repository, observer PublishObserver, logger core.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		observer: observer,
		logger:   logger,
	}
}

func (svc *Service) published(ctx context.Context, articles ...Article) {
	if svc.observer == nil {
		return
	}
	for _, a := range articles {
		if a.IsPublished() {
			svc.observer.ArticlePublished(ctx, a)
		}
	}
}
