package news

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

const (
	relatedLimit       = 3
	feedLimit          = 20
	navCategoriesLimit = 8
	popularLimit       = 5
	topCategoriesLimit = 8
	topTagsLimit       = 20
)

var latestFirst = []core.DBOrdering{{Field: "published_at"}, {Field: "created_at"}}

type (
	HomePage struct {
		Featured *Article `json:"featured"`
		ArticlePage
	}

	ArticleDetail struct {
		Article
		ReadingTime  int       `json:"reading_time"`
		LikeCount    int       `json:"like_count"`
		CommentCount int       `json:"comment_count"`
		IsBookmarked bool      `json:"is_bookmarked"`
		IsLiked      bool      `json:"is_liked"`
		Comments     []Comment `json:"comments"`
		Related      []Article `json:"related"`
	}

	Sidebar struct {
		Popular       []Article  `json:"popular_articles"`
		TopCategories []Category `json:"top_categories"`
		TopTags       []Tag      `json:"top_tags"`
	}
)

// publishedOn returns the filter of the published articles of a site.
func publishedOn(siteID string) ArticleFilter {
	return ArticleFilter{
		SiteID:   siteID,
		Statuses: []string{StatusPublished},
		Ordering: latestFirst,
	}
}

// page runs filter for one page of `size` articles. The page number is clamped to the existing pages.
func (svc *Service) page(ctx context.Context, filter ArticleFilter, number, size int) (ArticlePage, error) {
	total, err := svc.repo.CountArticles(ctx, filter)
	if err != nil {
		return ArticlePage{}, errors.Wrap(err, "counting articles")
	}
	p := core.NewPagination(number, size, total)
	filter.Limit = p.Limit()
	filter.Offset = p.Offset()

	articles, err := svc.repo.QueryArticles(ctx, filter)
	if err != nil {
		return ArticlePage{}, errors.Wrap(err, "querying articles")
	}
	if articles == nil {
		articles = []Article{}
	}
	return ArticlePage{Articles: articles, Pagination: p}, nil
}

// Home returns the featured article (the newest featured one, or else the newest one)
// and a page of the other published articles.
func (svc *Service) Home(ctx context.Context, siteID string, page int) (HomePage, error) {
	featured, err := svc.featured(ctx, siteID)
	if err != nil {
		return HomePage{}, err
	}

	filter := publishedOn(siteID)
	if featured != nil {
		filter.ExcludeIDs = []string{featured.ID}
	}
	p, err := svc.page(ctx, filter, page, core.PageSize)
	if err != nil {
		return HomePage{}, err
	}
	return HomePage{Featured: featured, ArticlePage: p}, nil
}

func (svc *Service) featured(ctx context.Context, siteID string) (*Article, error) {
	isFeatured := true
	filter := publishedOn(siteID)
	filter.IsFeatured = &isFeatured
	filter.Limit = 1
	for i := 0; i < 2; i++ {
		articles, err := svc.repo.QueryArticles(ctx, filter)
		if err != nil {
			return nil, errors.Wrap(err, "querying featured article")
		}
		if len(articles) > 0 {
			return &articles[0], nil
		}
		filter.IsFeatured = nil // fall back to the newest article
	}
	return nil, nil
}

// LoadMore returns pages of 9 published articles, featured ones included.
func (svc *Service) LoadMore(ctx context.Context, siteID string, page int) (ArticlePage, error) {
	return svc.page(ctx, publishedOn(siteID), page, core.LoadMorePageSize)
}

func (svc *Service) ByCategory(ctx context.Context, siteID, slug string, page int) (Category, ArticlePage, error) {
	cat, err := svc.repo.GetCategory(ctx, GetFilter{Slug: slug})
	if err != nil {
		return Category{}, ArticlePage{}, err
	}
	filter := publishedOn(siteID)
	filter.CategoryID = cat.ID
	p, err := svc.page(ctx, filter, page, core.PageSize)
	return cat, p, err
}

func (svc *Service) ByTag(ctx context.Context, siteID, slug string, page int) (Tag, ArticlePage, error) {
	tag, err := svc.repo.GetTag(ctx, GetFilter{Slug: slug})
	if err != nil {
		return Tag{}, ArticlePage{}, err
	}
	filter := publishedOn(siteID)
	filter.TagID = tag.ID
	p, err := svc.page(ctx, filter, page, core.PageSize)
	return tag, p, err
}

func (svc *Service) ByAuthor(ctx context.Context, siteID, username string, page int) (Author, ArticlePage, error) {
	author, err := svc.repo.GetAuthor(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		return Author{}, ArticlePage{}, err
	}
	filter := publishedOn(siteID)
	filter.AuthorID = author.ID
	p, err := svc.page(ctx, filter, page, core.PageSize)
	return author, p, err
}

// Archive lists the articles published in a year, or in one of its months when month is not 0.
func (svc *Service) Archive(ctx context.Context, siteID string, year, month, page int) (ArticlePage, error) {
	if year < 1 || month < 0 || month > 12 {
		return ArticlePage{}, core.NewFieldError("month", "invalid archive date")
	}
	filter := publishedOn(siteID)
	if month == 0 {
		filter.PublishedFrom = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		filter.PublishedTo = filter.PublishedFrom.AddDate(1, 0, 0)
	} else {
		filter.PublishedFrom = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		filter.PublishedTo = filter.PublishedFrom.AddDate(0, 1, 0)
	}
	return svc.page(ctx, filter, page, core.PageSize)
}

// Search matches q in the title, excerpt, content or tags of published articles. A blank q finds nothing.
func (svc *Service) Search(ctx context.Context, siteID, q string, page int) (ArticlePage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return ArticlePage{Articles: []Article{}, Pagination: core.NewPagination(1, core.PageSize, 0)}, nil
	}
	filter := publishedOn(siteID)
	filter.Search = q
	return svc.page(ctx, filter, page, core.PageSize)
}

// Detail returns a published article and counts the view.
// viewerID is the logged in user, or "" for anonymous visitors.
func (svc *Service) Detail(ctx context.Context, siteID, slug, viewerID string) (ArticleDetail, error) {
	a, err := svc.repo.GetArticle(ctx, GetFilter{Slug: slug, SiteID: siteID, Status: StatusPublished})
	if err != nil {
		return ArticleDetail{}, err
	}

	if a.ViewCount, err = svc.repo.IncrementViewCount(ctx, a.ID); err != nil {
		return ArticleDetail{}, errors.Wrap(err, "incrementing view count")
	}

	detail := ArticleDetail{Article: a, ReadingTime: a.ReadingTime(), Related: []Article{}}

	if a.CategoryID.Valid {
		filter := publishedOn(siteID)
		filter.CategoryID = a.CategoryID.String
		filter.ExcludeIDs = []string{a.ID}
		filter.Limit = relatedLimit
		if detail.Related, err = svc.repo.QueryArticles(ctx, filter); err != nil {
			return ArticleDetail{}, errors.Wrap(err, "querying related articles")
		}
	}

	if detail.Comments, err = svc.activeComments(ctx, a.ID); err != nil {
		return ArticleDetail{}, err
	}
	detail.CommentCount = len(detail.Comments)

	if detail.LikeCount, err = svc.repo.CountLikes(ctx, a.ID); err != nil {
		return ArticleDetail{}, errors.Wrap(err, "counting likes")
	}

	if viewerID != "" {
		if detail.IsBookmarked, err = svc.exists(svc.repo.GetBookmark(ctx, a.ID, viewerID)); err != nil {
			return ArticleDetail{}, errors.Wrap(err, "finding bookmark")
		}
		if detail.IsLiked, err = svc.exists(svc.repo.GetLike(ctx, a.ID, viewerID)); err != nil {
			return ArticleDetail{}, errors.Wrap(err, "finding like")
		}
	}
	return detail, nil
}

// exists turns the result of a lookup into a boolean, not found errors being false.
func (svc *Service) exists(_ interface{}, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if core.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (svc *Service) Sidebar(ctx context.Context, siteID string) (Sidebar, error) {
	var sb Sidebar
	var err error

	popular := publishedOn(siteID)
	popular.Ordering = []core.DBOrdering{{Field: "view_count"}, {Field: "published_at"}}
	popular.Limit = popularLimit
	if sb.Popular, err = svc.repo.QueryArticles(ctx, popular); err != nil {
		return Sidebar{}, errors.Wrap(err, "querying popular articles")
	}
	if sb.TopCategories, err = svc.repo.TopCategories(ctx, siteID, topCategoriesLimit); err != nil {
		return Sidebar{}, errors.Wrap(err, "querying top categories")
	}
	if sb.TopTags, err = svc.repo.TopTags(ctx, siteID, topTagsLimit); err != nil {
		return Sidebar{}, errors.Wrap(err, "querying top tags")
	}
	return sb, nil
}

// NavCategories returns the top-level categories shown in the navigation.
func (svc *Service) NavCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, true, navCategoriesLimit)
}

// LatestFeed returns the 20 newest published articles of a site.
func (svc *Service) LatestFeed(ctx context.Context, siteID string) ([]Article, error) {
	filter := publishedOn(siteID)
	filter.Limit = feedLimit
	return svc.repo.QueryArticles(ctx, filter)
}

func (svc *Service) CategoryFeed(ctx context.Context, siteID, slug string) (Category, []Article, error) {
	cat, err := svc.repo.GetCategory(ctx, GetFilter{Slug: slug})
	if err != nil {
		return Category{}, nil, err
	}
	filter := publishedOn(siteID)
	filter.CategoryID = cat.ID
	filter.Limit = feedLimit
	articles, err := svc.repo.QueryArticles(ctx, filter)
	return cat, articles, err
}

func ArticlePath(slug string) string {
	return "/news/" + slug + "/"
}

func (svc *Service) SitemapArticles(ctx context.Context, siteID string) ([]core.SitemapEntry, error) {
	articles, err := svc.repo.QueryArticles(ctx, publishedOn(siteID))
	if err != nil {
		return nil, errors.Wrap(err, "querying articles")
	}
	entries := make([]core.SitemapEntry, 0, len(articles))
	for _, a := range articles {
		entries = append(entries, core.SitemapEntry{
			Loc:        ArticlePath(a.Slug),
			LastMod:    a.UpdatedAt,
			ChangeFreq: core.ChangeFreqWeekly,
			Priority:   0.8,
		})
	}
	return entries, nil
}
