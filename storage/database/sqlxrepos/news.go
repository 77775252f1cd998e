package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
)

var (
	categoryColumns = []string{"id", "name", "slug", "description", "parent_id", "sort_order", "created_at", "updated_at"}
	tagColumns      = []string{"id", "name", "slug"}
	articleColumns  = []string{
		"id", "site_id", "title", "slug", "excerpt", "content", "featured_image_url", "featured_image_caption",
		"category_id", "author_id", "status", "published_at", "is_featured", "view_count",
		"meta_title", "meta_description", "meta_keywords", "newsletter_sent_at", "created_at", "updated_at",
	}
	commentColumns = []string{
		"c.id", "c.article_id", "c.user_id", "c.content", "c.is_active", "c.created_at", "c.updated_at",
		"u.username", "a.title AS article_title", "a.slug AS article_slug",
	}
	likeColumns     = []string{"id", "article_id", "user_id", "ip_address", "created_at", "updated_at"}
	bookmarkColumns = []string{"id", "article_id", "user_id", "created_at", "updated_at"}

	articleOrderings = map[string]string{
		"title":        "a.title",
		"status":       "a.status",
		"published_at": "a.published_at",
		"view_count":   "a.view_count",
		"created_at":   "a.created_at",
		"updated_at":   "a.updated_at",
	}
)

// prefixed qualifies cols with a table alias.
func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = alias + "." + col
	}
	return out
}

type newsRepository struct {
	repository
}

var _ news.Repository = (*newsRepository)(nil)

func NewNewsRepository(exec core.DBExecutor) *newsRepository {
	return &newsRepository{repository{exec: exec}}
}

// Categories

func (repo newsRepository) CreateCategory(ctx context.Context, c news.Category, exec ...core.DBExecutor) (news.Category, error) {
	exe := repo.getExec(exec)
	c.ID = newID()
	q := builder(exe).Insert("categories").Columns(categoryColumns...).
		Values(c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.Order, c.CreatedAt, c.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return news.Category{}, core.NewFieldError("slug", news.ErrSlugExists.Error())
		}
		return news.Category{}, errors.Wrap(err, "inserting category")
	}
	return c, nil
}

func (repo newsRepository) UpdateCategory(ctx context.Context, c news.Category, exec ...core.DBExecutor) (news.Category, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("categories").SetMap(map[string]interface{}{
		"name":        c.Name,
		"slug":        c.Slug,
		"description": c.Description,
		"parent_id":   c.ParentID,
		"sort_order":  c.Order,
		"updated_at":  c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return news.Category{}, core.NewFieldError("slug", news.ErrSlugExists.Error())
		}
		return news.Category{}, errors.Wrap(err, "updating category")
	}
	if n == 0 {
		return news.Category{}, news.ErrCategoryNotFound
	}
	return c, nil
}

func (repo newsRepository) GetCategory(ctx context.Context, filter news.GetFilter, exec ...core.DBExecutor) (news.Category, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(categoryColumns...).From("categories")
	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Slug != "":
		q = q.Where(sq.Eq{"slug": filter.Slug})
	default:
		return news.Category{}, news.ErrCategoryNotFound
	}

	var c news.Category
	if err := getOne(ctx, exe, &c, q); err != nil {
		return news.Category{}, trapNoRowsErr(err, news.ErrCategoryNotFound, "finding category")
	}
	return c, nil
}

func (repo newsRepository) QueryCategories(ctx context.Context, topLevel bool, limit int, exec ...core.DBExecutor) ([]news.Category, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(categoryColumns...).From("categories").OrderBy("sort_order ASC", "name ASC")
	if topLevel {
		q = q.Where(sq.Eq{"parent_id": nil})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	cats := make([]news.Category, 0)
	if err := selectAll(ctx, exe, &cats, q); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	return cats, nil
}

func (repo newsRepository) TopCategories(ctx context.Context, siteID string, limit int, exec ...core.DBExecutor) ([]news.Category, error) {
	exe := repo.getExec(exec)
	cols := prefixed("c", categoryColumns)
	q := builder(exe).Select(append(cols, "COUNT(a.id) AS article_count")...).
		From("categories c").
		Join("articles a ON a.category_id = c.id AND a.status = ? AND a.site_id = ?", news.StatusPublished, siteID).
		GroupBy(cols...).
		OrderBy("article_count DESC", "c.name ASC").
		Limit(uint64(limit))

	cats := make([]news.Category, 0)
	if err := selectAll(ctx, exe, &cats, q); err != nil {
		return nil, errors.Wrap(err, "querying top categories")
	}
	return cats, nil
}

func (repo newsRepository) DeleteCategories(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("categories").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting categories")
}

// Tags

func (repo newsRepository) CreateTag(ctx context.Context, t news.Tag, exec ...core.DBExecutor) (news.Tag, error) {
	exe := repo.getExec(exec)
	t.ID = newID()
	q := builder(exe).Insert("tags").Columns(tagColumns...).Values(t.ID, t.Name, t.Slug)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return news.Tag{}, core.NewFieldError("slug", news.ErrSlugExists.Error())
		}
		return news.Tag{}, errors.Wrap(err, "inserting tag")
	}
	return t, nil
}

func (repo newsRepository) UpdateTag(ctx context.Context, t news.Tag, exec ...core.DBExecutor) (news.Tag, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("tags").Set("name", t.Name).Set("slug", t.Slug).Where(sq.Eq{"id": t.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return news.Tag{}, core.NewFieldError("slug", news.ErrSlugExists.Error())
		}
		return news.Tag{}, errors.Wrap(err, "updating tag")
	}
	if n == 0 {
		return news.Tag{}, news.ErrTagNotFound
	}
	return t, nil
}

func (repo newsRepository) GetTag(ctx context.Context, filter news.GetFilter, exec ...core.DBExecutor) (news.Tag, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(tagColumns...).From("tags")
	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Slug != "":
		q = q.Where(sq.Eq{"slug": filter.Slug})
	default:
		return news.Tag{}, news.ErrTagNotFound
	}

	var t news.Tag
	if err := getOne(ctx, exe, &t, q); err != nil {
		return news.Tag{}, trapNoRowsErr(err, news.ErrTagNotFound, "finding tag")
	}
	return t, nil
}

func (repo newsRepository) QueryTags(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]news.Tag, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(tagColumns...).From("tags").OrderBy("name ASC")
	if len(ids) > 0 {
		q = q.Where(sq.Eq{"id": ids})
	}

	tags := make([]news.Tag, 0)
	if err := selectAll(ctx, exe, &tags, q); err != nil {
		return nil, errors.Wrap(err, "querying tags")
	}
	return tags, nil
}

func (repo newsRepository) TopTags(ctx context.Context, siteID string, limit int, exec ...core.DBExecutor) ([]news.Tag, error) {
	exe := repo.getExec(exec)
	cols := prefixed("t", tagColumns)
	q := builder(exe).Select(append(cols, "COUNT(a.id) AS article_count")...).
		From("tags t").
		Join("article_tags at ON at.tag_id = t.id").
		Join("articles a ON a.id = at.article_id AND a.status = ? AND a.site_id = ?", news.StatusPublished, siteID).
		GroupBy(cols...).
		OrderBy("article_count DESC", "t.name ASC").
		Limit(uint64(limit))

	tags := make([]news.Tag, 0)
	if err := selectAll(ctx, exe, &tags, q); err != nil {
		return nil, errors.Wrap(err, "querying top tags")
	}
	return tags, nil
}

func (repo newsRepository) DeleteTags(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("tags").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting tags")
}

// Authors

type authorRow struct {
	ID        string `db:"id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

func (row authorRow) author() news.Author {
	name := strings.TrimSpace(row.FirstName + " " + row.LastName)
	if name == "" {
		name = row.Username
	}
	return news.Author{ID: row.ID, Username: row.Username, FullName: name}
}

func (repo newsRepository) GetAuthor(ctx context.Context, username string, exec ...core.DBExecutor) (news.Author, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select("id", "username", "first_name", "last_name").From("users").
		Where(sq.Eq{"LOWER(username)": strings.ToLower(username)})

	var row authorRow
	if err := getOne(ctx, exe, &row, q); err != nil {
		return news.Author{}, trapNoRowsErr(err, news.ErrAuthorNotFound, "finding author")
	}
	return row.author(), nil
}

// Articles

func (repo newsRepository) setTags(ctx context.Context, exe core.DBExecutor, a news.Article) error {
	if _, err := execute(ctx, exe, builder(exe).Delete("article_tags").Where(sq.Eq{"article_id": a.ID})); err != nil {
		return errors.Wrap(err, "clearing article tags")
	}
	if len(a.Tags) == 0 {
		return nil
	}
	q := builder(exe).Insert("article_tags").Columns("article_id", "tag_id")
	for _, id := range a.TagIDs() {
		q = q.Values(a.ID, id)
	}
	_, err := execute(ctx, exe, q)
	return errors.Wrap(err, "inserting article tags")
}

func (repo newsRepository) CreateArticle(ctx context.Context, a news.Article, exec ...core.DBExecutor) (news.Article, error) {
	exe := repo.getExec(exec)
	a.ID = newID()
	q := builder(exe).Insert("articles").Columns(articleColumns...).Values(
		a.ID, a.SiteID, a.Title, a.Slug, a.Excerpt, a.Content, a.FeaturedImageURL, a.FeaturedImageCaption,
		a.CategoryID, a.AuthorID, a.Status, a.PublishedAt, a.IsFeatured, a.ViewCount,
		a.MetaTitle, a.MetaDescription, a.MetaKeywords, a.NewsletterSentAt, a.CreatedAt, a.UpdatedAt,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return news.Article{}, core.NewFieldError("slug", news.ErrSlugExists.Error())
		}
		return news.Article{}, errors.Wrap(err, "inserting article")
	}
	if err := repo.setTags(ctx, exe, a); err != nil {
		return news.Article{}, err
	}
	return a, nil
}

// UpdateArticle saves everything but the view count and the newsletter claim, which have their own statements.
func (repo newsRepository) UpdateArticle(ctx context.Context, a news.Article, exec ...core.DBExecutor) (news.Article, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("articles").SetMap(map[string]interface{}{
		"site_id":                a.SiteID,
		"title":                  a.Title,
		"slug":                   a.Slug,
		"excerpt":                a.Excerpt,
		"content":                a.Content,
		"featured_image_url":     a.FeaturedImageURL,
		"featured_image_caption": a.FeaturedImageCaption,
		"category_id":            a.CategoryID,
		"author_id":              a.AuthorID,
		"status":                 a.Status,
		"published_at":           a.PublishedAt,
		"is_featured":            a.IsFeatured,
		"meta_title":             a.MetaTitle,
		"meta_description":       a.MetaDescription,
		"meta_keywords":          a.MetaKeywords,
		"updated_at":             a.UpdatedAt,
	}).Where(sq.Eq{"id": a.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return news.Article{}, core.NewFieldError("slug", news.ErrSlugExists.Error())
		}
		return news.Article{}, errors.Wrap(err, "updating article")
	}
	if n == 0 {
		return news.Article{}, news.ErrArticleNotFound
	}
	if a.Tags != nil {
		if err := repo.setTags(ctx, exe, a); err != nil {
			return news.Article{}, err
		}
	}
	return a, nil
}

func (repo newsRepository) GetArticle(ctx context.Context, filter news.GetFilter, exec ...core.DBExecutor) (news.Article, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(prefixed("a", articleColumns)...).From("articles a")
	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"a.id": filter.ID})
	case filter.Slug != "":
		q = q.Where(sq.Eq{"a.slug": filter.Slug})
	default:
		return news.Article{}, news.ErrArticleNotFound
	}
	if filter.SiteID != "" {
		q = q.Where(sq.Eq{"a.site_id": filter.SiteID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"a.status": filter.Status})
	}

	var a news.Article
	if err := getOne(ctx, exe, &a, q); err != nil {
		return news.Article{}, trapNoRowsErr(err, news.ErrArticleNotFound, "finding article")
	}
	articles := []news.Article{a}
	if err := repo.loadRelations(ctx, exe, articles); err != nil {
		return news.Article{}, err
	}
	return articles[0], nil
}

func filterArticles(q sq.SelectBuilder, filter news.ArticleFilter) sq.SelectBuilder {
	if len(filter.IDs) > 0 {
		q = q.Where(sq.Eq{"a.id": filter.IDs})
	}
	if filter.SiteID != "" {
		q = q.Where(sq.Eq{"a.site_id": filter.SiteID})
	}
	if len(filter.Statuses) > 0 {
		q = q.Where(sq.Eq{"a.status": filter.Statuses})
	}
	if filter.CategoryID != "" {
		q = q.Where(sq.Eq{"a.category_id": filter.CategoryID})
	}
	if filter.TagID != "" {
		q = q.Where(sq.Expr("a.id IN (SELECT article_id FROM article_tags WHERE tag_id = ?)", filter.TagID))
	}
	if filter.AuthorID != "" {
		q = q.Where(sq.Eq{"a.author_id": filter.AuthorID})
	}
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where(append(
			ilike(filter.Search, "a.title", "a.excerpt", "a.content"),
			sq.Expr(
				"a.id IN (SELECT at.article_id FROM article_tags at JOIN tags t ON t.id = at.tag_id WHERE LOWER(t.name) LIKE ?)",
				val,
			),
		))
	}
	if !filter.PublishedFrom.IsZero() {
		q = q.Where(sq.GtOrEq{"a.published_at": filter.PublishedFrom.UTC()})
	}
	if !filter.PublishedTo.IsZero() {
		q = q.Where(sq.Lt{"a.published_at": filter.PublishedTo.UTC()})
	}
	if len(filter.ExcludeIDs) > 0 {
		q = q.Where(sq.NotEq{"a.id": filter.ExcludeIDs})
	}
	if filter.IsFeatured != nil {
		q = q.Where(sq.Eq{"a.is_featured": *filter.IsFeatured})
	}
	return q
}

func (repo newsRepository) QueryArticles(ctx context.Context, filter news.ArticleFilter, exec ...core.DBExecutor) ([]news.Article, error) {
	exe := repo.getExec(exec)
	q := filterArticles(builder(exe).Select(prefixed("a", articleColumns)...).From("articles a"), filter)
	q = q.OrderBy(orderBy(filter.Ordering, articleOrderings, "a.published_at DESC", "a.created_at DESC")...)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	articles := make([]news.Article, 0)
	if err := selectAll(ctx, exe, &articles, q); err != nil {
		return nil, errors.Wrap(err, "querying articles")
	}
	if err := repo.loadRelations(ctx, exe, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (repo newsRepository) CountArticles(ctx context.Context, filter news.ArticleFilter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	return count(ctx, exe, filterArticles(builder(exe).Select("COUNT(*)").From("articles a"), filter))
}

// loadRelations fills the category, author and tags of articles.
func (repo newsRepository) loadRelations(ctx context.Context, exe core.DBExecutor, articles []news.Article) error {
	if len(articles) == 0 {
		return nil
	}
	ids := make([]string, 0, len(articles))
	var catIDs, authorIDs []string
	for _, a := range articles {
		ids = append(ids, a.ID)
		if a.CategoryID.Valid {
			catIDs = append(catIDs, a.CategoryID.String)
		}
		if a.AuthorID.Valid {
			authorIDs = append(authorIDs, a.AuthorID.String)
		}
	}

	cats := make(map[string]news.Category)
	if len(catIDs) > 0 {
		var rows []news.Category
		q := builder(exe).Select(categoryColumns...).From("categories").Where(sq.Eq{"id": catIDs})
		if err := selectAll(ctx, exe, &rows, q); err != nil {
			return errors.Wrap(err, "loading article categories")
		}
		for _, c := range rows {
			cats[c.ID] = c
		}
	}

	authors := make(map[string]news.Author)
	if len(authorIDs) > 0 {
		var rows []authorRow
		q := builder(exe).Select("id", "username", "first_name", "last_name").From("users").Where(sq.Eq{"id": authorIDs})
		if err := selectAll(ctx, exe, &rows, q); err != nil {
			return errors.Wrap(err, "loading article authors")
		}
		for _, row := range rows {
			authors[row.ID] = row.author()
		}
	}

	var tagRows []struct {
		ArticleID string `db:"article_id"`
		ID        string `db:"id"`
		Name      string `db:"name"`
		Slug      string `db:"slug"`
	}
	q := builder(exe).Select("at.article_id", "t.id", "t.name", "t.slug").
		From("article_tags at").
		Join("tags t ON t.id = at.tag_id").
		Where(sq.Eq{"at.article_id": ids}).
		OrderBy("t.name ASC")
	if err := selectAll(ctx, exe, &tagRows, q); err != nil {
		return errors.Wrap(err, "loading article tags")
	}
	tags := make(map[string][]news.Tag)
	for _, row := range tagRows {
		tags[row.ArticleID] = append(tags[row.ArticleID], news.Tag{ID: row.ID, Name: row.Name, Slug: row.Slug})
	}

	for i := range articles {
		a := &articles[i]
		if c, ok := cats[a.CategoryID.String]; ok {
			a.Category = &c
		}
		if au, ok := authors[a.AuthorID.String]; ok {
			a.Author = &au
		}
		a.Tags = tags[a.ID]
		if a.Tags == nil {
			a.Tags = []news.Tag{}
		}
	}
	return nil
}

func (repo newsRepository) SlugExists(ctx context.Context, slug, excludedID string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select("COUNT(*)").From("articles").Where(sq.Eq{"slug": slug})
	if excludedID != "" {
		q = q.Where(sq.NotEq{"id": excludedID})
	}
	n, err := count(ctx, exe, q)
	return n > 0, err
}

func (repo newsRepository) DeleteArticles(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("articles").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting articles")
}

func (repo newsRepository) IncrementViewCount(ctx context.Context, id string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("articles").Set("view_count", sq.Expr("view_count + 1")).Where(sq.Eq{"id": id})
	n, err := execute(ctx, exe, q)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, news.ErrArticleNotFound
	}
	return count(ctx, exe, builder(exe).Select("view_count").From("articles").Where(sq.Eq{"id": id}))
}

func (repo newsRepository) SetStatus(ctx context.Context, ids []string, from []string, to string, publishedAt time.Time, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("articles").
		Set("status", to).
		Set("updated_at", core.Now()).
		Where(sq.Eq{"id": ids, "status": from})
	if to == news.StatusPublished {
		q = q.Set("published_at", sq.Expr("COALESCE(published_at, ?)", publishedAt.UTC()))
	}
	n, err := execute(ctx, exe, q)
	return int(n), err
}

func (repo newsRepository) ClaimNewsletter(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("articles").
		Set("newsletter_sent_at", at.UTC()).
		Where(sq.Eq{"id": id, "newsletter_sent_at": nil})
	n, err := execute(ctx, exe, q)
	if err != nil {
		return false, errors.Wrap(err, "claiming newsletter")
	}
	return n > 0, nil
}

func (repo newsRepository) ReleaseNewsletter(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	_, err := execute(ctx, exe, builder(exe).Update("articles").Set("newsletter_sent_at", nil).Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "releasing newsletter")
}

// Likes

func (repo newsRepository) GetLike(ctx context.Context, articleID, userID string, exec ...core.DBExecutor) (news.Like, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(likeColumns...).From("article_likes").
		Where(sq.Eq{"article_id": articleID, "user_id": userID}).
		Limit(1)

	var l news.Like
	if err := getOne(ctx, exe, &l, q); err != nil {
		return news.Like{}, trapNoRowsErr(err, news.ErrLikeNotFound, "finding like")
	}
	return l, nil
}

func (repo newsRepository) CreateLike(ctx context.Context, l news.Like, exec ...core.DBExecutor) (news.Like, error) {
	exe := repo.getExec(exec)
	l.ID = newID()
	q := builder(exe).Insert("article_likes").Columns(likeColumns...).
		Values(l.ID, l.ArticleID, l.UserID, l.IPAddress, l.CreatedAt, l.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		return news.Like{}, errors.Wrap(err, "inserting like")
	}
	return l, nil
}

func (repo newsRepository) DeleteLike(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	_, err := execute(ctx, exe, builder(exe).Delete("article_likes").Where(sq.Eq{"id": id}))
	return err
}

func (repo newsRepository) CountLikes(ctx context.Context, articleID string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	return count(ctx, exe, builder(exe).Select("COUNT(*)").From("article_likes").Where(sq.Eq{"article_id": articleID}))
}

func (repo newsRepository) LikedArticles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]news.Article, error) {
	return repo.articlesVia(ctx, "article_likes", userID, exec...)
}

// articlesVia returns the articles linked to a user through table, latest link first.
func (repo newsRepository) articlesVia(ctx context.Context, table, userID string, exec ...core.DBExecutor) ([]news.Article, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(prefixed("a", articleColumns)...).
		From("articles a").
		Join(table + " l ON l.article_id = a.id").
		Where(sq.Eq{"l.user_id": userID}).
		OrderBy("l.created_at DESC")

	articles := make([]news.Article, 0)
	if err := selectAll(ctx, exe, &articles, q); err != nil {
		return nil, errors.Wrapf(err, "querying articles via %s", table)
	}
	if err := repo.loadRelations(ctx, exe, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// Bookmarks

func (repo newsRepository) GetBookmark(ctx context.Context, articleID, userID string, exec ...core.DBExecutor) (news.Bookmark, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(bookmarkColumns...).From("article_bookmarks").
		Where(sq.Eq{"article_id": articleID, "user_id": userID})

	var b news.Bookmark
	if err := getOne(ctx, exe, &b, q); err != nil {
		return news.Bookmark{}, trapNoRowsErr(err, news.ErrBookmarkNotFound, "finding bookmark")
	}
	return b, nil
}

func (repo newsRepository) CreateBookmark(ctx context.Context, b news.Bookmark, exec ...core.DBExecutor) (news.Bookmark, error) {
	exe := repo.getExec(exec)
	b.ID = newID()
	q := builder(exe).Insert("article_bookmarks").Columns(bookmarkColumns...).
		Values(b.ID, b.ArticleID, b.UserID, b.CreatedAt, b.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		return news.Bookmark{}, errors.Wrap(err, "inserting bookmark")
	}
	return b, nil
}

func (repo newsRepository) DeleteBookmark(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	_, err := execute(ctx, exe, builder(exe).Delete("article_bookmarks").Where(sq.Eq{"id": id}))
	return err
}

func (repo newsRepository) BookmarkedArticles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]news.Article, error) {
	return repo.articlesVia(ctx, "article_bookmarks", userID, exec...)
}

// Comments

func (repo newsRepository) CreateComment(ctx context.Context, c news.Comment, exec ...core.DBExecutor) (news.Comment, error) {
	exe := repo.getExec(exec)
	c.ID = newID()
	q := builder(exe).Insert("comments").
		Columns("id", "article_id", "user_id", "content", "is_active", "created_at", "updated_at").
		Values(c.ID, c.ArticleID, c.UserID, c.Content, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		return news.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func selectComments(b sq.StatementBuilderType) sq.SelectBuilder {
	return b.Select(commentColumns...).
		From("comments c").
		Join("users u ON u.id = c.user_id").
		Join("articles a ON a.id = c.article_id")
}

func (repo newsRepository) GetComment(ctx context.Context, id string, exec ...core.DBExecutor) (news.Comment, error) {
	exe := repo.getExec(exec)
	var c news.Comment
	if err := getOne(ctx, exe, &c, selectComments(builder(exe)).Where(sq.Eq{"c.id": id})); err != nil {
		return news.Comment{}, trapNoRowsErr(err, news.ErrCommentNotFound, "finding comment")
	}
	return c, nil
}

func (repo newsRepository) QueryComments(ctx context.Context, filter news.CommentFilter, exec ...core.DBExecutor) ([]news.Comment, error) {
	exe := repo.getExec(exec)
	q := selectComments(builder(exe))
	if filter.ArticleID != "" {
		q = q.Where(sq.Eq{"c.article_id": filter.ArticleID})
	}
	if filter.UserID != "" {
		q = q.Where(sq.Eq{"c.user_id": filter.UserID})
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"c.is_active": *filter.IsActive})
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "c.content", "u.username", "a.title"))
	}
	if filter.Oldest {
		q = q.OrderBy("c.created_at ASC")
	} else {
		q = q.OrderBy("c.created_at DESC")
	}

	comments := make([]news.Comment, 0)
	if err := selectAll(ctx, exe, &comments, q); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	return comments, nil
}

func (repo newsRepository) DeleteComments(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("comments").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting comments")
}

func (repo newsRepository) SetCommentsActive(ctx context.Context, ids []string, active bool, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("comments").
		Set("is_active", active).
		Set("updated_at", core.Now()).
		Where(sq.Eq{"id": ids})
	n, err := execute(ctx, exe, q)
	return int(n), errors.Wrap(err, "updating comments")
}
