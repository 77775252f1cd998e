package news

import (
	"math"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

// Article statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

var (
	Statuses = []string{StatusDraft, StatusPublished, StatusArchived}

	// transitions lists the statuses reachable from each status. Staying in the same status is always allowed.
	transitions = map[string][]string{
		StatusDraft:     {StatusPublished, StatusArchived},
		StatusPublished: {StatusArchived},
		StatusArchived:  {StatusDraft},
	}

	wordRegex = regexp.MustCompile(`\w+`)
)

const wordsPerMinute = 200

// CanTransition reports whether an article may go from status `from` to status `to`.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Category struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Slug        string      `json:"slug" db:"slug"`
	Description string      `json:"description" db:"description"`
	ParentID    null.String `json:"parent_id" db:"parent_id"`
	Order       int         `json:"order" db:"sort_order"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`

	ArticleCount int `json:"article_count,omitempty" db:"article_count"`
}

type Tag struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`

	ArticleCount int `json:"article_count,omitempty" db:"article_count"`
}

// Author is the public view of an article's author.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type Article struct {
	ID                   string      `json:"id" db:"id"`
	SiteID               string      `json:"site_id" db:"site_id"`
	Title                string      `json:"title" db:"title"`
	Slug                 string      `json:"slug" db:"slug"`
	Excerpt              string      `json:"excerpt" db:"excerpt"`
	Content              string      `json:"content" db:"content"`
	FeaturedImageURL     string      `json:"featured_image_url" db:"featured_image_url"`
	FeaturedImageCaption string      `json:"featured_image_caption" db:"featured_image_caption"`
	CategoryID           null.String `json:"category_id" db:"category_id"`
	AuthorID             null.String `json:"author_id" db:"author_id"`
	Status               string      `json:"status" db:"status"`
	PublishedAt          null.Time   `json:"published_at" db:"published_at"`
	IsFeatured           bool        `json:"is_featured" db:"is_featured"`
	ViewCount            int         `json:"view_count" db:"view_count"`
	MetaTitle            string      `json:"meta_title" db:"meta_title"`
	MetaDescription      string      `json:"meta_description" db:"meta_description"`
	MetaKeywords         string      `json:"meta_keywords" db:"meta_keywords"`
	NewsletterSentAt     null.Time   `json:"newsletter_sent_at" db:"newsletter_sent_at"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"`

	// loaded with the article
	Category *Category `json:"category,omitempty" db:"-"`
	Author   *Author   `json:"author,omitempty" db:"-"`
	Tags     []Tag     `json:"tags" db:"-"`
}

func (a Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// ReadingTime estimates the reading time in minutes, at 200 words per minute.
func (a Article) ReadingTime() int {
	words := len(wordRegex.FindAllStringIndex(a.Content, -1))
	if mins := int(math.RoundToEven(float64(words) / wordsPerMinute)); mins > 1 {
		return mins
	}
	return 1
}

// Description is what feeds and previews show: the excerpt, or else the meta description.
func (a Article) Description() string {
	if a.Excerpt != "" {
		return a.Excerpt
	}
	return a.MetaDescription
}

func (a Article) TagIDs() []string {
	ids := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

type Comment struct {
	ID        string    `json:"id" db:"id"`
	ArticleID string    `json:"article_id" db:"article_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// joined
	Username     string `json:"username" db:"username"`
	ArticleTitle string `json:"article_title" db:"article_title"`
	ArticleSlug  string `json:"article_slug" db:"article_slug"`
}

type Like struct {
	ID        string      `db:"id"`
	ArticleID string      `db:"article_id"`
	UserID    null.String `db:"user_id"`
	IPAddress string      `db:"ip_address"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type Bookmark struct {
	ID        string    `db:"id"`
	ArticleID string    `db:"article_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type GetFilter struct {
	ID     string
	Slug   string
	SiteID string
	Status string
}

type ArticleFilter struct {
	IDs           []string
	SiteID        string
	Statuses      []string
	CategoryID    string
	TagID         string
	AuthorID      string
	Search        string // title, excerpt, content or tag name
	PublishedFrom time.Time
	PublishedTo   time.Time // exclusive
	ExcludeIDs    []string
	IsFeatured    *bool
	Ordering      []core.DBOrdering
	Limit         int
	Offset        int
}

type CommentFilter struct {
	ArticleID string
	UserID    string
	IsActive  *bool
	Search    string
	Oldest    bool // created_at ASC instead of DESC
}

// CategoryData is used to create or replace a Category.
type CategoryData struct {
	Name        string `json:"name" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=200,slug"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	Order       int    `json:"order" validate:"min=0"`
}

func (cd *CategoryData) Validate(validate *validator.Validate) error {
	cd.Name = core.CleanString(cd.Name)
	cd.Slug = core.CleanString(cd.Slug, true /* lower */)
	cd.Description = core.CleanString(cd.Description)
	cd.ParentID = core.CleanString(cd.ParentID)
	return validate.Struct(cd)
}

// TagData is used to create or replace a Tag.
type TagData struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"omitempty,max=200,slug"`
}

func (td *TagData) Validate(validate *validator.Validate) error {
	td.Name = core.CleanString(td.Name)
	td.Slug = core.CleanString(td.Slug, true /* lower */)
	return validate.Struct(td)
}

// ArticleData is used to create or replace an Article.
type ArticleData struct {
	SiteID               string     `json:"site_id" validate:"required"`
	Title                string     `json:"title" validate:"required,max=200"`
	Slug                 string     `json:"slug" validate:"omitempty,max=200,slug"`
	Excerpt              string     `json:"excerpt"`
	Content              string     `json:"content" validate:"required"`
	FeaturedImageURL     string     `json:"featured_image_url" validate:"omitempty,url"`
	FeaturedImageCaption string     `json:"featured_image_caption" validate:"max=255"`
	CategoryID           string     `json:"category_id"`
	TagIDs               []string   `json:"tag_ids"`
	AuthorID             string     `json:"author_id"`
	Status               string     `json:"status" validate:"omitempty,oneof=draft published archived"`
	PublishedAt          *time.Time `json:"published_at"`
	IsFeatured           bool       `json:"is_featured"`
	MetaTitle            string     `json:"meta_title" validate:"max=70"`
	MetaDescription      string     `json:"meta_description" validate:"max=160"`
	MetaKeywords         string     `json:"meta_keywords" validate:"max=255"`
}

func (ad *ArticleData) Validate(validate *validator.Validate) error {
	ad.Title = core.CleanString(ad.Title)
	ad.Slug = core.CleanString(ad.Slug, true /* lower */)
	ad.Excerpt = core.CleanString(ad.Excerpt)
	ad.Content = core.CleanString(ad.Content)
	ad.CategoryID = core.CleanString(ad.CategoryID)
	ad.AuthorID = core.CleanString(ad.AuthorID)
	ad.Status = core.CleanString(ad.Status, true /* lower */)
	ad.MetaTitle = core.CleanString(ad.MetaTitle)
	ad.MetaDescription = core.CleanString(ad.MetaDescription)
	ad.MetaKeywords = core.CleanString(ad.MetaKeywords)
	if ad.Status == "" {
		ad.Status = StatusDraft
	}
	return validate.Struct(ad)
}

// AdminFilter filters the admin article list.
type AdminFilter struct {
	SiteID     string `query:"site_id"`
	Status     string `query:"status"`
	CategoryID string `query:"category_id"`
	Search     string `query:"search"`
	Page       int    `query:"page"`
}
