package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/habari/core"
)

// Page is an institutional page of a site (about, admissions, ...).
type Page struct {
	ID               string    `json:"id" db:"id"`
	SiteID           string    `json:"site_id" db:"site_id"`
	Title            string    `json:"title" db:"title"`
	Slug             string    `json:"slug" db:"slug"`
	Content          string    `json:"content" db:"content"`
	FeaturedImageURL string    `json:"featured_image_url" db:"featured_image_url"`
	IsPublished      bool      `json:"is_published" db:"is_published"`
	Order            int       `json:"order" db:"sort_order"`
	MetaTitle        string    `json:"meta_title" db:"meta_title"`
	MetaDescription  string    `json:"meta_description" db:"meta_description"`
	MetaKeywords     string    `json:"meta_keywords" db:"meta_keywords"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

type TeamMember struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Title     string    `json:"title" db:"title"`
	PhotoURL  string    `json:"photo_url" db:"photo_url"`
	Bio       string    `json:"bio" db:"bio"`
	Email     string    `json:"email" db:"email"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	Order     int       `json:"order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Testimonial struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Relationship string    `json:"relationship" db:"relationship"`
	Quote        string    `json:"quote" db:"quote"`
	PhotoURL     string    `json:"photo_url" db:"photo_url"`
	IsFeatured   bool      `json:"is_featured" db:"is_featured"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type PageFilter struct {
	ID          string
	Slug        string
	SiteID      string
	IsPublished *bool
}

type PageData struct {
	SiteID           string `json:"site_id" validate:"required"`
	Title            string `json:"title" validate:"required,max=200"`
	Slug             string `json:"slug" validate:"omitempty,max=200,slug"`
	Content          string `json:"content"`
	FeaturedImageURL string `json:"featured_image_url" validate:"omitempty,url"`
	IsPublished      bool   `json:"is_published"`
	Order            int    `json:"order" validate:"min=0"`
	MetaTitle        string `json:"meta_title" validate:"max=70"`
	MetaDescription  string `json:"meta_description" validate:"max=160"`
	MetaKeywords     string `json:"meta_keywords" validate:"max=255"`
}

func (pd *PageData) Validate(validate *validator.Validate) error {
	pd.Title = core.CleanString(pd.Title)
	pd.Slug = core.CleanString(pd.Slug, true /* lower */)
	pd.MetaTitle = core.CleanString(pd.MetaTitle)
	pd.MetaDescription = core.CleanString(pd.MetaDescription)
	pd.MetaKeywords = core.CleanString(pd.MetaKeywords)
	return validate.Struct(pd)
}

type TeamMemberData struct {
	Name     string `json:"name" validate:"required,max=200"`
	Title    string `json:"title" validate:"required,max=200"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
	Bio      string `json:"bio"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive bool   `json:"is_active"`
	Order    int    `json:"order" validate:"min=0"`
}

func (md *TeamMemberData) Validate(validate *validator.Validate) error {
	md.Name = core.CleanString(md.Name)
	md.Title = core.CleanString(md.Title)
	md.Email = core.CleanString(md.Email, true /* lower */)
	md.Bio = core.CleanString(md.Bio)
	return validate.Struct(md)
}

type TestimonialData struct {
	Name         string `json:"name" validate:"required,max=200"`
	Relationship string `json:"relationship" validate:"max=200"`
	Quote        string `json:"quote" validate:"required"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,url"`
	IsFeatured   bool   `json:"is_featured"`
}

func (td *TestimonialData) Validate(validate *validator.Validate) error {
	td.Name = core.CleanString(td.Name)
	td.Relationship = core.CleanString(td.Relationship)
	td.Quote = core.CleanString(td.Quote)
	return validate.Struct(td)
}
