package site

import (
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/habari/core"
)

// Site is one of the portals served by the platform (school, news, careers...), identified by its domain.
type Site struct {
	ID        string    `json:"id" db:"id"`
	Domain    string    `json:"domain" db:"domain"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Settings holds the optional per-site branding, contact and newsletter configuration.
type Settings struct {
	SiteID              string    `json:"site_id" db:"site_id"`
	Tagline             string    `json:"tagline" db:"tagline"`
	LogoURL             string    `json:"logo_url" db:"logo_url"`
	FaviconURL          string    `json:"favicon_url" db:"favicon_url"`
	PrimaryEmail        string    `json:"primary_email" db:"primary_email"`
	PhoneNumber         string    `json:"phone_number" db:"phone_number"`
	Address             string    `json:"address" db:"address"`
	NewsletterFromEmail string    `json:"newsletter_from_email" db:"newsletter_from_email"`
	NewsletterFromName  string    `json:"newsletter_from_name" db:"newsletter_from_name"`
	GoogleAnalyticsID   string    `json:"google_analytics_id" db:"google_analytics_id"`
	FacebookURL         string    `json:"facebook_url" db:"facebook_url"`
	InstagramURL        string    `json:"instagram_url" db:"instagram_url"`
	YoutubeURL          string    `json:"youtube_url" db:"youtube_url"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// FromAddress returns the newsletter sender configured for a site: "Name <email>", just the email,
// or def when the site has no newsletter sender (or no settings at all).
func FromAddress(settings *Settings, def mail.Address) mail.Address {
	if settings == nil || settings.NewsletterFromEmail == "" {
		return def
	}
	return mail.Address{Name: settings.NewsletterFromName, Address: settings.NewsletterFromEmail}
}

type GetFilter struct {
	ID     string
	Domain string
}

// NewSite contains information needed to create a new Site.
type NewSite struct {
	Domain string `json:"domain" validate:"required,hostname_rfc1123"`
	Name   string `json:"name" validate:"required,max=50"`
}

func (ns *NewSite) Validate(validate *validator.Validate) error {
	ns.Domain = core.CleanString(ns.Domain, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type UpdateSite struct {
	Domain string `json:"domain" validate:"omitempty,hostname_rfc1123"`
	Name   string `json:"name" validate:"omitempty,max=50"`
}

func (us *UpdateSite) Validate(orig Site, validate *validator.Validate) error {
	if d := core.CleanString(us.Domain, true /* lower */); d != "" {
		us.Domain = d
	} else {
		us.Domain = orig.Domain
	}
	if n := core.CleanString(us.Name); n != "" {
		us.Name = n
	} else {
		us.Name = orig.Name
	}
	return validate.Struct(us)
}

type UpdateSettings struct {
	Tagline             string `json:"tagline" validate:"max=255"`
	LogoURL             string `json:"logo_url" validate:"omitempty,url"`
	FaviconURL          string `json:"favicon_url" validate:"omitempty,url"`
	PrimaryEmail        string `json:"primary_email" validate:"omitempty,email"`
	PhoneNumber         string `json:"phone_number" validate:"max=30"`
	Address             string `json:"address"`
	NewsletterFromEmail string `json:"newsletter_from_email" validate:"omitempty,email"`
	NewsletterFromName  string `json:"newsletter_from_name" validate:"max=100"`
	GoogleAnalyticsID   string `json:"google_analytics_id" validate:"max=30"`
	FacebookURL         string `json:"facebook_url" validate:"omitempty,url"`
	InstagramURL        string `json:"instagram_url" validate:"omitempty,url"`
	YoutubeURL          string `json:"youtube_url" validate:"omitempty,url"`
}

func (us *UpdateSettings) Validate(validate *validator.Validate) error {
	us.PrimaryEmail = core.CleanString(us.PrimaryEmail, true /* lower */)
	us.NewsletterFromEmail = core.CleanString(us.NewsletterFromEmail, true /* lower */)
	us.NewsletterFromName = core.CleanString(us.NewsletterFromName)
	us.Tagline = core.CleanString(us.Tagline)
	return validate.Struct(us)
}
