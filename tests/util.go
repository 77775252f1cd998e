// Package testutil holds the helpers shared by the package tests: a fresh database per test and record creators.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/logger"
	"github.com/trezcool/habari/storage/database"
)

// NewConfig returns the config used by tests: in-memory sqlite and a fixed secret key.
func NewConfig() *core.Config {
	conf := &core.Config{
		AppName:                   "Habari",
		Env:                       "TEST",
		Debug:                     true,
		TestMode:                  true,
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:8080",
		DefaultSiteDomain:         "example.com",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	conf.Server.JWTExpirationDelta = 10 * time.Minute
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
	conf.Database.Engine = core.EngineSqlite
	conf.Database.Path = ":memory:"
	conf.Mail.NewsletterRatePerSecond = 1000
	conf.Mail.NewsletterConcurrency = 4
	conf.Storage.Backend = core.StorageLocal
	conf.Storage.MaxResumeSize = 5 << 20
	conf.Storage.MaxMediaSize = 20 << 20
	return conf
}

// PrepareDB opens a migrated in-memory database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := NewConfig()

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

func CreateSite(t *testing.T, repo site.Repository, domain, name string) site.Site {
	t.Helper()
	now := core.Now()
	s, err := repo.CreateSite(context.Background(), site.Site{Domain: domain, Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateSite() failed: %v", err)
	}
	return s
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		// password_hash is required: an empty pwd means nobody can log in
		pwd = uuid.NewString()
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCategory(t *testing.T, repo news.Repository, name string, parentID ...string) news.Category {
	t.Helper()
	now := core.Now()
	c := news.Category{Name: name, Slug: core.Slugify(name), CreatedAt: now, UpdatedAt: now}
	if len(parentID) > 0 {
		c.ParentID = null.StringFrom(parentID[0])
	}
	c, err := repo.CreateCategory(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	return c
}

func CreateTag(t *testing.T, repo news.Repository, name string) news.Tag {
	t.Helper()
	tag, err := repo.CreateTag(context.Background(), news.Tag{Name: name, Slug: core.Slugify(name)})
	if err != nil {
		t.Fatalf("CreateTag() failed: %v", err)
	}
	return tag
}

// ArticleOption customizes the article made by CreateArticle.
type ArticleOption func(a *news.Article)

func Published(at time.Time) ArticleOption {
	return func(a *news.Article) {
		a.Status = news.StatusPublished
		a.PublishedAt = null.TimeFrom(at.UTC())
	}
}

func InCategory(id string) ArticleOption {
	return func(a *news.Article) { a.CategoryID = null.StringFrom(id) }
}

func ByAuthor(id string) ArticleOption {
	return func(a *news.Article) { a.AuthorID = null.StringFrom(id) }
}

func WithTags(tags ...news.Tag) ArticleOption {
	return func(a *news.Article) { a.Tags = tags }
}

func Featured() ArticleOption {
	return func(a *news.Article) { a.IsFeatured = true }
}

// CreateArticle inserts a draft article straight through the repository, without any hook.
func CreateArticle(t *testing.T, repo news.Repository, siteID, title string, opts ...ArticleOption) news.Article {
	t.Helper()
	now := core.Now()
	a := news.Article{
		SiteID:    siteID,
		Title:     title,
		Slug:      core.Slugify(title),
		Content:   "<p>" + title + "</p>",
		Status:    news.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&a)
	}
	a, err := repo.CreateArticle(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateArticle() failed: %v", err)
	}
	return a
}

// NewLogger returns a logger writing nowhere, rollbar being disabled in debug mode.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
}
