// Package dashboard computes the statistics shown on the admin home page.
package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/contact"
	"github.com/trezcool/habari/core/hiring"
	"github.com/trezcool/habari/core/news"
)

const recentLimit = 5

// Periods are the boundaries the time-based counters are computed on.
type Periods struct {
	Today          time.Time // midnight
	ThisMonth      time.Time // first day of the month
	LastMonthStart time.Time
}

func PeriodsAt(now time.Time) Periods {
	y, m, d := now.Date()
	thisMonth := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return Periods{
		Today:          time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UTC(),
		ThisMonth:      thisMonth.UTC(),
		LastMonthStart: thisMonth.AddDate(0, -1, 0).UTC(),
	}
}

type Counts struct {
	OpenJobs              int `json:"open_jobs" db:"open_jobs"`
	PendingApplications   int `json:"pending_applications" db:"pending_applications"`
	UnreadMessages        int `json:"unread_messages" db:"unread_messages"`
	PublishedArticles     int `json:"published_articles" db:"published_articles"`
	DraftArticles         int `json:"draft_articles" db:"draft_articles"`
	NewsletterSubscribers int `json:"newsletter_subscribers" db:"newsletter_subscribers"`
	PendingComments       int `json:"pending_comments" db:"pending_comments"`
	ArticlesThisMonth     int `json:"articles_this_month" db:"articles_this_month"`
	ArticlesLastMonth     int `json:"articles_last_month" db:"articles_last_month"`
	NewsletterToday       int `json:"newsletter_today" db:"newsletter_today"`
}

type Stats struct {
	Counts
	LastDraftUpdated   *news.Article        `json:"last_draft_updated"`
	RecentArticles     []news.Article       `json:"recent_articles"`
	RecentApplications []hiring.Application `json:"recent_applications"`
	RecentMessages     []contact.Inquiry    `json:"recent_messages"`
}

type (
	Repository interface {
		Counts(ctx context.Context, periods Periods, exec ...core.DBExecutor) (Counts, error)
	}

	Service struct {
		repo     Repository
		articles news.Repository
		hiring   hiring.Repository
		contact  contact.Repository
	}
)

func NewService(repo Repository, articles news.Repository, hiringRepo hiring.Repository, contactRepo contact.Repository) *Service {
	return &Service{
		repo:     repo,
		articles: articles,
		hiring:   hiringRepo,
		contact:  contactRepo,
	}
}

// Stats returns the dashboard figures at `now`, all sites included.
func (svc *Service) Stats(ctx context.Context, now time.Time) (Stats, error) {
	counts, err := svc.repo.Counts(ctx, PeriodsAt(now))
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting")
	}
	stats := Stats{Counts: counts}

	latest := []core.DBOrdering{{Field: "updated_at"}}
	drafts, err := svc.articles.QueryArticles(ctx, news.ArticleFilter{
		Statuses: []string{news.StatusDraft},
		Ordering: latest,
		Limit:    1,
	})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying drafts")
	}
	if len(drafts) > 0 {
		stats.LastDraftUpdated = &drafts[0]
	}

	if stats.RecentArticles, err = svc.articles.QueryArticles(ctx, news.ArticleFilter{Ordering: latest, Limit: recentLimit}); err != nil {
		return Stats{}, errors.Wrap(err, "querying articles")
	}
	if stats.RecentApplications, err = svc.hiring.QueryApplications(ctx, hiring.ApplicationFilter{}, recentLimit); err != nil {
		return Stats{}, errors.Wrap(err, "querying applications")
	}
	if stats.RecentMessages, err = svc.contact.QueryInquiries(ctx, contact.Filter{}, recentLimit); err != nil {
		return Stats{}, errors.Wrap(err, "querying inquiries")
	}
	return stats, nil
}
