package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/contact"
	"github.com/trezcool/habari/core/dashboard"
	"github.com/trezcool/habari/core/hiring"
	"github.com/trezcool/habari/core/news"
)

type dashboardRepository struct {
	repository
}

var _ dashboard.Repository = (*dashboardRepository)(nil)

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{repository{exec: exec}}
}

// Counts computes every counter in a single round trip, one scalar subquery each.
func (repo dashboardRepository) Counts(ctx context.Context, periods dashboard.Periods, exec ...core.DBExecutor) (dashboard.Counts, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select().
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM job_postings WHERE status = ?", hiring.JobOpen), "open_jobs")).
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM applications WHERE status = ?", hiring.AppReceived), "pending_applications")).
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM contact_inquiries WHERE status = ?", contact.StatusNew), "unread_messages")).
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM articles WHERE status = ?", news.StatusPublished), "published_articles")).
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM articles WHERE status = ?", news.StatusDraft), "draft_articles")).
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM newsletter_subscriptions WHERE is_active = ?", true), "newsletter_subscribers")).
		Column(sq.Alias(sq.Expr("SELECT COUNT(*) FROM comments WHERE is_active = ?", false), "pending_comments")).
		Column(sq.Alias(sq.Expr(
			"SELECT COUNT(*) FROM articles WHERE status = ? AND published_at >= ?",
			news.StatusPublished, periods.ThisMonth,
		), "articles_this_month")).
		Column(sq.Alias(sq.Expr(
			"SELECT COUNT(*) FROM articles WHERE status = ? AND published_at >= ? AND published_at < ?",
			news.StatusPublished, periods.LastMonthStart, periods.ThisMonth,
		), "articles_last_month")).
		Column(sq.Alias(sq.Expr(
			"SELECT COUNT(*) FROM newsletter_subscriptions WHERE is_active = ? AND created_at >= ?",
			true, periods.Today,
		), "newsletter_today"))

	var counts dashboard.Counts
	if err := getOne(ctx, exe, &counts, q); err != nil {
		return dashboard.Counts{}, errors.Wrap(err, "counting dashboard stats")
	}
	return counts, nil
}
