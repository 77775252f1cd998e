package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/newsletter"
)

var subscriptionColumns = []string{"id", "email", "site_id", "is_active", "created_at", "updated_at"}

type newsletterRepository struct {
	repository
}

var _ newsletter.Repository = (*newsletterRepository)(nil)

func NewNewsletterRepository(exec core.DBExecutor) *newsletterRepository {
	return &newsletterRepository{repository{exec: exec}}
}

func selectSubscriptions(b sq.StatementBuilderType) sq.SelectBuilder {
	return b.Select(append(prefixed("ns", subscriptionColumns), "s.name AS site_name")...).
		From("newsletter_subscriptions ns").
		Join("sites s ON s.id = ns.site_id")
}

func (repo newsletterRepository) GetSubscription(ctx context.Context, filter newsletter.GetFilter, exec ...core.DBExecutor) (newsletter.Subscription, error) {
	exe := repo.getExec(exec)
	q := selectSubscriptions(builder(exe))
	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"ns.id": filter.ID})
	case filter.Email != "" && filter.SiteID != "":
		q = q.Where(sq.Eq{"ns.email": filter.Email, "ns.site_id": filter.SiteID})
	default:
		return newsletter.Subscription{}, newsletter.ErrNotFound
	}

	var sub newsletter.Subscription
	if err := getOne(ctx, exe, &sub, q); err != nil {
		return newsletter.Subscription{}, trapNoRowsErr(err, newsletter.ErrNotFound, "finding subscription")
	}
	return sub, nil
}

func (repo newsletterRepository) CreateSubscription(ctx context.Context, s newsletter.Subscription, exec ...core.DBExecutor) (newsletter.Subscription, error) {
	exe := repo.getExec(exec)
	s.ID = newID()
	q := builder(exe).Insert("newsletter_subscriptions").Columns(subscriptionColumns...).
		Values(s.ID, s.Email, s.SiteID, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return newsletter.Subscription{}, newsletter.ErrExists
		}
		return newsletter.Subscription{}, errors.Wrap(err, "inserting subscription")
	}
	return s, nil
}

func (repo newsletterRepository) UpdateSubscription(ctx context.Context, s newsletter.Subscription, exec ...core.DBExecutor) (newsletter.Subscription, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("newsletter_subscriptions").
		Set("is_active", s.IsActive).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": s.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		return newsletter.Subscription{}, errors.Wrap(err, "updating subscription")
	}
	if n == 0 {
		return newsletter.Subscription{}, newsletter.ErrNotFound
	}
	return s, nil
}

func (repo newsletterRepository) QuerySubscriptions(ctx context.Context, filter newsletter.QueryFilter, exec ...core.DBExecutor) ([]newsletter.Subscription, error) {
	exe := repo.getExec(exec)
	q := selectSubscriptions(builder(exe)).OrderBy("ns.created_at DESC")
	if len(filter.IDs) > 0 {
		q = q.Where(sq.Eq{"ns.id": filter.IDs})
	}
	if filter.SiteID != "" {
		q = q.Where(sq.Eq{"ns.site_id": filter.SiteID})
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"ns.is_active": *filter.IsActive})
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "ns.email"))
	}

	subs := make([]newsletter.Subscription, 0)
	if err := selectAll(ctx, exe, &subs, q); err != nil {
		return nil, errors.Wrap(err, "querying subscriptions")
	}
	return subs, nil
}

func (repo newsletterRepository) DeleteSubscriptions(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("newsletter_subscriptions").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting subscriptions")
}
