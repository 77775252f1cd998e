package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/contact"
)

var inquiryColumns = []string{"id", "site_id", "name", "email", "phone", "subject", "message", "status", "created_at", "updated_at"}

type contactRepository struct {
	repository
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(exec core.DBExecutor) *contactRepository {
	return &contactRepository{repository{exec: exec}}
}

func filterInquiries(q sq.SelectBuilder, filter contact.Filter) sq.SelectBuilder {
	if len(filter.IDs) > 0 {
		q = q.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.SiteID != "" {
		q = q.Where(sq.Eq{"site_id": filter.SiteID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Subject != "" {
		q = q.Where(sq.Eq{"subject": filter.Subject})
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "name", "email", "message"))
	}
	return q
}

func (repo contactRepository) CreateInquiry(ctx context.Context, inq contact.Inquiry, exec ...core.DBExecutor) (contact.Inquiry, error) {
	exe := repo.getExec(exec)
	inq.ID = newID()
	q := builder(exe).Insert("contact_inquiries").Columns(inquiryColumns...).Values(
		inq.ID, inq.SiteID, inq.Name, inq.Email, inq.Phone, inq.Subject, inq.Message, inq.Status, inq.CreatedAt, inq.UpdatedAt,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		return contact.Inquiry{}, errors.Wrap(err, "inserting inquiry")
	}
	return inq, nil
}

func (repo contactRepository) GetInquiry(ctx context.Context, id string, exec ...core.DBExecutor) (contact.Inquiry, error) {
	exe := repo.getExec(exec)
	var inq contact.Inquiry
	q := builder(exe).Select(inquiryColumns...).From("contact_inquiries").Where(sq.Eq{"id": id})
	if err := getOne(ctx, exe, &inq, q); err != nil {
		return contact.Inquiry{}, trapNoRowsErr(err, contact.ErrNotFound, "finding inquiry")
	}
	return inq, nil
}

func (repo contactRepository) QueryInquiries(ctx context.Context, filter contact.Filter, limit int, exec ...core.DBExecutor) ([]contact.Inquiry, error) {
	exe := repo.getExec(exec)
	q := filterInquiries(builder(exe).Select(inquiryColumns...).From("contact_inquiries"), filter).OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	inquiries := make([]contact.Inquiry, 0)
	if err := selectAll(ctx, exe, &inquiries, q); err != nil {
		return nil, errors.Wrap(err, "querying inquiries")
	}
	return inquiries, nil
}

func (repo contactRepository) CountInquiries(ctx context.Context, filter contact.Filter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := count(ctx, exe, filterInquiries(builder(exe).Select("COUNT(*)").From("contact_inquiries"), filter))
	return n, errors.Wrap(err, "counting inquiries")
}

func (repo contactRepository) SetStatus(ctx context.Context, ids []string, status string, at time.Time, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("contact_inquiries").Set("status", status).Set("updated_at", at).Where(sq.Eq{"id": ids})
	n, err := execute(ctx, exe, q)
	return int(n), errors.Wrap(err, "updating inquiries")
}

func (repo contactRepository) DeleteInquiries(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("contact_inquiries").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting inquiries")
}
