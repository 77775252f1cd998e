package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/hiring"
)

var (
	departmentColumns = []string{"id", "name", "slug"}
	jobColumns        = []string{
		"id", "department_id", "title", "slug", "description", "requirements", "employment_type", "location",
		"salary_range", "status", "published_at", "deadline", "meta_title", "meta_description", "meta_keywords",
		"created_at", "updated_at",
	}
	applicationColumns = []string{
		"id", "job_id", "first_name", "last_name", "email", "phone", "cover_letter", "resume_key", "status", "notes",
		"created_at", "updated_at",
	}
)

type hiringRepository struct {
	repository
}

var _ hiring.Repository = (*hiringRepository)(nil)

func NewHiringRepository(exec core.DBExecutor) *hiringRepository {
	return &hiringRepository{repository{exec: exec}}
}

// Departments

func (repo hiringRepository) CreateDepartment(ctx context.Context, d hiring.Department, exec ...core.DBExecutor) (hiring.Department, error) {
	exe := repo.getExec(exec)
	d.ID = newID()
	q := builder(exe).Insert("departments").Columns(departmentColumns...).Values(d.ID, d.Name, d.Slug)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return hiring.Department{}, core.NewFieldError("slug", hiring.ErrSlugExists.Error())
		}
		return hiring.Department{}, errors.Wrap(err, "inserting department")
	}
	return d, nil
}

func (repo hiringRepository) UpdateDepartment(ctx context.Context, d hiring.Department, exec ...core.DBExecutor) (hiring.Department, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("departments").Set("name", d.Name).Set("slug", d.Slug).Where(sq.Eq{"id": d.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return hiring.Department{}, core.NewFieldError("slug", hiring.ErrSlugExists.Error())
		}
		return hiring.Department{}, errors.Wrap(err, "updating department")
	}
	if n == 0 {
		return hiring.Department{}, hiring.ErrDepartmentNotFound
	}
	return d, nil
}

func (repo hiringRepository) GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (hiring.Department, error) {
	exe := repo.getExec(exec)
	var d hiring.Department
	q := builder(exe).Select(departmentColumns...).From("departments").Where(sq.Eq{"id": id})
	if err := getOne(ctx, exe, &d, q); err != nil {
		return hiring.Department{}, trapNoRowsErr(err, hiring.ErrDepartmentNotFound, "finding department")
	}
	return d, nil
}

func (repo hiringRepository) QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]hiring.Department, error) {
	exe := repo.getExec(exec)
	departments := make([]hiring.Department, 0)
	q := builder(exe).Select(departmentColumns...).From("departments").OrderBy("name ASC")
	if err := selectAll(ctx, exe, &departments, q); err != nil {
		return nil, errors.Wrap(err, "querying departments")
	}
	return departments, nil
}

func (repo hiringRepository) DeleteDepartments(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("departments").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting departments")
}

// Jobs

func (repo hiringRepository) selectJobs(exe core.DBExecutor, filter hiring.JobFilter, cols ...string) sq.SelectBuilder {
	q := builder(exe).Select(cols...).From("job_postings j").Join("departments d ON d.id = j.department_id")
	if filter.ID != "" {
		q = q.Where(sq.Eq{"j.id": filter.ID})
	}
	if filter.Slug != "" {
		q = q.Where(sq.Eq{"j.slug": filter.Slug})
	}
	if filter.DepartmentID != "" {
		q = q.Where(sq.Eq{"j.department_id": filter.DepartmentID})
	}
	if filter.DepartmentSlug != "" {
		q = q.Where(sq.Eq{"d.slug": filter.DepartmentSlug})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"j.status": filter.Status})
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "j.title", "j.location", "d.name"))
	}
	return q
}

func jobSelectColumns() []string {
	return append(prefixed("j", jobColumns), "d.name AS department_name", "d.slug AS department_slug")
}

func (repo hiringRepository) CreateJob(ctx context.Context, j hiring.JobPosting, exec ...core.DBExecutor) (hiring.JobPosting, error) {
	exe := repo.getExec(exec)
	j.ID = newID()
	q := builder(exe).Insert("job_postings").Columns(jobColumns...).Values(
		j.ID, j.DepartmentID, j.Title, j.Slug, j.Description, j.Requirements, j.EmploymentType, j.Location,
		j.SalaryRange, j.Status, j.PublishedAt, j.Deadline, j.MetaTitle, j.MetaDescription, j.MetaKeywords,
		j.CreatedAt, j.UpdatedAt,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return hiring.JobPosting{}, core.NewFieldError("slug", hiring.ErrSlugExists.Error())
		}
		return hiring.JobPosting{}, errors.Wrap(err, "inserting job")
	}
	return j, nil
}

func (repo hiringRepository) UpdateJob(ctx context.Context, j hiring.JobPosting, exec ...core.DBExecutor) (hiring.JobPosting, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("job_postings").SetMap(map[string]interface{}{
		"department_id":    j.DepartmentID,
		"title":            j.Title,
		"slug":             j.Slug,
		"description":      j.Description,
		"requirements":     j.Requirements,
		"employment_type":  j.EmploymentType,
		"location":         j.Location,
		"salary_range":     j.SalaryRange,
		"status":           j.Status,
		"published_at":     j.PublishedAt,
		"deadline":         j.Deadline,
		"meta_title":       j.MetaTitle,
		"meta_description": j.MetaDescription,
		"meta_keywords":    j.MetaKeywords,
		"updated_at":       j.UpdatedAt,
	}).Where(sq.Eq{"id": j.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return hiring.JobPosting{}, core.NewFieldError("slug", hiring.ErrSlugExists.Error())
		}
		return hiring.JobPosting{}, errors.Wrap(err, "updating job")
	}
	if n == 0 {
		return hiring.JobPosting{}, hiring.ErrJobNotFound
	}
	return j, nil
}

func (repo hiringRepository) GetJob(ctx context.Context, filter hiring.JobFilter, exec ...core.DBExecutor) (hiring.JobPosting, error) {
	if filter.ID == "" && filter.Slug == "" {
		return hiring.JobPosting{}, hiring.ErrJobNotFound
	}
	exe := repo.getExec(exec)
	var j hiring.JobPosting
	if err := getOne(ctx, exe, &j, repo.selectJobs(exe, filter, jobSelectColumns()...)); err != nil {
		return hiring.JobPosting{}, trapNoRowsErr(err, hiring.ErrJobNotFound, "finding job")
	}
	return j, nil
}

func (repo hiringRepository) QueryJobs(ctx context.Context, filter hiring.JobFilter, exec ...core.DBExecutor) ([]hiring.JobPosting, error) {
	exe := repo.getExec(exec)
	q := repo.selectJobs(exe, filter, jobSelectColumns()...).
		OrderBy("COALESCE(j.published_at, j.created_at) DESC", "j.created_at DESC")

	jobs := make([]hiring.JobPosting, 0)
	if err := selectAll(ctx, exe, &jobs, q); err != nil {
		return nil, errors.Wrap(err, "querying jobs")
	}
	return jobs, nil
}

func (repo hiringRepository) CountJobs(ctx context.Context, filter hiring.JobFilter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := count(ctx, exe, repo.selectJobs(exe, filter, "COUNT(*)"))
	return n, errors.Wrap(err, "counting jobs")
}

func (repo hiringRepository) DeleteJobs(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("job_postings").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting jobs")
}

// Applications

func (repo hiringRepository) selectApplications(exe core.DBExecutor, filter hiring.ApplicationFilter, cols ...string) sq.SelectBuilder {
	q := builder(exe).Select(cols...).From("applications ap").Join("job_postings j ON j.id = ap.job_id")
	if len(filter.IDs) > 0 {
		q = q.Where(sq.Eq{"ap.id": filter.IDs})
	}
	if filter.JobID != "" {
		q = q.Where(sq.Eq{"ap.job_id": filter.JobID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"ap.status": filter.Status})
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "ap.first_name", "ap.last_name", "ap.email", "j.title"))
	}
	return q
}

func (repo hiringRepository) CreateApplication(ctx context.Context, a hiring.Application, exec ...core.DBExecutor) (hiring.Application, error) {
	exe := repo.getExec(exec)
	a.ID = newID()
	q := builder(exe).Insert("applications").Columns(applicationColumns...).Values(
		a.ID, a.JobID, a.FirstName, a.LastName, a.Email, a.Phone, a.CoverLetter, a.ResumeKey, a.Status, a.Notes,
		a.CreatedAt, a.UpdatedAt,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		return hiring.Application{}, errors.Wrap(err, "inserting application")
	}
	return a, nil
}

func (repo hiringRepository) UpdateApplication(ctx context.Context, a hiring.Application, exec ...core.DBExecutor) (hiring.Application, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("applications").
		Set("status", a.Status).
		Set("notes", a.Notes).
		Set("updated_at", a.UpdatedAt).
		Where(sq.Eq{"id": a.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		return hiring.Application{}, errors.Wrap(err, "updating application")
	}
	if n == 0 {
		return hiring.Application{}, hiring.ErrApplicationNotFound
	}
	return a, nil
}

func (repo hiringRepository) GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (hiring.Application, error) {
	exe := repo.getExec(exec)
	var a hiring.Application
	q := repo.selectApplications(exe, hiring.ApplicationFilter{IDs: []string{id}}, applicationSelectColumns()...)
	if err := getOne(ctx, exe, &a, q); err != nil {
		return hiring.Application{}, trapNoRowsErr(err, hiring.ErrApplicationNotFound, "finding application")
	}
	return a, nil
}

func applicationSelectColumns() []string {
	return append(prefixed("ap", applicationColumns), "j.title AS job_title")
}

func (repo hiringRepository) QueryApplications(
	ctx context.Context,
	filter hiring.ApplicationFilter,
	limit int,
	exec ...core.DBExecutor,
) ([]hiring.Application, error) {
	exe := repo.getExec(exec)
	q := repo.selectApplications(exe, filter, applicationSelectColumns()...).OrderBy("ap.created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	apps := make([]hiring.Application, 0)
	if err := selectAll(ctx, exe, &apps, q); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	return apps, nil
}

func (repo hiringRepository) CountApplications(ctx context.Context, filter hiring.ApplicationFilter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := count(ctx, exe, repo.selectApplications(exe, filter, "COUNT(*)"))
	return n, errors.Wrap(err, "counting applications")
}

func (repo hiringRepository) DeleteApplications(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("applications").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting applications")
}
