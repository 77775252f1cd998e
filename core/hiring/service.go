package hiring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

const resumeDir = "hiring/resumes/"

var (
	// errors
	ErrDepartmentNotFound  = core.NewNotFoundError("department")
	ErrJobNotFound         = core.NewNotFoundError("job posting")
	ErrApplicationNotFound = core.NewNotFoundError("application")
	ErrSlugExists          = errors.New("this slug is already in use")
	ErrDeadlinePassed      = errors.New("the application deadline for this job has passed")
	ErrResumeRequired      = errors.New("a resume is required")
	ErrResumeType          = errors.New("only PDF, DOC, DOCX and ODT files are allowed")

	// resumeTypes maps the allowed extensions to their stored content type and the types http.DetectContentType
	// may give for them (OLE .doc files are not recognized by the sniffer).
	resumeTypes = map[string]struct {
		contentType string
		sniffed     []string
	}{
		".pdf":  {"application/pdf", []string{"application/pdf"}},
		".doc":  {"application/msword", []string{"application/octet-stream"}},
		".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", []string{"application/zip"}},
		".odt":  {"application/vnd.oasis.opendocument.text", []string{"application/zip"}},
	}
)

type (
	Repository interface {
		CreateDepartment(ctx context.Context, d Department, exec ...core.DBExecutor) (Department, error)
		UpdateDepartment(ctx context.Context, d Department, exec ...core.DBExecutor) (Department, error)
		GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (Department, error)
		// QueryDepartments returns departments ordered by name.
		QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]Department, error)
		// DeleteDepartments also deletes their jobs.
		DeleteDepartments(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateJob(ctx context.Context, j JobPosting, exec ...core.DBExecutor) (JobPosting, error)
		UpdateJob(ctx context.Context, j JobPosting, exec ...core.DBExecutor) (JobPosting, error)
		GetJob(ctx context.Context, filter JobFilter, exec ...core.DBExecutor) (JobPosting, error)
		// QueryJobs returns jobs newest published first.
		QueryJobs(ctx context.Context, filter JobFilter, exec ...core.DBExecutor) ([]JobPosting, error)
		CountJobs(ctx context.Context, filter JobFilter, exec ...core.DBExecutor) (int, error)
		DeleteJobs(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateApplication(ctx context.Context, a Application, exec ...core.DBExecutor) (Application, error)
		UpdateApplication(ctx context.Context, a Application, exec ...core.DBExecutor) (Application, error)
		GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (Application, error)
		// QueryApplications returns applications newest first.
		QueryApplications(ctx context.Context, filter ApplicationFilter, limit int, exec ...core.DBExecutor) ([]Application, error)
		CountApplications(ctx context.Context, filter ApplicationFilter, exec ...core.DBExecutor) (int, error)
		DeleteApplications(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo   Repository
		store  core.FileStore
		logger core.Logger
		conf   *core.Config
	}
)

func NewService(repo Repository, store core.FileStore, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
		conf:   conf,
	}
}

// Careers holds the open jobs and the departments they can be filtered by.
type Careers struct {
	Jobs        []JobPosting `json:"jobs"`
	Departments []Department `json:"departments"`
}

// ListOpenJobs returns the open jobs, of a single department when departmentSlug is set.
func (svc *Service) ListOpenJobs(ctx context.Context, departmentSlug string) (Careers, error) {
	jobs, err := svc.repo.QueryJobs(ctx, JobFilter{Status: JobOpen, DepartmentSlug: departmentSlug})
	if err != nil {
		return Careers{}, errors.Wrap(err, "querying jobs")
	}
	departments, err := svc.repo.QueryDepartments(ctx)
	if err != nil {
		return Careers{}, errors.Wrap(err, "querying departments")
	}
	return Careers{Jobs: jobs, Departments: departments}, nil
}

// JobDetail returns an open job.
func (svc *Service) JobDetail(ctx context.Context, slug string) (JobPosting, error) {
	return svc.repo.GetJob(ctx, JobFilter{Slug: slug, Status: JobOpen})
}

// Apply stores the resume and records the application to the open job `slug`.
func (svc *Service) Apply(ctx context.Context, slug string, data NewApplication, resume *Resume) (Application, error) {
	job, err := svc.JobDetail(ctx, slug)
	if err != nil {
		return Application{}, err
	}
	now := core.Now()
	if job.DeadlinePassed(now) {
		return Application{}, core.NewValidationError(ErrDeadlinePassed)
	}

	ext, contentType, content, err := svc.checkResume(resume)
	if err != nil {
		return Application{}, err
	}
	key := resumeDir + uuid.New().String() + ext
	if err = svc.store.Save(ctx, key, content, resume.Size, contentType); err != nil {
		return Application{}, errors.Wrap(err, "saving resume")
	}

	app, err := svc.repo.CreateApplication(ctx, Application{
		JobID:       job.ID,
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		Email:       data.Email,
		Phone:       data.Phone,
		CoverLetter: data.CoverLetter,
		ResumeKey:   key,
		Status:      AppReceived,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if derr := svc.store.Delete(ctx, key); derr != nil {
			svc.logger.Error("deleting orphan resume", derr, map[string]interface{}{"key": key})
		}
		return Application{}, errors.Wrap(err, "creating application")
	}
	app.JobTitle = job.Title
	return app, nil
}

// checkResume validates the resume's size and type, and returns a reader over its whole content.
func (svc *Service) checkResume(resume *Resume) (ext, contentType string, content io.Reader, err error) {
	if resume == nil || resume.Content == nil || resume.Size == 0 {
		return "", "", nil, core.NewFieldError("resume", ErrResumeRequired.Error())
	}
	if limit := svc.conf.Storage.MaxResumeSize; limit > 0 && resume.Size > limit {
		msg := fmt.Sprintf("the file is too large (max %d MB)", limit>>20)
		return "", "", nil, core.NewFieldError("resume", msg)
	}

	ext = strings.ToLower(path.Ext(resume.Filename))
	rt, ok := resumeTypes[ext]
	if !ok {
		return "", "", nil, core.NewFieldError("resume", ErrResumeType.Error())
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(resume.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", nil, errors.Wrap(err, "reading resume")
	}
	head = head[:n]
	sniffed := http.DetectContentType(head)
	if !contains(rt.sniffed, sniffed) {
		return "", "", nil, core.NewFieldError("resume", ErrResumeType.Error())
	}
	return ext, rt.contentType, io.MultiReader(bytes.NewReader(head), resume.Content), nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// Departments

func (svc *Service) checkDepartmentSlug(ctx context.Context, d *Department, data DepartmentData) error {
	d.Name = data.Name
	d.Slug = data.Slug
	if d.Slug == "" {
		d.Slug = core.Slugify(data.Name)
	}
	departments, err := svc.repo.QueryDepartments(ctx)
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	for _, other := range departments {
		if other.Slug == d.Slug && other.ID != d.ID {
			return core.NewFieldError("slug", ErrSlugExists.Error())
		}
	}
	return nil
}

func (svc *Service) CreateDepartment(ctx context.Context, data DepartmentData) (Department, error) {
	var d Department
	if err := svc.checkDepartmentSlug(ctx, &d, data); err != nil {
		return Department{}, err
	}
	return svc.repo.CreateDepartment(ctx, d)
}

func (svc *Service) UpdateDepartment(ctx context.Context, orig Department, data DepartmentData) (Department, error) {
	d := orig
	if err := svc.checkDepartmentSlug(ctx, &d, data); err != nil {
		return Department{}, err
	}
	return svc.repo.UpdateDepartment(ctx, d)
}

func (svc *Service) GetDepartment(ctx context.Context, id string) (Department, error) {
	return svc.repo.GetDepartment(ctx, id)
}

func (svc *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return svc.repo.QueryDepartments(ctx)
}

func (svc *Service) DeleteDepartments(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteDepartments(ctx, ids)
}

// Jobs

func (svc *Service) fillJob(ctx context.Context, j *JobPosting, data JobData) error {
	if _, err := svc.repo.GetDepartment(ctx, data.DepartmentID); err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("department_id", "department not found")
		}
		return errors.Wrap(err, "finding department")
	}

	j.Slug = data.Slug
	if j.Slug == "" {
		j.Slug = core.Slugify(data.Title)
	}
	other, err := svc.repo.GetJob(ctx, JobFilter{Slug: j.Slug})
	if err == nil && other.ID != j.ID {
		return core.NewFieldError("slug", ErrSlugExists.Error())
	} else if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "checking slug uniqueness")
	}

	j.DepartmentID = data.DepartmentID
	j.Title = data.Title
	j.Description = core.SanitizeHTML(data.Description)
	j.Requirements = core.SanitizeHTML(data.Requirements)
	j.EmploymentType = data.EmploymentType
	j.Location = data.Location
	j.SalaryRange = data.SalaryRange
	j.Status = data.Status
	j.Deadline = null.TimeFromPtr(data.Deadline)
	if j.Deadline.Valid {
		j.Deadline.Time = j.Deadline.Time.UTC()
	}
	j.MetaTitle = data.MetaTitle
	j.MetaDescription = data.MetaDescription
	j.MetaKeywords = data.MetaKeywords
	if j.IsOpen() && !j.PublishedAt.Valid {
		j.PublishedAt = null.TimeFrom(j.UpdatedAt)
	}
	return nil
}

func (svc *Service) CreateJob(ctx context.Context, data JobData) (JobPosting, error) {
	now := core.Now()
	j := JobPosting{CreatedAt: now, UpdatedAt: now}
	if err := svc.fillJob(ctx, &j, data); err != nil {
		return JobPosting{}, err
	}
	if _, err := svc.repo.CreateJob(ctx, j); err != nil {
		return JobPosting{}, err
	}
	return svc.repo.GetJob(ctx, JobFilter{Slug: j.Slug})
}

func (svc *Service) UpdateJob(ctx context.Context, orig JobPosting, data JobData) (JobPosting, error) {
	j := orig
	j.UpdatedAt = core.Now()
	if err := svc.fillJob(ctx, &j, data); err != nil {
		return JobPosting{}, err
	}
	if _, err := svc.repo.UpdateJob(ctx, j); err != nil {
		return JobPosting{}, err
	}
	return svc.repo.GetJob(ctx, JobFilter{ID: j.ID})
}

func (svc *Service) GetJob(ctx context.Context, id string) (JobPosting, error) {
	return svc.repo.GetJob(ctx, JobFilter{ID: id})
}

func (svc *Service) ListJobs(ctx context.Context, filter JobFilter) ([]JobPosting, error) {
	return svc.repo.QueryJobs(ctx, filter)
}

func (svc *Service) DeleteJobs(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteJobs(ctx, ids)
}

// Applications

func (svc *Service) ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, filter, 0)
}

func (svc *Service) GetApplication(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplication(ctx, id)
}

func (svc *Service) UpdateApplication(ctx context.Context, orig Application, data ApplicationUpdate) (Application, error) {
	app := orig
	app.Status = data.Status
	app.Notes = data.Notes
	app.UpdatedAt = core.Now()
	return svc.repo.UpdateApplication(ctx, app)
}

// ResumeURL returns where the application's resume can be downloaded from.
func (svc *Service) ResumeURL(app Application) string {
	return svc.store.URL(app.ResumeKey)
}

// OpenResume returns the content of the application's resume.
func (svc *Service) OpenResume(ctx context.Context, app Application) (io.ReadCloser, error) {
	return svc.store.Open(ctx, app.ResumeKey)
}

// DeleteApplications deletes the applications and their resumes.
func (svc *Service) DeleteApplications(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	apps, err := svc.repo.QueryApplications(ctx, ApplicationFilter{IDs: ids}, 0)
	if err != nil {
		return 0, errors.Wrap(err, "querying applications")
	}
	n, err := svc.repo.DeleteApplications(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, app := range apps {
		if err := svc.store.Delete(ctx, app.ResumeKey); err != nil {
			svc.logger.Error("deleting resume", err, map[string]interface{}{"key": app.ResumeKey})
		}
	}
	return n, nil
}
