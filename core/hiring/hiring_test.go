package hiring_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/hiring"
	"github.com/trezcool/habari/services/filestore"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
	"github.com/trezcool/habari/tests"
)

var pdf = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n")

type failingRepo struct {
	hiring.Repository
}

func (failingRepo) CreateApplication(context.Context, hiring.Application, ...core.DBExecutor) (hiring.Application, error) {
	return hiring.Application{}, errors.New("db is down")
}

type fixture struct {
	svc   *hiring.Service
	repo  hiring.Repository
	store *filestore.LocalStore
	root  string
	dept  hiring.Department
}

func setup(t *testing.T) fixture {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewHiringRepository(db)
	root := t.TempDir()
	store := filestore.NewLocalStore(root, "http://localhost:8080/media")
	svc := hiring.NewService(repo, store, testutil.NewLogger(), testutil.NewConfig())

	dept, err := svc.CreateDepartment(context.Background(), hiring.DepartmentData{Name: "Teaching Staff"})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, store: store, root: root, dept: dept}
}

func (f fixture) createJob(t *testing.T, title, status string, deadline ...time.Time) hiring.JobPosting {
	data := hiring.JobData{
		DepartmentID:   f.dept.ID,
		Title:          title,
		Description:    "<p>Teach</p>",
		Requirements:   "<p>Patience</p>",
		EmploymentType: hiring.FullTime,
		Status:         status,
	}
	if len(deadline) > 0 {
		data.Deadline = &deadline[0]
	}
	j, err := f.svc.CreateJob(context.Background(), data)
	require.NoError(t, err)
	return j
}

func resumeFiles(t *testing.T, root string) []string {
	entries, err := os.ReadDir(filepath.Join(root, "hiring", "resumes"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func applicant() hiring.NewApplication {
	return hiring.NewApplication{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Phone: "+243 800 000"}
}

func TestService_Jobs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	draft := f.createJob(t, "Math Teacher", hiring.JobDraft)
	assert.Equal(t, "math-teacher", draft.Slug)
	assert.False(t, draft.PublishedAt.Valid)
	assert.Equal(t, "Teaching Staff", draft.DepartmentName)

	open := f.createJob(t, "French Teacher", hiring.JobOpen)
	assert.True(t, open.PublishedAt.Valid)

	t.Run("opening sets the publication date once", func(t *testing.T) {
		data := hiring.JobData{
			DepartmentID: f.dept.ID, Title: draft.Title, Description: "d", Requirements: "r",
			EmploymentType: hiring.PartTime, Status: hiring.JobOpen,
		}
		j, err := f.svc.UpdateJob(ctx, draft, data)
		require.NoError(t, err)
		require.True(t, j.PublishedAt.Valid)
		publishedAt := j.PublishedAt.Time

		data.Status = hiring.JobClosed
		j, err = f.svc.UpdateJob(ctx, j, data)
		require.NoError(t, err)
		data.Status = hiring.JobOpen
		j, err = f.svc.UpdateJob(ctx, j, data)
		require.NoError(t, err)
		assert.True(t, publishedAt.Equal(j.PublishedAt.Time))
	})

	t.Run("unknown department", func(t *testing.T) {
		_, err := f.svc.CreateJob(ctx, hiring.JobData{DepartmentID: "nope", Title: "x", Status: hiring.JobDraft})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "department_id", verr.Fields[0].Field)
	})

	t.Run("public listing", func(t *testing.T) {
		careers, err := f.svc.ListOpenJobs(ctx, "")
		require.NoError(t, err)
		assert.Len(t, careers.Jobs, 2)
		assert.Len(t, careers.Departments, 1)

		careers, err = f.svc.ListOpenJobs(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, careers.Jobs)
	})

	t.Run("detail of open jobs only", func(t *testing.T) {
		j := f.createJob(t, "Janitor", hiring.JobClosed)
		_, err := f.svc.JobDetail(ctx, j.Slug)
		assert.True(t, core.IsNotFound(err))

		got, err := f.svc.JobDetail(ctx, open.Slug)
		require.NoError(t, err)
		assert.Equal(t, open.ID, got.ID)
	})

	t.Run("department deletion cascades", func(t *testing.T) {
		n, err := f.svc.DeleteDepartments(ctx, f.dept.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		jobs, err := f.svc.ListJobs(ctx, hiring.JobFilter{})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

func TestService_Apply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	job := f.createJob(t, "Math Teacher", hiring.JobOpen)

	tests := []struct {
		name      string
		slug      string
		resume    *hiring.Resume
		wantField string
		notFound  bool
	}{
		{"no resume", job.Slug, nil, "resume", false},
		{"wrong extension", job.Slug, &hiring.Resume{Filename: "cv.exe", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)}, "resume", false},
		{"content does not match", job.Slug, &hiring.Resume{Filename: "cv.pdf", Size: 11, Content: strings.NewReader("<html></html>")}, "resume", false},
		{"too large", job.Slug, &hiring.Resume{Filename: "cv.pdf", Size: 6 << 20, Content: bytes.NewReader(pdf)}, "resume", false},
		{"unknown job", "nope", &hiring.Resume{Filename: "cv.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Apply(ctx, tt.slug, applicant(), tt.resume)
			require.Error(t, err)
			if tt.notFound {
				assert.True(t, core.IsNotFound(err))
				return
			}
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}
	assert.Empty(t, resumeFiles(t, f.root))

	t.Run("success", func(t *testing.T) {
		app, err := f.svc.Apply(ctx, job.Slug, applicant(), &hiring.Resume{
			Filename: "Jane CV.PDF",
			Size:     int64(len(pdf)),
			Content:  bytes.NewReader(pdf),
		})
		require.NoError(t, err)
		assert.Equal(t, hiring.AppReceived, app.Status)
		assert.True(t, strings.HasPrefix(app.ResumeKey, "hiring/resumes/"))
		assert.True(t, strings.HasSuffix(app.ResumeKey, ".pdf"))
		assert.Equal(t, "http://localhost:8080/media/"+app.ResumeKey, f.svc.ResumeURL(app))

		rc, err := f.svc.OpenResume(ctx, app)
		require.NoError(t, err)
		content, _ := io.ReadAll(rc)
		_ = rc.Close()
		assert.Equal(t, pdf, content)
	})

	t.Run("deadline passed", func(t *testing.T) {
		late := f.createJob(t, "Late Job", hiring.JobOpen, time.Now().Add(-time.Hour))
		_, err := f.svc.Apply(ctx, late.Slug, applicant(), &hiring.Resume{Filename: "cv.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, hiring.ErrDeadlinePassed, verr.Err)
	})

	t.Run("failed insert removes the stored resume", func(t *testing.T) {
		before := resumeFiles(t, f.root)
		svc := hiring.NewService(failingRepo{f.repo}, f.store, testutil.NewLogger(), testutil.NewConfig())
		_, err := svc.Apply(ctx, job.Slug, applicant(), &hiring.Resume{Filename: "cv.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)})
		require.Error(t, err)
		assert.Equal(t, before, resumeFiles(t, f.root))
	})
}

func TestService_Applications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	job := f.createJob(t, "Math Teacher", hiring.JobOpen)

	apply := func(first string) hiring.Application {
		data := applicant()
		data.FirstName = first
		data.Email = strings.ToLower(first) + "@example.com"
		app, err := f.svc.Apply(ctx, job.Slug, data, &hiring.Resume{Filename: "cv.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)})
		require.NoError(t, err)
		return app
	}
	jane, john := apply("Jane"), apply("John")

	app, err := f.svc.UpdateApplication(ctx, jane, hiring.ApplicationUpdate{Status: hiring.AppShortlisted, Notes: "good"})
	require.NoError(t, err)
	assert.Equal(t, "good", app.Notes)

	apps, err := f.svc.ListApplications(ctx, hiring.ApplicationFilter{Status: hiring.AppReceived})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, john.ID, apps[0].ID)
	assert.Equal(t, "Math Teacher", apps[0].JobTitle)

	apps, err = f.svc.ListApplications(ctx, hiring.ApplicationFilter{Search: "jan"})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, jane.ID, apps[0].ID)

	n, err := f.svc.DeleteApplications(ctx, jane.ID, john.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, resumeFiles(t, f.root))
}
