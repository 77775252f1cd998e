package hiring

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

// Job statuses
const (
	JobDraft  = "draft"
	JobOpen   = "open"
	JobClosed = "closed"
)

// Employment types
const (
	FullTime   = "full_time"
	PartTime   = "part_time"
	Contract   = "contract"
	Internship = "internship"
)

// Application statuses
const (
	AppReceived    = "received"
	AppReviewing   = "reviewing"
	AppShortlisted = "shortlisted"
	AppInterview   = "interview"
	AppRejected    = "rejected"
	AppAccepted    = "accepted"
)

var (
	JobStatuses         = []string{JobDraft, JobOpen, JobClosed}
	EmploymentTypes     = []string{FullTime, PartTime, Contract, Internship}
	ApplicationStatuses = []string{AppReceived, AppReviewing, AppShortlisted, AppInterview, AppRejected, AppAccepted}
)

type Department struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

type JobPosting struct {
	ID              string    `json:"id" db:"id"`
	DepartmentID    string    `json:"department_id" db:"department_id"`
	Title           string    `json:"title" db:"title"`
	Slug            string    `json:"slug" db:"slug"`
	Description     string    `json:"description" db:"description"`
	Requirements    string    `json:"requirements" db:"requirements"`
	EmploymentType  string    `json:"employment_type" db:"employment_type"`
	Location        string    `json:"location" db:"location"`
	SalaryRange     string    `json:"salary_range" db:"salary_range"`
	Status          string    `json:"status" db:"status"`
	PublishedAt     null.Time `json:"published_at" db:"published_at"`
	Deadline        null.Time `json:"deadline" db:"deadline"`
	MetaTitle       string    `json:"meta_title" db:"meta_title"`
	MetaDescription string    `json:"meta_description" db:"meta_description"`
	MetaKeywords    string    `json:"meta_keywords" db:"meta_keywords"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	DepartmentName string `json:"department_name" db:"department_name"`
	DepartmentSlug string `json:"department_slug" db:"department_slug"`
}

func (j JobPosting) IsOpen() bool {
	return j.Status == JobOpen
}

// DeadlinePassed reports whether the job's application deadline is before `now`.
func (j JobPosting) DeadlinePassed(now time.Time) bool {
	return j.Deadline.Valid && j.Deadline.Time.Before(now)
}

type Application struct {
	ID          string    `json:"id" db:"id"`
	JobID       string    `json:"job_id" db:"job_id"`
	FirstName   string    `json:"first_name" db:"first_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	CoverLetter string    `json:"cover_letter" db:"cover_letter"`
	ResumeKey   string    `json:"-" db:"resume_key"`
	Status      string    `json:"status" db:"status"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	JobTitle string `json:"job_title" db:"job_title"`
}

func (a Application) FullName() string {
	return a.FirstName + " " + a.LastName
}

type JobFilter struct {
	ID             string
	Slug           string
	DepartmentID   string
	DepartmentSlug string
	Status         string
	Search         string `query:"search"`
}

type ApplicationFilter struct {
	IDs    []string
	JobID  string `query:"job"`
	Status string `query:"status"`
	Search string `query:"search"`
}

// Resume is an uploaded resume file.
type Resume struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type DepartmentData struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"omitempty,max=200,slug"`
}

func (dd *DepartmentData) Validate(validate *validator.Validate) error {
	dd.Name = core.CleanString(dd.Name)
	dd.Slug = core.CleanString(dd.Slug, true /* lower */)
	return validate.Struct(dd)
}

type JobData struct {
	DepartmentID    string     `json:"department_id" validate:"required"`
	Title           string     `json:"title" validate:"required,max=200"`
	Slug            string     `json:"slug" validate:"omitempty,max=200,slug"`
	Description     string     `json:"description" validate:"required"`
	Requirements    string     `json:"requirements" validate:"required"`
	EmploymentType  string     `json:"employment_type" validate:"required,oneof=full_time part_time contract internship"`
	Location        string     `json:"location" validate:"max=200"`
	SalaryRange     string     `json:"salary_range" validate:"max=200"`
	Status          string     `json:"status" validate:"required,oneof=draft open closed"`
	Deadline        *time.Time `json:"deadline"`
	MetaTitle       string     `json:"meta_title" validate:"max=70"`
	MetaDescription string     `json:"meta_description" validate:"max=160"`
	MetaKeywords    string     `json:"meta_keywords" validate:"max=255"`
}

func (jd *JobData) Validate(validate *validator.Validate) error {
	jd.Title = core.CleanString(jd.Title)
	jd.Slug = core.CleanString(jd.Slug, true /* lower */)
	jd.Location = core.CleanString(jd.Location)
	jd.SalaryRange = core.CleanString(jd.SalaryRange)
	jd.MetaTitle = core.CleanString(jd.MetaTitle)
	jd.MetaDescription = core.CleanString(jd.MetaDescription)
	jd.MetaKeywords = core.CleanString(jd.MetaKeywords)
	if jd.EmploymentType == "" {
		jd.EmploymentType = FullTime
	}
	if jd.Status == "" {
		jd.Status = JobDraft
	}
	return validate.Struct(jd)
}

type NewApplication struct {
	FirstName   string `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" form:"last_name" validate:"required,max=100"`
	Email       string `json:"email" form:"email" validate:"required,email"`
	Phone       string `json:"phone" form:"phone" validate:"required,max=30"`
	CoverLetter string `json:"cover_letter" form:"cover_letter"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.CoverLetter = core.CleanString(na.CoverLetter)
	return validate.Struct(na)
}

type ApplicationUpdate struct {
	Status string `json:"status" validate:"required,oneof=received reviewing shortlisted interview rejected accepted"`
	Notes  string `json:"notes"`
}

func (au *ApplicationUpdate) Validate(validate *validator.Validate) error {
	au.Notes = core.CleanString(au.Notes)
	return validate.Struct(au)
}
