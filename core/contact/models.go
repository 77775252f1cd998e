package contact

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/habari/core"
)

// Subjects
const (
	SubjectGeneral    = "general"
	SubjectAdmissions = "admissions"
	SubjectSupport    = "support"
	SubjectOther      = "other"
)

// Statuses
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusReplied  = "replied"
	StatusArchived = "archived"
)

var (
	Subjects = []string{SubjectGeneral, SubjectAdmissions, SubjectSupport, SubjectOther}
	Statuses = []string{StatusNew, StatusRead, StatusReplied, StatusArchived}
)

type Inquiry struct {
	ID        string    `json:"id" db:"id"`
	SiteID    string    `json:"site_id" db:"site_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Filter struct {
	IDs     []string
	SiteID  string
	Status  string `query:"status"`
	Subject string `query:"subject"`
	Search  string `query:"search"`
}

type NewInquiry struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=30"`
	Subject string `json:"subject" validate:"required,oneof=general admissions support other"`
	Message string `json:"message" validate:"required"`
}

func (ni *NewInquiry) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Phone = core.CleanString(ni.Phone)
	ni.Message = core.CleanString(ni.Message)
	if ni.Subject == "" {
		ni.Subject = SubjectGeneral
	}
	return validate.Struct(ni)
}

type SetStatus struct {
	IDs    []string `json:"ids" validate:"required,min=1"`
	Status string   `json:"status" validate:"required,oneof=new read replied archived"`
}

func (ss *SetStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(ss)
}
