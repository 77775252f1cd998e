package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/habari/core"
)

// Roles
const (
	// Staff
	RoleSuperAdmin    = "super_admin"
	RoleSchoolAdmin   = "school_admin"
	RoleNewsEditor    = "news_editor"
	RoleHiringManager = "hiring_manager"

	// Self-registered accounts
	RoleReader = "reader"
)

// Admin areas
const (
	AreaNews    = "news"
	AreaSchool  = "school"
	AreaHiring  = "hiring"
	AreaContact = "contact"
	AreaMedia   = "media"
	AreaUsers   = "users"
	AreaSites   = "sites"
)

var (
	StaffRoles = []string{RoleSuperAdmin, RoleSchoolAdmin, RoleNewsEditor, RoleHiringManager}
	AllRoles   = append([]string{RoleReader}, StaffRoles...)

	Roles = []Role{
		{Name: "Reader", Value: RoleReader},
		{Name: "Super Admin", Value: RoleSuperAdmin},
		{Name: "School Admin", Value: RoleSchoolAdmin},
		{Name: "News Editor", Value: RoleNewsEditor},
		{Name: "Hiring Manager", Value: RoleHiringManager},
	}

	// areaRoles lists the staff roles (besides super_admin) allowed in each admin area.
	// An empty list means any staff member.
	areaRoles = map[string][]string{
		AreaNews:    {RoleNewsEditor},
		AreaSchool:  {RoleSchoolAdmin},
		AreaHiring:  {RoleHiringManager},
		AreaContact: {RoleSchoolAdmin},
		AreaMedia:   {},
		AreaUsers:   nil,
		AreaSites:   nil,
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Role         string    `json:"role" db:"role"`
	Bio          string    `json:"bio" db:"bio"`
	AvatarURL    string    `json:"avatar_url" db:"avatar_url"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// FullName returns "First Last", or the username when both are blank.
func (u *User) FullName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

func (u *User) IsStaff() bool {
	return u.Role != "" && u.Role != RoleReader
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// CanAccess reports whether u may use the given admin area.
func (u *User) CanAccess(area string) bool {
	return RoleCanAccess(u.Role, area)
}

func RoleCanAccess(role, area string) bool {
	if role == "" || role == RoleReader {
		return false
	}
	if role == RoleSuperAdmin {
		return true
	}
	roles, ok := areaRoles[area]
	if !ok || roles == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username            string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email               string `json:"email" validate:"required,email"`
	FirstName           string `json:"first_name" validate:"max=150"`
	LastName            string `json:"last_name" validate:"max=150"`
	Role                string `json:"role" validate:"omitempty,allroles"`
	Password            string `json:"password" validate:"required"`
	PasswordConfirm     string `json:"password_confirm" validate:"required,eqfield=Password"`
	SubscribeNewsletter bool   `json:"subscribe_newsletter"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Username        string `json:"username" validate:"omitempty,min=3,max=150,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Bio             string `json:"bio"`
	AvatarURL       string `json:"avatar_url" validate:"omitempty,url"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,allroles"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate fills blank fields from origUsr before validating.
func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if fname := core.CleanString(uu.FirstName); fname != "" {
		uu.FirstName = fname
	} else {
		uu.FirstName = origUsr.FirstName
	}

	if lname := core.CleanString(uu.LastName); lname != "" {
		uu.LastName = lname
	} else {
		uu.LastName = origUsr.LastName
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if bio := core.CleanString(uu.Bio); bio != "" {
		uu.Bio = bio
	} else {
		uu.Bio = origUsr.Bio
	}

	if avatar := core.CleanString(uu.AvatarURL); avatar != "" {
		uu.AvatarURL = avatar
	} else {
		uu.AvatarURL = origUsr.AvatarURL
	}

	if uu.Role == "" {
		uu.Role = origUsr.Role
	}
	return validate.Struct(uu)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
