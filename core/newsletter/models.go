package newsletter

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/habari/core"
)

type Subscription struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	SiteID    string    `json:"site_id" db:"site_id"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	SiteName string `json:"site_name" db:"site_name"`
}

type GetFilter struct {
	ID     string
	Email  string
	SiteID string
}

type QueryFilter struct {
	IDs      []string `query:"-"`
	SiteID   string   `query:"site_id"`
	IsActive *bool    `query:"active"`
	Search   string   `query:"search"`
}

// Result counts the deliveries of one newsletter dispatch.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// SubscribeData is posted by the public subscription form.
type SubscribeData struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (sd *SubscribeData) Validate(validate *validator.Validate) error {
	sd.Email = core.CleanString(sd.Email, true /* lower */)
	return validate.Struct(sd)
}

// UpdateSubscription activates or deactivates a subscription.
type UpdateSubscription struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (us *UpdateSubscription) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}
