package echoapi

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/habari/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryPage returns the `?page=` number, 1 when absent or invalid (the services clamp it anyway).
func queryPage(ctx echo.Context) int {
	page, err := strconv.Atoi(ctx.QueryParam(pageParam))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	RegisterResponse struct {
		Token string      `json:"token"`
		User  interface{} `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	PasswordRequest struct {
		Password string `json:"password" validate:"required"`
	}

	NewsletterToggleRequest struct {
		Action string `json:"action" validate:"required"`
	}

	NewsletterStatusResponse struct {
		Subscribed bool `json:"subscribed"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	// IDsRequest is the body of the bulk actions.
	IDsRequest struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}

	TransitionRequest struct {
		Status string `json:"status" validate:"required"`
	}

	SendNewsletterRequest struct {
		Force bool `json:"force"`
	}

	CommentRequest struct {
		Content string `json:"content"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (ir *IDsRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ir)
}

func (tr *TransitionRequest) Validate(validate *validator.Validate) error {
	tr.Status = core.CleanString(tr.Status, true /* lower */)
	return validate.Struct(tr)
}
