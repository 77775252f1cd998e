package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
)

func Test_errorResponse(t *testing.T) {
	validate, translator := core.NewValidator()
	vErr := validate.Struct(site.NewSite{})

	tests := []struct {
		name          string
		err           error
		wantCode      int
		wantBody      interface{}
		wantServerErr bool
	}{
		{
			name: "missing jwt", err: middleware.ErrJWTMissing,
			wantCode: http.StatusUnauthorized, wantBody: echo.Map{"error": "missing or malformed jwt"},
		},
		{
			name: "wrapped http error", err: errors.Wrap(errHttpForbidden, "checking area"),
			wantCode: http.StatusForbidden, wantBody: echo.Map{"error": "permission denied"},
		},
		{
			name: "internal http error", err: &echo.HTTPError{Code: http.StatusBadRequest, Message: "bad request", Internal: errHttpNotFound},
			wantCode: http.StatusNotFound, wantBody: echo.Map{"error": "not found"},
		},
		{
			name: "struct validation", err: vErr,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"domain": "this field is required", "name": "this field is required"},
		},
		{
			name: "field validation", err: core.NewFieldError("domain", site.ErrDomainExists.Error()),
			wantCode: http.StatusBadRequest, wantBody: map[string]string{"domain": site.ErrDomainExists.Error()},
		},
		{
			name: "plain validation", err: errors.Wrap(core.NewValidationError(errors.New("deadline passed")), "applying"),
			wantCode: http.StatusBadRequest, wantBody: echo.Map{"error": "deadline passed"},
		},
		{
			name: "not found", err: errors.Wrap(site.ErrSettingsNotFound, "getting settings"),
			wantCode: http.StatusNotFound, wantBody: echo.Map{"error": "site settings not found"},
		},
		{
			name: "server error", err: errors.New("connection refused"),
			wantCode: http.StatusInternalServerError, wantBody: echo.Map{"error": "Internal Server Error"}, wantServerErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, serverErr := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantServerErr, serverErr)
		})
	}
}
