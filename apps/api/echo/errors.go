package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, user.ErrAuthenticationFailed.Error())
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, user.ErrAccountDeactivated.Error())
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorResponse maps err to a status code and a JSON body.
// Field errors render as {field: message}, anything else as {"error": message}.
// Unknown errors are server errors: serverErr is then true and the cause stays out of the body.
func errorResponse(err error, translator ut.Translator) (code int, body interface{}, serverErr bool) {
	var message interface{}

	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			code, message = http.StatusUnauthorized, origErr.Message
			break
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		code, message = origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		code, message = http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		code, message = http.StatusBadRequest, origErr.Error()
		if len(origErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		}
	case *core.NotFoundError:
		code, message = http.StatusNotFound, origErr.Error()
	default:
		code, message, serverErr = http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), true
	}

	if m, ok := message.(string); ok {
		return code, echo.Map{"error": m}, serverErr
	}
	return code, message, serverErr
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Server errors are reported with the request's user and site.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, serverErr := errorResponse(err, translator)

		if serverErr {
			args := []interface{}{
				err,
				map[string]interface{}{"method": ctx.Request().Method, "path": ctx.Request().URL.Path},
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				args = append(args, user.User{ID: claims.Subject, Username: claims.Username, Email: claims.Email})
			}
			if st, sErr := getContextSite(ctx); sErr == nil {
				args = append(args, st)
			}
			logger.Error("request failed", args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			body = echo.Map{"error": err.Error()}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
