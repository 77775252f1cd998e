package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/metrics"
)

const contextSiteKey = "site"

var errSiteNotInCtx = errors.New("site not found in echo.Context")

// siteMiddleware resolves the site serving the request from its host.
func siteMiddleware(svc *site.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st, err := svc.Current(ctx.Request().Context(), ctx.Request().Host)
			if err != nil {
				return errors.Wrap(err, "resolving current site")
			}
			ctx.Set(contextSiteKey, st)
			return next(ctx)
		}
	}
}

func getContextSite(ctx echo.Context) (site.Site, error) {
	if st, ok := ctx.Get(contextSiteKey).(site.Site); ok {
		return st, nil
	}
	return site.Site{}, errSiteNotInCtx
}

func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err) // commit the response so its status is known
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}

// staffMiddleware only lets active staff users through.
func staffMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsStaff() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// areaMiddleware only lets through the staff roles allowed in an admin area.
func areaMiddleware(svc user.Service, area string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.CanAccess(area) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
