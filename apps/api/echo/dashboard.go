package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

func registerDashboardAPI(admin *echo.Group, deps ServerDeps) {
	svc := deps.DashboardSvc
	admin.GET("/dashboard", func(ctx echo.Context) error {
		stats, err := svc.Stats(ctx.Request().Context(), core.Now())
		if err != nil {
			return errors.Wrap(err, "getting dashboard stats")
		}
		return ctx.JSON(http.StatusOK, stats)
	})
}
