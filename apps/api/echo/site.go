package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/site"
)

type siteApi struct {
	svc      *site.Service
	newsSvc  *news.Service
	validate *validator.Validate
}

// CurrentSite is what every page of a portal needs: the site, its settings and the navigation.
type CurrentSite struct {
	Site          site.Site       `json:"site"`
	Settings      *site.Settings  `json:"settings"`
	NavCategories []news.Category `json:"nav_categories"`
}

func registerSiteAPI(g, admin *echo.Group, sitesArea echo.MiddlewareFunc, deps ServerDeps) {
	api := siteApi{
		svc:      deps.SiteSvc,
		newsSvc:  deps.NewsSvc,
		validate: deps.Validate,
	}

	g.GET("/site", api.current)

	sg := admin.Group("/sites", sitesArea)
	sg.GET("", api.list)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
	sg.GET("/:id/settings", api.settings)
	sg.PUT("/:id/settings", api.saveSettings)
}

func (api *siteApi) current(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	settings, err := api.svc.SettingsOrNil(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "getting site settings")
	}
	nav, err := api.newsSvc.NavCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying nav categories")
	}
	if nav == nil {
		nav = []news.Category{}
	}
	return ctx.JSON(http.StatusOK, CurrentSite{Site: st, Settings: settings, NavCategories: nav})
}

func (api *siteApi) list(ctx echo.Context) error {
	sites, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sites")
	}
	if sites == nil {
		sites = []site.Site{}
	}
	return ctx.JSON(http.StatusOK, sites)
}

func (api *siteApi) create(ctx echo.Context) error {
	var data site.NewSite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSite")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating site")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *siteApi) retrieve(ctx echo.Context) error {
	st, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *siteApi) update(ctx echo.Context) error {
	st, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data site.UpdateSite
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSite")
	}
	if err = data.Validate(st, api.validate); err != nil {
		return err
	}

	st, err = api.svc.Update(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "updating site")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *siteApi) destroy(ctx echo.Context) error {
	st, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), st.ID); err != nil {
		return errors.Wrap(err, "deleting site")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *siteApi) settings(ctx echo.Context) error {
	settings, err := api.svc.GetSettings(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *siteApi) saveSettings(ctx echo.Context) error {
	var data site.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	settings, err := api.svc.SaveSettings(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "saving site settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}
