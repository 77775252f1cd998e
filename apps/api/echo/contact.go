package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/contact"
)

type contactApi struct {
	svc      *contact.Service
	validate *validator.Validate
}

func registerContactAPI(g, admin *echo.Group, contactArea echo.MiddlewareFunc, deps ServerDeps) {
	api := contactApi{
		svc:      deps.ContactSvc,
		validate: deps.Validate,
	}

	g.POST("/contact/inquiries", api.submit)

	ig := admin.Group("/inquiries", contactArea)
	ig.GET("", api.list)
	ig.DELETE("", api.destroyMultiple)
	ig.POST("/status", api.setStatus)
	ig.GET("/:id", api.retrieve)
	ig.DELETE("/:id", api.destroy)
}

func (api *contactApi) submit(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}

	var data contact.NewInquiry
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInquiry")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inq, err := api.svc.Submit(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "submitting inquiry")
	}
	return ctx.JSON(http.StatusCreated, inq)
}

func (api *contactApi) list(ctx echo.Context) error {
	var filter contact.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	filter.SiteID = ctx.QueryParam("site_id")

	inquiries, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying inquiries")
	}
	if inquiries == nil {
		inquiries = []contact.Inquiry{}
	}
	return ctx.JSON(http.StatusOK, inquiries)
}

func (api *contactApi) retrieve(ctx echo.Context) error {
	inq, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inq)
}

func (api *contactApi) setStatus(ctx echo.Context) error {
	var data contact.SetStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.SetStatus(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating inquiries status")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *contactApi) destroy(ctx echo.Context) error {
	inq, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.Delete(ctx.Request().Context(), inq.ID); err != nil {
		return errors.Wrap(err, "deleting inquiry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contactApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	n, err := api.svc.Delete(ctx.Request().Context(), query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting inquiries")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}
