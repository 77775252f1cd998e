package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/school"
)

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g, admin *echo.Group, schoolArea echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{
		svc:      deps.SchoolSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/school")
	sg.GET("/home", api.home)
	sg.GET("/team", api.team)
	sg.GET("/pages/:slug", api.page)

	pg := admin.Group("/pages", schoolArea)
	pg.GET("", api.listPages)
	pg.POST("", api.createPage)
	pg.DELETE("", api.destroyPages)
	pg.GET("/:id", api.retrievePage)
	pg.PUT("/:id", api.updatePage)
	pg.DELETE("/:id", api.destroyPage)

	tg := admin.Group("/team", schoolArea)
	tg.GET("", api.listTeamMembers)
	tg.POST("", api.createTeamMember)
	tg.GET("/:id", api.retrieveTeamMember)
	tg.PUT("/:id", api.updateTeamMember)
	tg.DELETE("/:id", api.destroyTeamMember)

	qg := admin.Group("/testimonials", schoolArea)
	qg.GET("", api.listTestimonials)
	qg.POST("", api.createTestimonial)
	qg.GET("/:id", api.retrieveTestimonial)
	qg.PUT("/:id", api.updateTestimonial)
	qg.DELETE("/:id", api.destroyTestimonial)
}

// Public

func (api *schoolApi) home(ctx echo.Context) error {
	home, err := api.svc.Home(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting home")
	}
	return ctx.JSON(http.StatusOK, home)
}

func (api *schoolApi) team(ctx echo.Context) error {
	members, err := api.svc.TeamList(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying team members")
	}
	if members == nil {
		members = []school.TeamMember{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *schoolApi) page(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	page, err := api.svc.PageDetail(ctx.Request().Context(), st.ID, ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, page)
}

// Pages

func (api *schoolApi) listPages(ctx echo.Context) error {
	pages, err := api.svc.ListPages(ctx.Request().Context(), ctx.QueryParam("site_id"))
	if err != nil {
		return errors.Wrap(err, "querying pages")
	}
	if pages == nil {
		pages = []school.Page{}
	}
	return ctx.JSON(http.StatusOK, pages)
}

func (api *schoolApi) createPage(ctx echo.Context) error {
	var data school.PageData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PageData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	page, err := api.svc.CreatePage(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating page")
	}
	return ctx.JSON(http.StatusCreated, page)
}

func (api *schoolApi) retrievePage(ctx echo.Context) error {
	page, err := api.svc.GetPage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *schoolApi) updatePage(ctx echo.Context) error {
	page, err := api.svc.GetPage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data school.PageData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PageData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	page, err = api.svc.UpdatePage(ctx.Request().Context(), page, data)
	if err != nil {
		return errors.Wrap(err, "updating page")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *schoolApi) destroyPage(ctx echo.Context) error {
	page, err := api.svc.GetPage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeletePages(ctx.Request().Context(), page.ID); err != nil {
		return errors.Wrap(err, "deleting page")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) destroyPages(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	n, err := api.svc.DeletePages(ctx.Request().Context(), query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting pages")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

// Team members

func (api *schoolApi) listTeamMembers(ctx echo.Context) error {
	members, err := api.svc.ListTeamMembers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying team members")
	}
	if members == nil {
		members = []school.TeamMember{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *schoolApi) createTeamMember(ctx echo.Context) error {
	var data school.TeamMemberData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeamMemberData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	member, err := api.svc.CreateTeamMember(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating team member")
	}
	return ctx.JSON(http.StatusCreated, member)
}

func (api *schoolApi) retrieveTeamMember(ctx echo.Context) error {
	member, err := api.svc.GetTeamMember(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, member)
}

func (api *schoolApi) updateTeamMember(ctx echo.Context) error {
	member, err := api.svc.GetTeamMember(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data school.TeamMemberData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeamMemberData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	member, err = api.svc.UpdateTeamMember(ctx.Request().Context(), member, data)
	if err != nil {
		return errors.Wrap(err, "updating team member")
	}
	return ctx.JSON(http.StatusOK, member)
}

func (api *schoolApi) destroyTeamMember(ctx echo.Context) error {
	member, err := api.svc.GetTeamMember(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteTeamMembers(ctx.Request().Context(), member.ID); err != nil {
		return errors.Wrap(err, "deleting team member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Testimonials

func (api *schoolApi) listTestimonials(ctx echo.Context) error {
	testimonials, err := api.svc.ListTestimonials(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying testimonials")
	}
	if testimonials == nil {
		testimonials = []school.Testimonial{}
	}
	return ctx.JSON(http.StatusOK, testimonials)
}

func (api *schoolApi) createTestimonial(ctx echo.Context) error {
	var data school.TestimonialData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestimonialData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	testimonial, err := api.svc.CreateTestimonial(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating testimonial")
	}
	return ctx.JSON(http.StatusCreated, testimonial)
}

func (api *schoolApi) retrieveTestimonial(ctx echo.Context) error {
	testimonial, err := api.svc.GetTestimonial(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, testimonial)
}

func (api *schoolApi) updateTestimonial(ctx echo.Context) error {
	testimonial, err := api.svc.GetTestimonial(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data school.TestimonialData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestimonialData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	testimonial, err = api.svc.UpdateTestimonial(ctx.Request().Context(), testimonial, data)
	if err != nil {
		return errors.Wrap(err, "updating testimonial")
	}
	return ctx.JSON(http.StatusOK, testimonial)
}

func (api *schoolApi) destroyTestimonial(ctx echo.Context) error {
	testimonial, err := api.svc.GetTestimonial(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteTestimonials(ctx.Request().Context(), testimonial.ID); err != nil {
		return errors.Wrap(err, "deleting testimonial")
	}
	return ctx.NoContent(http.StatusNoContent)
}
