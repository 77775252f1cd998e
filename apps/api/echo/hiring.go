package echoapi

import (
	"mime/multipart"
	"net/http"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/hiring"
)

type hiringApi struct {
	svc      *hiring.Service
	validate *validator.Validate
}

// ApplicationDetail is an application with the link to its resume.
type ApplicationDetail struct {
	hiring.Application
	ResumeURL string `json:"resume_url"`
}

func registerHiringAPI(g, admin *echo.Group, hiringArea echo.MiddlewareFunc, deps ServerDeps) {
	api := hiringApi{
		svc:      deps.HiringSvc,
		validate: deps.Validate,
	}

	hg := g.Group("/hiring")
	hg.GET("/jobs", api.openJobs)
	hg.GET("/jobs/:slug", api.jobDetail)
	hg.POST("/jobs/:slug/apply", api.apply)

	dg := admin.Group("/departments", hiringArea)
	dg.GET("", api.listDepartments)
	dg.POST("", api.createDepartment)
	dg.GET("/:id", api.retrieveDepartment)
	dg.PUT("/:id", api.updateDepartment)
	dg.DELETE("/:id", api.destroyDepartment)

	jg := admin.Group("/jobs", hiringArea)
	jg.GET("", api.listJobs)
	jg.POST("", api.createJob)
	jg.GET("/:id", api.retrieveJob)
	jg.PUT("/:id", api.updateJob)
	jg.DELETE("/:id", api.destroyJob)

	ag := admin.Group("/applications", hiringArea)
	ag.GET("", api.listApplications)
	ag.DELETE("", api.destroyApplications)
	ag.GET("/:id", api.retrieveApplication)
	ag.PUT("/:id", api.updateApplication)
	ag.GET("/:id/resume", api.downloadResume)
}

// Careers

func (api *hiringApi) openJobs(ctx echo.Context) error {
	careers, err := api.svc.ListOpenJobs(ctx.Request().Context(), ctx.QueryParam("department"))
	if err != nil {
		return errors.Wrap(err, "querying open jobs")
	}
	return ctx.JSON(http.StatusOK, careers)
}

func (api *hiringApi) jobDetail(ctx echo.Context) error {
	job, err := api.svc.JobDetail(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, job)
}

func (api *hiringApi) apply(ctx echo.Context) error {
	var data hiring.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var resume *hiring.Resume
	fh, err := ctx.FormFile("resume")
	switch {
	case err == nil:
		var file multipart.File
		if file, err = fh.Open(); err != nil {
			return errors.Wrap(err, "opening resume")
		}
		defer file.Close()
		resume = &hiring.Resume{Filename: fh.Filename, Size: fh.Size, Content: file}
	case err != http.ErrMissingFile:
		return errors.Wrap(err, "reading resume")
	}

	app, err := api.svc.Apply(ctx.Request().Context(), ctx.Param("slug"), data, resume)
	if err != nil {
		return errors.Wrap(err, "applying to job")
	}
	return ctx.JSON(http.StatusCreated, app)
}

// Departments

func (api *hiringApi) listDepartments(ctx echo.Context) error {
	depts, err := api.svc.ListDepartments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	if depts == nil {
		depts = []hiring.Department{}
	}
	return ctx.JSON(http.StatusOK, depts)
}

func (api *hiringApi) createDepartment(ctx echo.Context) error {
	var data hiring.DepartmentData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DepartmentData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dept, err := api.svc.CreateDepartment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dept)
}

func (api *hiringApi) retrieveDepartment(ctx echo.Context) error {
	dept, err := api.svc.GetDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *hiringApi) updateDepartment(ctx echo.Context) error {
	dept, err := api.svc.GetDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data hiring.DepartmentData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DepartmentData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	dept, err = api.svc.UpdateDepartment(ctx.Request().Context(), dept, data)
	if err != nil {
		return errors.Wrap(err, "updating department")
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *hiringApi) destroyDepartment(ctx echo.Context) error {
	dept, err := api.svc.GetDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteDepartments(ctx.Request().Context(), dept.ID); err != nil {
		return errors.Wrap(err, "deleting department")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Jobs

func (api *hiringApi) listJobs(ctx echo.Context) error {
	var filter hiring.JobFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to JobFilter")
	}
	filter.DepartmentID = ctx.QueryParam("department")
	filter.Status = ctx.QueryParam("status")

	jobs, err := api.svc.ListJobs(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying jobs")
	}
	if jobs == nil {
		jobs = []hiring.JobPosting{}
	}
	return ctx.JSON(http.StatusOK, jobs)
}

func (api *hiringApi) createJob(ctx echo.Context) error {
	var data hiring.JobData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JobData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	job, err := api.svc.CreateJob(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating job")
	}
	return ctx.JSON(http.StatusCreated, job)
}

func (api *hiringApi) retrieveJob(ctx echo.Context) error {
	job, err := api.svc.GetJob(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, job)
}

func (api *hiringApi) updateJob(ctx echo.Context) error {
	job, err := api.svc.GetJob(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data hiring.JobData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JobData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	job, err = api.svc.UpdateJob(ctx.Request().Context(), job, data)
	if err != nil {
		return errors.Wrap(err, "updating job")
	}
	return ctx.JSON(http.StatusOK, job)
}

func (api *hiringApi) destroyJob(ctx echo.Context) error {
	job, err := api.svc.GetJob(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteJobs(ctx.Request().Context(), job.ID); err != nil {
		return errors.Wrap(err, "deleting job")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Applications

func (api *hiringApi) listApplications(ctx echo.Context) error {
	var filter hiring.ApplicationFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ApplicationFilter")
	}
	apps, err := api.svc.ListApplications(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []hiring.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *hiringApi) detail(app hiring.Application) ApplicationDetail {
	detail := ApplicationDetail{Application: app}
	if app.ResumeKey != "" {
		detail.ResumeURL = api.svc.ResumeURL(app)
	}
	return detail
}

func (api *hiringApi) retrieveApplication(ctx echo.Context) error {
	app, err := api.svc.GetApplication(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.detail(app))
}

func (api *hiringApi) updateApplication(ctx echo.Context) error {
	app, err := api.svc.GetApplication(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data hiring.ApplicationUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApplicationUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	app, err = api.svc.UpdateApplication(ctx.Request().Context(), app, data)
	if err != nil {
		return errors.Wrap(err, "updating application")
	}
	return ctx.JSON(http.StatusOK, api.detail(app))
}

func (api *hiringApi) downloadResume(ctx echo.Context) error {
	app, err := api.svc.GetApplication(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if app.ResumeKey == "" {
		return errHttpNotFound
	}

	rc, err := api.svc.OpenResume(ctx.Request().Context(), app)
	if err != nil {
		return errors.Wrap(err, "opening resume")
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="resume`+path.Ext(app.ResumeKey)+`"`)
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (api *hiringApi) destroyApplications(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	n, err := api.svc.DeleteApplications(ctx.Request().Context(), query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting applications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}
