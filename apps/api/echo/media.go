package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/media"
	"github.com/trezcool/habari/core/user"
)

type mediaApi struct {
	svc      *media.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerMediaAPI(admin *echo.Group, mediaArea echo.MiddlewareFunc, deps ServerDeps) {
	api := mediaApi{
		svc:      deps.MediaSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	fg := admin.Group("/media/folders", mediaArea)
	fg.GET("", api.listFolders)
	fg.POST("", api.createFolder)
	fg.GET("/:id", api.retrieveFolder)
	fg.PUT("/:id", api.updateFolder)
	fg.DELETE("/:id", api.destroyFolder)

	mg := admin.Group("/media/files", mediaArea)
	mg.GET("", api.listFiles)
	mg.POST("", api.upload)
	mg.GET("/:id", api.retrieveFile)
	mg.PUT("/:id", api.updateFile)
	mg.DELETE("/:id", api.destroyFile)
}

// Folders

func (api *mediaApi) listFolders(ctx echo.Context) error {
	folders, err := api.svc.ListFolders(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying folders")
	}
	if folders == nil {
		folders = []media.Folder{}
	}
	return ctx.JSON(http.StatusOK, folders)
}

func (api *mediaApi) createFolder(ctx echo.Context) error {
	var data media.FolderData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FolderData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	folder, err := api.svc.CreateFolder(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating folder")
	}
	return ctx.JSON(http.StatusCreated, folder)
}

func (api *mediaApi) retrieveFolder(ctx echo.Context) error {
	folder, err := api.svc.GetFolder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, folder)
}

func (api *mediaApi) updateFolder(ctx echo.Context) error {
	folder, err := api.svc.GetFolder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data media.FolderData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FolderData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	folder, err = api.svc.UpdateFolder(ctx.Request().Context(), folder, data)
	if err != nil {
		return errors.Wrap(err, "updating folder")
	}
	return ctx.JSON(http.StatusOK, folder)
}

func (api *mediaApi) destroyFolder(ctx echo.Context) error {
	folder, err := api.svc.GetFolder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteFolders(ctx.Request().Context(), folder.ID); err != nil {
		return errors.Wrap(err, "deleting folder")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Files

func (api *mediaApi) listFiles(ctx echo.Context) error {
	var filter media.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	files, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying files")
	}
	if files == nil {
		files = []media.File{}
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *mediaApi) upload(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return core.NewFieldError("file", media.ErrEmptyFile.Error())
		}
		return errors.Wrap(err, "reading file")
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer file.Close()

	up := media.Upload{
		Title:      ctx.FormValue("title"),
		FolderID:   ctx.FormValue("folder_id"),
		Filename:   fh.Filename,
		Size:       fh.Size,
		UploadedBy: usr.ID,
	}
	f, err := api.svc.Upload(ctx.Request().Context(), up, file)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *mediaApi) retrieveFile(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *mediaApi) updateFile(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data media.FileUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FileUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err = api.svc.Update(ctx.Request().Context(), f, data)
	if err != nil {
		return errors.Wrap(err, "updating file")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *mediaApi) destroyFile(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), f); err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.NoContent(http.StatusNoContent)
}
