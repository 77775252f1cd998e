package echoapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/newsletter"
)

func registerNewsAdminAPI(admin *echo.Group, newsArea echo.MiddlewareFunc, api newsApi) {
	ag := admin.Group("/articles", newsArea)
	ag.GET("", api.listArticles)
	ag.POST("", api.createArticle)
	ag.DELETE("", api.destroyArticles)
	ag.POST("/publish", api.publishArticles)
	ag.POST("/archive", api.archiveArticles)
	ag.GET("/:id", api.retrieveArticle)
	ag.PUT("/:id", api.updateArticle)
	ag.DELETE("/:id", api.destroyArticle)
	ag.POST("/:id/transition", api.transitionArticle)
	ag.GET("/:id/newsletter-preview", api.previewNewsletter)
	ag.POST("/:id/newsletter", api.sendNewsletter)

	cg := admin.Group("/categories", newsArea)
	cg.GET("", api.listCategories)
	cg.POST("", api.createCategory)
	cg.GET("/:id", api.retrieveCategory)
	cg.PUT("/:id", api.updateCategory)
	cg.DELETE("/:id", api.destroyCategory)

	tg := admin.Group("/tags", newsArea)
	tg.GET("", api.listTags)
	tg.POST("", api.createTag)
	tg.GET("/:id", api.retrieveTag)
	tg.PUT("/:id", api.updateTag)
	tg.DELETE("/:id", api.destroyTag)

	mg := admin.Group("/comments", newsArea)
	mg.GET("", api.listComments)
	mg.POST("/approve", api.approveComments)
	mg.POST("/hide", api.hideComments)

	sg := admin.Group("/subscribers", newsArea)
	sg.GET("", api.listSubscribers)
	sg.DELETE("", api.destroySubscribers)
	sg.GET("/export", api.exportSubscribers)
	sg.GET("/:id", api.retrieveSubscriber)
	sg.PUT("/:id", api.updateSubscriber)
}

// Articles

func (api *newsApi) listArticles(ctx echo.Context) error {
	var filter news.AdminFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AdminFilter")
	}
	page, err := api.svc.ListArticles(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying articles")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *newsApi) createArticle(ctx echo.Context) error {
	var data news.ArticleData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ArticleData")
	}
	if data.AuthorID == "" {
		if clms, err := getContextClaims(ctx); err == nil {
			data.AuthorID = clms.Subject
		}
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.CreateArticle(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating article")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *newsApi) retrieveArticle(ctx echo.Context) error {
	a, err := api.svc.GetArticle(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *newsApi) updateArticle(ctx echo.Context) error {
	a, err := api.svc.GetArticle(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data news.ArticleData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ArticleData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err = api.svc.UpdateArticle(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating article")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *newsApi) destroyArticle(ctx echo.Context) error {
	a, err := api.svc.GetArticle(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteArticles(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting article")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *newsApi) destroyArticles(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	n, err := api.svc.DeleteArticles(ctx.Request().Context(), query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting articles")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *newsApi) bulk(ctx echo.Context, action func(...string) (int, error)) error {
	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IDsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	n, err := action(data.IDs...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *newsApi) publishArticles(ctx echo.Context) error {
	return api.bulk(ctx, func(ids ...string) (int, error) {
		n, err := api.svc.BulkPublish(ctx.Request().Context(), ids...)
		return n, errors.Wrap(err, "publishing articles")
	})
}

func (api *newsApi) archiveArticles(ctx echo.Context) error {
	return api.bulk(ctx, func(ids ...string) (int, error) {
		n, err := api.svc.BulkArchive(ctx.Request().Context(), ids...)
		return n, errors.Wrap(err, "archiving articles")
	})
}

func (api *newsApi) transitionArticle(ctx echo.Context) error {
	var data TransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "transitioning article")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *newsApi) previewNewsletter(ctx echo.Context) error {
	html, err := api.newsletterSvc.Preview(ctx.Request().Context(), ctx.Param("id"), requestBaseURL(ctx))
	if err != nil {
		return errors.Wrap(err, "previewing newsletter")
	}
	return ctx.HTML(http.StatusOK, html)
}

func (api *newsApi) sendNewsletter(ctx echo.Context) error {
	var data SendNewsletterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendNewsletterRequest")
	}
	res, err := api.newsletterSvc.SendNow(ctx.Request().Context(), ctx.Param("id"), data.Force)
	if err != nil {
		return errors.Wrap(err, "sending newsletter")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Categories

func (api *newsApi) listCategories(ctx echo.Context) error {
	return api.categories(ctx)
}

func (api *newsApi) createCategory(ctx echo.Context) error {
	var data news.CategoryData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CategoryData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *newsApi) retrieveCategory(ctx echo.Context) error {
	cat, err := api.svc.GetCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *newsApi) updateCategory(ctx echo.Context) error {
	cat, err := api.svc.GetCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data news.CategoryData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CategoryData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cat, err = api.svc.UpdateCategory(ctx.Request().Context(), cat, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *newsApi) destroyCategory(ctx echo.Context) error {
	cat, err := api.svc.GetCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteCategories(ctx.Request().Context(), cat.ID); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Tags

func (api *newsApi) listTags(ctx echo.Context) error {
	tags, err := api.svc.ListTags(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying tags")
	}
	if tags == nil {
		tags = []news.Tag{}
	}
	return ctx.JSON(http.StatusOK, tags)
}

func (api *newsApi) createTag(ctx echo.Context) error {
	var data news.TagData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TagData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tag, err := api.svc.CreateTag(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating tag")
	}
	return ctx.JSON(http.StatusCreated, tag)
}

func (api *newsApi) retrieveTag(ctx echo.Context) error {
	tag, err := api.svc.GetTag(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tag)
}

func (api *newsApi) updateTag(ctx echo.Context) error {
	tag, err := api.svc.GetTag(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data news.TagData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TagData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	tag, err = api.svc.UpdateTag(ctx.Request().Context(), tag, data)
	if err != nil {
		return errors.Wrap(err, "updating tag")
	}
	return ctx.JSON(http.StatusOK, tag)
}

func (api *newsApi) destroyTag(ctx echo.Context) error {
	tag, err := api.svc.GetTag(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.svc.DeleteTags(ctx.Request().Context(), tag.ID); err != nil {
		return errors.Wrap(err, "deleting tag")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Comments

// queryBool parses a boolean query param, nil when absent or invalid.
func queryBool(ctx echo.Context, name string) *bool {
	v, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &v
}

func (api *newsApi) listComments(ctx echo.Context) error {
	filter := news.CommentFilter{
		ArticleID: ctx.QueryParam("article"),
		UserID:    ctx.QueryParam("user"),
		IsActive:  queryBool(ctx, "is_active"),
		Search:    ctx.QueryParam("search"),
	}
	comments, err := api.svc.ListComments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	if comments == nil {
		comments = []news.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *newsApi) approveComments(ctx echo.Context) error {
	return api.bulk(ctx, func(ids ...string) (int, error) {
		n, err := api.svc.ApproveComments(ctx.Request().Context(), ids...)
		return n, errors.Wrap(err, "approving comments")
	})
}

func (api *newsApi) hideComments(ctx echo.Context) error {
	return api.bulk(ctx, func(ids ...string) (int, error) {
		n, err := api.svc.HideComments(ctx.Request().Context(), ids...)
		return n, errors.Wrap(err, "hiding comments")
	})
}

// Subscribers

func (api *newsApi) listSubscribers(ctx echo.Context) error {
	var filter newsletter.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	subs, err := api.newsletterSvc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying subscriptions")
	}
	if subs == nil {
		subs = []newsletter.Subscription{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *newsApi) retrieveSubscriber(ctx echo.Context) error {
	sub, err := api.newsletterSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *newsApi) updateSubscriber(ctx echo.Context) error {
	sub, err := api.newsletterSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data newsletter.UpdateSubscription
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubscription")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.newsletterSvc.SetActive(ctx.Request().Context(), sub, *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "updating subscription")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *newsApi) destroySubscribers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	n, err := api.newsletterSvc.Delete(ctx.Request().Context(), query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting subscriptions")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *newsApi) exportSubscribers(ctx echo.Context) error {
	var filter newsletter.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	var buf bytes.Buffer
	if err := api.newsletterSvc.ExportCSV(ctx.Request().Context(), &buf, filter); err != nil {
		return errors.Wrap(err, "exporting subscriptions")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="subscribers.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
