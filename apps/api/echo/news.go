package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/newsletter"
	"github.com/trezcool/habari/core/user"
)

type newsApi struct {
	svc           *news.Service
	newsletterSvc *newsletter.Service
	userSvc       user.Service
	validate      *validator.Validate
}

type (
	CategoryPage struct {
		Category news.Category `json:"category"`
		news.ArticlePage
	}

	TagPage struct {
		Tag news.Tag `json:"tag"`
		news.ArticlePage
	}

	AuthorPage struct {
		Author news.Author `json:"author"`
		news.ArticlePage
	}

	ArchivePage struct {
		Year  int `json:"year"`
		Month int `json:"month,omitempty"`
		news.ArticlePage
	}

	SearchPage struct {
		Query string `json:"query"`
		news.ArticlePage
	}

	SubscribeResponse struct {
		Created bool   `json:"created"`
		Message string `json:"message"`
	}
)

func registerNewsAPI(g, admin *echo.Group, jwt, optJWT, newsArea echo.MiddlewareFunc, deps ServerDeps) {
	api := newsApi{
		svc:           deps.NewsSvc,
		newsletterSvc: deps.NewsletterSvc,
		userSvc:       deps.UserSvc,
		validate:      deps.Validate,
	}

	ng := g.Group("/news")
	ng.GET("", api.home)
	ng.GET("/articles", api.loadMore)
	ng.GET("/articles/:slug", api.detail, optJWT)
	ng.GET("/search", api.search)
	ng.GET("/feed", api.feed)
	ng.GET("/categories", api.categories)
	ng.GET("/categories/:slug", api.category)
	ng.GET("/categories/:slug/feed", api.categoryFeed)
	ng.GET("/tags/:slug", api.tag)
	ng.GET("/authors/:username", api.author)
	ng.GET("/archive/:year", api.archive)
	ng.GET("/archive/:year/:month", api.archive)
	ng.GET("/sidebar", api.sidebar)
	ng.POST("/newsletter/subscribe", api.subscribe)

	// reader endpoints
	ng.GET("/account", api.account, jwt)
	ng.POST("/articles/:id/bookmark", api.toggleBookmark, jwt)
	ng.POST("/articles/:id/like", api.toggleLike, jwt)
	ng.POST("/articles/:id/comments", api.addComment, jwt)
	ng.DELETE("/comments/:id", api.deleteComment, jwt)

	registerNewsAdminAPI(admin, newsArea, api)
}

// Listings

func (api *newsApi) home(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	home, err := api.svc.Home(ctx.Request().Context(), st.ID, queryPage(ctx))
	if err != nil {
		return errors.Wrap(err, "getting news home")
	}
	return ctx.JSON(http.StatusOK, home)
}

func (api *newsApi) loadMore(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	page, err := api.svc.LoadMore(ctx.Request().Context(), st.ID, queryPage(ctx))
	if err != nil {
		return errors.Wrap(err, "loading more articles")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *newsApi) search(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	q := ctx.QueryParam("q")
	page, err := api.svc.Search(ctx.Request().Context(), st.ID, q, queryPage(ctx))
	if err != nil {
		return errors.Wrap(err, "searching articles")
	}
	return ctx.JSON(http.StatusOK, SearchPage{Query: q, ArticlePage: page})
}

func (api *newsApi) categories(ctx echo.Context) error {
	cats, err := api.svc.ListCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []news.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *newsApi) category(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	cat, page, err := api.svc.ByCategory(ctx.Request().Context(), st.ID, ctx.Param("slug"), queryPage(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CategoryPage{Category: cat, ArticlePage: page})
}

func (api *newsApi) tag(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	tag, page, err := api.svc.ByTag(ctx.Request().Context(), st.ID, ctx.Param("slug"), queryPage(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TagPage{Tag: tag, ArticlePage: page})
}

func (api *newsApi) author(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	author, page, err := api.svc.ByAuthor(ctx.Request().Context(), st.ID, ctx.Param("username"), queryPage(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AuthorPage{Author: author, ArticlePage: page})
}

func (api *newsApi) archive(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	year, err := strconv.Atoi(ctx.Param("year"))
	if err != nil {
		return errHttpNotFound
	}
	var month int
	if m := ctx.Param("month"); m != "" {
		if month, err = strconv.Atoi(m); err != nil {
			return errHttpNotFound
		}
	}

	page, err := api.svc.Archive(ctx.Request().Context(), st.ID, year, month, queryPage(ctx))
	if err != nil {
		return errors.Wrap(err, "querying archive")
	}
	return ctx.JSON(http.StatusOK, ArchivePage{Year: year, Month: month, ArticlePage: page})
}

func (api *newsApi) sidebar(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	sb, err := api.svc.Sidebar(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "getting sidebar")
	}
	return ctx.JSON(http.StatusOK, sb)
}

func (api *newsApi) detail(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.Detail(ctx.Request().Context(), st.ID, ctx.Param("slug"), getViewerID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

// Feeds

func (api *newsApi) feed(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	articles, err := api.svc.LatestFeed(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying feed articles")
	}
	return renderRSS(ctx, latestFeed(st, requestBaseURL(ctx), articles), articles)
}

func (api *newsApi) categoryFeed(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	cat, articles, err := api.svc.CategoryFeed(ctx.Request().Context(), st.ID, ctx.Param("slug"))
	if err != nil {
		return err
	}
	return renderRSS(ctx, categoryFeed(st, cat, requestBaseURL(ctx), articles), articles)
}

// Newsletter

func (api *newsApi) subscribe(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}

	var data newsletter.SubscribeData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubscribeData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.newsletterSvc.Subscribe(ctx.Request().Context(), st.ID, data.Email)
	if err != nil {
		return errors.Wrap(err, "subscribing to newsletter")
	}
	msg := "You are subscribed to our newsletter."
	if !created {
		msg = "This email is already subscribed to our newsletter."
	}
	return ctx.JSON(http.StatusOK, SubscribeResponse{Created: created, Message: msg})
}

// Reader engagement

func (api *newsApi) account(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dash, err := api.svc.UserDashboard(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting user dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *newsApi) toggleBookmark(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.ToggleBookmark(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "toggling bookmark")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *newsApi) toggleLike(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.ToggleLike(ctx.Request().Context(), ctx.Param("id"), usr.ID, ctx.RealIP())
	if err != nil {
		return errors.Wrap(err, "toggling like")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *newsApi) addComment(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data CommentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommentRequest")
	}

	res, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), usr.ID, data.Content)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *newsApi) deleteComment(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteComment(ctx.Request().Context(), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
