package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/contact"
	"github.com/trezcool/habari/core/dashboard"
	"github.com/trezcool/habari/core/hiring"
	"github.com/trezcool/habari/core/media"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/newsletter"
	"github.com/trezcool/habari/core/school"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metrics.Metrics // optional

		SiteSvc       *site.Service
		UserSvc       user.Service
		SchoolSvc     *school.Service
		NewsSvc       *news.Service
		NewsletterSvc *newsletter.Service
		HiringSvc     *hiring.Service
		ContactSvc    *contact.Service
		MediaSvc      *media.Service
		DashboardSvc  *dashboard.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *jwtAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	siteMw := siteMiddleware(s.deps.SiteSvc)
	jwt := s.auth.middleware()
	optJWT := s.auth.optionalMiddleware()
	staff := staffMiddleware(s.deps.UserSvc)
	area := func(name string) echo.MiddlewareFunc { return areaMiddleware(s.deps.UserSvc, name) }

	s.app.GET("/", s.home)
	s.app.GET("/sitemap.xml", s.sitemap, siteMw)

	v1 := s.app.Group("/v1", siteMw)
	admin := v1.Group("/admin", jwt, staff)

	registerUserAPI(v1, jwt, area(user.AreaUsers), s.auth, s.deps)
	registerSiteAPI(v1, admin, area(user.AreaSites), s.deps)
	registerSchoolAPI(v1, admin, area(user.AreaSchool), s.deps)
	registerNewsAPI(v1, admin, jwt, optJWT, area(user.AreaNews), s.deps)
	registerHiringAPI(v1, admin, area(user.AreaHiring), s.deps)
	registerContactAPI(v1, admin, area(user.AreaContact), s.deps)
	registerMediaAPI(admin, area(user.AreaMedia), s.deps)
	registerDashboardAPI(admin, s.deps)
}

// Start blocks until the server stops. Errors other than a graceful shutdown are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
