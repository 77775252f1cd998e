package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/habari/apps/api/echo"
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
	"github.com/trezcool/habari/services/email"
	"github.com/trezcool/habari/services/filestore"
	"github.com/trezcool/habari/services/logger"
	"github.com/trezcool/habari/services/metrics"
	"github.com/trezcool/habari/storage/database"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newConfig() (*core.Config, error) {
	conf := core.NewConfig()
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	core.ConfigureMail(conf)
	return conf, nil
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newFileStore(conf *core.Config) (core.FileStore, error) {
	return filestore.New(context.Background(), conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return validate, translator
}

func newNewsletterService(
	repo newsletter.Repository,
	articles news.Repository,
	sites *site.Service,
	mailSvc core.EmailService,
	m *metrics.Metrics,
	logger core.Logger,
	conf *core.Config,
) *newsletter.Service {
	return newsletter.NewService(repo, articles, sites, mailSvc, m, logger, conf)
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *metrics.Metrics

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

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Metrics:       p.Metrics,
		SiteSvc:       p.SiteSvc,
		UserSvc:       p.UserSvc,
		SchoolSvc:     p.SchoolSvc,
		NewsSvc:       p.NewsSvc,
		NewsletterSvc: p.NewsletterSvc,
		HiringSvc:     p.HiringSvc,
		ContactSvc:    p.ContactSvc,
		MediaSvc:      p.MediaSvc,
		DashboardSvc:  p.DashboardSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newFileStore))
	must(c.Provide(metrics.New))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewSiteRepository, dig.As(new(site.Repository))))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewSchoolRepository, dig.As(new(school.Repository))))
	must(c.Provide(sqlxrepos.NewNewsRepository, dig.As(new(news.Repository))))
	must(c.Provide(sqlxrepos.NewNewsletterRepository, dig.As(new(newsletter.Repository))))
	must(c.Provide(sqlxrepos.NewHiringRepository, dig.As(new(hiring.Repository))))
	must(c.Provide(sqlxrepos.NewContactRepository, dig.As(new(contact.Repository))))
	must(c.Provide(sqlxrepos.NewMediaRepository, dig.As(new(media.Repository))))
	must(c.Provide(sqlxrepos.NewDashboardRepository, dig.As(new(dashboard.Repository))))

	// services
	must(c.Provide(site.NewService))
	must(c.Provide(newNewsletterService))
	must(c.Provide(func(svc *newsletter.Service) user.NewsletterSubscriber { return svc }))
	must(c.Provide(func(svc *newsletter.Service) news.PublishObserver { return svc }))
	must(c.Provide(user.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(news.NewService))
	must(c.Provide(hiring.NewService))
	must(c.Provide(contact.NewService))
	must(c.Provide(media.NewService))
	must(c.Provide(dashboard.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
