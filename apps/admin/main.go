package main

import (
	"log"
	"os"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/newsletter"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/email"
	"github.com/trezcool/habari/services/logger"
	"github.com/trezcool/habari/storage/database"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	core.ConfigureMail(conf)

	rollbarLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	rollbarLogger.Enable(!conf.Debug)
	logger = rollbarLogger

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	newsRepo := sqlxrepos.NewNewsRepository(db)
	siteSvc := site.NewService(sqlxrepos.NewSiteRepository(db), conf)
	newsletterSvc := newsletter.NewService(sqlxrepos.NewNewsletterRepository(db), newsRepo, siteSvc, mailSvc, nil, logger, conf)

	// start CLI
	cli := commandLine{
		db:            db,
		validate:      validate,
		translator:    translator,
		siteSvc:       siteSvc,
		usrSvc:        user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, newsletterSvc, logger, conf),
		newsletterSvc: newsletterSvc,
		out:           os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Info("error: " + cli.describe(err))
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
