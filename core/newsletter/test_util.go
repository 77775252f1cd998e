package newsletter

import (
	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/site"
)

// NewServiceMock returns a Service sending the publication newsletters synchronously.
func NewServiceMock(
	repo Repository,
	articles news.Repository,
	sites *site.Service,
	mailSvc core.EmailService,
	recorder Recorder,
	logger core.Logger,
	conf *core.Config,
) *Service {
	svc := NewService(repo, articles, sites, mailSvc, recorder, logger, conf)
	svc.async = false
	return svc
}
