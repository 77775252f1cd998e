package user

import (
	"context"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
)

type serviceMock struct {
	*service
}

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(
	repo Repository,
	mailSvc core.EmailService,
	newsletter NewsletterSubscriber,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &serviceMock{service: newService(repo, mailSvc, newsletter, logger, conf)}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string, st site.Site) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr, st)
	return nil
}

// MakeResetToken exposes the reset token of usr to other packages' tests.
func (svc *serviceMock) MakeResetToken(usr User) string {
	return svc.tokens.makeToken(usr)
}
