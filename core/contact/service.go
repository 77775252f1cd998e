package contact

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
)

var ErrNotFound = core.NewNotFoundError("inquiry")

type (
	Repository interface {
		CreateInquiry(ctx context.Context, inq Inquiry, exec ...core.DBExecutor) (Inquiry, error)
		GetInquiry(ctx context.Context, id string, exec ...core.DBExecutor) (Inquiry, error)
		// QueryInquiries returns inquiries newest first; limit <= 0 means all of them.
		QueryInquiries(ctx context.Context, filter Filter, limit int, exec ...core.DBExecutor) ([]Inquiry, error)
		CountInquiries(ctx context.Context, filter Filter, exec ...core.DBExecutor) (int, error)
		SetStatus(ctx context.Context, ids []string, status string, at time.Time, exec ...core.DBExecutor) (int, error)
		DeleteInquiries(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo    Repository
		sites   *site.Service
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, sites *site.Service, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		sites:   sites,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Submit records an inquiry sent through the contact form of st,
// and notifies the site's primary email when it has one.
func (svc *Service) Submit(ctx context.Context, st site.Site, data NewInquiry) (Inquiry, error) {
	now := core.Now()
	inq, err := svc.repo.CreateInquiry(ctx, Inquiry{
		SiteID:    st.ID,
		Name:      data.Name,
		Email:     data.Email,
		Phone:     data.Phone,
		Subject:   data.Subject,
		Message:   data.Message,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Inquiry{}, err
	}

	settings, err := svc.sites.SettingsOrNil(ctx, st.ID)
	if err != nil {
		svc.logger.Error("loading site settings", err)
	} else if settings != nil && settings.PrimaryEmail != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: st.Name, Address: settings.PrimaryEmail}},
			Subject:      fmt.Sprintf("[%s] New contact message from %s", st.Name, inq.Name),
			TemplateName: "contact_inquiry",
			TemplateData: map[string]interface{}{
				"SiteName": st.Name,
				"Inquiry":  inq,
			},
		})
	}
	return inq, nil
}

func (svc *Service) List(ctx context.Context, filter Filter) ([]Inquiry, error) {
	return svc.repo.QueryInquiries(ctx, filter, 0)
}

func (svc *Service) Get(ctx context.Context, id string) (Inquiry, error) {
	return svc.repo.GetInquiry(ctx, id)
}

// SetStatus sets the status of the given inquiries and returns how many were updated.
func (svc *Service) SetStatus(ctx context.Context, data SetStatus) (int, error) {
	n, err := svc.repo.SetStatus(ctx, data.IDs, data.Status, core.Now())
	return n, errors.Wrap(err, "setting inquiries status")
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteInquiries(ctx, ids)
}
