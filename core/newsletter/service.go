package newsletter

import (
	"context"
	"encoding/csv"
	"io"
	"net/mail"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("subscription")
	ErrExists       = errors.New("this email is already subscribed")
	ErrInvalidEmail = errors.New("enter a valid email address")
	ErrAlreadySent  = errors.New("the newsletter of this article was already sent")
	ErrNotPublished = errors.New("only published articles can be sent")

	csvHeader = []string{"Email", "Site", "Subscribed At"}
)

const (
	csvTimeLayout  = "2006-01-02 15:04:05"
	defaultRate    = rate.Limit(10)
	defaultWorkers = 4
)

var (
	_ user.NewsletterSubscriber = (*Service)(nil)
	_ news.PublishObserver      = (*Service)(nil)
)

type (
	Repository interface {
		GetSubscription(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Subscription, error)
		// CreateSubscription returns ErrExists if the email is already subscribed to the site.
		CreateSubscription(ctx context.Context, s Subscription, exec ...core.DBExecutor) (Subscription, error)
		UpdateSubscription(ctx context.Context, s Subscription, exec ...core.DBExecutor) (Subscription, error)
		// QuerySubscriptions returns the subscriptions, newest first, with their site name.
		QuerySubscriptions(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Subscription, error)
		DeleteSubscriptions(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	// Recorder counts newsletter deliveries.
	Recorder interface {
		Delivered(siteDomain string)
		Failed(siteDomain string)
	}

	Service struct {
		repo     Repository
		articles news.Repository
		sites    *site.Service
		mailSvc  core.EmailService
		recorder Recorder
		logger   core.Logger

		defaultFrom mail.Address
		secureSSL   bool
		limiter     *rate.Limiter
		workers     int

		async   bool
		mu      sync.Mutex
		closing bool
		wg      sync.WaitGroup
	}
)

type noopRecorder struct{}

func (noopRecorder) Delivered(string) {}
func (noopRecorder) Failed(string)    {}

// NewService returns the newsletter Service. Dispatches triggered by a publication run in the background
// until Shutdown. recorder may be nil.
func NewService(
	repo Repository,
	articles news.Repository,
	sites *site.Service,
	mailSvc core.EmailService,
	recorder Recorder,
	logger core.Logger,
	conf *core.Config,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	limit, workers := defaultRate, defaultWorkers
	if conf.Mail.NewsletterRatePerSecond > 0 {
		limit = rate.Limit(conf.Mail.NewsletterRatePerSecond)
	}
	if conf.Mail.NewsletterConcurrency > 0 {
		workers = conf.Mail.NewsletterConcurrency
	}
	return &Service{
		repo:        repo,
		articles:    articles,
		sites:       sites,
		mailSvc:     mailSvc,
		recorder:    recorder,
		logger:      logger,
		defaultFrom: conf.DefaultFromEmail(),
		secureSSL:   conf.SecureSSL,
		limiter:     rate.NewLimiter(limit, workers),
		workers:     workers,
		async:       true,
	}
}

func cleanEmail(email string) (string, error) {
	email = core.CleanString(email, true /* lower */)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", core.NewFieldError("email", ErrInvalidEmail.Error())
	}
	return email, nil
}

// Subscribe subscribes email to the site's newsletter, reactivating a previous subscription.
// It reports whether a new subscription was created.
func (svc *Service) Subscribe(ctx context.Context, siteID, email string) (bool, error) {
	email, err := cleanEmail(email)
	if err != nil {
		return false, err
	}

	sub, err := svc.repo.GetSubscription(ctx, GetFilter{Email: email, SiteID: siteID})
	switch {
	case err == nil:
		if !sub.IsActive {
			sub.IsActive = true
			sub.UpdatedAt = core.Now()
			if _, err = svc.repo.UpdateSubscription(ctx, sub); err != nil {
				return false, errors.Wrap(err, "reactivating subscription")
			}
		}
		return false, nil
	case core.IsNotFound(err):
		now := core.Now()
		_, err = svc.repo.CreateSubscription(ctx, Subscription{
			Email:     email,
			SiteID:    siteID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Cause(err) == ErrExists {
			return false, nil // subscribed concurrently
		}
		if err != nil {
			return false, errors.Wrap(err, "creating subscription")
		}
		return true, nil
	default:
		return false, errors.Wrap(err, "finding subscription")
	}
}

// Unsubscribe deactivates the subscription of email, if any.
func (svc *Service) Unsubscribe(ctx context.Context, siteID, email string) error {
	sub, err := svc.repo.GetSubscription(ctx, GetFilter{Email: core.CleanString(email, true), SiteID: siteID})
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "finding subscription")
	}
	if !sub.IsActive {
		return nil
	}
	sub.IsActive = false
	sub.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateSubscription(ctx, sub)
	return errors.Wrap(err, "deactivating subscription")
}

func (svc *Service) IsSubscribed(ctx context.Context, siteID, email string) (bool, error) {
	sub, err := svc.repo.GetSubscription(ctx, GetFilter{Email: core.CleanString(email, true), SiteID: siteID})
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "finding subscription")
	}
	return sub.IsActive, nil
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Subscription, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySubscriptions(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, id string) (Subscription, error) {
	return svc.repo.GetSubscription(ctx, GetFilter{ID: id})
}

func (svc *Service) SetActive(ctx context.Context, orig Subscription, active bool) (Subscription, error) {
	sub := orig
	sub.IsActive = active
	sub.UpdatedAt = core.Now()
	return svc.repo.UpdateSubscription(ctx, sub)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteSubscriptions(ctx, ids)
}

// ExportCSV writes the subscriptions matching filter as CSV.
func (svc *Service) ExportCSV(ctx context.Context, w io.Writer, filter QueryFilter) error {
	subs, err := svc.List(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, sub := range subs {
		if err = cw.Write([]string{sub.Email, sub.SiteName, sub.CreatedAt.UTC().Format(csvTimeLayout)}); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
