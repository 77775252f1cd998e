package newsletter

import (
	"context"
	"fmt"
	"net/mail"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/site"
)

const (
	templateName     = "newsletter_article"
	unsubscribePath  = "/news/account/?tab=settings"
	subjectSeparator = " — "
)

// emailData is the context of the newsletter_article template.
type emailData struct {
	Article        news.Article
	Site           site.Site
	Settings       *site.Settings
	BaseURL        string
	ArticleURL     string
	UnsubscribeURL string
}

// BaseURL returns the root URL of a site, used in every link of the newsletter.
func (svc *Service) BaseURL(st site.Site) string {
	scheme := "http"
	if svc.secureSSL {
		scheme = "https"
	}
	return scheme + "://" + st.Domain
}

// message renders the newsletter of an article, without recipients.
func (svc *Service) message(ctx context.Context, a news.Article, st site.Site, baseURL string) (core.EmailMessage, error) {
	settings, err := svc.sites.SettingsOrNil(ctx, st.ID)
	if err != nil {
		return core.EmailMessage{}, errors.Wrap(err, "loading site settings")
	}

	html, err := core.RenderTemplate(templateName, emailData{
		Article:        a,
		Site:           st,
		Settings:       settings,
		BaseURL:        baseURL,
		ArticleURL:     baseURL + news.ArticlePath(a.Slug),
		UnsubscribeURL: baseURL + unsubscribePath,
	})
	if err != nil {
		return core.EmailMessage{}, errors.Wrap(err, "rendering newsletter")
	}

	from := site.FromAddress(settings, svc.defaultFrom)
	return core.EmailMessage{
		From:        &from,
		Subject:     a.Title + subjectSeparator + st.Name,
		RawSubject:  true,
		HTMLContent: html,
		TextContent: core.StripTags(html),
	}, nil
}

// Preview renders the newsletter of an article with links to baseURL.
func (svc *Service) Preview(ctx context.Context, articleID, baseURL string) (string, error) {
	a, err := svc.articles.GetArticle(ctx, news.GetFilter{ID: articleID})
	if err != nil {
		return "", err
	}
	st, err := svc.sites.GetByID(ctx, a.SiteID)
	if err != nil {
		return "", err
	}
	msg, err := svc.message(ctx, a, st, baseURL)
	if err != nil {
		return "", err
	}
	return msg.HTMLContent, nil
}

// SendArticle emails a published article to every active subscriber of the site.
// Failed deliveries are counted and logged without stopping the others.
func (svc *Service) SendArticle(ctx context.Context, a news.Article, st site.Site) (Result, error) {
	if !a.IsPublished() {
		svc.logger.Warn(fmt.Sprintf("newsletter: article %s is not published (status=%s), not sending", a.ID, a.Status))
		return Result{}, nil
	}

	active := true
	subs, err := svc.repo.QuerySubscriptions(ctx, QueryFilter{SiteID: st.ID, IsActive: &active})
	if err != nil {
		return Result{}, errors.Wrap(err, "querying subscribers")
	}
	if len(subs) == 0 {
		svc.logger.Info(fmt.Sprintf("newsletter: no active subscriber on %s", st.Domain))
		return Result{}, nil
	}

	msg, err := svc.message(ctx, a, st, svc.BaseURL(st))
	if err != nil {
		return Result{}, err
	}

	var sent, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.workers)
	for _, sub := range subs {
		email := sub.Email
		g.Go(func() error {
			if err := svc.limiter.Wait(gctx); err != nil {
				return err
			}
			m := msg
			m.To = []mail.Address{{Address: email}}
			if err := svc.mailSvc.Send(gctx, &m); err != nil {
				atomic.AddInt64(&failed, 1)
				svc.recorder.Failed(st.Domain)
				svc.logger.Error(fmt.Sprintf("newsletter: sending to %s failed: %v", email, err), err)
				return nil
			}
			atomic.AddInt64(&sent, 1)
			svc.recorder.Delivered(st.Domain)
			return nil
		})
	}
	err = g.Wait()

	res := Result{Sent: int(sent), Failed: int(failed)}
	svc.logger.Info(fmt.Sprintf("newsletter sent: %d succeeded, %d failed (article: %s)", res.Sent, res.Failed, a.Title))
	if err != nil {
		return res, errors.Wrap(err, "dispatching newsletter")
	}
	return res, nil
}

// ArticlePublished sends the newsletter of a newly published article, once.
func (svc *Service) ArticlePublished(_ context.Context, a news.Article) {
	if !a.IsPublished() || a.NewsletterSentAt.Valid {
		return
	}
	if !svc.async {
		svc.autoSend(context.Background(), a)
		return
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.closing {
		svc.logger.Warn(fmt.Sprintf("newsletter: shutting down, article %s not sent", a.ID))
		return
	}
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		svc.autoSend(context.Background(), a)
	}()
}

// autoSend claims the article's newsletter then sends it. The claim is released if nothing could be sent.
func (svc *Service) autoSend(ctx context.Context, a news.Article) {
	claimed, err := svc.articles.ClaimNewsletter(ctx, a.ID, core.Now())
	if err != nil {
		svc.logger.Error(fmt.Sprintf("newsletter: claiming article %s: %v", a.ID, err), err)
		return
	}
	if !claimed {
		return // already sent
	}

	st, err := svc.sites.GetByID(ctx, a.SiteID)
	if err == nil {
		_, err = svc.SendArticle(ctx, a, st)
	}
	if err != nil {
		svc.logger.Error(fmt.Sprintf("newsletter: sending article %s: %v", a.ID, err), err)
		if err = svc.articles.ReleaseNewsletter(ctx, a.ID); err != nil {
			svc.logger.Error(fmt.Sprintf("newsletter: releasing article %s: %v", a.ID, err), err)
		}
	}
}

// SendNow sends the newsletter of the article with the given id or slug.
// An already sent newsletter is only sent again with force.
func (svc *Service) SendNow(ctx context.Context, ref string, force bool) (Result, error) {
	a, err := svc.articles.GetArticle(ctx, news.GetFilter{ID: ref})
	if core.IsNotFound(err) {
		a, err = svc.articles.GetArticle(ctx, news.GetFilter{Slug: ref})
	}
	if err != nil {
		return Result{}, err
	}
	if !a.IsPublished() {
		return Result{}, core.NewFieldError("status", ErrNotPublished.Error())
	}

	var claimed bool
	if !a.NewsletterSentAt.Valid {
		if claimed, err = svc.articles.ClaimNewsletter(ctx, a.ID, core.Now()); err != nil {
			return Result{}, err
		}
	}
	if !claimed && !force {
		return Result{}, core.NewValidationError(ErrAlreadySent)
	}

	st, err := svc.sites.GetByID(ctx, a.SiteID)
	if err != nil {
		return Result{}, err
	}
	res, err := svc.SendArticle(ctx, a, st)
	if err != nil && claimed {
		if rerr := svc.articles.ReleaseNewsletter(ctx, a.ID); rerr != nil {
			svc.logger.Error(fmt.Sprintf("newsletter: releasing article %s: %v", a.ID, rerr), rerr)
		}
	}
	return res, err
}

// Shutdown waits for the background dispatches, or until ctx is done.
func (svc *Service) Shutdown(ctx context.Context) error {
	svc.mu.Lock()
	svc.closing = true
	svc.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for newsletter dispatches")
	}
}
