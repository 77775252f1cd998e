package newsletter_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/newsletter"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
	"github.com/trezcool/habari/tests"
)

type flakyMailer struct {
	mu      sync.Mutex
	failFor map[string]bool
	sent    []*core.EmailMessage
}

func (m *flakyMailer) SendMessages(...*core.EmailMessage) {}

func (m *flakyMailer) Send(_ context.Context, msg *core.EmailMessage) error {
	if m.failFor[msg.To[0].Address] {
		return errors.New("mailbox unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *flakyMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To[0].Address)
	}
	return out
}

type countingRecorder struct {
	mu                sync.Mutex
	delivered, failed int
}

func (r *countingRecorder) Delivered(string) { r.mu.Lock(); r.delivered++; r.mu.Unlock() }
func (r *countingRecorder) Failed(string)    { r.mu.Lock(); r.failed++; r.mu.Unlock() }

// failingRepo fails to list subscribers.
type failingRepo struct {
	newsletter.Repository
}

func (failingRepo) QuerySubscriptions(context.Context, newsletter.QueryFilter, ...core.DBExecutor) ([]newsletter.Subscription, error) {
	return nil, errors.New("connection reset")
}

type fixture struct {
	svc      *newsletter.Service
	repo     newsletter.Repository
	newsRepo news.Repository
	news     *news.Service
	sites    *site.Service
	site     site.Site
	mailer   *flakyMailer
	recorder *countingRecorder
	conf     *core.Config
	logger   core.Logger
	db       core.DB
}

func setup(t *testing.T, failFor ...string) *fixture {
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	f := &fixture{
		repo:     sqlxrepos.NewNewsletterRepository(db),
		newsRepo: sqlxrepos.NewNewsRepository(db),
		sites:    site.NewService(sqlxrepos.NewSiteRepository(db), conf),
		mailer:   &flakyMailer{failFor: make(map[string]bool)},
		recorder: &countingRecorder{},
		conf:     conf,
		logger:   testutil.NewLogger(),
		db:       db,
	}
	for _, email := range failFor {
		f.mailer.failFor[email] = true
	}
	f.site = testutil.CreateSite(t, sqlxrepos.NewSiteRepository(db), "example.com", "Example")
	f.svc = newsletter.NewServiceMock(f.repo, f.newsRepo, f.sites, f.mailer, f.recorder, f.logger, conf)
	f.news = news.NewService(db, f.newsRepo, f.svc, f.logger)
	return f
}

func (f *fixture) subscribe(t *testing.T, emails ...string) {
	for _, email := range emails {
		_, err := f.svc.Subscribe(context.Background(), f.site.ID, email)
		require.NoError(t, err)
	}
}

func (f *fixture) publish(t *testing.T, title string) news.Article {
	a, err := f.news.CreateArticle(context.Background(), news.ArticleData{
		SiteID:  f.site.ID,
		Title:   title,
		Excerpt: "All about " + title,
		Content: "<p>" + title + "</p>",
		Status:  news.StatusPublished,
	})
	require.NoError(t, err)
	return a
}

func TestService_Subscribe(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.Subscribe(ctx, f.site.ID, " Jane@Example.com ")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.Subscribe(ctx, f.site.ID, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, created, "get-or-create")

	require.NoError(t, f.svc.Unsubscribe(ctx, f.site.ID, "jane@example.com"))
	ok, err := f.svc.IsSubscribed(ctx, f.site.ID, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	created, err = f.svc.Subscribe(ctx, f.site.ID, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, created, "reactivated")
	ok, err = f.svc.IsSubscribed(ctx, f.site.ID, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.Subscribe(ctx, f.site.ID, "not an email")
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Fields[0].Field)

	assert.NoError(t, f.svc.Unsubscribe(ctx, f.site.ID, "nobody@example.com"))
}

func TestService_SendArticle(t *testing.T) {
	t.Run("partial failure", func(t *testing.T) {
		f := setup(t, "bounce@example.com")
		f.subscribe(t, "a@example.com", "bounce@example.com", "b@example.com", "gone@example.com")
		require.NoError(t, f.svc.Unsubscribe(context.Background(), f.site.ID, "gone@example.com"))
		a := testutil.CreateArticle(t, f.newsRepo, f.site.ID, "Exam results", testutil.Published(core.Now()))

		res, err := f.svc.SendArticle(context.Background(), a, f.site)
		require.NoError(t, err)
		assert.Equal(t, newsletter.Result{Sent: 2, Failed: 1}, res)
		assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, f.mailer.recipients())
		assert.Equal(t, 2, f.recorder.delivered)
		assert.Equal(t, 1, f.recorder.failed)

		msg := f.mailer.sent[0]
		assert.Equal(t, "Exam results — Example", msg.Subject)
		assert.True(t, msg.RawSubject)
		assert.Equal(t, "Exam results — Example", msg.SubjectWithPrefix("[Habari] "))
		assert.Contains(t, msg.HTMLContent, "http://example.com/news/exam-results/")
		assert.Contains(t, msg.HTMLContent, "http://example.com/news/account/?tab=settings")
		assert.NotContains(t, msg.TextContent, "<p")
		assert.Equal(t, "noreply@localhost", msg.From.Address)
	})

	t.Run("draft", func(t *testing.T) {
		f := setup(t)
		f.subscribe(t, "a@example.com")
		a := testutil.CreateArticle(t, f.newsRepo, f.site.ID, "Draft")

		res, err := f.svc.SendArticle(context.Background(), a, f.site)
		require.NoError(t, err)
		assert.Zero(t, res.Sent)
		assert.Empty(t, f.mailer.recipients())
	})

	t.Run("site sender", func(t *testing.T) {
		f := setup(t)
		f.subscribe(t, "a@example.com")
		_, err := f.sites.SaveSettings(context.Background(), f.site.ID, site.UpdateSettings{
			NewsletterFromEmail: "news@example.com",
			NewsletterFromName:  "Example News",
		})
		require.NoError(t, err)
		a := testutil.CreateArticle(t, f.newsRepo, f.site.ID, "Hello", testutil.Published(core.Now()))

		_, err = f.svc.SendArticle(context.Background(), a, f.site)
		require.NoError(t, err)
		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, `"Example News" <news@example.com>`, f.mailer.sent[0].From.String())
	})
}

func TestService_ArticlePublished(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.subscribe(t, "a@example.com")

	a := f.publish(t, "Sports day")
	assert.Equal(t, []string{"a@example.com"}, f.mailer.recipients())

	a, err := f.news.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, a.NewsletterSentAt.Valid)

	// saving it again never resends
	_, err = f.news.UpdateArticle(ctx, a, news.ArticleData{
		SiteID: f.site.ID, Title: "Sports day!", Slug: a.Slug, Content: a.Content, Status: news.StatusPublished,
	})
	require.NoError(t, err)
	assert.Len(t, f.mailer.recipients(), 1)

	// drafts are not sent
	_, err = f.news.CreateArticle(ctx, news.ArticleData{SiteID: f.site.ID, Title: "Later", Content: "x", Status: news.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, f.mailer.recipients(), 1)
}

func TestService_ArticlePublished_releasesClaim(t *testing.T) {
	f := setup(t)
	svc := newsletter.NewServiceMock(failingRepo{f.repo}, f.newsRepo, f.sites, f.mailer, f.recorder, f.logger, f.conf)
	newsSvc := news.NewService(f.db, f.newsRepo, svc, f.logger)

	a, err := newsSvc.CreateArticle(context.Background(), news.ArticleData{
		SiteID: f.site.ID, Title: "Lost", Content: "x", Status: news.StatusPublished,
	})
	require.NoError(t, err)

	a, err = newsSvc.GetArticle(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, a.NewsletterSentAt.Valid, "a failed dispatch can be retried")
}

func TestService_SendNow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.publish(t, "Open day")
	f.subscribe(t, "a@example.com")

	_, err := f.svc.SendNow(ctx, a.Slug, false)
	assert.Equal(t, newsletter.ErrAlreadySent, errors.Cause(err).(*core.ValidationError).Err)

	res, err := f.svc.SendNow(ctx, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	draft := testutil.CreateArticle(t, f.newsRepo, f.site.ID, "Draft")
	_, err = f.svc.SendNow(ctx, draft.ID, true)
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.svc.SendNow(ctx, "unknown", false)
	assert.True(t, core.IsNotFound(err))

	html, err := f.svc.Preview(ctx, a.ID, "https://preview.test")
	require.NoError(t, err)
	assert.Contains(t, html, "https://preview.test/news/open-day/")
}

func TestService_ExportCSV(t *testing.T) {
	f := setup(t)
	now := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = time.Now }()
	f.subscribe(t, "a@example.com")

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(context.Background(), &buf, newsletter.QueryFilter{}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"Email,Site,Subscribed At", "a@example.com,Example,2023-04-05 06:07:08"}, lines)
}

func TestService_backgroundDispatch(t *testing.T) {
	f := setup(t)
	f.subscribe(t, "a@example.com", "b@example.com")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc := newsletter.NewService(f.repo, f.newsRepo, f.sites, f.mailer, nil, f.logger, f.conf)
	newsSvc := news.NewService(f.db, f.newsRepo, svc, f.logger)
	_, err := newsSvc.CreateArticle(context.Background(), news.ArticleData{
		SiteID: f.site.ID, Title: "Async", Content: "x", Status: news.StatusPublished,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	assert.Len(t, f.mailer.recipients(), 2)
}
