package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

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
	"github.com/trezcool/habari/storage/database/sqlxrepos"
	"github.com/trezcool/habari/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	srv  *Server
	conf *core.Config
	site site.Site

	siteRepo     site.Repository
	usrRepo      user.Repository
	newsRepo     news.Repository
	schoolRepo   school.Repository
	hiringRepo   hiring.Repository
	contactRepo  contact.Repository
	subscription newsletter.Repository

	usrSvc user.Service
}

// setup serves a fresh database for the "example.com" site, the host of httptest requests.
func setup(t *testing.T) *fixture {
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	conf.Server.DisableReqLogs = true
	logger := testutil.NewLogger()

	emailsvc.ResetSentMessages()
	t.Cleanup(emailsvc.ResetSentMessages)

	f := &fixture{
		conf:         conf,
		siteRepo:     sqlxrepos.NewSiteRepository(db),
		usrRepo:      sqlxrepos.NewUserRepository(db),
		newsRepo:     sqlxrepos.NewNewsRepository(db),
		schoolRepo:   sqlxrepos.NewSchoolRepository(db),
		hiringRepo:   sqlxrepos.NewHiringRepository(db),
		contactRepo:  sqlxrepos.NewContactRepository(db),
		subscription: sqlxrepos.NewNewsletterRepository(db),
	}
	f.site = testutil.CreateSite(t, f.siteRepo, "example.com", "Example School")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	store := filestore.NewLocalStore(t.TempDir(), "/media")
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	siteSvc := site.NewService(f.siteRepo, conf)
	newsletterSvc := newsletter.NewServiceMock(f.subscription, f.newsRepo, siteSvc, mailSvc, nil, logger, conf)
	f.usrSvc = user.NewServiceMock(f.usrRepo, mailSvc, newsletterSvc, logger, conf)

	f.srv = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		SiteSvc:       siteSvc,
		UserSvc:       f.usrSvc,
		SchoolSvc:     school.NewService(f.schoolRepo),
		NewsSvc:       news.NewService(db, f.newsRepo, newsletterSvc, logger),
		NewsletterSvc: newsletterSvc,
		HiringSvc:     hiring.NewService(f.hiringRepo, store, logger, conf),
		ContactSvc:    contact.NewService(f.contactRepo, siteSvc, mailSvc, logger),
		MediaSvc:      media.NewService(sqlxrepos.NewMediaRepository(db), store, logger, conf),
		DashboardSvc: dashboard.NewService(
			sqlxrepos.NewDashboardRepository(db), f.newsRepo, f.hiringRepo, f.contactRepo,
		),
	})
	return f
}

// user creates an active user with the given role and returns it with its token.
func (f *fixture) user(t *testing.T, uname, role string) (user.User, string) {
	usr := testutil.CreateUser(t, f.usrRepo, uname, uname+"@example.com", "", role, true)
	return usr, f.token(t, usr)
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	token, err := f.srv.auth.userToken(usr)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (f *fixture) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	f.srv.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest posts fields and an optional file (under fileField) as multipart/form-data.
func newMultipartRequest(
	t *testing.T,
	path, token string,
	fields map[string]string,
	fileField, filename string,
	content []byte,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = part.Write(content); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
