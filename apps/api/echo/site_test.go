package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/tests"
)

func Test_siteApi_current(t *testing.T) {
	f := setup(t)
	careers := testutil.CreateSite(t, f.siteRepo, "careers.example.org", "Careers")
	testutil.CreateCategory(t, f.newsRepo, "Campus Life")

	tests := []struct {
		name     string
		host     string
		wantSite site.Site
	}{
		{name: "by host", host: "careers.example.org", wantSite: careers},
		{name: "port is ignored", host: "careers.example.org:8000", wantSite: careers},
		{name: "unknown host falls back to the default site", host: "lol.org", wantSite: f.site},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/site")
			req.Host = tt.host
			f.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got CurrentSite
			unmarshall(t, rec, &got)
			assert.Equal(t, tt.wantSite.ID, got.Site.ID)
			assert.Nil(t, got.Settings)
			require.Len(t, got.NavCategories, 1)
			assert.Equal(t, "campus-life", got.NavCategories[0].Slug)
		})
	}
}

func Test_siteApi_admin(t *testing.T) {
	f := setup(t)
	_, adminToken := f.user(t, "admin", user.RoleSuperAdmin)
	_, schoolToken := f.user(t, "school", user.RoleSchoolAdmin)

	t.Run("super admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/sites", schoolToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	var created site.Site
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest, body: marshallObj(t, site.NewSite{}),
			wantData: marshallObj(t, site.NewSite{Domain: "this field is required", Name: "this field is required"}),
		},
		{
			name: "duplicate domain", wantCode: http.StatusBadRequest, body: marshallObj(t, site.NewSite{Domain: "EXAMPLE.com", Name: "Lol"}),
			wantData: marshallObj(t, map[string]string{"domain": site.ErrDomainExists.Error()}),
		},
		{name: "created", wantCode: http.StatusCreated, body: marshallObj(t, site.NewSite{Domain: "news.example.org", Name: "News"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/admin/sites", adminToken, tt.body)
			f.serve(req, rec)
			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusCreated {
				unmarshall(t, rec, &created)
			}
		})
	}
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "news.example.org", created.Domain)

	t.Run("partial update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/sites/"+created.ID, adminToken, marshallObj(t, site.UpdateSite{Name: "School News"}))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got site.Site
		unmarshall(t, rec, &got)
		assert.Equal(t, "School News", got.Name)
		assert.Equal(t, "news.example.org", got.Domain)
	})

	t.Run("settings", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/sites/"+created.ID+"/settings", adminToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "site settings not found"})}, rec)

		req, rec = newAuthRequest(http.MethodPut, "/v1/admin/sites/"+created.ID+"/settings", adminToken,
			marshallObj(t, site.UpdateSettings{NewsletterFromEmail: "lol"}))
		f.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newAuthRequest(http.MethodPut, "/v1/admin/sites/"+created.ID+"/settings", adminToken,
			marshallObj(t, site.UpdateSettings{Tagline: "All the news", NewsletterFromEmail: "News@Example.org"}))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got site.Settings
		unmarshall(t, rec, &got)
		assert.Equal(t, created.ID, got.SiteID)
		assert.Equal(t, "news@example.org", got.NewsletterFromEmail)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/sites/"+created.ID, adminToken)
		f.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/sites/"+created.ID, adminToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "site not found"})}, rec)
	})
}
