package echoapi

import (
	"context"
	"encoding/xml"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/school"
	"github.com/trezcool/habari/tests"
)

func Test_newSitemap(t *testing.T) {
	lastMod := time.Date(2020, time.May, 17, 23, 30, 0, 0, time.UTC)
	set := newSitemap("https://example.com",
		[]core.SitemapEntry{{Loc: "/news/open-day/", LastMod: lastMod, ChangeFreq: core.ChangeFreqWeekly, Priority: 0.8}},
		[]core.SitemapEntry{{Loc: "/about-us/"}},
	)

	assert.Equal(t, sitemapNS, set.XMLNS)
	assert.Equal(t, []sitemapURL{
		{Loc: "https://example.com/news/open-day/", LastMod: "2020-05-17", ChangeFreq: core.ChangeFreqWeekly, Priority: "0.8"},
		{Loc: "https://example.com/about-us/"},
	}, set.URLs)
}

func TestServer_sitemap(t *testing.T) {
	f := setup(t)
	other := testutil.CreateSite(t, f.siteRepo, "other.org", "Other")

	testutil.CreateArticle(t, f.newsRepo, f.site.ID, "Open Day", testutil.Published(time.Now().Add(-time.Hour)))
	testutil.CreateArticle(t, f.newsRepo, f.site.ID, "Secret Plans")
	testutil.CreateArticle(t, f.newsRepo, other.ID, "Elsewhere", testutil.Published(time.Now().Add(-time.Hour)))
	_, err := f.srv.deps.SchoolSvc.CreatePage(context.Background(), school.PageData{SiteID: f.site.ID, Title: "About Us", IsPublished: true})
	require.NoError(t, err)

	req, rec := newRequest(http.MethodGet, "/sitemap.xml")
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/xml; charset=UTF-8", rec.Header().Get("Content-Type"))

	var set sitemapURLSet
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &set))
	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		locs = append(locs, u.Loc)
	}
	assert.ElementsMatch(t, []string{"http://example.com/news/open-day/", "http://example.com/about-us/"}, locs)
}
