package echoapi

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type (
	sitemapURLSet struct {
		XMLName xml.Name     `xml:"urlset"`
		XMLNS   string       `xml:"xmlns,attr"`
		URLs    []sitemapURL `xml:"url"`
	}

	sitemapURL struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod,omitempty"`
		ChangeFreq string `xml:"changefreq,omitempty"`
		Priority   string `xml:"priority,omitempty"`
	}
)

func newSitemap(baseURL string, entries ...[]core.SitemapEntry) sitemapURLSet {
	set := sitemapURLSet{XMLNS: sitemapNS}
	for _, group := range entries {
		for _, e := range group {
			u := sitemapURL{Loc: baseURL + e.Loc, ChangeFreq: e.ChangeFreq}
			if !e.LastMod.IsZero() {
				u.LastMod = e.LastMod.UTC().Format("2006-01-02")
			}
			if e.Priority > 0 {
				u.Priority = strconv.FormatFloat(e.Priority, 'f', 1, 64)
			}
			set.URLs = append(set.URLs, u)
		}
	}
	return set
}

// sitemap lists the published articles and pages of the current site.
func (s *Server) sitemap(ctx echo.Context) error {
	st, err := getContextSite(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	articles, err := s.deps.NewsSvc.SitemapArticles(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "querying sitemap articles")
	}
	pages, err := s.deps.SchoolSvc.SitemapPages(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "querying sitemap pages")
	}

	out, err := xml.Marshal(newSitemap(requestBaseURL(ctx), articles, pages))
	if err != nil {
		return errors.Wrap(err, "rendering sitemap")
	}
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, append([]byte(xml.Header), out...))
}
