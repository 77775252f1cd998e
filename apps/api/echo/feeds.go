package echoapi

import (
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/site"
)

const rssContentType = "application/rss+xml; charset=utf-8"

// requestBaseURL returns the scheme and host the request was made to.
func requestBaseURL(ctx echo.Context) string {
	return ctx.Scheme() + "://" + ctx.Request().Host
}

func latestFeed(st site.Site, baseURL string, articles []news.Article) *feeds.Feed {
	return newFeed(
		st.Name+" - Latest News",
		"The latest news and events from "+st.Name+".",
		baseURL+"/news/",
		baseURL,
		articles,
	)
}

func categoryFeed(st site.Site, cat news.Category, baseURL string, articles []news.Article) *feeds.Feed {
	desc := cat.Description
	if desc == "" {
		desc = "Articles in " + cat.Name
	}
	return newFeed(st.Name+" - "+cat.Name, desc, baseURL+"/news/category/"+cat.Slug+"/", baseURL, articles)
}

func newFeed(title, desc, link, baseURL string, articles []news.Article) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: desc,
		Items:       make([]*feeds.Item, 0, len(articles)),
	}
	for _, a := range articles {
		item := &feeds.Item{
			Title:       a.Title,
			Link:        &feeds.Link{Href: baseURL + news.ArticlePath(a.Slug)},
			Id:          baseURL + news.ArticlePath(a.Slug),
			Description: a.Description(),
			Created:     a.PublishedAt.Time,
			Updated:     a.UpdatedAt,
		}
		if a.Author != nil {
			item.Author = &feeds.Author{Name: a.Author.FullName}
		}
		if feed.Updated.Before(a.UpdatedAt) {
			feed.Updated = a.UpdatedAt
		}
		feed.Items = append(feed.Items, item)
	}
	if feed.Updated.IsZero() {
		feed.Updated = time.Now().UTC()
	}
	return feed
}

// renderRSS writes feed as RSS 2.0, with the category of each article.
func renderRSS(ctx echo.Context, feed *feeds.Feed, articles []news.Article) error {
	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	for i, item := range rss.Items {
		if i < len(articles) && articles[i].Category != nil {
			item.Category = articles[i].Category.Name
		}
	}

	out, err := feeds.ToXML(rss)
	if err != nil {
		return errors.Wrap(err, "rendering rss feed")
	}
	return ctx.Blob(http.StatusOK, rssContentType, []byte(out))
}
