package core

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	editorialPolicy = newEditorialPolicy()
	stripPolicy     = bluemonday.StrictPolicy()
)

// newEditorialPolicy allows the formatting used by the editors and strips everything else.
func newEditorialPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "strong", "em", "b", "i", "u",
		"ul", "ol", "li",
		"a", "abbr",
		"h2", "h3", "h4", "h5", "h6",
		"blockquote", "pre", "code",
		"img", "figure", "figcaption",
		"table", "thead", "tbody", "tr", "th", "td",
		"div", "span", "hr",
		"iframe", // embeds (YouTube etc.), restricted by attrs
	)

	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height", "loading", "class").OnElements("img")
	p.AllowAttrs("src", "width", "height", "frameborder", "allow", "allowfullscreen").OnElements("iframe")
	p.AllowAttrs("class", "style").OnElements("div", "span")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowAttrs("class").OnElements("p", "pre", "code", "blockquote", "figure")
	p.AllowAttrs("class", "id").OnElements("h2", "h3", "h4")

	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.AllowStyling()
	p.AllowUnsafe(true) // iframes are only ever emitted with the attrs above

	return p
}

// SanitizeHTML removes dangerous tags and attributes while keeping editorial formatting.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return editorialPolicy.Sanitize(s)
}

// StripTags returns the text content of s.
func StripTags(s string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(s))

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var blank bool
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
