package core

import "time"

const (
	ChangeFreqWeekly  = "weekly"
	ChangeFreqMonthly = "monthly"
)

// SitemapEntry is one <url> of the sitemap. Loc is a path, made absolute by the API.
type SitemapEntry struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}
