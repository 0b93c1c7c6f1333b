// Package article holds the item model shared by every curation stage.
package article

import (
	"strings"
	"time"
)

// Item is a single piece of fetched content.
//
// Fetchers create it, enrichment fills Category, Summary and Confidence in
// place. Across runs items are superseded by URL identity, never deleted.
type Item struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Source        string   `json:"source"`
	RawText       string   `json:"raw_text"`
	PublishedDate string   `json:"published_date,omitempty"` // ISO-8601, empty when unknown
	Category      Category `json:"category,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Confidence    float64  `json:"confidence_score,omitempty"`
}

// Published parses PublishedDate. The bool is false when the date is absent
// or unparseable.
func (it Item) Published() (time.Time, bool) {
	s := strings.TrimSpace(it.PublishedDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Key is the stable identity of an item inside one curation pass.
func (it Item) Key() string {
	if it.URL != "" {
		return it.URL
	}
	return "title:" + strings.ToLower(strings.TrimSpace(it.Title))
}
