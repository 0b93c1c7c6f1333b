package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/curator/internal/archive"
	"github.com/deusflow/curator/internal/score"
	"github.com/deusflow/curator/internal/storage"
)

const topKeywords = 15

type MonthlyItem struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Source        string  `json:"source"`
	PublishedDate string  `json:"published_date,omitempty"`
	Category      string  `json:"category"`
	Summary       string  `json:"summary,omitempty"`
	Score         float64 `json:"score"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// MonthlySummary is the machine-readable digest of a month.
type MonthlySummary struct {
	Month          string         `json:"month"`
	GeneratedAt    string         `json:"generated_at"`
	Items          []MonthlyItem  `json:"items"`
	CategoryCounts map[string]int `json:"category_counts"`
	TopKeywords    []KeywordCount `json:"top_keywords"`
}

// Keywords lists the lowercased words of title with at least four letters.
func Keywords(title string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, `.,:;!?()[]"'`)
		if utf8.RuneCountInString(w) >= 4 {
			out = append(out, w)
		}
	}
	return out
}

// Monthly builds the summary of ranked items for the month containing now.
func Monthly(items []score.Scored, now time.Time) MonthlySummary {
	s := MonthlySummary{
		Month:          archive.Month(now),
		GeneratedAt:    now.UTC().Format(time.RFC3339),
		Items:          make([]MonthlyItem, 0, len(items)),
		CategoryCounts: make(map[string]int),
	}
	freq := make(map[string]int)
	for _, it := range items {
		a := it.Article
		s.Items = append(s.Items, MonthlyItem{
			Title:         a.Title,
			URL:           a.URL,
			Source:        a.Source,
			PublishedDate: a.PublishedDate,
			Category:      a.Category.String(),
			Summary:       a.Summary,
			Score:         it.Score,
		})
		s.CategoryCounts[a.Category.String()]++
		for _, k := range Keywords(a.Title) {
			freq[k]++
		}
	}

	for k, n := range freq {
		s.TopKeywords = append(s.TopKeywords, KeywordCount{Keyword: k, Count: n})
	}
	sort.Slice(s.TopKeywords, func(i, j int) bool {
		a, b := s.TopKeywords[i], s.TopKeywords[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Keyword < b.Keyword
	})
	if len(s.TopKeywords) > topKeywords {
		s.TopKeywords = s.TopKeywords[:topKeywords]
	}
	return s
}

// WriteMonthly writes summaries-YYYY-MM.json under dir.
func WriteMonthly(dir string, s MonthlySummary) (string, error) {
	path := filepath.Join(dir, "summaries-"+s.Month+".json")
	if err := storage.WriteJSON(path, s); err != nil {
		return "", fmt.Errorf("write monthly summary: %w", err)
	}
	return path, nil
}
