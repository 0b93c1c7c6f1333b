// Package report renders run results as markdown and JSON documents.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/archive"
	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/score"
	"github.com/deusflow/curator/internal/storage"
)

const recommendation = "Aim for balanced coverage across Architecture/Infra, DevOps, Agile, and Leadership over the next month."

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func categoryCell(c article.Category) string {
	if c == article.None {
		return "-"
	}
	return c.String()
}

// Analysis renders the monthly situational analysis for ranked items.
func Analysis(items []score.Scored, horizonWeeks int, now time.Time) string {
	now = now.UTC()
	var b strings.Builder
	fmt.Fprintf(&b, "# Situational Analysis - %s %d\n\n", now.Month(), now.Year())
	fmt.Fprintf(&b, "Planning horizon: %d weeks\n\n", horizonWeeks)
	b.WriteString("| Rank | Score | Category | Title | Source |\n")
	b.WriteString("| ---- | -----:| -------- | ----- | ------ |\n")
	for i, it := range items {
		a := it.Article
		fmt.Fprintf(&b, "| %d | %.2f | %s | [%s](%s) | %s |\n",
			i+1, it.Score, categoryCell(a.Category), cellEscaper.Replace(a.Title), a.URL, cellEscaper.Replace(a.Source))
	}
	b.WriteString("\n## Rationale\n")
	for i, it := range items {
		fmt.Fprintf(&b, "- %d. %s: %s\n", i+1, it.Article.Title, it.Rationale)
	}
	b.WriteString("\n## Recommendations\n")
	b.WriteString(recommendation + "\n")
	return b.String()
}

// WriteAnalysis writes situational-YYYY-MM.md under dir and returns its path.
func WriteAnalysis(dir string, items []score.Scored, horizonWeeks int, now time.Time) (string, error) {
	path := filepath.Join(dir, "situational-"+archive.Month(now)+".md")
	if err := storage.WriteFile(path, []byte(Analysis(items, horizonWeeks, now))); err != nil {
		return "", fmt.Errorf("write analysis: %w", err)
	}
	return path, nil
}
