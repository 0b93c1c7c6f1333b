package issues

import (
	"fmt"
	"strings"

	"github.com/deusflow/curator/internal/article"
)

const (
	pendingSummary = "(summary pending)"
	draftLabel     = "draft"
)

// Labels returns the draft label plus the category label of it.
func Labels(it article.Item) []string {
	return []string{draftLabel, it.Category.Label()}
}

func Title(it article.Item) string {
	return fmt.Sprintf("[%s] %s", it.Category, it.Title)
}

// Body renders a single-item issue.
func Body(it article.Item, impact []string) string {
	summary := it.Summary
	if summary == "" {
		summary = pendingSummary
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### Summary\n\n%s\n\n", summary)
	fmt.Fprintf(&b, "### Impact to teams\n\n%s\n\n", bullets(impact, "- TBD"))
	fmt.Fprintf(&b, "### Original Source\n\n%s\n\n", it.URL)
	fmt.Fprintf(&b, "---\nLabels: %s\n", strings.Join(Labels(it), ", "))
	return b.String()
}

// GroupTitle names a roundup after its first three items.
func GroupTitle(items []article.Item) string {
	if len(items) == 0 {
		return "[Draft] Untitled Group"
	}
	title := fmt.Sprintf("[%s] Topic roundup: %s", items[0].Category, items[0].Title)
	for _, it := range items[1:min(3, len(items))] {
		title += "; " + it.Title
	}
	return title
}

func GroupLabels(items []article.Item) []string {
	if len(items) == 0 {
		return []string{draftLabel}
	}
	return Labels(items[0])
}

// GroupBody renders a roundup issue: combined summary, impact, sources and
// per-item notes.
func GroupBody(items []article.Item, impact []string) string {
	var summaries, sources, notes []string
	for _, it := range items {
		summary := it.Summary
		if summary == "" {
			summary = pendingSummary
		}
		category := "-"
		if it.Category != article.None {
			category = it.Category.String()
		}
		summaries = append(summaries, "- "+summary)
		sources = append(sources, fmt.Sprintf("- [%s](%s) (%s)", it.Title, it.URL, it.Source))
		notes = append(notes, fmt.Sprintf("#### %s\nCategory: %s\n\nSummary:\n\n%s\n", it.Title, category, summary))
	}

	combined := strings.Join(summaries, "\n\n")
	if combined == "" {
		combined = "(summaries pending)"
	}
	sourceList := strings.Join(sources, "\n")
	if sourceList == "" {
		sourceList = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### Combined Summary\n\n%s\n\n", combined)
	fmt.Fprintf(&b, "### Impact to teams\n\n%s\n\n", bullets(impact, "- TBD"))
	fmt.Fprintf(&b, "### Original Sources\n\n%s\n\n", sourceList)
	fmt.Fprintf(&b, "### Notes by source\n\n%s\n\n", strings.Join(notes, "\n\n"))
	fmt.Fprintf(&b, "---\nLabels: %s\n", strings.Join(GroupLabels(items), ", "))
	return b.String()
}

func bullets(points []string, empty string) string {
	if len(points) == 0 {
		return empty
	}
	lines := make([]string, len(points))
	for i, p := range points {
		lines[i] = "- " + p
	}
	return strings.Join(lines, "\n")
}
