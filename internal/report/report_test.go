package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/score"
)

var june = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func sample() []score.Scored {
	return []score.Scored{
		{Article: article.Item{Title: "Kubernetes cost | tips", URL: "https://a", Source: "Blog", Category: article.ArchitectureInfra}, Score: 0.912, Rationale: "recency=1.00"},
		{Article: article.Item{Title: "Kubernetes for teams", URL: "https://b", Source: "Radar"}, Score: 0.5, Rationale: "recency=0.20"},
	}
}

func TestAnalysis(t *testing.T) {
	md := Analysis(sample(), 4, june)
	assert.True(t, strings.HasPrefix(md, "# Situational Analysis - June 2024\n\nPlanning horizon: 4 weeks\n"))
	assert.Contains(t, md, "| 1 | 0.91 | Architecture/Infra | [Kubernetes cost \\| tips](https://a) | Blog |")
	assert.Contains(t, md, "| 2 | 0.50 | - | [Kubernetes for teams](https://b) | Radar |")
	assert.Contains(t, md, "## Rationale\n- 1. Kubernetes cost | tips: recency=1.00\n- 2. Kubernetes for teams: recency=0.20\n")
	assert.True(t, strings.HasSuffix(md, "## Recommendations\n"+recommendation+"\n"))
}

func TestWriteAnalysis(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteAnalysis(filepath.Join(dir, "docs"), sample(), 4, june)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docs", "situational-2024-06.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Planning horizon")
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"kubernetes", "tips", "teams"}, Keywords("Kubernetes: (tips) for the TEAMS!"))
}

func TestMonthly(t *testing.T) {
	s := Monthly(sample(), june)
	assert.Equal(t, "2024-06", s.Month)
	assert.Equal(t, "2024-06-15T09:00:00Z", s.GeneratedAt)
	require.Len(t, s.Items, 2)
	assert.Equal(t, map[string]int{"Architecture/Infra": 1, "Uncategorized": 1}, s.CategoryCounts)
	assert.Equal(t, []KeywordCount{{"kubernetes", 2}, {"cost", 1}, {"teams", 1}, {"tips", 1}}, s.TopKeywords)

	path, err := WriteMonthly(t.TempDir(), s)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back MonthlySummary
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s.TopKeywords, back.TopKeywords)
}

func TestMonthlyCapsKeywords(t *testing.T) {
	var items []score.Scored
	for _, w := range strings.Fields("alpha bravo charlie delta echoo foxtrot gulf hotel india juliet kilo lima mike november oscar papa quebec") {
		items = append(items, score.Scored{Article: article.Item{Title: w}})
	}
	assert.Len(t, Monthly(items, june).TopKeywords, topKeywords)
}

func TestPipelineMarkdown(t *testing.T) {
	p := Pipeline{RunID: "run-1", Fetched: 10, Processed: 7, Duplicates: 3, Groups: 2, Created: 1, Skipped: 1}
	md := p.Markdown()
	assert.Contains(t, md, "- Run: run-1\n")
	assert.Contains(t, md, "- Articles processed: 7\n")
	assert.Contains(t, md, "- Duplicates skipped: 3\n")
	assert.NotContains(t, md, "Started")

	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, p.Write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, md, string(data))
}
