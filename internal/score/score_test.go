package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/article"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer(weeks int) *Scorer {
	s := New(weeks)
	s.Now = func() time.Time { return fixedNow }
	return s
}

func daysAgo(n int) string {
	return fixedNow.AddDate(0, 0, -n).Format(time.RFC3339)
}

func TestRecency(t *testing.T) {
	s := newTestScorer(4)
	tests := []struct {
		name string
		date string
		want float64
	}{
		{"undated", "", 0.5},
		{"unparseable", "last week", 0.5},
		{"today", daysAgo(0), 1.0},
		{"half horizon", daysAgo(14), 0.6},
		{"at horizon", daysAgo(28), 0.2},
		{"beyond horizon", daysAgo(400), 0.2},
		{"future", fixedNow.Add(72 * time.Hour).Format(time.RFC3339), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Recency(article.Item{PublishedDate: tt.date}), 1e-9)
		})
	}
}

func TestHorizonDaysFloor(t *testing.T) {
	assert.Equal(t, 7, newTestScorer(0).HorizonDays())
	assert.Equal(t, 28, newTestScorer(4).HorizonDays())
}

func TestFactors(t *testing.T) {
	s := newTestScorer(4)
	assert.Equal(t, 1.0, s.Authority("ThoughtWorks Technology Radar"))
	assert.Equal(t, 0.85, s.Authority("DORA DevOps Blog"))
	assert.Equal(t, DefaultAuthority, s.Authority("Some Blog"))

	assert.InDelta(t, 0.75, Novelty("one two three four five"), 1e-9)
	assert.Equal(t, 1.0, Novelty("a b c d e f g h i j k l"))
	assert.Equal(t, 0.5, Novelty(""))

	assert.Equal(t, 1.0, Balance(article.ArchitectureInfra))
	assert.Equal(t, 0.95, Balance(article.DevOps))
	assert.Equal(t, 0.8, Balance(article.Other))
	assert.Equal(t, 0.6, Balance(article.None))
}

func TestScoreAndRationale(t *testing.T) {
	s := newTestScorer(4)
	got := s.Score(article.Item{
		Title:    "Trunk based development tips",
		Source:   "Martin Fowler Blog",
		Category: article.DevOps,
	})
	assert.InDelta(t, 0.705, got.Score, 1e-9)
	assert.Equal(t, "recency=0.50, authority=0.90, novelty=0.70, balance=0.95", got.Rationale)
}

func TestRankTieBreakIsFoldedTitle(t *testing.T) {
	s := newTestScorer(4)
	items := []article.Item{
		{Title: "Gamma item", URL: "u3"},
		{Title: "alpha item", URL: "u1"},
		{Title: "Beta item", URL: "u2"},
		{Title: "Beta item", URL: "u0"},
	}
	ranked := s.Rank(items, 0)
	require.Len(t, ranked, 4)
	var urls []string
	for _, r := range ranked {
		urls = append(urls, r.Article.URL)
	}
	assert.Equal(t, []string{"u1", "u0", "u2", "u3"}, urls)
}

func TestRankIsDeterministic(t *testing.T) {
	s := newTestScorer(4)
	items := []article.Item{
		{Title: "Old news", URL: "a", PublishedDate: daysAgo(30), Source: "Martin Fowler Blog"},
		{Title: "Fresh platform engineering story", URL: "b", PublishedDate: daysAgo(1)},
		{Title: "Radar vol 30", URL: "c", Source: "ThoughtWorks Technology Radar", Category: article.ArchitectureInfra},
		{Title: "Coaching", URL: "d", Category: article.Leadership},
	}
	first := s.Rank(items, 0)
	reversed := make([]article.Item, len(items))
	for i, it := range items {
		reversed[len(items)-1-i] = it
	}
	second := s.Rank(reversed, 0)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
}

func TestRankTopN(t *testing.T) {
	s := newTestScorer(4)
	items := []article.Item{{Title: "a", URL: "1"}, {Title: "b", URL: "2"}, {Title: "c", URL: "3"}}
	assert.Len(t, s.Rank(items, 2), 2)
	assert.Len(t, s.Rank(items, 10), 3)
}

func TestFilterHighPriority(t *testing.T) {
	items := []Scored{{Score: 0.9}, {Score: 0.7}, {Score: 0.69}}
	got := FilterHighPriority(items, 0.7)
	require.Len(t, got, 2)
	assert.Equal(t, 0.7, got[1].Score)
	assert.Len(t, Articles(got), 2)
}
