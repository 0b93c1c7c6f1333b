package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/ai"
	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/metrics"
	"github.com/deusflow/curator/internal/ratelimit"
	"github.com/deusflow/curator/internal/retry"
)

type fakeClient struct {
	mu          sync.Mutex
	class       ai.Classification
	classErr    error
	failFirst   int
	summary     string
	summaryErr  error
	classCalls  int
	sumCalls    int
	sumInputs   []string
	sumMaxWords []int
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Classify(_ context.Context, _ string) (ai.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classCalls++
	if f.classCalls <= f.failFirst {
		return ai.Classification{}, errors.New("transient")
	}
	return f.class, f.classErr
}

func (f *fakeClient) Summarize(_ context.Context, text string, maxWords int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumCalls++
	f.sumInputs = append(f.sumInputs, text)
	f.sumMaxWords = append(f.sumMaxWords, maxWords)
	return f.summary, f.summaryErr
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, Delay: time.Millisecond}
}

func newEnricher(client ai.Client, m *metrics.Metrics) *Enricher {
	e := New(client, Options{Retry: fastRetry(), Metrics: m})
	return e
}

func TestClassifySuccessIsCached(t *testing.T) {
	fc := &fakeClient{class: ai.Classification{Category: article.DevOps, Confidence: 0.9}}
	e := newEnricher(fc, nil)
	defer e.Close()

	got := e.Classify(context.Background(), "CI pipelines")
	assert.Equal(t, article.DevOps, got.Category)
	assert.Equal(t, 0.9, got.Confidence)

	e.Classify(context.Background(), "CI pipelines")
	assert.Equal(t, 1, fc.classCalls)
}

func TestClassifyRetriesTransientErrors(t *testing.T) {
	fc := &fakeClient{failFirst: 2, class: ai.Classification{Category: article.Agile, Confidence: 0.7}}
	e := newEnricher(fc, nil)
	got := e.Classify(context.Background(), "sprints")
	assert.Equal(t, article.Agile, got.Category)
	assert.Equal(t, 3, fc.classCalls)
}

func TestClassifyFailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		client ai.Client
	}{
		{"no backend", nil},
		{"backend error", &fakeClient{classErr: ai.ErrMalformedResponse}},
		{"overflow category", &fakeClient{class: ai.Classification{Category: article.Other, Confidence: 0.9}}},
		{"confidence out of range", &fakeClient{class: ai.Classification{Category: article.DevOps, Confidence: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			e := newEnricher(tt.client, m)
			got := e.Classify(context.Background(), "text")
			assert.Equal(t, article.ArchitectureInfra, got.Category)
			assert.Zero(t, got.Confidence)
			assert.EqualValues(t, 1, m.Stats()["classification_fallbacks"])
		})
	}
}

func TestClassifyTruncatesInput(t *testing.T) {
	var seen string
	client := classifyFunc(func(text string) (ai.Classification, error) {
		seen = text
		return ai.Classification{Category: article.Leadership, Confidence: 0.5}, nil
	})
	e := New(client, Options{TruncateWords: 3, Retry: fastRetry()})
	e.Classify(context.Background(), "one two three four five")
	assert.Equal(t, "one two three", seen)
}

type classifyFunc func(text string) (ai.Classification, error)

func (f classifyFunc) Name() string { return "func" }
func (f classifyFunc) Classify(_ context.Context, text string) (ai.Classification, error) {
	return f(text)
}
func (f classifyFunc) Summarize(context.Context, string, int) (string, error) {
	return "", errors.New("not supported")
}

func TestBudgetExhaustionFallsBackWithoutRetry(t *testing.T) {
	fc := &fakeClient{class: ai.Classification{Category: article.DevOps, Confidence: 0.9}}
	budget := ratelimit.NewBudget(nil, 1, time.Hour, nil)
	e := New(fc, Options{Retry: fastRetry(), Budget: budget})

	assert.Equal(t, article.DevOps, e.Classify(context.Background(), "first").Category)
	assert.Equal(t, article.ArchitectureInfra, e.Classify(context.Background(), "second").Category)
	assert.Equal(t, 1, fc.classCalls)
}

func TestSummarizeShapesOutput(t *testing.T) {
	fc := &fakeClient{summary: "One. Two! Three? Four."}
	e := newEnricher(fc, nil)
	assert.Equal(t, "One. Two! Three?", e.Summarize(context.Background(), "short text"))
	assert.Equal(t, []int{DefaultSummaryWords}, fc.sumMaxWords)
}

func TestSummarizeChunksLongText(t *testing.T) {
	fc := &fakeClient{summary: "Partial summary."}
	e := New(fc, Options{ChunkWords: 2, Retry: fastRetry()})
	e.Summarize(context.Background(), "a b c d e f g")

	// four chunks of two words, then one combining call
	require.Equal(t, 5, fc.sumCalls)
	assert.Equal(t, "a b", fc.sumInputs[0])
	assert.Equal(t, "g", fc.sumInputs[3])
	assert.Equal(t, 100, fc.sumMaxWords[0])
	assert.Equal(t, strings.Repeat("Partial summary.\n", 3)+"Partial summary.", fc.sumInputs[4])
}

func TestSummarizeFallsBackToLeadSentences(t *testing.T) {
	m := metrics.New()
	fc := &fakeClient{summaryErr: errors.New("down")}
	e := newEnricher(fc, m)
	got := e.Summarize(context.Background(), "First sentence here. Second one. Third one. Fourth one.")
	assert.Equal(t, "First sentence here. Second one. Third one.", got)
	assert.EqualValues(t, 1, m.Stats()["summary_fallbacks"])
}

func TestSummarizeWithoutBackend(t *testing.T) {
	e := newEnricher(nil, nil)
	assert.Equal(t, "Only one.", e.Summarize(context.Background(), "Only one."))
	assert.Empty(t, e.Summarize(context.Background(), "   "))
}

func TestShapeSummary(t *testing.T) {
	assert.Equal(t, "alpha beta gamma", ShapeSummary("alpha; beta, gamma: delta", 10))
	assert.Equal(t, "alpha beta gamma", ShapeSummary("alpha; beta, gamma", 10))
	assert.Equal(t, "a b", ShapeSummary("a b c d.", 2))
	assert.Empty(t, ShapeSummary("", 10))
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"Go 1.23 is out.", "Upgrade now!", "Why?"}, SplitSentences("Go 1.23 is out. Upgrade now! Why?"))
	assert.Nil(t, SplitSentences("  "))
}

func TestWordHelpers(t *testing.T) {
	assert.Equal(t, "a b", TruncateWords("a b c", 2))
	assert.Equal(t, "a  b", TruncateWords("a  b", 5))
	assert.Equal(t, []string{"a b", "c"}, ChunkWords("a b c", 2))
	assert.Equal(t, []string{"a b"}, ChunkWords("a b", 2))
}

func TestImpactPointsFromBackend(t *testing.T) {
	fc := &fakeClient{summary: "- Review pipelines\n• Update runbooks\n\n* Train staff\n- Extra"}
	e := newEnricher(fc, nil)
	got := e.ImpactPoints(context.Background(), "article body")
	assert.Equal(t, []string{"Review pipelines", "Update runbooks", "Train staff"}, got)
	assert.Equal(t, []int{MaxImpactPoints * MaxImpactWords}, fc.sumMaxWords)
}

func TestImpactPointsHeuristic(t *testing.T) {
	e := newEnricher(&fakeClient{summaryErr: errors.New("down")}, nil)
	got := e.ImpactPoints(context.Background(), "Too short. This sentence has at least six words. Tiny.")
	assert.Equal(t, []string{"This sentence has at least six words."}, got)

	assert.Equal(t, []string{DefaultImpactNote}, HeuristicImpact("Nope. Short."))
}

func TestItem(t *testing.T) {
	fc := &fakeClient{class: ai.Classification{Category: article.Leadership, Confidence: 0.6}, summary: "Leaders lead."}
	e := newEnricher(fc, nil)
	got := e.Item(context.Background(), article.Item{Title: "t", RawText: "Leaders lead teams."})
	assert.Equal(t, article.Leadership, got.Category)
	assert.Equal(t, 0.6, got.Confidence)
	assert.Equal(t, "Leaders lead.", got.Summary)
}
