// Package enrich fills in category, summary and impact notes for accepted
// items. Every AI failure degrades to a local default; enrichment never
// fails an item.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deusflow/curator/internal/ai"
	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/metrics"
	"github.com/deusflow/curator/internal/ratelimit"
	"github.com/deusflow/curator/internal/retry"
)

const (
	// FallbackCategory is assigned when classification fails or is refused.
	FallbackCategory = article.ArchitectureInfra

	DefaultTruncateWords = 600
	DefaultChunkWords    = 300
	DefaultSummaryWords  = 150
)

type Options struct {
	TruncateWords int
	ChunkWords    int
	SummaryWords  int
	Retry         retry.Config
	CacheTTL      time.Duration
	Budget        *ratelimit.Budget
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// DefaultRetry retries twice, waiting 1s then 1.5s.
func DefaultRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, Delay: time.Second, Multiplier: 1.5}
}

// Enricher is safe for concurrent use when its client is.
type Enricher struct {
	client    ai.Client
	opts      Options
	logger    *slog.Logger
	classes   *cache.Cache[string, ai.Classification]
	summaries *cache.Cache[string, string]
}

// New accepts a nil client, in which case every call uses the local
// fallbacks.
func New(client ai.Client, opts Options) *Enricher {
	if opts.TruncateWords <= 0 {
		opts.TruncateWords = DefaultTruncateWords
	}
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.SummaryWords <= 0 {
		opts.SummaryWords = DefaultSummaryWords
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetry()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		client:    client,
		opts:      opts,
		logger:    logger.With("component", "enrich"),
		classes:   cache.New[string, ai.Classification](opts.CacheTTL, 0),
		summaries: cache.New[string, string](opts.CacheTTL, 0),
	}
}

func (e *Enricher) Close() {
	e.classes.Close()
	e.summaries.Close()
}

// Item classifies and summarizes it in place and returns it.
func (e *Enricher) Item(ctx context.Context, it article.Item) article.Item {
	c := e.Classify(ctx, it.RawText)
	it.Category = c.Category
	it.Confidence = c.Confidence
	it.Summary = e.Summarize(ctx, it.RawText)
	return it
}

// call spends one unit of budget and runs fn under the retry policy. A
// refused budget is not retried.
func call[T any](ctx context.Context, e *Enricher, fn func() (T, error)) (T, error) {
	return retry.Do(ctx, e.opts.Retry, func() (T, error) {
		if e.opts.Budget != nil {
			if err := e.opts.Budget.Use(e.client.Name()); err != nil {
				var zero T
				return zero, retry.Permanent(err)
			}
		}
		return fn()
	})
}

func (e *Enricher) cacheHit() {
	if e.opts.Budget != nil {
		e.opts.Budget.RecordCacheHit()
	}
}

// Classify never fails: a missing backend, an exhausted budget or malformed
// output all yield FallbackCategory with zero confidence.
func (e *Enricher) Classify(ctx context.Context, text string) ai.Classification {
	fallback := ai.Classification{Category: FallbackCategory}
	if e.client == nil {
		e.opts.Metrics.IncClassifyFallback()
		return fallback
	}

	content := TruncateWords(text, e.opts.TruncateWords)
	key := cache.Key("classify", content)
	if c, ok := e.classes.Get(key); ok {
		e.cacheHit()
		return c
	}

	c, err := call(ctx, e, func() (ai.Classification, error) {
		return e.client.Classify(ctx, content)
	})
	if err != nil {
		e.opts.Metrics.IncClassifyFallback()
		level := slog.LevelWarn
		if errors.Is(err, ratelimit.ErrBudgetExhausted) {
			level = slog.LevelDebug
		}
		e.logger.Log(ctx, level, "classification failed, using default category",
			"backend", e.client.Name(), "category", FallbackCategory.String(), "error", err)
		return fallback
	}
	if !c.Category.Official() || c.Confidence < 0 || c.Confidence > 1 {
		e.opts.Metrics.IncClassifyFallback()
		e.logger.Warn("invalid classification, using default category", "category", c.Category.String())
		return fallback
	}

	e.classes.Set(key, c)
	return c
}
