// Package ratelimit tracks how many AI requests each backend may still make.
package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned by Use when a limit is reached.
var ErrBudgetExhausted = errors.New("ai request budget exhausted")

// Budget counts requests per provider against per-provider and total
// limits. Zero limits mean unlimited. Counters reset every window.
type Budget struct {
	mu        sync.Mutex
	limits    map[string]int
	used      map[string]int
	maxTotal  int
	total     int
	window    time.Duration
	resetAt   time.Time
	now       func() time.Time
	logger    *slog.Logger
	warned    map[string]bool
	cacheHits int
	misses    int
}

func NewBudget(limits map[string]int, maxTotal int, window time.Duration, logger *slog.Logger) *Budget {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	b := &Budget{
		limits:   make(map[string]int, len(limits)),
		used:     make(map[string]int),
		maxTotal: maxTotal,
		window:   window,
		now:      time.Now,
		logger:   logger.With("component", "ai_budget"),
		warned:   make(map[string]bool),
	}
	for k, v := range limits {
		b.limits[k] = v
	}
	b.resetAt = b.now().Add(window)
	return b
}

// Allow reports whether provider may make another request.
func (b *Budget) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.exceeded(provider) == ""
}

// Use records one request, or fails with ErrBudgetExhausted. The first
// refusal per provider is logged.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()

	if which := b.exceeded(provider); which != "" {
		if !b.warned[provider] {
			b.warned[provider] = true
			b.logger.Warn("ai budget reached, falling back to defaults",
				"provider", provider, "limit", which, "used", b.used[provider], "total", b.total)
		}
		return fmt.Errorf("%s: %w", which, ErrBudgetExhausted)
	}

	b.used[provider]++
	b.total++
	b.misses++
	b.logger.Debug("ai request", "provider", provider, "used", b.used[provider], "total", b.total)
	return nil
}

// RecordCacheHit counts a request served from cache instead of the backend.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) exceeded(provider string) string {
	if limit := b.limits[provider]; limit > 0 && b.used[provider] >= limit {
		return provider + " limit"
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return "total limit"
	}
	return ""
}

func (b *Budget) hitRate() float64 {
	n := b.cacheHits + b.misses
	if n == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(n) * 100
}

// Stats returns counters for the monitoring endpoint.
func (b *Budget) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]any{
		"total_used":     b.total,
		"total_limit":    b.maxTotal,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.misses,
		"cache_hit_rate": b.hitRate(),
		"reset_time":     b.resetAt.Format(time.RFC3339),
	}
	for p, n := range b.used {
		stats[p+"_used"] = n
	}
	for p, n := range b.limits {
		stats[p+"_limit"] = n
	}
	return stats
}

func (b *Budget) checkReset() {
	if !b.now().After(b.resetAt) {
		return
	}
	b.logger.Info("resetting ai budget", "total_used", b.total, "cache_hit_rate", b.hitRate())
	b.used = make(map[string]int)
	b.warned = make(map[string]bool)
	b.total, b.cacheHits, b.misses = 0, 0, 0
	b.resetAt = b.now().Add(b.window)
}
