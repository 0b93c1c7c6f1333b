package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetPerProvider(t *testing.T) {
	b := NewBudget(map[string]int{"gemini": 2}, 0, 0, nil)
	require.NoError(t, b.Use("gemini"))
	require.NoError(t, b.Use("gemini"))
	assert.False(t, b.Allow("gemini"))
	assert.ErrorIs(t, b.Use("gemini"), ErrBudgetExhausted)

	assert.True(t, b.Allow("ollama"))
	assert.NoError(t, b.Use("ollama"))
}

func TestBudgetTotal(t *testing.T) {
	b := NewBudget(nil, 1, 0, nil)
	require.NoError(t, b.Use("a"))
	assert.ErrorIs(t, b.Use("b"), ErrBudgetExhausted)
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(nil, 0, 0, nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Use("ollama"))
	}
	assert.Equal(t, 100, b.Stats()["total_used"])
}

func TestBudgetResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBudget(nil, 1, time.Hour, nil)
	b.now = func() time.Time { return now }
	b.resetAt = now.Add(time.Hour)

	require.NoError(t, b.Use("x"))
	assert.False(t, b.Allow("x"))

	now = now.Add(2 * time.Hour)
	assert.True(t, b.Allow("x"))
}

func TestBudgetStats(t *testing.T) {
	b := NewBudget(map[string]int{"gemini": 5}, 10, 0, nil)
	require.NoError(t, b.Use("gemini"))
	b.RecordCacheHit()
	stats := b.Stats()
	assert.Equal(t, 1, stats["gemini_used"])
	assert.Equal(t, 5, stats["gemini_limit"])
	assert.Equal(t, 1, stats["cache_hits"])
	assert.InDelta(t, 50.0, stats["cache_hit_rate"], 1e-9)
}
