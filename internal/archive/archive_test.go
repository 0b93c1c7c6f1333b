package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/article"
)

func TestMonth(t *testing.T) {
	assert.Equal(t, "2024-06", Month(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-12", PreviousMonth(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-02", PreviousMonth(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestFileStoreMergesByURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewFile(dir, FileOptions{})

	n, err := a.Store(ctx, "2024-06", []article.Item{
		{Title: "One", URL: "https://x/1", Category: article.Agile},
		{Title: "Two", URL: "https://x/2"},
		{Title: "No URL"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = a.Store(ctx, "2024-06", []article.Item{
		{Title: "One updated", URL: "https://x/1", Category: article.DevOps},
		{Title: "Three", URL: "https://x/3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err := a.Load(ctx, "2024-06")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "One updated", items[0].Title)
	assert.Equal(t, article.DevOps, items[0].Category)
	assert.Equal(t, "Three", items[2].Title)

	raw, err := os.ReadFile(filepath.Join(dir, "2024-06.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2024-06", doc["month"])
	assert.EqualValues(t, 3, doc["count"])
}

func TestFileCorruptIsRecreated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-05.json"), []byte("{broken"), 0o644))

	a := NewFile(dir, FileOptions{})
	items, err := a.Load(ctx, "2024-05")
	require.NoError(t, err)
	assert.Empty(t, items)

	n, err := a.Store(ctx, "2024-05", []article.Item{{Title: "Fresh", URL: "https://x"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileMonths(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewFile(dir, FileOptions{})

	months, err := NewFile(filepath.Join(dir, "missing"), FileOptions{}).Months(ctx)
	require.NoError(t, err)
	assert.Empty(t, months)

	for _, m := range []string{"2024-06", "2023-11"} {
		_, err := a.Store(ctx, m, []article.Item{{Title: "t", URL: "https://" + m}})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))

	months, err = a.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11", "2024-06"}, months)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	a := NewFile(t.TempDir(), FileOptions{})
	assert.ErrorIs(t, Require(ctx, a, "2024-06"), ErrMonthMissing)

	_, err := a.Store(ctx, "2024-06", []article.Item{{Title: "t", URL: "https://x"}})
	require.NoError(t, err)
	assert.NoError(t, Require(ctx, a, "2024-06"))
}

func TestInvalidMonth(t *testing.T) {
	a := NewFile(t.TempDir(), FileOptions{})
	_, err := a.Store(context.Background(), "June", nil)
	assert.Error(t, err)
	_, err = a.Load(context.Background(), "2024-13")
	assert.Error(t, err)
}

func TestOpenPicksBackend(t *testing.T) {
	a, err := Open(context.Background(), "", t.TempDir(), FileOptions{})
	require.NoError(t, err)
	assert.IsType(t, &File{}, a)

	_, err = Open(context.Background(), "", "", FileOptions{})
	assert.Error(t, err)
}

// TestPostgresRoundTrip runs only against a real database.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := NewPostgres(ctx, dsn, nil)
	require.NoError(t, err)
	defer p.Close()

	url := "https://example.com/pg-" + time.Now().Format("150405.000000")
	_, err = p.Store(ctx, "1999-01", []article.Item{{Title: "PG", URL: url, Category: article.Leadership, Confidence: 0.4}})
	require.NoError(t, err)

	items, err := p.Load(ctx, "1999-01")
	require.NoError(t, err)
	var found bool
	for _, it := range items {
		if it.URL == url {
			found = true
			assert.Equal(t, article.Leadership, it.Category)
		}
	}
	assert.True(t, found)
}
