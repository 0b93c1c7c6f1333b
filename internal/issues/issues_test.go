package issues

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/retry"
	"github.com/deusflow/curator/internal/score"
	"github.com/deusflow/curator/internal/storage"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 4, Delay: time.Millisecond}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewGitHubClient(context.Background(), GitHubOptions{
		Token:      "secret",
		Repository: "acme/radar",
		BaseURL:    srv.URL,
		Retry:      fastRetry(),
	})
	require.NoError(t, err)
	return c
}

func TestCreateIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/radar/issues", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var got Issue
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Hello", got.Title)
		assert.Equal(t, []string{"draft"}, got.Labels)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":42,"html_url":"https://github.com/acme/radar/issues/42"}`))
	})

	num, err := c.CreateIssue(context.Background(), Issue{Title: "Hello", Body: "b"})
	require.NoError(t, err)
	require.NotNil(t, num)
	assert.Equal(t, 42, *num)
}

func TestCreateIssueDryRun(t *testing.T) {
	c, err := NewGitHubClient(context.Background(), GitHubOptions{DryRun: true})
	require.NoError(t, err)
	num, err := c.CreateIssue(context.Background(), Issue{Title: "x"})
	assert.NoError(t, err)
	assert.Nil(t, num)
}

func TestNewGitHubClientRequiresCredentials(t *testing.T) {
	_, err := NewGitHubClient(context.Background(), GitHubOptions{Repository: "acme/radar"})
	assert.Error(t, err)
	_, err = NewGitHubClient(context.Background(), GitHubOptions{Token: "t", Repository: "radar"})
	assert.Error(t, err)
}

func TestCreateIssueRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"number":7}`))
	})
	num, err := c.CreateIssue(context.Background(), Issue{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, 7, *num)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCreateIssueValidationIsPermanent(t *testing.T) {
	for _, status := range []int{http.StatusUnprocessableEntity, http.StatusNotFound} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", status)
			})
			_, err := c.CreateIssue(context.Background(), Issue{Title: "x"})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, status, apiErr.Status)
			assert.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestCreateIssueRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	_, err := c.CreateIssue(context.Background(), Issue{Title: "x"})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.EqualValues(t, 4, calls.Load())
}

func TestRateLimitWaitsForReset(t *testing.T) {
	reset := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "1")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		_, _ = w.Write([]byte(`{"number":1}`))
	})
	c.now = func() time.Time { return reset.Add(-30 * time.Second) }
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := c.CreateIssue(context.Background(), Issue{Title: "first"})
	require.NoError(t, err)
	assert.Empty(t, slept)

	_, err = c.CreateIssue(context.Background(), Issue{Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, slept)
}

type fakeTracker struct {
	created []Issue
	fail    map[string]bool
	dryRun  bool
}

func (f *fakeTracker) CreateIssue(_ context.Context, issue Issue) (*int, error) {
	if f.fail[issue.Title] {
		return nil, errors.New("boom")
	}
	f.created = append(f.created, issue)
	if f.dryRun {
		return nil, nil
	}
	n := len(f.created)
	return &n, nil
}

func TestCreateBatchKeepsOrder(t *testing.T) {
	ft := &fakeTracker{fail: map[string]bool{"b": true}}
	res := CreateBatch(context.Background(), ft, []Issue{{Title: "a"}, {Title: "b"}, {Title: "c"}}, time.Millisecond, nil)
	require.Len(t, res, 3)
	assert.Equal(t, 1, *res[0].Number)
	assert.Error(t, res[1].Err)
	assert.Equal(t, 2, *res[2].Number)
}

func TestCreateBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := CreateBatch(ctx, &fakeTracker{}, []Issue{{Title: "a"}, {Title: "b"}}, time.Hour, nil)
	for _, r := range res {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestFormatting(t *testing.T) {
	it := article.Item{Title: "Trunk based development", URL: "https://x/1", Source: "Blog", Category: article.DevOps, Summary: "Merge often."}
	assert.Equal(t, "[DevOps] Trunk based development", Title(it))
	assert.Equal(t, []string{"draft", "devops"}, Labels(it))
	assert.Equal(t, []string{"draft", "uncategorized"}, Labels(article.Item{}))

	body := Body(it, []string{"Shorten branches"})
	assert.Contains(t, body, "### Summary\n\nMerge often.")
	assert.Contains(t, body, "- Shorten branches")
	assert.Contains(t, body, "Labels: draft, devops")
	assert.Contains(t, Body(article.Item{}, nil), "(summary pending)")

	items := []article.Item{it, {Title: "Second"}, {Title: "Third"}, {Title: "Fourth"}}
	assert.Equal(t, "[DevOps] Topic roundup: Trunk based development; Second; Third", GroupTitle(items))
	assert.Equal(t, "[Draft] Untitled Group", GroupTitle(nil))

	group := GroupBody(items, nil)
	assert.Contains(t, group, "### Combined Summary\n\n- Merge often.\n\n- (summary pending)")
	assert.Contains(t, group, "### Impact to teams\n\n- TBD")
	assert.Contains(t, group, "- [Trunk based development](https://x/1) (Blog)")
	assert.Contains(t, group, "#### Second\nCategory: -")
	assert.Contains(t, group, "Labels: draft, devops")
}

type staticImpact []string

func (s staticImpact) ImpactPoints(context.Context, string) []string { return s }

func scored(title, url string, cat article.Category, s float64) score.Scored {
	return score.Scored{Article: article.Item{Title: title, URL: url, Category: cat, Summary: title + "."}, Score: s}
}

func TestPipelineRun(t *testing.T) {
	history := storage.NewIssueHistory(filepath.Join(t.TempDir(), "history.json"), nil)
	require.NoError(t, history.Load())

	ranked := []score.Scored{
		scored("Kubernetes operators explained", "https://a/1", article.ArchitectureInfra, 0.9),
		scored("Kubernetes operators explained again", "https://a/2", article.ArchitectureInfra, 0.85),
		scored("Retrospective formats", "https://b/1", article.Agile, 0.8),
		scored("Low priority", "https://c/1", article.Leadership, 0.5),
	}
	ft := &fakeTracker{}
	p := NewPipeline(ft, history, staticImpact{"Review operator usage"}, PipelineConfig{MinScore: 0.7, GroupMaxItems: 4}, nil)

	rep, err := p.Run(context.Background(), ranked)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Candidates)
	assert.Equal(t, 2, rep.Groups)
	assert.Equal(t, 2, rep.Created)
	require.Len(t, ft.created, 2)
	assert.Contains(t, ft.created[0].Title, "Topic roundup: Kubernetes operators explained; Kubernetes operators explained again")
	assert.Contains(t, ft.created[0].Body, "- Review operator usage")
	assert.Equal(t, []string{"draft", "architecture"}, ft.created[0].Labels)
	assert.Len(t, history.Records(), 2)

	again, err := p.Run(context.Background(), ranked)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Zero(t, again.Created)
	assert.Len(t, ft.created, 2)
}

func TestPipelineRecordsOnlyCreatedIssues(t *testing.T) {
	history := storage.NewIssueHistory(filepath.Join(t.TempDir(), "history.json"), nil)
	ranked := []score.Scored{
		scored("Alpha platform migration", "https://a", article.DevOps, 0.9),
		scored("Beta leadership coaching", "https://b", article.Leadership, 0.9),
	}
	first := GroupTitle([]article.Item{ranked[0].Article})
	ft := &fakeTracker{fail: map[string]bool{first: true}}

	rep, err := NewPipeline(ft, history, nil, PipelineConfig{MinScore: 0.7, GroupMaxItems: 2}, nil).Run(context.Background(), ranked)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Created)

	records := history.Records()
	require.Len(t, records, 1)
	assert.True(t, history.HasSeen([]article.Item{ranked[1].Article}))
	assert.False(t, history.HasSeen([]article.Item{ranked[0].Article}))
}

func TestPipelineDryRunDoesNotRecord(t *testing.T) {
	history := storage.NewIssueHistory(filepath.Join(t.TempDir(), "history.json"), nil)
	ft := &fakeTracker{dryRun: true}
	rep, err := NewPipeline(ft, history, nil, DefaultPipelineConfig(), nil).Run(context.Background(),
		[]score.Scored{scored("Gamma incident review", "https://g", article.DevOps, 0.95)})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)
	assert.Empty(t, history.Records())
}
