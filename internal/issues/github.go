// Package issues turns prioritized items into draft GitHub issues.
package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/deusflow/curator/internal/retry"
)

// ErrRetriesExhausted is returned when every attempt to create an issue
// failed with a retryable error.
var ErrRetriesExhausted = errors.New("issue creation retries exhausted")

// APIError is a non-2xx response from the tracker API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error %d: %s", e.Status, e.Message)
}

// Retryable reports whether the status is worth another attempt. Validation
// failures and missing repositories are not.
func (e *APIError) Retryable() bool {
	return e.Status != http.StatusUnprocessableEntity && e.Status != http.StatusNotFound
}

// Issue is a request to open one issue.
type Issue struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// Tracker creates issues. A nil number with a nil error means the issue was
// not really created, as in dry-run mode.
type Tracker interface {
	CreateIssue(ctx context.Context, issue Issue) (*int, error)
}

type GitHubOptions struct {
	Token      string
	Repository string // owner/name
	BaseURL    string
	DryRun     bool
	Retry      retry.Config
	Logger     *slog.Logger
}

// DefaultGitHubRetry makes four attempts, waiting 1.5^n seconds between them.
func DefaultGitHubRetry() retry.Config {
	return retry.Config{MaxAttempts: 4, Delay: time.Second, Multiplier: 1.5}
}

type GitHubClient struct {
	http    *http.Client
	baseURL string
	repo    string
	dryRun  bool
	retry   retry.Config
	logger  *slog.Logger

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

var _ Tracker = (*GitHubClient)(nil)

func NewGitHubClient(ctx context.Context, opts GitHubOptions) (*GitHubClient, error) {
	if !opts.DryRun {
		if opts.Token == "" {
			return nil, errors.New("github token is required unless dry-run is enabled")
		}
		if !strings.Contains(opts.Repository, "/") {
			return nil, fmt.Errorf("github repository must look like owner/name, got %q", opts.Repository)
		}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.github.com"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultGitHubRetry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if opts.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, src)
		httpClient.Timeout = 30 * time.Second
	}

	return &GitHubClient{
		http:      httpClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		repo:      opts.Repository,
		dryRun:    opts.DryRun,
		retry:     opts.Retry,
		logger:    logger.With("component", "github"),
		remaining: -1,
		now:       time.Now,
		sleep:     sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type createdIssue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// CreateIssue opens issue in the configured repository and returns its
// number. Labels default to "draft".
func (c *GitHubClient) CreateIssue(ctx context.Context, issue Issue) (*int, error) {
	if len(issue.Labels) == 0 {
		issue.Labels = []string{"draft"}
	}
	if c.dryRun {
		c.logger.Info("[DRY-RUN] would create issue", "title", issue.Title, "labels", issue.Labels)
		return nil, nil
	}

	payload, err := json.Marshal(issue)
	if err != nil {
		return nil, fmt.Errorf("marshal issue: %w", err)
	}

	created, err := retry.Do(ctx, c.retry, func() (createdIssue, error) {
		if err := c.waitForRateLimit(ctx); err != nil {
			return createdIssue{}, retry.Permanent(err)
		}
		out, err := c.post(ctx, payload)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return out, retry.Permanent(err)
		}
		if err != nil {
			c.logger.Warn("create issue attempt failed", "title", issue.Title, "error", err)
		}
		return out, err
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			c.logger.Error("github rejected issue", "status", apiErr.Status, "title", issue.Title)
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}

	c.logger.Info("created github issue", "number", created.Number, "url", created.HTMLURL)
	return &created.Number, nil
}

func (c *GitHubClient) post(ctx context.Context, payload []byte) (createdIssue, error) {
	var out createdIssue
	url := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()
	c.trackRateLimit(resp.Header)

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return out, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func (c *GitHubClient) trackRateLimit(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = remaining
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		c.resetAt = time.Unix(reset, 0)
	}
}

// waitForRateLimit sleeps until the reset time once the remaining quota is
// down to its last request.
func (c *GitHubClient) waitForRateLimit(ctx context.Context) error {
	c.mu.Lock()
	remaining, resetAt := c.remaining, c.resetAt
	c.mu.Unlock()
	if remaining < 0 || remaining > 1 {
		return nil
	}
	wait := resetAt.Sub(c.now())
	if wait <= 0 {
		return nil
	}
	c.logger.Info("github rate limit reached, sleeping until reset", "wait", wait.Round(time.Second))
	if err := c.sleep(ctx, wait); err != nil {
		return err
	}
	c.mu.Lock()
	c.remaining = -1
	c.mu.Unlock()
	return nil
}
