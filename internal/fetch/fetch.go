// Package fetch downloads items from configured RSS feeds and web pages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/config"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

// Fetcher retrieves the current items of one source.
type Fetcher interface {
	Fetch(ctx context.Context, src config.Source) ([]article.Item, error)
}

// Result is the outcome for one source. Err is set when the source failed,
// in which case Items is empty.
type Result struct {
	Source config.Source
	Items  []article.Item
	Err    error
}

type Options struct {
	Concurrency int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Client dispatches each source to the fetcher for its type.
type Client struct {
	fetchers    map[config.SourceType]Fetcher
	concurrency int
	logger      *slog.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: opts.Timeout}
	return NewWithFetchers(map[config.SourceType]Fetcher{
		config.SourceRSS:  NewRSSFetcher(httpClient),
		config.SourceHTTP: NewHTTPFetcher(httpClient),
	}, opts)
}

func NewWithFetchers(fetchers map[config.SourceType]Fetcher, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		fetchers:    fetchers,
		concurrency: max(1, opts.Concurrency),
		logger:      logger.With("component", "fetch"),
	}
}

func (c *Client) Fetch(ctx context.Context, src config.Source) ([]article.Item, error) {
	f, ok := c.fetchers[src.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}
	return f.Fetch(ctx, src)
}

// FetchAll fetches sources with bounded concurrency. Results keep source
// order; a failing source is logged and contributes no items.
func (c *Client) FetchAll(ctx context.Context, sources []config.Source) []Result {
	results := make([]Result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			items, err := c.Fetch(gctx, src)
			if err != nil {
				c.logger.Warn("source fetch failed", "source", src.Name, "url", src.URL, "error", err)
				results[i] = Result{Source: src, Err: err}
				return nil
			}
			c.logger.Info("source fetched", "source", src.Name, "items", len(items))
			results[i] = Result{Source: src, Items: items}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// get performs a GET with the default User-Agent overlaid by headers.
func get(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) (io.ReadCloser, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", rawURL, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL for fetch: %q", rawURL)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
