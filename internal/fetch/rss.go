package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/config"
)

// RSSFetcher reads RSS, Atom and JSON feeds.
type RSSFetcher struct {
	client *http.Client
}

func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{client: client}
}

func (f *RSSFetcher) Fetch(ctx context.Context, src config.Source) ([]article.Item, error) {
	body, err := get(ctx, f.client, src.URL, src.Headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed %s: %w", src.URL, err)
	}

	items := make([]article.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, fromFeedItem(src, entry))
	}
	return items, nil
}

func fromFeedItem(src config.Source, entry *gofeed.Item) article.Item {
	text := entry.Content
	if strings.TrimSpace(text) == "" {
		text = entry.Description
	}
	published := formatTime(entry.PublishedParsed)
	if published == "" {
		published = formatTime(entry.UpdatedParsed)
	}
	return article.Item{
		Title:         entry.Title,
		URL:           entry.Link,
		Source:        src.Name,
		RawText:       text,
		PublishedDate: published,
	}
}
