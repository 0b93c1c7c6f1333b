package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/normalize"
)

// HTTPFetcher turns a single web page into one item.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src config.Source) ([]article.Item, error) {
	body, err := get(ctx, f.client, src.URL, src.Headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	title := extractTitle(doc)
	if title == "" {
		title = src.Name
	}
	text := extractContent(doc)
	if text == "" {
		text = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	}

	return []article.Item{{
		Title:   title,
		URL:     src.URL,
		Source:  src.Name,
		RawText: text,
	}}, nil
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"title", "h1"} {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

// extractContent reads the text of <main>, falling back to <body>.
func extractContent(doc *goquery.Document) string {
	for _, selector := range []string{"main", "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		html, err := sel.Html()
		if err != nil {
			continue
		}
		if text := normalize.CleanHTML(html); text != "" {
			return text
		}
	}
	return ""
}
