// Package normalize canonicalizes titles and bodies before hashing and
// comparison. Every function is pure and never fails: empty or unusable
// input yields an empty string.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/deusflow/curator/internal/article"
)

// Typographic punctuation folded to ASCII before NFKC.
var punctuation = strings.NewReplacer(
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2013", "-",
	"\u2014", "-",
	"\u00a0", " ",
)

// CleanHTML strips markup and entities and collapses whitespace.
func CleanHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapse(html.UnescapeString(raw))
	}
	doc.Find("script, style, noscript, template").Remove()

	var parts []string
	for _, n := range doc.Selection.Nodes {
		collectText(n, &parts)
	}
	return collapse(html.UnescapeString(strings.Join(parts, "\n")))
}

func collectText(n *xhtml.Node, out *[]string) {
	if n.Type == xhtml.TextNode {
		*out = append(*out, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}

// PlainText applies compatibility normalization, folds curly quotes, dashes
// and non-breaking spaces, removes control characters and collapses
// whitespace. Case is preserved.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimLeft(s, "\ufeff")
	s = punctuation.Replace(s)
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return collapse(s)
}

// Fold is the case-folded comparison view of s.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ContentHash is the sha256 fingerprint of an item's normalized, folded
// title and body.
func ContentHash(title, text string) string {
	sum := sha256.Sum256([]byte(Fold(PlainText(title)) + "\n\n" + Fold(PlainText(text))))
	return hex.EncodeToString(sum[:])
}

// Item returns a normalized copy of it: cleaned body, normalized title and an
// ISO-8601 published date (empty when unparseable).
func Item(it article.Item) article.Item {
	it.RawText = PlainText(CleanHTML(it.RawText))
	it.Title = PlainText(it.Title)
	it.PublishedDate = ParseDate(it.PublishedDate)
	return it
}

// Batch normalizes items in order.
func Batch(items []article.Item) []article.Item {
	out := make([]article.Item, 0, len(items))
	for _, it := range items {
		out = append(out, Item(it))
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

// ParseDate converts a date string in any supported layout to RFC3339 UTC.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
