// Package group clusters items into small topical batches keyed by category
// and the leading keywords of their titles.
package group

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/normalize"
)

const (
	minKeywordLen = 4
	signatureSize = 3
)

// Group is a size-bounded batch of items sharing a topic key.
type Group struct {
	Key      string
	Category article.Category
	Items    []article.Item
}

// Signature lists the distinct significant words of title, lowercased, in
// order of appearance.
func Signature(title string) []string {
	var sig []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(title) {
		w = normalize.Fold(strings.Trim(w, ".,:;!?"))
		if utf8.RuneCountInString(w) < minKeywordLen {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		sig = append(sig, w)
	}
	return sig
}

// Key is the topic key of an item.
func Key(it article.Item) string {
	sig := Signature(it.Title)
	if len(sig) > signatureSize {
		sig = sig[:signatureSize]
	}
	return it.Category.Bucket().String() + "|" + strings.Join(sig, " ")
}

// Related groups items by topic key. Groups never exceed maxPerGroup; extra
// items spill into further groups with the same key. Output is ordered by
// size, largest first, then by first title.
func Related(items []article.Item, maxPerGroup int) []Group {
	maxPerGroup = max(1, maxPerGroup)

	var order []string
	buckets := make(map[string][]article.Item)
	for _, it := range items {
		k := Key(it)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], it)
	}

	var groups []Group
	for _, k := range order {
		members := buckets[k]
		for start := 0; start < len(members); start += maxPerGroup {
			end := min(start+maxPerGroup, len(members))
			groups = append(groups, Group{
				Key:      k,
				Category: members[0].Category.Bucket(),
				Items:    append([]article.Item(nil), members[start:end]...),
			})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Items) != len(groups[j].Items) {
			return len(groups[i].Items) > len(groups[j].Items)
		}
		return firstTitle(groups[i]) < firstTitle(groups[j])
	})
	return groups
}

func firstTitle(g Group) string {
	return strings.Join(strings.Fields(normalize.Fold(g.Items[0].Title)), " ")
}
