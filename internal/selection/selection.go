// Package selection allocates a bounded budget of ranked items across the
// official categories. Each category is capped, and slots a sparse category
// cannot use are refilled from the best remaining items of the others.
package selection

import (
	"fmt"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/score"
)

type Config struct {
	// PerCategoryLimit is the initial share each category takes.
	PerCategoryLimit int

	// CategoryCap is the hard ceiling a category may reach while shortfalls
	// are refilled. Zero means PerCategoryLimit, so no category ever holds
	// more than its share.
	CategoryCap int

	TargetTotal int
}

func DefaultConfig() Config {
	return Config{PerCategoryLimit: 16, TargetTotal: 64}
}

func (c Config) Validate() error {
	if c.PerCategoryLimit < 0 {
		return fmt.Errorf("per-category limit must not be negative, got %d", c.PerCategoryLimit)
	}
	if c.CategoryCap != 0 && c.CategoryCap < c.PerCategoryLimit {
		return fmt.Errorf("category cap %d is below per-category limit %d", c.CategoryCap, c.PerCategoryLimit)
	}
	if c.TargetTotal < 0 {
		return fmt.Errorf("target total must not be negative, got %d", c.TargetTotal)
	}
	return nil
}

// Cap is the effective hard ceiling per category.
func (c Config) Cap() int {
	if c.CategoryCap <= 0 {
		return max(0, c.PerCategoryLimit)
	}
	return c.CategoryCap
}

// Buckets partitions scored items by category. Items without an official
// category go to article.Other.
type Buckets map[article.Category][]score.Scored

// Result maps each official category to its chosen items in rank order.
type Result map[article.Category][]score.Scored

// Total counts selected items across all categories.
func (r Result) Total() int {
	n := 0
	for _, c := range article.Categories {
		n += len(r[c])
	}
	return n
}

// Flatten lists the selection category by category in display order.
func (r Result) Flatten() []score.Scored {
	out := make([]score.Scored, 0, r.Total())
	for _, c := range article.Categories {
		out = append(out, r[c]...)
	}
	return out
}

// Bucket keeps input order within each bucket.
func Bucket(items []score.Scored) Buckets {
	b := make(Buckets)
	for _, it := range items {
		c := it.Article.Category.Bucket()
		b[c] = append(b[c], it)
	}
	return b
}

// SelectTop takes the first limit items of every official category.
func SelectTop(b Buckets, limit int) Result {
	limit = max(0, limit)
	r := make(Result, len(article.Categories))
	for _, c := range article.Categories {
		pool := b[c]
		n := min(limit, len(pool))
		r[c] = append([]score.Scored(nil), pool[:n]...)
	}
	return r
}

// Redistribute fills the shortfall between selected and cfg.TargetTotal
// from the unselected items of all official categories, best first, while
// no category exceeds cfg.Cap(). A selection already above the
// target sheds items from its largest category until it fits.
func Redistribute(b Buckets, selected Result, cfg Config) Result {
	ceiling := cfg.Cap()
	target := max(0, cfg.TargetTotal)

	r := make(Result, len(article.Categories))
	taken := make(map[string]struct{})
	for _, c := range article.Categories {
		r[c] = append([]score.Scored(nil), selected[c]...)
		for _, it := range r[c] {
			taken[it.Article.Key()] = struct{}{}
		}
	}

	total := r.Total()
	if total >= target {
		for ; total > target; total-- {
			shed(r)
		}
		return r
	}

	var pool []score.Scored
	for _, c := range article.Categories {
		for _, it := range b[c] {
			if _, ok := taken[it.Article.Key()]; !ok {
				pool = append(pool, it)
			}
		}
	}
	score.Sort(pool)

	needed := target - total
	for _, it := range pool {
		if needed == 0 {
			break
		}
		c := it.Article.Category
		if len(r[c]) >= ceiling {
			continue
		}
		if _, ok := taken[it.Article.Key()]; ok {
			continue
		}
		r[c] = append(r[c], it)
		taken[it.Article.Key()] = struct{}{}
		needed--
	}
	return r
}

// shed drops the last item of the largest category. Among equally large
// categories the one whose last item ranks lowest loses it.
func shed(r Result) {
	var victim article.Category
	found := false
	for _, c := range article.Categories {
		n := len(r[c])
		if n == 0 {
			continue
		}
		if !found {
			victim, found = c, true
			continue
		}
		vn := len(r[victim])
		if n > vn || (n == vn && score.Less(r[victim][vn-1], r[c][n-1])) {
			victim = c
		}
	}
	if found {
		r[victim] = r[victim][:len(r[victim])-1]
	}
}

// Select ranks items, buckets them, takes the per-category top and
// redistributes any shortfall.
func Select(items []score.Scored, cfg Config) Result {
	ranked := append([]score.Scored(nil), items...)
	score.Sort(ranked)
	b := Bucket(ranked)
	return Redistribute(b, SelectTop(b, cfg.PerCategoryLimit), cfg)
}
