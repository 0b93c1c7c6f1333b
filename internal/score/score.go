// Package score ranks items by a weighted blend of recency, source
// authority, title specificity and category balance.
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/normalize"
)

const (
	weightRecency   = 0.4
	weightAuthority = 0.3
	weightNovelty   = 0.2
	weightBalance   = 0.1

	// DefaultAuthority applies to sources missing from the authority table.
	DefaultAuthority = 0.6
)

// DefaultAuthorities are the known high-authority sources.
var DefaultAuthorities = map[string]float64{
	"ThoughtWorks Technology Radar": 1.0,
	"Martin Fowler Blog":            0.9,
	"DORA DevOps Blog":              0.85,
}

var balance = map[article.Category]float64{
	article.Agile:             0.9,
	article.DevOps:            0.95,
	article.ArchitectureInfra: 1.0,
	article.Leadership:        0.9,
}

// Scored pairs an item with its composite score. It is never persisted.
type Scored struct {
	Article   article.Item
	Score     float64
	Rationale string
}

// Scorer is a pure function of its inputs and Now.
type Scorer struct {
	HorizonWeeks int
	Authorities  map[string]float64
	Now          func() time.Time
}

func New(horizonWeeks int) *Scorer {
	return &Scorer{
		HorizonWeeks: horizonWeeks,
		Authorities:  DefaultAuthorities,
		Now:          time.Now,
	}
}

// HorizonDays is the recency window, never shorter than a week.
func (s *Scorer) HorizonDays() int {
	return max(7, s.HorizonWeeks*7)
}

// Recency decays linearly from 1.0 for a fresh item to 0.2 at the horizon.
// Undated items score 0.5.
func (s *Scorer) Recency(it article.Item) float64 {
	published, ok := it.Published()
	if !ok {
		return 0.5
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ageDays := int(math.Floor(now().UTC().Sub(published).Hours() / 24))
	if ageDays < 0 {
		ageDays = 0
	}
	horizon := s.HorizonDays()
	if ageDays >= horizon {
		return 0.2
	}
	return 1.0 - (float64(ageDays)/float64(horizon))*0.8
}

func (s *Scorer) Authority(source string) float64 {
	table := s.Authorities
	if table == nil {
		table = DefaultAuthorities
	}
	if v, ok := table[source]; ok {
		return v
	}
	return DefaultAuthority
}

// Novelty favors longer, more specific titles.
func Novelty(title string) float64 {
	return math.Min(1.0, 0.5+float64(len(strings.Fields(title)))/20.0)
}

// Balance nudges the mix toward under-served categories.
func Balance(c article.Category) float64 {
	if c == article.None {
		return 0.6
	}
	if v, ok := balance[c]; ok {
		return v
	}
	return 0.8
}

func (s *Scorer) Score(it article.Item) Scored {
	recency := s.Recency(it)
	authority := s.Authority(it.Source)
	novelty := Novelty(it.Title)
	bal := Balance(it.Category)

	return Scored{
		Article: it,
		Score:   weightRecency*recency + weightAuthority*authority + weightNovelty*novelty + weightBalance*bal,
		Rationale: fmt.Sprintf("recency=%.2f, authority=%.2f, novelty=%.2f, balance=%.2f",
			recency, authority, novelty, bal),
	}
}

// Rank scores items and returns them in rank order. topN <= 0 keeps all.
func (s *Scorer) Rank(items []article.Item, topN int) []Scored {
	out := make([]Scored, 0, len(items))
	for _, it := range items {
		out = append(out, s.Score(it))
	}
	Sort(out)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// Less is the rank order: score descending, then case-folded title and URL
// ascending.
func Less(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	at, bt := normalize.Fold(a.Article.Title), normalize.Fold(b.Article.Title)
	if at != bt {
		return at < bt
	}
	return a.Article.URL < b.Article.URL
}

func Sort(items []Scored) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}

// FilterHighPriority keeps items scoring at least minScore, in order.
func FilterHighPriority(items []Scored, minScore float64) []Scored {
	out := make([]Scored, 0, len(items))
	for _, it := range items {
		if it.Score >= minScore {
			out = append(out, it)
		}
	}
	return out
}

// Articles strips the scores.
func Articles(items []Scored) []article.Item {
	out := make([]article.Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Article)
	}
	return out
}
