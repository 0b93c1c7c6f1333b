package dedup

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/deusflow/curator/internal/normalize"
)

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// TitleRatio is the character-level matching-blocks ratio of two titles
// after case folding, in [0,1].
func TitleRatio(a, b string) float64 {
	return difflib.NewMatcher(runes(normalize.Fold(a)), runes(normalize.Fold(b))).Ratio()
}

// titleMatcher compares one candidate title against many stored titles,
// skipping the full ratio when a cheap upper bound is already too low.
type titleMatcher struct {
	m         *difflib.SequenceMatcher
	threshold float64
}

func newTitleMatcher(candidate string, threshold float64) *titleMatcher {
	m := difflib.NewMatcher(nil, nil)
	m.SetSeq1(runes(normalize.Fold(candidate)))
	return &titleMatcher{m: m, threshold: threshold}
}

func (tm *titleMatcher) match(title string) (float64, bool) {
	tm.m.SetSeq2(runes(normalize.Fold(title)))
	if tm.m.RealQuickRatio() < tm.threshold || tm.m.QuickRatio() < tm.threshold {
		return 0, false
	}
	r := tm.m.Ratio()
	return r, r >= tm.threshold
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
