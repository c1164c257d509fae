// Package scoring ranks candidates against traveller preferences with a plain
// weighted sum: activity overlap, budget fit and rating.
package scoring

import (
	"sort"

	"tripline/internal/domain"
)

const (
	OverlapWeight = 2.0
	BudgetBonus   = 1.0
)

// Overlap counts the distinct preferred activities the candidate offers.
func Overlap(c domain.Candidate, prefs domain.Preferences) int {
	l := c.Info()
	n := 0
	seen := map[domain.ActivityTag]bool{}
	for _, a := range prefs.Activities {
		if seen[a] {
			continue
		}
		seen[a] = true
		if l.HasActivity(a) {
			n++
		}
	}
	return n
}

// Score is 2 per overlapping activity, plus 1 when the price is within the
// budget ceiling, plus the rating. Exceeding the budget costs nothing.
func Score(c domain.Candidate, prefs domain.Preferences) float64 {
	l := c.Info()
	s := OverlapWeight * float64(Overlap(c, prefs))
	if ceiling, ok := prefs.BudgetCeiling(); ok && l.Price <= ceiling {
		s += BudgetBonus
	}
	return s + l.Rating
}

// Rank sorts by descending score, keeping input order on ties, and keeps the
// first topN. topN < 1 keeps everything. The input slice is not modified.
func Rank[T domain.Candidate](cs []T, prefs domain.Preferences, topN int) []T {
	type scored struct {
		c T
		s float64
	}
	tmp := make([]scored, len(cs))
	for i, c := range cs {
		tmp[i] = scored{c: c, s: Score(c, prefs)}
	}
	sort.SliceStable(tmp, func(i, j int) bool { return tmp[i].s > tmp[j].s })
	if topN > 0 && len(tmp) > topN {
		tmp = tmp[:topN]
	}
	out := make([]T, len(tmp))
	for i, s := range tmp {
		out[i] = s.c
	}
	return out
}

// Recommendation pairs a candidate with its score for display.
type Recommendation struct {
	Candidate domain.Candidate `json:"candidate"`
	Score     float64          `json:"score"`
}

// Recommend ranks cs and returns the top entries with their scores.
func Recommend(cs []domain.Candidate, prefs domain.Preferences, topN int) []Recommendation {
	ranked := Rank(cs, prefs, topN)
	out := make([]Recommendation, len(ranked))
	for i, c := range ranked {
		out[i] = Recommendation{Candidate: c, Score: Score(c, prefs)}
	}
	return out
}
