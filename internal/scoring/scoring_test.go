package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tripline/internal/domain"
	"tripline/internal/scoring"
)

func exp(id string, price, rating float64, tags ...domain.ActivityTag) domain.Experience {
	return domain.Experience{Listing: domain.Listing{ID: id, Name: id, Price: price, Rating: rating, Activities: tags}}
}

func budget(v float64) *float64 { return &v }

func TestScoreTerms(t *testing.T) {
	prefs := domain.Preferences{
		Activities: []domain.ActivityTag{domain.ActivityFood, domain.ActivityCulture},
		Budget:     budget(50),
	}
	assert.Equal(t, 2*2+1+4.5, scoring.Score(exp("a", 40, 4.5, domain.ActivityFood, domain.ActivityCulture), prefs))
	assert.Equal(t, 2+0+4.0, scoring.Score(exp("b", 60, 4.0, domain.ActivityFood), prefs))
	assert.Equal(t, 1+3.0, scoring.Score(exp("c", 50, 3.0), prefs), "price equal to budget counts")
	assert.Equal(t, 3.0, scoring.Score(exp("d", 10, 3.0), domain.Preferences{}), "no prefs means rating only")
}

func TestScoreUsesBudgetRange(t *testing.T) {
	prefs := domain.Preferences{BudgetRange: "$500-$1500"}
	assert.Equal(t, 1+4.0, scoring.Score(exp("a", 1500, 4.0), prefs))
	assert.Equal(t, 4.0, scoring.Score(exp("b", 1501, 4.0), prefs))
	open := domain.Preferences{BudgetRange: "$10,000+"}
	assert.Equal(t, 4.0, scoring.Score(exp("c", 1, 4.0), open))
}

func TestScoreMonotonicInOverlap(t *testing.T) {
	prefs := domain.Preferences{Activities: []domain.ActivityTag{domain.ActivityFood, domain.ActivityCulture, domain.ActivityBeaches}}
	prev := -1.0
	tags := []domain.ActivityTag{}
	for _, next := range append([]domain.ActivityTag{""}, prefs.Activities...) {
		if next != "" {
			tags = append(tags, next)
		}
		s := scoring.Score(exp("x", 10, 4.2, tags...), prefs)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
	two := scoring.Score(exp("x", 10, 4.2, domain.ActivityFood, domain.ActivityCulture), prefs)
	one := scoring.Score(exp("x", 10, 4.2, domain.ActivityFood), prefs)
	assert.GreaterOrEqual(t, two, one)
}

func TestDuplicatePreferencesDoNotInflateOverlap(t *testing.T) {
	prefs := domain.Preferences{Activities: []domain.ActivityTag{domain.ActivityFood, domain.ActivityFood}}
	assert.Equal(t, 1, scoring.Overlap(exp("x", 0, 0, domain.ActivityFood), prefs))
}

func TestRankIsStableAndTruncates(t *testing.T) {
	in := []domain.Experience{
		exp("tie-1", 10, 4.0),
		exp("best", 10, 4.0, domain.ActivityFood),
		exp("tie-2", 10, 4.0),
		exp("low", 10, 1.0),
		exp("tie-3", 10, 4.0),
	}
	prefs := domain.Preferences{Activities: []domain.ActivityTag{domain.ActivityFood}}
	got := scoring.Rank(in, prefs, 0)
	assert.Equal(t, []string{"best", "tie-1", "tie-2", "tie-3", "low"}, domain.IDs(got))
	assert.Equal(t, "tie-1", in[0].ID, "input untouched")

	top := scoring.Rank(in, prefs, 3)
	assert.Equal(t, []string{"best", "tie-1", "tie-2"}, domain.IDs(top))
}

func TestRecommendCarriesScores(t *testing.T) {
	cs := []domain.Candidate{exp("a", 10, 3.0), exp("b", 10, 4.0)}
	recs := scoring.Recommend(cs, domain.Preferences{}, 10)
	assert.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].Candidate.Info().ID)
	assert.Equal(t, 4.0, recs[0].Score)
}
