package suggest_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripline/internal/catalog"
	"tripline/internal/domain"
	"tripline/internal/llm"
	"tripline/internal/suggest"
)

type fixedLLM struct {
	text string
	err  error
}

func (f fixedLLM) Complete(context.Context, string, string) (string, error) { return f.text, f.err }

func newSuggester(c llm.Completer) (suggest.Suggester, *bytes.Buffer) {
	var buf bytes.Buffer
	return suggest.Suggester{LLM: c, Catalog: catalog.Default(), Logger: log.New(&buf, "", 0)}, &buf
}

func TestFallbackByCountry(t *testing.T) {
	s, _ := newSuggester(llm.Disabled{})
	got := s.Destinations(context.Background(), domain.Wishes{DestinationInput: "Somewhere in Italy"}, domain.Intent{})
	assert.Equal(t, []string{"rome", "florence", "venice"}, domain.IDs(got))

	got = s.Destinations(context.Background(), domain.Wishes{DestinationInput: "france"}, domain.Intent{})
	assert.Equal(t, []string{"paris", "nice", "lyon"}, domain.IDs(got))

	got = s.Destinations(context.Background(), domain.Wishes{DestinationInput: "Jerusalem"}, domain.Intent{})
	assert.Equal(t, []string{"paris", "tokyo", "new-york-city"}, domain.IDs(got), "country must match a whole word")
}

func TestFallbackCountryWordBoundaries(t *testing.T) {
	s, _ := newSuggester(llm.Disabled{})
	ctx := context.Background()

	got := s.Destinations(ctx, domain.Wishes{DestinationInput: "New Zealand."}, domain.Intent{})
	assert.Equal(t, []string{"queenstown"}, domain.IDs(got))

	got = s.Destinations(ctx, domain.Wishes{DestinationInput: "india, maybe the beaches"}, domain.Intent{})
	assert.Equal(t, []string{"mumbai", "delhi", "goa"}, domain.IDs(got))

	got = s.Destinations(ctx, domain.Wishes{DestinationInput: "a road trip through Indiana"}, domain.Intent{})
	assert.Equal(t, []string{"paris", "tokyo", "new-york-city"}, domain.IDs(got))
}

func TestFallbackFeaturedForParis(t *testing.T) {
	s, logs := newSuggester(llm.Disabled{})
	got := s.Destinations(context.Background(), domain.Wishes{DestinationInput: "Paris"}, domain.Intent{})
	assert.Equal(t, []string{"paris", "tokyo", "new-york-city"}, domain.IDs(got))
	assert.Empty(t, logs.String())
}

func TestFallbackByActivities(t *testing.T) {
	s, _ := newSuggester(nil)
	in := domain.Intent{Activities: []domain.ActivityTag{domain.ActivityWhales}}
	got := s.Destinations(context.Background(), domain.Wishes{DestinationInput: "somewhere with whales"}, in)
	assert.Equal(t, []string{"reykjavik", "monterey"}, domain.IDs(got))
}

func TestModelSuggestionsPreferCatalogEntries(t *testing.T) {
	text := `Here you go: [{"name":"Rome, Italy","description":"x"},{"name":"Lisbon","country":"Portugal","description":"Hills and trams","best_time":"May","avg_temp":"20°C","activities":["food","surfing","beaches"]},{"name":"Rome"},{"name":"Kyoto, Japan"},{"name":"Oslo"}]`
	s, _ := newSuggester(fixedLLM{text: text})
	got := s.Destinations(context.Background(), domain.Wishes{DestinationInput: "Europe"}, domain.Intent{})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"rome", "lisbon", "kyoto"}, domain.IDs(got))
	assert.Equal(t, 180.0, got[0].Price, "catalog data used for known cities")
	assert.Equal(t, "Portugal", got[1].Country)
	assert.Equal(t, []domain.ActivityTag{domain.ActivityFood, domain.ActivityBeaches}, got[1].Activities)
	assert.Equal(t, "Japan", got[2].Country)
}

func TestModelFailureFallsBack(t *testing.T) {
	cases := map[string]fixedLLM{
		"error":   {err: errors.New("timeout")},
		"object":  {text: `{"name":"Rome"}`},
		"garbage": {text: "Rome is nice"},
		"empty":   {text: "[]"},
		"no name": {text: `[{"description":"nowhere"}]`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			s, logs := newSuggester(c)
			got := s.Destinations(context.Background(), domain.Wishes{DestinationInput: "Paris"}, domain.Intent{})
			assert.Equal(t, []string{"paris", "tokyo", "new-york-city"}, domain.IDs(got))
			assert.Contains(t, logs.String(), "[suggest]")
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "new-york-city", suggest.Slug("New York City"))
	assert.Equal(t, "rio-de-janeiro", suggest.Slug("  Rio de Janeiro! "))
}
