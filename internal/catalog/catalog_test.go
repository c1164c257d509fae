package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripline/internal/catalog"
	"tripline/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func TestEmptyFiltersReturnUniverseCapped(t *testing.T) {
	s := catalog.Default()
	all := s.Filter(catalog.Filters{})
	assert.Equal(t, s.Len(), len(all))
	assert.Greater(t, s.Len(), catalog.DefaultLimit)
	assert.Len(t, s.Search(catalog.Filters{}), catalog.DefaultLimit)
	assert.Equal(t, domain.IDs(all[:catalog.DefaultLimit]), domain.IDs(s.Search(catalog.Filters{})))
}

func TestFiltersAreConjunctive(t *testing.T) {
	s := catalog.Default()
	got := catalog.Of[domain.Property](s.Search(catalog.Filters{
		Kind:      domain.KindProperty,
		MinPrice:  ptr(80),
		MaxPrice:  ptr(180),
		MinRating: ptr(4.8),
	}))
	ids := domain.IDs(got)
	assert.ElementsMatch(t, []string{"cozy-downtown-apartment", "charming-cottage-retreat", "trastevere-apartment"}, ids)
	for _, p := range got {
		assert.GreaterOrEqual(t, p.Price, 80.0)
		assert.LessOrEqual(t, p.Price, 180.0)
		assert.GreaterOrEqual(t, p.Rating, 4.8)
	}
}

func TestPriceBoundsAreInclusive(t *testing.T) {
	s := catalog.Default()
	got := s.Search(catalog.Filters{Kind: domain.KindProperty, MinPrice: ptr(85), MaxPrice: ptr(85)})
	require.Len(t, got, 1)
	assert.Equal(t, "cozy-downtown-apartment", got[0].Info().ID)
}

func TestCityFilter(t *testing.T) {
	s := catalog.Default()
	dests := s.Search(catalog.Filters{Kind: domain.KindDestination, City: "paris"})
	assert.Equal(t, []string{"paris"}, domain.IDs(dests))

	byCountry := s.Search(catalog.Filters{Kind: domain.KindDestination, City: "Italy"})
	assert.Equal(t, []string{"rome", "florence", "venice"}, domain.IDs(byCountry))

	props := s.Search(catalog.Filters{Kind: domain.KindProperty, City: "Paris"})
	ids := domain.IDs(props)
	assert.Contains(t, ids, "montmartre-studio")
	assert.Contains(t, ids, "cozy-downtown-apartment")
	assert.NotContains(t, ids, "trastevere-apartment")
}

func TestTypeAndActivityFilters(t *testing.T) {
	s := catalog.Default()
	rooms := s.Search(catalog.Filters{Type: "private room"})
	assert.Equal(t, []string{"budget-private-room"}, domain.IDs(rooms))

	whales := s.Search(catalog.Filters{Activities: []domain.ActivityTag{domain.ActivityWhales}})
	for _, c := range whales {
		assert.True(t, c.Info().HasActivity(domain.ActivityWhales))
	}
	assert.Contains(t, domain.IDs(whales), "monterey")

	either := s.Search(catalog.Filters{Kind: domain.KindDestination, Activities: []domain.ActivityTag{domain.ActivityWhales, domain.ActivityMountains}})
	assert.Equal(t, []string{"monterey", "reykjavik", "queenstown"}, domain.IDs(either))
}

func TestFilterIsPure(t *testing.T) {
	s := catalog.Default()
	f := catalog.Filters{Kind: domain.KindExperience}
	first := s.Search(f)
	first[0] = nil
	again := s.Search(f)
	require.NotNil(t, again[0])
	assert.Equal(t, "city-walking-tour", again[0].Info().ID)
}

func TestGet(t *testing.T) {
	s := catalog.Default()
	c, err := s.Get("sakura-sushi")
	require.NoError(t, err)
	r, ok := c.(domain.Restaurant)
	require.True(t, ok)
	assert.Equal(t, "Japanese", r.Cuisine)
	assert.Equal(t, "$$$", r.PriceTier)

	_, err = s.Get("nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLoadRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()
	dup := filepath.Join(dir, "dup.yml")
	require.NoError(t, os.WriteFile(dup, []byte("destinations:\n  - id: a\n    name: A\n  - id: a\n    name: B\n"), 0o644))
	_, err := catalog.Load(dup, 5)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("experiences:\n  - id: x\n    activities: [knitting]\n"), 0o644))
	_, err = catalog.Load(bad, 5)
	assert.Error(t, err)

	ok := filepath.Join(dir, "ok.yml")
	require.NoError(t, os.WriteFile(ok, []byte("restaurants:\n  - id: r1\n    name: R\n  - id: r2\n    name: S\n"), 0o644))
	s, err := catalog.Load(ok, 1)
	require.NoError(t, err)
	assert.Len(t, s.Search(catalog.Filters{}), 1)
}
