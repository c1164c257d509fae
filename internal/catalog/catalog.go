// Package catalog is the read-only candidate store: destinations, properties,
// restaurants and experiences loaded from a YAML seed.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tripline/internal/domain"
)

//go:embed seed.yml
var defaultSeed []byte

// DefaultLimit caps Search results when the store was built without one.
const DefaultLimit = 20

type seed struct {
	Destinations []struct {
		domain.Listing `yaml:",inline"`
		BestTime       string `yaml:"best_time"`
		AvgTemp        string `yaml:"avg_temp"`
		Featured       bool   `yaml:"featured"`
	} `yaml:"destinations"`
	Properties []struct {
		domain.Listing `yaml:",inline"`
		RoomType       string   `yaml:"room_type"`
		Guests         int      `yaml:"guests"`
		Bedrooms       int      `yaml:"bedrooms"`
		Bathrooms      int      `yaml:"bathrooms"`
		Reviews        int      `yaml:"reviews"`
		Amenities      []string `yaml:"amenities"`
		Host           string   `yaml:"host"`
		Superhost      bool     `yaml:"superhost"`
	} `yaml:"properties"`
	Restaurants []struct {
		domain.Listing `yaml:",inline"`
		Cuisine        string   `yaml:"cuisine"`
		PriceTier      string   `yaml:"price_tier"`
		Specialty      string   `yaml:"specialty"`
		Dietary        []string `yaml:"dietary"`
	} `yaml:"restaurants"`
	Experiences []struct {
		domain.Listing `yaml:",inline"`
		Category       string `yaml:"category"`
		Duration       string `yaml:"duration"`
	} `yaml:"experiences"`
}

// Store holds the candidate universe in seed order.
type Store struct {
	items []domain.Candidate
	byID  map[string]domain.Candidate
	limit int
}

// New builds a store over items. A limit below 1 means DefaultLimit.
func New(items []domain.Candidate, limit int) (*Store, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	s := &Store{items: items, byID: make(map[string]domain.Candidate, len(items)), limit: limit}
	for _, c := range items {
		id := c.Info().ID
		if id == "" {
			return nil, fmt.Errorf("catalog: %s %q has no id", c.Kind(), c.Info().Name)
		}
		if _, dup := s.byID[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %s", id)
		}
		for _, a := range c.Info().Activities {
			if !a.Valid() {
				return nil, fmt.Errorf("catalog: %s has unknown activity %q", id, a)
			}
		}
		s.byID[id] = c
	}
	return s, nil
}

// FromYAML parses a seed document.
func FromYAML(data []byte, limit int) (*Store, error) {
	var sd seed
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	var items []domain.Candidate
	for _, d := range sd.Destinations {
		items = append(items, domain.Destination{Listing: d.Listing, BestTime: d.BestTime, AvgTemp: d.AvgTemp, Featured: d.Featured})
	}
	for _, p := range sd.Properties {
		items = append(items, domain.Property{
			Listing: p.Listing, RoomType: p.RoomType, Guests: p.Guests, Bedrooms: p.Bedrooms, Bathrooms: p.Bathrooms,
			Reviews: p.Reviews, Amenities: p.Amenities, Host: p.Host, Superhost: p.Superhost,
		})
	}
	for _, r := range sd.Restaurants {
		items = append(items, domain.Restaurant{Listing: r.Listing, Cuisine: r.Cuisine, PriceTier: r.PriceTier, Specialty: r.Specialty, Dietary: r.Dietary})
	}
	for _, e := range sd.Experiences {
		items = append(items, domain.Experience{Listing: e.Listing, Category: e.Category, Duration: e.Duration})
	}
	return New(items, limit)
}

// Load reads the seed at path, or the embedded seed when path is empty.
func Load(path string, limit int) (*Store, error) {
	if path == "" {
		return FromYAML(defaultSeed, limit)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data, limit)
}

// Default returns the embedded seed. It panics only if the embedded file is broken.
func Default() *Store {
	s, err := FromYAML(defaultSeed, DefaultLimit)
	if err != nil {
		panic(err)
	}
	return s
}

// Get fetches one candidate by id.
func (s *Store) Get(id string) (domain.Candidate, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// Len is the size of the universe.
func (s *Store) Len() int { return len(s.items) }

// Filter returns every candidate matching f, in seed order, without the cap.
// Callers that rank should rank this and truncate themselves.
func (s *Store) Filter(f Filters) []domain.Candidate {
	out := []domain.Candidate{}
	for _, c := range s.items {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Search is Filter capped at the store limit.
func (s *Store) Search(f Filters) []domain.Candidate {
	out := s.Filter(f)
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

// Of narrows candidates to one variant, dropping the others.
func Of[T domain.Candidate](cs []domain.Candidate) []T {
	out := make([]T, 0, len(cs))
	for _, c := range cs {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
