package catalog

import (
	"strings"

	"tripline/internal/domain"
)

// Filters are ANDed together. Zero-valued fields do not constrain.
type Filters struct {
	Kind domain.Kind
	// City matches a substring of the city or country. Listings without a
	// city are available everywhere and always match.
	City      string
	MinPrice  *float64
	MaxPrice  *float64
	Type      string
	MinRating *float64
	// Activities matches when the candidate has any of them.
	Activities []domain.ActivityTag
}

// TypeOf is the variant-specific type used by the Type filter: room type,
// cuisine, experience category, or country for destinations.
func TypeOf(c domain.Candidate) string {
	switch v := c.(type) {
	case domain.Property:
		return v.RoomType
	case domain.Restaurant:
		return v.Cuisine
	case domain.Experience:
		return v.Category
	case domain.Destination:
		return v.Country
	}
	return ""
}

func (f Filters) Match(c domain.Candidate) bool {
	l := c.Info()
	if f.Kind != "" && c.Kind() != f.Kind {
		return false
	}
	if q := fold(f.City); q != "" && l.City != "" {
		if !strings.Contains(fold(l.City), q) && !strings.Contains(fold(l.Country), q) {
			return false
		}
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.Type != "" && !strings.EqualFold(TypeOf(c), strings.TrimSpace(f.Type)) {
		return false
	}
	if f.MinRating != nil && l.Rating < *f.MinRating {
		return false
	}
	if len(f.Activities) > 0 {
		hit := false
		for _, a := range f.Activities {
			if l.HasActivity(a) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
