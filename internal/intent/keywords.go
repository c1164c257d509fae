package intent

import (
	"strings"

	"tripline/internal/domain"
)

// Keywords maps each tag to the phrases that imply it. Matching is a
// case-insensitive substring test, so "whale" also catches "whales".
var Keywords = map[domain.ActivityTag][]string{
	domain.ActivityWhales:    {"whale", "whale watching", "marine life", "ocean tours", "coastal"},
	domain.ActivityMountains: {"mountain", "hiking", "skiing", "mountain views", "alpine"},
	domain.ActivityBeaches:   {"beach", "swimming", "surfing", "coastal"},
	domain.ActivityCulture:   {"culture", "museums", "historic sites", "art galleries", "cultural"},
	domain.ActivityFood:      {"food", "restaurants", "local cuisine", "food tours", "culinary"},
	domain.ActivityAdventure: {"adventure", "extreme sports", "adventure tours", "outdoor activities"},
	domain.ActivityNightlife: {"nightlife", "bars", "clubs", "entertainment"},
	domain.ActivityFamily:    {"family", "family-friendly", "kids activities", "theme parks"},
}

// Fallback is the deterministic keyword reading of query. It has no location,
// budget or dates and always one traveller.
func Fallback(query string) domain.Intent {
	q := strings.ToLower(query)
	in := domain.Intent{Activities: []domain.ActivityTag{}, GroupSize: 1, Source: SourceKeywords}
	for _, tag := range domain.KnownActivities {
		for _, kw := range Keywords[tag] {
			if strings.Contains(q, kw) {
				in.Activities = append(in.Activities, tag)
				break
			}
		}
	}
	return in
}
