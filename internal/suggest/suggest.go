// Package suggest proposes destinations for a trip request, asking the
// language model first and falling back to curated catalog picks.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"tripline/internal/catalog"
	"tripline/internal/domain"
	"tripline/internal/llm"
	"tripline/internal/scoring"
)

type Suggester struct {
	LLM     llm.Completer
	Catalog *catalog.Store
	Logger  *log.Logger
	Timeout time.Duration
	// Count is how many destinations to return; 3 when unset.
	Count int
}

func (s Suggester) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s Suggester) count() int {
	if s.Count > 0 {
		return s.Count
	}
	return 3
}

// Destinations always returns up to Count candidates.
func (s Suggester) Destinations(ctx context.Context, wishes domain.Wishes, in domain.Intent) []domain.Destination {
	if s.LLM != nil {
		out, err := s.ask(ctx, wishes)
		if err == nil {
			return out
		}
		if !errors.Is(err, llm.ErrDisabled) {
			s.logger().Printf("[suggest] using curated destinations: %v", err)
		}
	}
	return s.Fallback(wishes, in)
}

const systemPrompt = `You are a travel expert. Reply ONLY with a JSON array of destination objects:
[{"name":"City","country":"Country","description":"one sentence","best_time":"months","avg_temp":"range in °C",
  "activities":["whales","mountains","beaches","culture","food","adventure","nightlife","family"]}]`

func (s Suggester) ask(ctx context.Context, w domain.Wishes) ([]domain.Destination, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	prompt := fmt.Sprintf("Suggest exactly %d destinations for this request. %s", s.count(), w.Query())
	text, err := s.LLM.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return s.decode(text)
}

type rawDestination struct {
	Name        string   `json:"name"`
	Country     string   `json:"country"`
	Description string   `json:"description"`
	BestTime    string   `json:"best_time"`
	AvgTemp     string   `json:"avg_temp"`
	Activities  []string `json:"activities"`
}

func (s Suggester) decode(text string) ([]domain.Destination, error) {
	body, ok := llm.ExtractJSON(text)
	if !ok || !strings.HasPrefix(body, "[") {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	var raw []rawDestination
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode destinations: %w", err)
	}
	var out []domain.Destination
	seen := map[string]bool{}
	for _, r := range raw {
		city, country := splitName(r.Name, r.Country)
		if city == "" {
			return nil, fmt.Errorf("destination without a name")
		}
		d := s.known(city)
		if d == nil {
			d = &domain.Destination{
				Listing:  domain.Listing{ID: Slug(city), Name: city, City: city, Country: country, Description: strings.TrimSpace(r.Description)},
				BestTime: r.BestTime,
				AvgTemp:  r.AvgTemp,
			}
			for _, a := range r.Activities {
				if tag := domain.ActivityTag(strings.ToLower(strings.TrimSpace(a))); tag.Valid() {
					d.Activities = append(d.Activities, tag)
				}
			}
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, *d)
		if len(out) == s.count() {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("model suggested no destinations")
	}
	return out, nil
}

// known returns the catalog entry for city, so prices and ratings come from the store.
func (s Suggester) known(city string) *domain.Destination {
	if s.Catalog == nil {
		return nil
	}
	for _, d := range catalog.Of[domain.Destination](s.Catalog.Filter(catalog.Filters{Kind: domain.KindDestination, City: city})) {
		if strings.EqualFold(d.City, city) {
			return &d
		}
	}
	return nil
}

// Fallback picks destinations in a country named in the request, then ones
// matching the requested activities, then the featured set.
func (s Suggester) Fallback(w domain.Wishes, in domain.Intent) []domain.Destination {
	if s.Catalog == nil {
		return nil
	}
	all := catalog.Of[domain.Destination](s.Catalog.Filter(catalog.Filters{Kind: domain.KindDestination}))
	input := strings.ToLower(w.DestinationInput)

	var picks []domain.Destination
	for _, d := range all {
		if d.Country != "" && containsWord(input, strings.ToLower(d.Country)) {
			picks = append(picks, d)
		}
	}
	if len(picks) == 0 && len(in.Activities) > 0 {
		matching := catalog.Of[domain.Destination](s.Catalog.Filter(catalog.Filters{Kind: domain.KindDestination, Activities: in.Activities}))
		picks = scoring.Rank(matching, domain.Preferences{Activities: in.Activities}, 0)
	}
	if len(picks) == 0 {
		for _, d := range all {
			if d.Featured {
				picks = append(picks, d)
			}
		}
	}
	if len(picks) > s.count() {
		picks = picks[:s.count()]
	}
	return picks
}

func splitName(name, country string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		if country == "" {
			country = strings.TrimSpace(name[i+1:])
		}
		name = strings.TrimSpace(name[:i])
	}
	return name, strings.TrimSpace(country)
}

// containsWord reports whether word occurs in text between non-word bytes.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(word)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug makes an id from a display name.
func Slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
