// Package intent turns a free-text travel request into a structured domain.Intent.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tripline/internal/domain"
	"tripline/internal/llm"
)

const (
	SourceLLM      = "llm"
	SourceKeywords = "keywords"
)

// Cache remembers language-model results by query.
type Cache interface {
	Get(ctx context.Context, query string) (domain.Intent, bool, error)
	Set(ctx context.Context, query string, in domain.Intent) error
}

// Parser extracts intents. The zero value uses keyword matching only.
type Parser struct {
	LLM     llm.Completer
	Cache   Cache
	Logger  *log.Logger
	Timeout time.Duration
}

func (p Parser) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

// Parse never fails: any problem with the language-model path is logged and
// the keyword fallback is returned instead.
func (p Parser) Parse(ctx context.Context, query string) domain.Intent {
	if p.LLM == nil {
		return Fallback(query)
	}
	if p.Cache != nil {
		in, ok, err := p.Cache.Get(ctx, query)
		if err != nil {
			p.logger().Printf("[intent] cache read: %v", err)
		} else if ok {
			return in
		}
	}
	in, err := p.primary(ctx, query)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			p.logger().Printf("[intent] falling back to keywords: %v", err)
		}
		return Fallback(query)
	}
	if p.Cache != nil {
		if err := p.Cache.Set(ctx, query, in); err != nil {
			p.logger().Printf("[intent] cache write: %v", err)
		}
	}
	return in
}

func (p Parser) primary(ctx context.Context, query string) (domain.Intent, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	text, err := p.LLM.Complete(ctx, systemPrompt, query)
	if err != nil {
		return domain.Intent{}, err
	}
	return Decode(text)
}

const systemPrompt = `You extract travel intents. Reply ONLY with a JSON object of the form
{"activities":["whales","mountains","beaches","culture","food","adventure","nightlife","family"],
 "location":"string or null","budget":number or null,
 "dates":{"start":"YYYY-MM-DD","end":"YYYY-MM-DD"} or null,"group_size":integer}
Only use activity values from the list above.`

type rawIntent struct {
	Activities []string `json:"activities"`
	Location   *string  `json:"location"`
	Budget     *float64 `json:"budget"`
	Dates      *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"dates"`
	GroupSize *int `json:"group_size"`
}

// Decode validates model output against the intent shape. Unknown activity
// tags are dropped; a missing group size means one traveller.
func Decode(text string) (domain.Intent, error) {
	body, ok := llm.ExtractJSON(text)
	if !ok || !strings.HasPrefix(body, "{") {
		return domain.Intent{}, fmt.Errorf("no JSON object in model output")
	}
	var raw rawIntent
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return domain.Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	in := domain.Intent{Activities: []domain.ActivityTag{}, GroupSize: 1, Source: SourceLLM}
	seen := map[domain.ActivityTag]bool{}
	for _, a := range raw.Activities {
		tag := domain.ActivityTag(strings.ToLower(strings.TrimSpace(a)))
		if tag.Valid() && !seen[tag] {
			seen[tag] = true
			in.Activities = append(in.Activities, tag)
		}
	}
	if raw.Location != nil {
		if loc := strings.TrimSpace(*raw.Location); loc != "" {
			in.Location = &loc
		}
	}
	if raw.Budget != nil {
		if *raw.Budget < 0 {
			return domain.Intent{}, fmt.Errorf("negative budget %v", *raw.Budget)
		}
		b := *raw.Budget
		in.Budget = &b
	}
	if raw.Dates != nil {
		start, err := time.Parse("2006-01-02", raw.Dates.Start)
		if err != nil {
			return domain.Intent{}, fmt.Errorf("dates.start: %w", err)
		}
		end, err := time.Parse("2006-01-02", raw.Dates.End)
		if err != nil {
			return domain.Intent{}, fmt.Errorf("dates.end: %w", err)
		}
		if end.Before(start) {
			return domain.Intent{}, fmt.Errorf("dates end before start")
		}
		in.Dates = &domain.DateRange{Start: start, End: end}
	}
	if raw.GroupSize != nil {
		if *raw.GroupSize < 1 {
			return domain.Intent{}, fmt.Errorf("group_size must be at least 1, got %d", *raw.GroupSize)
		}
		in.GroupSize = *raw.GroupSize
	}
	return in, nil
}
