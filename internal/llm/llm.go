// Package llm talks to hosted language models. Callers treat the returned text
// as opaque and parse it themselves.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripline/internal/config"
)

var (
	// ErrDisabled is returned when no provider is configured.
	ErrDisabled = errors.New("language model disabled")
	// ErrRateLimited is returned by Limited when no request budget is left.
	ErrRateLimited = errors.New("language model rate limit exceeded")
	// ErrEmptyResponse is returned when the provider answered without content.
	ErrEmptyResponse = errors.New("language model returned no content")
)

// Completer sends a system and user prompt and returns the raw model text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Disabled always fails, which routes every caller to its fallback.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

// New builds the completer named by cfg.Provider, rate limited per cfg.RequestsPerMinute.
func New(ctx context.Context, cfg config.LLM, apiKey string) (Completer, error) {
	var c Completer
	switch cfg.Provider {
	case "", "none":
		return Disabled{}, nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("llm provider openai requires an api key")
		}
		c = NewOpenAI(cfg.Endpoint, apiKey, cfg.Model, cfg.Timeout.Duration)
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("llm provider gemini requires an api key")
		}
		g, err := NewGemini(ctx, apiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if cfg.RequestsPerMinute > 0 {
		c = NewLimited(c, cfg.RequestsPerMinute, time.Minute)
	}
	return c, nil
}

// ExtractJSON trims markdown fences and surrounding prose, returning the
// outermost JSON object or array in s.
func ExtractJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	open := strings.IndexAny(s, "{[")
	if open < 0 {
		return "", false
	}
	closer := byte('}')
	if s[open] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= open {
		return "", false
	}
	return s[open : end+1], true
}
