// Package translate hands text to the language model for translation. There
// is no fallback: whatever the model or its transport returns goes back to
// the caller.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripline/internal/llm"
)

// DefaultTarget is used when no target language is given.
const DefaultTarget = "en"

var ErrEmptyText = errors.New("text is required")

type Result struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Translator is safe to copy. A nil LLM behaves like llm.Disabled.
type Translator struct {
	LLM     llm.Completer
	Timeout time.Duration
}

const systemPrompt = `You translate travel text. Reply with JSON only:
{"translated_text": "...", "source_language": "<ISO 639-1 code>"}`

func (t Translator) Translate(ctx context.Context, text, target string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyText
	}
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		target = DefaultTarget
	}
	if t.LLM == nil {
		return Result{}, llm.ErrDisabled
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	raw, err := t.LLM.Complete(ctx, systemPrompt, fmt.Sprintf("Target language: %s\nText: %s", target, text))
	if err != nil {
		return Result{}, err
	}
	body, ok := llm.ExtractJSON(raw)
	if !ok {
		return Result{}, fmt.Errorf("translation reply is not JSON: %q", raw)
	}
	var reply struct {
		TranslatedText string `json:"translated_text"`
		SourceLanguage string `json:"source_language"`
	}
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return Result{}, fmt.Errorf("decode translation: %w", err)
	}
	if strings.TrimSpace(reply.TranslatedText) == "" {
		return Result{}, llm.ErrEmptyResponse
	}
	return Result{
		OriginalText:   text,
		TranslatedText: reply.TranslatedText,
		SourceLanguage: strings.ToLower(reply.SourceLanguage),
		TargetLanguage: target,
	}, nil
}
