package translate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripline/internal/llm"
	"tripline/internal/translate"
)

type replyLLM struct {
	text string
	err  error
	user string
}

func (r *replyLLM) Complete(_ context.Context, _, user string) (string, error) {
	r.user = user
	return r.text, r.err
}

func TestTranslate(t *testing.T) {
	model := &replyLLM{text: "```json\n{\"translated_text\": \"Où est la gare ?\", \"source_language\": \"EN\"}\n```"}
	res, err := translate.Translator{LLM: model}.Translate(context.Background(), " Where is the station? ", "FR")
	require.NoError(t, err)
	assert.Equal(t, translate.Result{
		OriginalText:   "Where is the station?",
		TranslatedText: "Où est la gare ?",
		SourceLanguage: "en",
		TargetLanguage: "fr",
	}, res)
	assert.Contains(t, model.user, "Target language: fr")
}

func TestTranslateDefaultsToEnglish(t *testing.T) {
	model := &replyLLM{text: `{"translated_text": "Hello", "source_language": "es"}`}
	res, err := translate.Translator{LLM: model}.Translate(context.Background(), "Hola", "")
	require.NoError(t, err)
	assert.Equal(t, "en", res.TargetLanguage)
}

func TestTranslateReturnsUpstreamErrors(t *testing.T) {
	upstream := errors.New("connection reset")
	_, err := translate.Translator{LLM: &replyLLM{err: upstream}}.Translate(context.Background(), "Hola", "en")
	assert.Same(t, upstream, err)

	_, err = translate.Translator{}.Translate(context.Background(), "Hola", "en")
	assert.ErrorIs(t, err, llm.ErrDisabled)

	_, err = translate.Translator{LLM: &replyLLM{text: "sorry, no"}}.Translate(context.Background(), "Hola", "en")
	assert.Error(t, err)

	_, err = translate.Translator{LLM: &replyLLM{text: `{"translated_text": ""}`}}.Translate(context.Background(), "Hola", "en")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	_, err = translate.Translator{LLM: &replyLLM{}}.Translate(context.Background(), "   ", "en")
	assert.ErrorIs(t, err, translate.ErrEmptyText)
}
