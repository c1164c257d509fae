package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripline/internal/config"
	"tripline/internal/llm"
)

func TestOpenAIComplete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"ok\":true}  "}}]}`))
	}))
	defer srv.Close()

	c := llm.NewOpenAI(srv.URL, "k", "gpt-test", time.Second)
	out, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestOpenAIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		case "/garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := llm.NewOpenAI(srv.URL+"/empty", "k", "m", time.Second).Complete(ctx, "", "")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	_, err = llm.NewOpenAI(srv.URL+"/garbage", "k", "m", time.Second).Complete(ctx, "", "")
	assert.Error(t, err)
	_, err = llm.NewOpenAI(srv.URL+"/fail", "k", "m", time.Second).Complete(ctx, "", "")
	assert.Error(t, err)
}

func TestOpenAITimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := llm.NewOpenAI(srv.URL, "k", "m", 50*time.Millisecond).Complete(context.Background(), "", "")
	assert.Error(t, err)
}

type countingCompleter struct{ calls int }

func (c *countingCompleter) Complete(context.Context, string, string) (string, error) {
	c.calls++
	return "ok", nil
}

func TestLimitedRejectsOverBudget(t *testing.T) {
	inner := &countingCompleter{}
	l := llm.NewLimited(inner, 2, time.Hour)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := l.Complete(ctx, "", "")
		require.NoError(t, err)
	}
	_, err := l.Complete(ctx, "", "")
	assert.True(t, errors.Is(err, llm.ErrRateLimited))
	assert.Equal(t, 2, inner.calls)
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()
	c, err := llm.New(ctx, config.LLM{Provider: "none"}, "")
	require.NoError(t, err)
	_, err = c.Complete(ctx, "", "")
	assert.ErrorIs(t, err, llm.ErrDisabled)

	_, err = llm.New(ctx, config.LLM{Provider: "openai"}, "")
	assert.Error(t, err)

	c, err = llm.New(ctx, config.LLM{Provider: "openai", Endpoint: "http://localhost", RequestsPerMinute: 5}, "key")
	require.NoError(t, err)
	_, ok := c.(*llm.Limited)
	assert.True(t, ok)
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"Sure! {\"a\":{\"b\":2}} thanks": `{"a":{"b":2}}`,
		"[1,2,3]":                        `[1,2,3]`,
	}
	for in, want := range cases {
		got, ok := llm.ExtractJSON(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := llm.ExtractJSON("no json here")
	assert.False(t, ok)
}
