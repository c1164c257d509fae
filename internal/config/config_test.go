package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripline/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Planner.Nights)
	assert.Equal(t, 50.0, cfg.Planner.RestaurantEstimate)
	assert.Equal(t, 100.0, cfg.Planner.LocalTransport)
	assert.Equal(t, "2:30 PM", cfg.Planner.ArrivalTime)
	assert.Equal(t, 20, cfg.Catalog.SearchLimit)
	assert.Equal(t, 25*time.Second, cfg.LLM.Timeout.Duration)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Duration)
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := config.FromYAML([]byte("planner:\n  nights: 5\nllm:\n  provider: gemini\n  model: gemini-2.0-flash\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Planner.Nights)
	assert.Equal(t, 3, cfg.Planner.DestinationCandidates)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 25*time.Second, cfg.LLM.Timeout.Duration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"nights":   "planner:\n  nights: 0\n",
		"arrival":  "planner:\n  arrival_time: \"half past two\"\n",
		"provider": "llm:\n  provider: llama\n",
		"timeout":  "llm:\n  timeout: soon\n",
		"limit":    "catalog:\n  search_limit: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := config.ParseClock("2:30 PM")
	require.NoError(t, err)
	assert.Equal(t, 14*60+30, m)
	m, err = config.ParseClock("6:00 PM")
	require.NoError(t, err)
	assert.Equal(t, 18*60, m)
	_, err = config.ParseClock("18h")
	assert.Error(t, err)
}

func TestLoadOptionalAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Planner.Nights)

	_, err = config.Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tripline.yml"), []byte(config.GenerateDefault()), 0o644))
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}
