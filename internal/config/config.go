package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models tripline.yml.
type Config struct {
	Planner Planner `yaml:"planner"`
	Catalog struct {
		SearchLimit         int    `yaml:"search_limit"`
		RecommendationLimit int    `yaml:"recommendation_limit"`
		SeedFile            string `yaml:"seed_file"`
	} `yaml:"catalog"`
	LLM   LLM `yaml:"llm"`
	Cache struct {
		RedisAddr string   `yaml:"redis_addr"`
		TTL       Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Server struct {
		AllowedOrigins     []string `yaml:"allowed_origins"`
		RateLimitPerSecond float64  `yaml:"rate_limit_per_second"`
		Burst              int      `yaml:"burst"`
	} `yaml:"server"`
}

// Planner holds the workflow constants: pricing estimates, the fixed travel
// times and how many candidates each stage offers.
type Planner struct {
	Nights                  int     `yaml:"nights"`
	RestaurantEstimate      float64 `yaml:"restaurant_estimate"`
	LocalTransport          float64 `yaml:"local_transport"`
	ArrivalTime             string  `yaml:"arrival_time"`
	DepartureTime           string  `yaml:"departure_time"`
	DestinationCandidates   int     `yaml:"destination_candidates"`
	AccommodationCandidates int     `yaml:"accommodation_candidates"`
	DiningCandidates        int     `yaml:"dining_candidates"`
	ExperienceCandidates    int     `yaml:"experience_candidates"`
}

type LLM struct {
	Provider          string   `yaml:"provider"`
	Endpoint          string   `yaml:"endpoint"`
	Model             string   `yaml:"model"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

// Duration decodes YAML strings such as "25s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	p := c.Planner
	if p.Nights < 1 {
		return fmt.Errorf("config.planner.nights must be at least 1")
	}
	if p.RestaurantEstimate < 0 || p.LocalTransport < 0 {
		return fmt.Errorf("config.planner estimates must not be negative")
	}
	if _, err := ParseClock(p.ArrivalTime); err != nil {
		return fmt.Errorf("config.planner.arrival_time: %w", err)
	}
	if _, err := ParseClock(p.DepartureTime); err != nil {
		return fmt.Errorf("config.planner.departure_time: %w", err)
	}
	for name, n := range map[string]int{
		"destination_candidates":   p.DestinationCandidates,
		"accommodation_candidates": p.AccommodationCandidates,
		"dining_candidates":        p.DiningCandidates,
		"experience_candidates":    p.ExperienceCandidates,
	} {
		if n < 1 {
			return fmt.Errorf("config.planner.%s must be at least 1", name)
		}
	}
	if c.Catalog.SearchLimit < 1 {
		return fmt.Errorf("config.catalog.search_limit must be at least 1")
	}
	if c.Catalog.RecommendationLimit < 1 {
		return fmt.Errorf("config.catalog.recommendation_limit must be at least 1")
	}
	switch c.LLM.Provider {
	case "", "none", "openai", "gemini":
	default:
		return fmt.Errorf("config.llm.provider must be one of none, openai, gemini")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("config.llm.requests_per_minute must not be negative")
	}
	if c.Server.RateLimitPerSecond < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("config.server rate limits must not be negative")
	}
	return nil
}

// ParseClock parses "2:30 PM" style times and returns the minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("3:04 PM", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want e.g. 2:30 PM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "tripline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `planner:
  nights: 3
  restaurant_estimate: 50
  local_transport: 100
  # live flight data is not available; these are the assumed arrival and departure times
  arrival_time: "2:30 PM"
  departure_time: "6:00 PM"
  destination_candidates: 3
  accommodation_candidates: 5
  dining_candidates: 6
  experience_candidates: 6

catalog:
  search_limit: 20
  recommendation_limit: 10
  seed_file: ""

llm:
  provider: none
  endpoint: https://api.openai.com/v1/chat/completions
  model: gpt-4o-mini
  timeout: 25s
  requests_per_minute: 30

cache:
  redis_addr: ""
  ttl: 24h

server:
  allowed_origins: ["*"]
  rate_limit_per_second: 10
  burst: 20
`
