package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"tripline/internal/cache"
	"tripline/internal/catalog"
	"tripline/internal/config"
	"tripline/internal/db"
	"tripline/internal/engine"
	"tripline/internal/events"
	"tripline/internal/intent"
	"tripline/internal/llm"
	"tripline/internal/migrate"
	"tripline/internal/repo"
	"tripline/internal/suggest"
	"tripline/internal/translate"
)

// Options select the workspace and the secrets that never live in tripline.yml.
type Options struct {
	Workspace     string
	ConfigFile    string
	DBFile        string
	LLMAPIKey     string
	RedisPassword string
	Logger        *log.Logger
}

// Services is everything a command or the HTTP server needs, opened once.
type Services struct {
	Config  *config.Config
	DB      *sql.DB
	Repo    repo.Repo
	Catalog *catalog.Store
	Engine  engine.Engine

	// Translator shares the planner's language model and has no fallback.
	Translator translate.Translator

	redis *cache.Redis
}

// ResolveConfig reads an explicit config file, else the workspace tripline.yml,
// else the built-in defaults.
func ResolveConfig(workspace, file string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if file != "" {
		cfg, err = config.FromFile(file)
	} else {
		cfg, err = config.LoadOptional(workspace)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Open migrates the workspace database and wires the planning engine. The
// language model and the intent cache are optional: when either cannot be
// set up the engine runs on keywords and curated destinations.
func Open(ctx context.Context, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg, err := ResolveConfig(opts.Workspace, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.Catalog.SeedFile, cfg.Catalog.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace, File: opts.DBFile})
	if err != nil {
		return nil, err
	}
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r := repo.Repo{DB: conn, Events: events.Writer{Now: time.Now}}

	completer, err := llm.New(ctx, cfg.LLM, opts.LLMAPIKey)
	if err != nil {
		logger.Printf("[llm] language model disabled: %v", err)
		completer = llm.Disabled{}
	}

	s := &Services{Config: cfg, DB: conn, Repo: r, Catalog: cat}
	parser := intent.Parser{LLM: completer, Logger: logger, Timeout: cfg.LLM.Timeout.Duration}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, opts.RedisPassword, cfg.Cache.TTL.Duration)
		if err != nil {
			logger.Printf("[intent] cache unavailable: %v", err)
		} else {
			s.redis = rc
			parser.Cache = rc
		}
	}

	eng := engine.New(cfg, cat, r)
	eng.Logger = logger
	eng.Intents = parser
	eng.Destinations = suggest.Suggester{
		LLM:     completer,
		Catalog: cat,
		Logger:  logger,
		Timeout: cfg.LLM.Timeout.Duration,
		Count:   cfg.Planner.DestinationCandidates,
	}
	s.Engine = eng
	s.Translator = translate.Translator{LLM: completer, Timeout: cfg.LLM.Timeout.Duration}
	return s, nil
}

func (s *Services) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
