package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tripline/internal/catalog"
	"tripline/internal/config"
	"tripline/internal/domain"
	"tripline/internal/intent"
	"tripline/internal/itinerary"
	"tripline/internal/scoring"
	"tripline/internal/suggest"
)

// Store is the persistence the workflow touches at its save points.
type Store interface {
	GetPreferences(ctx context.Context, userID string) (domain.Preferences, error)
	SavePreferences(ctx context.Context, userID string, p domain.Preferences) error
	SaveTripPlan(ctx context.Context, userID string, plan domain.TripPlan) (string, error)
}

type IntentParser interface {
	Parse(ctx context.Context, query string) domain.Intent
}

type DestinationSource interface {
	Destinations(ctx context.Context, wishes domain.Wishes, in domain.Intent) []domain.Destination
}

// Engine holds the collaborators shared by every workflow. It is safe to copy
// and to share between goroutines; each Workflow it creates is not.
type Engine struct {
	Catalog      *catalog.Store
	Intents      IntentParser
	Destinations DestinationSource
	Store        Store
	Config       *config.Config
	Logger       *log.Logger
	Now          func() time.Time
}

// New wires an engine that uses keyword intents and curated destinations.
// Callers swap Intents and Destinations for language-model backed ones.
func New(cfg *config.Config, cat *catalog.Store, store Store) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		Catalog:      cat,
		Intents:      intent.Parser{},
		Destinations: suggest.Suggester{Catalog: cat, Count: cfg.Planner.DestinationCandidates},
		Store:        store,
		Config:       cfg,
		Now:          time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) planner() config.Planner {
	if e.Config == nil {
		return config.Default().Planner
	}
	return e.Config.Planner
}

// NewWorkflow returns a workflow in the Onboarding stage.
func (e Engine) NewWorkflow() *Workflow {
	return &Workflow{
		ID:      uuid.NewString(),
		engine:  e,
		stage:   domain.StageOnboarding,
		plan:    emptyPlan(),
		created: e.now().UTC(),
	}
}

// Search runs the candidate store filters.
func (e Engine) Search(f catalog.Filters) []domain.Candidate {
	return e.Catalog.Search(f)
}

// Recommend ranks everything matching f against prefs before capping.
func (e Engine) Recommend(f catalog.Filters, prefs domain.Preferences) []scoring.Recommendation {
	limit := catalog.DefaultLimit
	if e.Config != nil {
		limit = e.Config.Catalog.RecommendationLimit
	}
	return scoring.Recommend(e.Catalog.Filter(f), prefs, limit)
}

// ParseIntent exposes the intent parser on its own.
func (e Engine) ParseIntent(ctx context.Context, query string) domain.Intent {
	return e.Intents.Parse(ctx, query)
}

func (e Engine) pricing() itinerary.Pricing { return itinerary.PricingFrom(e.planner()) }
func (e Engine) times() itinerary.Times     { return itinerary.TimesFrom(e.planner()) }
