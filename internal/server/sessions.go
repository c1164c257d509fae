package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"tripline/internal/domain"
	"tripline/internal/engine"
)

// session guards one workflow; a Workflow is not safe for concurrent use.
type session struct {
	mu      sync.Mutex
	wf      *engine.Workflow
	owner   string
	touched time.Time
}

// registry keeps planning sessions in memory.
type registry struct {
	mu     sync.Mutex
	engine engine.Engine
	ttl    time.Duration
	items  map[string]*session
	logger *log.Logger
}

func newRegistry(e engine.Engine, ttl time.Duration) *registry {
	return &registry{engine: e, ttl: ttl, items: map[string]*session{}}
}

func (r *registry) create(owner string) *session {
	now := time.Now()
	s := &session{wf: r.engine.NewWorkflow(), owner: owner, touched: now}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)
	r.items[s.wf.ID] = s
	return s
}

// get returns the session if the caller may see it. Sessions started by a
// signed-in user are invisible to everyone else.
func (r *registry) get(id, caller string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok || (s.owner != "" && s.owner != caller) {
		return nil, domain.ErrNotFound
	}
	s.touched = time.Now()
	return s, nil
}

func (r *registry) pruneLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	dropped := 0
	for id, s := range r.items {
		if now.Sub(s.touched) > r.ttl {
			delete(r.items, id)
			dropped++
		}
	}
	if dropped > 0 && r.logger != nil {
		r.logger.Printf("[sessions] dropped %d idle sessions", dropped)
	}
}

func sessionResponse(wf *engine.Workflow) SessionResponse {
	resp := SessionResponse{Snapshot: wf.Snapshot()}
	if st := wf.Stage(); st == domain.StageItinerary || st == domain.StageDone {
		b := wf.EstimateBudget()
		resp.BudgetEstimate = &b
	}
	return resp
}

// sessionError adds where the workflow ended up to persistence failures, since
// those do not undo the transition.
func sessionError(err error, wf *engine.Workflow) huma.StatusError {
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		return newAPIError(http.StatusServiceUnavailable, "persistence_failed", err.Error(), map[string]any{
			"op":         pe.Op,
			"retryable":  pe.Retryable(),
			"session_id": wf.ID,
			"stage":      wf.Stage(),
		})
	}
	return handleError(err)
}

type sessionPath struct {
	ID string `path:"id"`
}

type sessionOutput struct {
	Body SessionResponse `json:"body"`
}

func callerID(ctx context.Context) string {
	if p, ok := principalFromContext(ctx); ok {
		return p.UserID
	}
	return ""
}

func registerSessions(api huma.API, reg *registry, logger *log.Logger) {
	reg.logger = logger

	// step runs fn on the locked workflow and returns the resulting snapshot.
	step := func(ctx context.Context, id string, fn func(wf *engine.Workflow) error) (*sessionOutput, error) {
		s, err := reg.get(id, callerID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := fn(s.wf); err != nil {
			return nil, sessionError(err, s.wf)
		}
		return &sessionOutput{Body: sessionResponse(s.wf)}, nil
	}
	conflicts := []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable}

	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Start a planning session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body *StartSessionRequest `json:"body,omitempty" required:"false"`
	}) (*sessionOutput, error) {
		s := reg.create(callerID(ctx))
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.wf.Start(ctx, s.owner); err != nil {
			return nil, sessionError(err, s.wf)
		}
		if input.Body != nil && input.Body.Preferences != nil {
			if err := s.wf.SavePreferences(ctx, *input.Body.Preferences); err != nil {
				return nil, sessionError(err, s.wf)
			}
		}
		return &sessionOutput{Body: sessionResponse(s.wf)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Current state of a planning session",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		return step(ctx, input.ID, func(*engine.Workflow) error { return nil })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-preferences",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/preferences",
		Summary:     "Answer or amend the onboarding preferences",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body domain.Preferences `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.SavePreferences(ctx, input.Body) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-wishes",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/wishes",
		Summary:     "Describe the trip and receive destination candidates",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body domain.Wishes `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.SubmitWishes(ctx, input.Body) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-swipe",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/swipe",
		Summary:     "Like or pass the current candidate",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body SwipeRequest `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error {
			if input.Body.Action == "like" {
				return wf.Like()
			}
			return wf.Pass()
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-swipe-reset",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/swipe/reset",
		Summary:     "Start the current swipe stage over",
		Errors:      conflicts,
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.ResetSwipe() })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-choose",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/choose",
		Summary:     "Pick one liked destination or accommodation",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body ChooseRequest `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error {
			switch wf.Stage() {
			case domain.StageDestination:
				return wf.ChooseDestination(input.Body.ID)
			case domain.StageAccommodation:
				return wf.ChooseAccommodation(input.Body.ID)
			}
			return domain.ErrInvalidTransition
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-dining",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/dining",
		Summary:     "Select restaurants",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body SelectRequest `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.SelectRestaurants(input.Body.IDs) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-experiences",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/experiences",
		Summary:     "Select experiences",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body SelectRequest `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.SelectExperiences(input.Body.IDs) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-finish",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/finish",
		Summary:     "Keep the current picks and skip to the itinerary",
		Errors:      conflicts,
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body SelectRequest `json:"body"`
	}) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.FinishEarly(input.Body.IDs) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-finalize",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/finalize",
		Summary:     "Compute the budget and save the plan",
		Errors:      conflicts,
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.Finalize(ctx) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-save",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/save",
		Summary:     "Retry a failed save",
		Errors:      conflicts,
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.RetrySave(ctx) })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-back",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/back",
		Summary:     "Return to the previous stage",
		Errors:      conflicts,
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.Back() })
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-restart",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/restart",
		Summary:     "Plan another trip with the same preferences",
		Errors:      conflicts,
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		return step(ctx, input.ID, func(wf *engine.Workflow) error { return wf.Restart() })
	})
}
