package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"tripline/internal/domain"
	"tripline/internal/engine"
	"tripline/internal/itinerary"
	"tripline/internal/llm"
	"tripline/internal/repo"
	"tripline/internal/suggest"
	"tripline/internal/translate"
)

func registerMe(api huma.API, r repo.Repo) {
	type prefsOutput struct {
		Body domain.Preferences `json:"body"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-preferences",
		Method:      http.MethodGet,
		Path:        "/me/preferences",
		Summary:     "Stored preferences",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*prefsOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		prefs, err := r.GetPreferences(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &prefsOutput{Body: prefs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-preferences",
		Method:      http.MethodPut,
		Path:        "/me/preferences",
		Summary:     "Replace stored preferences",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.Preferences `json:"body"`
	}) (*prefsOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := r.SavePreferences(ctx, p.UserID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &prefsOutput{Body: input.Body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/me/plans",
		Summary:     "Saved trip plans, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PlanListResponse `json:"body"`
	}, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		plans, err := r.ListTripPlans(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		if plans == nil {
			plans = []domain.SavedPlan{}
		}
		return &struct {
			Body PlanListResponse `json:"body"`
		}{Body: PlanListResponse{Items: plans}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/me/plans/{id}",
		Summary:     "One saved trip plan",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.SavedPlan `json:"body"`
	}, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		plan, err := r.GetTripPlan(ctx, p.UserID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SavedPlan `json:"body"`
		}{Body: plan}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan-pdf",
		Method:      http.MethodGet,
		Path:        "/me/plans/{id}/pdf",
		Summary:     "Saved trip plan as a printable PDF",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		plan, err := r.GetTripPlan(ctx, p.UserID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		var buf bytes.Buffer
		if err := itinerary.WritePDF(&buf, plan.Plan, plan.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        "application/pdf",
			ContentDisposition: fmt.Sprintf(`attachment; filename="%s.pdf"`, suggest.Slug(plan.Name)),
			Body:               buf.Bytes(),
		}, nil
	})
}

func registerCatalog(api huma.API, e engine.Engine, r repo.Repo) {
	type listOutput struct {
		Body CandidateListResponse `json:"body"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodPost,
		Path:        "/search",
		Summary:     "Filter the candidate catalog",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SearchRequest `json:"body"`
	}) (*listOutput, error) {
		return &listOutput{Body: candidateResponses(e.Search(input.Body.filters()))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recommendations",
		Method:      http.MethodPost,
		Path:        "/recommendations",
		Summary:     "Rank catalog candidates against preferences",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body RecommendRequest `json:"body"`
	}) (*listOutput, error) {
		var prefs domain.Preferences
		switch {
		case input.Body.Preferences != nil:
			prefs = *input.Body.Preferences
		case r.DB != nil:
			if p, ok := principalFromContext(ctx); ok {
				stored, err := r.GetPreferences(ctx, p.UserID)
				if err != nil {
					return nil, handleError(err)
				}
				prefs = stored
			}
		}
		return &listOutput{Body: recommendationResponses(e.Recommend(input.Body.Filters.filters(), prefs))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "parse-intent",
		Method:      http.MethodPost,
		Path:        "/intent",
		Summary:     "Read structured travel intent from free text",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body IntentRequest `json:"body"`
	}) (*struct {
		Body domain.Intent `json:"body"`
	}, error) {
		return &struct {
			Body domain.Intent `json:"body"`
		}{Body: e.ParseIntent(ctx, input.Body.Query)}, nil
	})
}

// registerTranslate exposes the translator as is: upstream failures are
// reported to the caller, never replaced.
func registerTranslate(api huma.API, tr translate.Translator) {
	huma.Register(api, huma.Operation{
		OperationID: "translate",
		Method:      http.MethodPost,
		Path:        "/translate",
		Summary:     "Translate text with the language model",
		Errors:      []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body TranslateRequest `json:"body"`
	}) (*struct {
		Body translate.Result `json:"body"`
	}, error) {
		res, err := tr.Translate(ctx, input.Body.Text, input.Body.TargetLanguage)
		if err != nil {
			return nil, translateError(err)
		}
		return &struct {
			Body translate.Result `json:"body"`
		}{Body: res}, nil
	})
}

func translateError(err error) huma.StatusError {
	msg := err.Error()
	switch {
	case errors.Is(err, translate.ErrEmptyText):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case errors.Is(err, llm.ErrDisabled):
		return newAPIError(http.StatusServiceUnavailable, "translation_unavailable", msg, nil)
	case errors.Is(err, llm.ErrRateLimited):
		return newAPIError(http.StatusTooManyRequests, "rate_limited", msg, nil)
	}
	return newAPIError(http.StatusBadGateway, "translation_failed", msg, nil)
}
