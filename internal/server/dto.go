package server

import (
	"tripline/internal/catalog"
	"tripline/internal/domain"
	"tripline/internal/engine"
	"tripline/internal/scoring"
)

// Request payloads

type SignupRequest struct {
	Email     string `json:"email" format:"email"`
	Password  string `json:"password" minLength:"1"`
	FirstName string `json:"first_name" minLength:"1"`
	LastName  string `json:"last_name" minLength:"1"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SearchRequest struct {
	Kind       string               `json:"kind,omitempty" enum:"destination,property,restaurant,experience"`
	City       string               `json:"city,omitempty"`
	MinPrice   *float64             `json:"min_price,omitempty"`
	MaxPrice   *float64             `json:"max_price,omitempty"`
	Type       string               `json:"type,omitempty"`
	MinRating  *float64             `json:"min_rating,omitempty"`
	Activities []domain.ActivityTag `json:"activities,omitempty"`
}

func (r SearchRequest) filters() catalog.Filters {
	return catalog.Filters{
		Kind:       domain.Kind(r.Kind),
		City:       r.City,
		MinPrice:   r.MinPrice,
		MaxPrice:   r.MaxPrice,
		Type:       r.Type,
		MinRating:  r.MinRating,
		Activities: r.Activities,
	}
}

type RecommendRequest struct {
	Filters SearchRequest `json:"filters,omitempty"`
	// Preferences default to the caller's stored ones when omitted.
	Preferences *domain.Preferences `json:"preferences,omitempty"`
}

type IntentRequest struct {
	Query string `json:"query" minLength:"1"`
}

type TranslateRequest struct {
	Text           string `json:"text" minLength:"1"`
	TargetLanguage string `json:"target_language,omitempty" example:"fr" doc:"Defaults to en"`
}

type StartSessionRequest struct {
	// Preferences skip the onboarding form when given.
	Preferences *domain.Preferences `json:"preferences,omitempty"`
}

type SwipeRequest struct {
	Action string `json:"action" enum:"like,pass"`
}

type ChooseRequest struct {
	// ID of a liked candidate; empty takes the first liked one.
	ID string `json:"id,omitempty"`
}

type SelectRequest struct {
	IDs []string `json:"ids"`
}

// Response payloads

type TokenResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type CandidateResponse struct {
	Kind  domain.Kind      `json:"kind" enum:"destination,property,restaurant,experience"`
	Score *float64         `json:"score,omitempty"`
	Item  domain.Candidate `json:"item"`
}

type CandidateListResponse struct {
	Items []CandidateResponse `json:"items"`
}

func candidateResponses(cs []domain.Candidate) CandidateListResponse {
	out := CandidateListResponse{Items: make([]CandidateResponse, 0, len(cs))}
	for _, c := range cs {
		out.Items = append(out.Items, CandidateResponse{Kind: c.Kind(), Item: c})
	}
	return out
}

func recommendationResponses(recs []scoring.Recommendation) CandidateListResponse {
	out := CandidateListResponse{Items: make([]CandidateResponse, 0, len(recs))}
	for _, r := range recs {
		score := r.Score
		out.Items = append(out.Items, CandidateResponse{Kind: r.Candidate.Kind(), Score: &score, Item: r.Candidate})
	}
	return out
}

// SessionResponse is a workflow snapshot plus the budget preview from the
// Itinerary stage on.
type SessionResponse struct {
	engine.Snapshot
	BudgetEstimate *domain.BudgetBreakdown `json:"budget_estimate,omitempty"`
}

type PlanListResponse struct {
	Items []domain.SavedPlan `json:"items"`
}
