package triplinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Tripline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Listing is the part of any candidate the client cares about.
type Listing struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	City       string   `json:"city,omitempty"`
	Country    string   `json:"country,omitempty"`
	Price      float64  `json:"price"`
	Rating     float64  `json:"rating"`
	Activities []string `json:"activities,omitempty"`
}

// SwipeView mirrors a swipe stage.
type SwipeView struct {
	Current  *Listing  `json:"current,omitempty"`
	Position int       `json:"position"`
	Total    int       `json:"total"`
	Progress float64   `json:"progress"`
	Complete bool      `json:"complete"`
	Liked    []Listing `json:"liked"`
	Rejected []Listing `json:"rejected"`
}

type Budget struct {
	Nights         int     `json:"nights"`
	Accommodation  float64 `json:"accommodation"`
	Dining         float64 `json:"dining"`
	Experiences    float64 `json:"experiences"`
	LocalTransport float64 `json:"local_transport"`
	Total          float64 `json:"total"`
}

// Plan represents the API trip plan model (partial).
type Plan struct {
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name,omitempty"`
	Destination   *Listing  `json:"destination,omitempty"`
	Accommodation *Listing  `json:"accommodation,omitempty"`
	Restaurants   []Listing `json:"restaurants"`
	Experiences   []Listing `json:"experiences"`
	Budget        *Budget   `json:"budget,omitempty"`
	Saved         bool      `json:"saved"`
}

// Session is a planning session snapshot.
type Session struct {
	ID                string     `json:"id"`
	Stage             string     `json:"stage"`
	UserID            string     `json:"user_id,omitempty"`
	Plan              Plan       `json:"plan"`
	Destinations      *SwipeView `json:"destinations,omitempty"`
	Accommodations    *SwipeView `json:"accommodations,omitempty"`
	RestaurantOptions []Listing  `json:"restaurant_options,omitempty"`
	ExperienceOptions []Listing  `json:"experience_options,omitempty"`
	CanGoBack         bool       `json:"can_go_back"`
	SaveError         string     `json:"save_error,omitempty"`
	BudgetEstimate    *Budget    `json:"budget_estimate,omitempty"`
}

// Swipe returns the swipe view of the current stage, if it has one.
func (s Session) Swipe() *SwipeView {
	switch s.Stage {
	case "destination":
		return s.Destinations
	case "accommodation":
		return s.Accommodations
	}
	return nil
}

type SavedPlan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Plan        Plan   `json:"plan"`
	CreatedAt   string `json:"created_at"`
}

// Wishes is the trip request; only DestinationInput is required.
type Wishes struct {
	DestinationInput   string   `json:"destination_input"`
	TripDuration       string   `json:"trip_duration,omitempty"`
	TravelGroup        string   `json:"travel_group,omitempty"`
	BudgetTotal        string   `json:"budget_total,omitempty"`
	TripStyle          []string `json:"trip_style,omitempty"`
	MustHaveActivities []string `json:"must_have_activities,omitempty"`
	AdditionalWishes   string   `json:"additional_wishes,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// ErrorCode returns the envelope code of an *APIError, or "".
func ErrorCode(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Signup creates an account and keeps its token for later calls.
func (c *Client) Signup(ctx context.Context, email, password, firstName, lastName string) error {
	body := map[string]any{
		"email":      email,
		"password":   password,
		"first_name": firstName,
		"last_name":  lastName,
	}
	return c.authenticate(ctx, "v1/auth/signup", body)
}

// Login exchanges credentials for a token kept on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "v1/auth/login", map[string]any{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body any) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

// CreateSession starts planning. Preferences may be nil.
func (c *Client) CreateSession(ctx context.Context, preferences map[string]any) (Session, error) {
	body := map[string]any{}
	if preferences != nil {
		body["preferences"] = preferences
	}
	var resp Session
	err := c.do(ctx, http.MethodPost, "v1/sessions", body, &resp)
	return resp, err
}

func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &resp)
	return resp, err
}

func (c *Client) SetPreferences(ctx context.Context, id string, preferences map[string]any) (Session, error) {
	return c.sessionStep(ctx, id, "preferences", preferences)
}

func (c *Client) SubmitWishes(ctx context.Context, id string, w Wishes) (Session, error) {
	return c.sessionStep(ctx, id, "wishes", w)
}

// Swipe sends "like" or "pass".
func (c *Client) Swipe(ctx context.Context, id, action string) (Session, error) {
	return c.sessionStep(ctx, id, "swipe", map[string]string{"action": action})
}

func (c *Client) ResetSwipe(ctx context.Context, id string) (Session, error) {
	return c.sessionStep(ctx, id, "swipe/reset", nil)
}

// Choose picks a liked candidate; an empty candidateID takes the first one.
func (c *Client) Choose(ctx context.Context, id, candidateID string) (Session, error) {
	return c.sessionStep(ctx, id, "choose", map[string]string{"id": candidateID})
}

func (c *Client) SelectRestaurants(ctx context.Context, id string, ids []string) (Session, error) {
	return c.sessionStep(ctx, id, "dining", map[string]any{"ids": nonNil(ids)})
}

func (c *Client) SelectExperiences(ctx context.Context, id string, ids []string) (Session, error) {
	return c.sessionStep(ctx, id, "experiences", map[string]any{"ids": nonNil(ids)})
}

func (c *Client) FinishEarly(ctx context.Context, id string, ids []string) (Session, error) {
	return c.sessionStep(ctx, id, "finish", map[string]any{"ids": nonNil(ids)})
}

func (c *Client) Finalize(ctx context.Context, id string) (Session, error) {
	return c.sessionStep(ctx, id, "finalize", nil)
}

func (c *Client) RetrySave(ctx context.Context, id string) (Session, error) {
	return c.sessionStep(ctx, id, "save", nil)
}

func (c *Client) Back(ctx context.Context, id string) (Session, error) {
	return c.sessionStep(ctx, id, "back", nil)
}

func (c *Client) Restart(ctx context.Context, id string) (Session, error) {
	return c.sessionStep(ctx, id, "restart", nil)
}

// Plans lists the signed-in user's saved plans, newest first.
func (c *Client) Plans(ctx context.Context) ([]SavedPlan, error) {
	var resp struct {
		Items []SavedPlan `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v1/me/plans", nil, &resp)
	return resp.Items, err
}

type Translation struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Translate passes text through the server's translator; an empty target means English.
func (c *Client) Translate(ctx context.Context, text, target string) (Translation, error) {
	var resp Translation
	body := map[string]any{"text": text}
	if target != "" {
		body["target_language"] = target
	}
	err := c.do(ctx, http.MethodPost, "v1/translate", body, &resp)
	return resp, err
}

func (c *Client) sessionStep(ctx context.Context, id, action string, body any) (Session, error) {
	var resp Session
	if body == nil {
		body = map[string]any{}
	}
	err := c.do(ctx, http.MethodPost, sessionPath(id, action), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func sessionPath(id, action string) string {
	p := "v1/sessions/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
