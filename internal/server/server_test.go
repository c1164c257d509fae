package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"tripline/internal/catalog"
	"tripline/internal/config"
	"tripline/internal/db"
	"tripline/internal/engine"
	"tripline/internal/events"
	"tripline/internal/llm"
	"tripline/internal/migrate"
	"tripline/internal/repo"
	"tripline/internal/translate"
	triplinesdk "tripline/sdk/go"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func (s *testServer) SDK() *triplinesdk.Client {
	c := triplinesdk.New(s.URL)
	c.HTTPClient = s.client
	return c
}

func newTestServer(t *testing.T, tweak ...func(*Config)) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	r := repo.Repo{DB: conn, Events: events.Writer{Now: clock}, Now: clock}
	e := engine.New(config.Default(), catalog.Default(), r)
	cfg := Config{Engine: e, Repo: r, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret}}
	for _, fn := range tweak {
		fn(&cfg)
	}
	handler, err := New(cfg)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope %s: %v", string(data), err)
	}
	return env.Error.Code
}

// planParis drives a session from creation to the Itinerary stage.
func planParis(t *testing.T, ctx context.Context, c *triplinesdk.Client) triplinesdk.Session {
	t.Helper()
	s, err := c.CreateSession(ctx, map[string]any{"budget_range": "$500-$1500"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if s.Stage != "wishes" {
		t.Fatalf("expected wishes stage, got %s", s.Stage)
	}
	if s, err = c.SubmitWishes(ctx, s.ID, triplinesdk.Wishes{DestinationInput: "Paris"}); err != nil {
		t.Fatalf("wishes: %v", err)
	}
	if s.Destinations == nil || s.Destinations.Total != 3 || s.Destinations.Current.ID != "paris" {
		t.Fatalf("unexpected destinations %+v", s.Destinations)
	}
	for _, action := range []string{"like", "pass", "like"} {
		if s, err = c.Swipe(ctx, s.ID, action); err != nil {
			t.Fatalf("swipe %s: %v", action, err)
		}
	}
	if len(s.Destinations.Liked) != 2 || !s.Destinations.Complete {
		t.Fatalf("unexpected swipe state %+v", s.Destinations)
	}
	if s, err = c.Choose(ctx, s.ID, "paris"); err != nil {
		t.Fatalf("choose destination: %v", err)
	}
	for s.Accommodations != nil && !s.Accommodations.Complete {
		if s, err = c.Swipe(ctx, s.ID, "like"); err != nil {
			t.Fatalf("swipe stay: %v", err)
		}
	}
	if s, err = c.Choose(ctx, s.ID, "cozy-downtown-apartment"); err != nil {
		t.Fatalf("choose stay: %v", err)
	}
	if s, err = c.SelectRestaurants(ctx, s.ID, []string{"le-petit-bistro", "sakura-sushi"}); err != nil {
		t.Fatalf("dining: %v", err)
	}
	if s, err = c.SelectExperiences(ctx, s.ID, []string{"city-walking-tour", "cooking-class"}); err != nil {
		t.Fatalf("experiences: %v", err)
	}
	if s.Stage != "itinerary" || s.BudgetEstimate == nil || s.BudgetEstimate.Total != 565 {
		t.Fatalf("unexpected itinerary state %s %+v", s.Stage, s.BudgetEstimate)
	}
	return s
}

func TestHealthAndDocs(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, map[string]string{"Authorization": "Bearer junk"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK || !bytes.Contains(data, []byte("/v1/sessions/{id}/swipe")) {
		t.Fatalf("openapi: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/docs", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("docs: %d", res.StatusCode)
	}
}

func TestGuestPlanningFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK()

	s := planParis(t, ctx, c)
	s, err := c.Finalize(ctx, s.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if s.Stage != "done" || s.Plan.Saved || s.Plan.Budget == nil || s.Plan.Budget.Total != 565 {
		t.Fatalf("unexpected final state %+v", s)
	}
	if _, err := c.RetrySave(ctx, s.ID); triplinesdk.ErrorCode(err) != "invalid_transition" {
		t.Fatalf("expected guest save to be refused, got %v", err)
	}
	s, err = c.Restart(ctx, s.ID)
	if err != nil || s.Stage != "wishes" || s.Plan.Destination != nil {
		t.Fatalf("restart: %v %+v", err, s)
	}
}

func TestSignedInPlanIsSaved(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK()
	if err := c.Signup(ctx, "ada@example.com", "pw", "Ada", "Lovelace"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	s := planParis(t, ctx, c)
	s, err := c.Finalize(ctx, s.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !s.Plan.Saved || s.Plan.ID == "" || s.Plan.Name != "Trip to Paris" {
		t.Fatalf("plan not saved: %+v", s.Plan)
	}
	plans, err := c.Plans(ctx)
	if err != nil || len(plans) != 1 || plans[0].ID != s.Plan.ID {
		t.Fatalf("plans: %v %+v", err, plans)
	}

	headers := map[string]string{"Authorization": "Bearer " + c.BearerToken}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me/plans/"+s.Plan.ID+"/pdf", nil, headers)
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("pdf: %d %s", res.StatusCode, res.Header.Get("Content-Type"))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me/preferences", nil, headers)
	if res.StatusCode != http.StatusOK || !bytes.Contains(data, []byte("$500-$1500")) {
		t.Fatalf("preferences were not stored: %d %s", res.StatusCode, string(data))
	}

	if err := c.Login(ctx, "ada@example.com", "wrong"); triplinesdk.ErrorCode(err) != "invalid_credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestSessionErrors(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK()

	s, err := c.CreateSession(ctx, nil)
	if err != nil || s.Stage != "preferences" {
		t.Fatalf("create: %v %+v", err, s)
	}
	if _, err := c.Back(ctx, s.ID); triplinesdk.ErrorCode(err) != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
	if _, err := c.SetPreferences(ctx, s.ID, map[string]any{}); err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if _, err := c.SubmitWishes(ctx, s.ID, triplinesdk.Wishes{DestinationInput: " "}); triplinesdk.ErrorCode(err) != "bad_request" {
		t.Fatalf("expected bad_request, got %v", err)
	}
	s, _ = c.SubmitWishes(ctx, s.ID, triplinesdk.Wishes{DestinationInput: "somewhere in italy"})
	if _, err := c.Choose(ctx, s.ID, ""); triplinesdk.ErrorCode(err) != "swipe_incomplete" {
		t.Fatalf("expected swipe_incomplete, got %v", err)
	}
	for i := 0; i < s.Destinations.Total; i++ {
		if _, err := c.Swipe(ctx, s.ID, "pass"); err != nil {
			t.Fatalf("pass: %v", err)
		}
	}
	if _, err := c.Choose(ctx, s.ID, ""); triplinesdk.ErrorCode(err) != "no_liked_candidates" {
		t.Fatalf("expected no_liked_candidates, got %v", err)
	}
	if _, err := c.Swipe(ctx, s.ID, "like"); triplinesdk.ErrorCode(err) != "swipe_complete" {
		t.Fatalf("expected swipe_complete, got %v", err)
	}
	s, err = c.ResetSwipe(ctx, s.ID)
	if err != nil || s.Destinations.Position != 0 {
		t.Fatalf("reset: %v", err)
	}
	if _, err := c.Swipe(ctx, s.ID, "maybe"); triplinesdk.ErrorCode(err) != "bad_request" {
		t.Fatalf("expected invalid action to be rejected, got %v", err)
	}
	if _, err := c.GetSession(ctx, "missing"); triplinesdk.ErrorCode(err) != "not_found" {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestSessionsArePrivate(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	owner := srv.SDK()
	if err := owner.Signup(ctx, "owner@example.com", "pw", "O", "Wner"); err != nil {
		t.Fatal(err)
	}
	s, err := owner.CreateSession(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.SDK().GetSession(ctx, s.ID); triplinesdk.ErrorCode(err) != "not_found" {
		t.Fatalf("expected other callers to get not_found, got %v", err)
	}
	if _, err := owner.GetSession(ctx, s.ID); err != nil {
		t.Fatalf("owner lost access: %v", err)
	}
}

func TestAuthErrors(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me/plans", nil, nil)
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "unauthorized" {
		t.Fatalf("expected 401 unauthorized, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/search", map[string]any{}, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "invalid_credentials" {
		t.Fatalf("expected 401 invalid_credentials, got %d %s", res.StatusCode, string(data))
	}
	body := map[string]any{"email": "dup@example.com", "password": "pw", "first_name": "D", "last_name": "Up"}
	doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signup", body, nil)
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signup", body, nil)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "email_taken" {
		t.Fatalf("expected 409 email_taken, got %d %s", res.StatusCode, string(data))
	}
}

func TestSearchAndRecommend(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/search", map[string]any{"kind": "destination", "city": "italy"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("search: %d %s", res.StatusCode, string(data))
	}
	var list struct {
		Items []struct {
			Kind string `json:"kind"`
			Item struct {
				ID      string `json:"id"`
				Country string `json:"country"`
			} `json:"item"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 3 {
		t.Fatalf("expected three Italian destinations, got %d", len(list.Items))
	}
	for _, it := range list.Items {
		if it.Kind != "destination" || it.Item.Country != "Italy" {
			t.Fatalf("unexpected item %+v", it)
		}
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/recommendations", map[string]any{
		"filters":     map[string]any{"kind": "destination"},
		"preferences": map[string]any{"activities": []string{"whales"}},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("recommendations: %d %s", res.StatusCode, string(data))
	}
	var recs struct {
		Items []struct {
			Score float64 `json:"score"`
			Item  struct {
				Activities []string `json:"activities"`
			} `json:"item"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs.Items) == 0 || recs.Items[0].Score < 6 {
		t.Fatalf("expected a whale destination on top, got %+v", recs.Items)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/intent", map[string]any{"query": "Whale watching and hiking"}, nil)
	if res.StatusCode != http.StatusOK || !bytes.Contains(data, []byte(`"keywords"`)) || !bytes.Contains(data, []byte(`"mountains"`)) {
		t.Fatalf("intent: %d %s", res.StatusCode, string(data))
	}
}

func TestRateLimit(t *testing.T) {
	srv, cleanup := newTestServer(t, func(c *Config) {
		c.RateLimitPerSecond = 0.001
		c.Burst = 1
	})
	defer cleanup()
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("first request: %d", res.StatusCode)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusTooManyRequests || errorCode(t, data) != "rate_limited" {
		t.Fatalf("expected 429, got %d %s", res.StatusCode, string(data))
	}
}

type stubCompleter struct {
	text string
	err  error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) { return s.text, s.err }

func TestTranslate(t *testing.T) {
	withModel := func(c llm.Completer) func(*Config) {
		return func(cfg *Config) { cfg.Translator = translate.Translator{LLM: c} }
	}

	srv, cleanup := newTestServer(t, withModel(stubCompleter{text: `{"translated_text": "Bonjour", "source_language": "en"}`}))
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/translate", map[string]any{"text": "Hello", "target_language": "fr"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("translate: %d %s", res.StatusCode, string(data))
	}
	var got translate.Result
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.TranslatedText != "Bonjour" || got.SourceLanguage != "en" || got.TargetLanguage != "fr" || got.OriginalText != "Hello" {
		t.Fatalf("unexpected translation %+v", got)
	}
	viaSDK, err := srv.SDK().Translate(context.Background(), "Hello", "")
	if err != nil || viaSDK.TargetLanguage != "en" {
		t.Fatalf("sdk translate: %+v %v", viaSDK, err)
	}

	cases := []struct {
		name   string
		tweak  func(*Config)
		status int
		code   string
	}{
		{"upstream failure", withModel(stubCompleter{err: errors.New("upstream said no")}), http.StatusBadGateway, "translation_failed"},
		{"rate limited", withModel(stubCompleter{err: llm.ErrRateLimited}), http.StatusTooManyRequests, "rate_limited"},
		{"no model", func(*Config) {}, http.StatusServiceUnavailable, "translation_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, cleanup := newTestServer(t, tc.tweak)
			defer cleanup()
			res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/translate", map[string]any{"text": "Hello"}, nil)
			if res.StatusCode != tc.status || errorCode(t, data) != tc.code {
				t.Fatalf("expected %d %s, got %d %s", tc.status, tc.code, res.StatusCode, string(data))
			}
		})
	}

	srv2, cleanup2 := newTestServer(t, withModel(stubCompleter{err: errors.New("upstream said no")}))
	defer cleanup2()
	_, data = doJSON(t, srv2.Client(), http.MethodPost, srv2.URL+"/v1/translate", map[string]any{"text": "Hello"}, nil)
	if !bytes.Contains(data, []byte("upstream said no")) {
		t.Fatalf("upstream message not passed through: %s", string(data))
	}
}
