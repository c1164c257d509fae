package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tripline/internal/catalog"
	"tripline/internal/config"
	"tripline/internal/domain"
	"tripline/internal/engine"
)

type flakyStore struct {
	planFailures int
	saved        []domain.TripPlan
}

func (s *flakyStore) GetPreferences(context.Context, string) (domain.Preferences, error) {
	return domain.Preferences{}, nil
}

func (s *flakyStore) SavePreferences(context.Context, string, domain.Preferences) error {
	return nil
}

func (s *flakyStore) SaveTripPlan(_ context.Context, _ string, plan domain.TripPlan) (string, error) {
	if s.planFailures > 0 {
		s.planFailures--
		return "", errors.New("disk full")
	}
	s.saved = append(s.saved, plan)
	return "plan-1", nil
}

func runPlanner(t *testing.T, store engine.Store, userID string, script ...string) (*engine.Workflow, string) {
	t.Helper()
	eng := engine.New(config.Default(), catalog.Default(), store)
	eng.Logger = log.New(io.Discard, "", 0)
	out := &bytes.Buffer{}
	p := &planner{
		wf:  eng.NewWorkflow(),
		in:  bufio.NewScanner(strings.NewReader(strings.Join(script, "\n") + "\n")),
		out: out,
	}
	if err := p.run(context.Background(), userID); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	return p.wf, out.String()
}

// parisScript answers every prompt up to the itinerary.
var parisScript = []string{
	"", "", "",
	"Paris", "", "",
	"l", "p", "l", "paris",
	"l", "l", "l", "l", "l", "cozy-downtown-apartment",
	"le-petit-bistro sakura-sushi",
	"city-walking-tour cooking-class",
}

func TestPlannerGuestFlow(t *testing.T) {
	script := append(append([]string{}, parisScript...), "s", "q")
	wf, out := runPlanner(t, nil, "", script...)
	if wf.Stage() != domain.StageDone {
		t.Fatalf("expected done, got %s\n%s", wf.Stage(), out)
	}
	if !strings.Contains(out, "$565") {
		t.Fatalf("expected budget total in output:\n%s", out)
	}
	if !strings.Contains(out, "Trip to Paris is ready. Sign in") {
		t.Fatalf("expected guest summary:\n%s", out)
	}
	if wf.Plan().Saved {
		t.Fatalf("guest plan must not be saved")
	}
}

func TestPlannerRetriesFailedSave(t *testing.T) {
	store := &flakyStore{planFailures: 1}
	script := append(append([]string{}, parisScript...), "s", "y", "q")
	wf, out := runPlanner(t, store, "user-1", script...)
	if !strings.Contains(out, "could not be saved") {
		t.Fatalf("expected save failure prompt:\n%s", out)
	}
	if !wf.Plan().Saved || len(store.saved) != 1 {
		t.Fatalf("expected plan saved after retry, saved=%d", len(store.saved))
	}
	if !strings.Contains(out, "saved as plan-1") {
		t.Fatalf("expected saved summary:\n%s", out)
	}
}

func TestPlannerResetsWhenNothingLiked(t *testing.T) {
	wf, out := runPlanner(t, nil, "", "", "", "", "Paris", "", "", "p", "p", "p")
	if !strings.Contains(out, "You passed on every destination") {
		t.Fatalf("expected reset notice:\n%s", out)
	}
	view := wf.Snapshot().Destinations
	if wf.Stage() != domain.StageDestination || view == nil || view.Position != 0 {
		t.Fatalf("expected fresh destination swipe, got %s %+v", wf.Stage(), view)
	}
}

func TestPlannerBackAndRestart(t *testing.T) {
	wf, out := runPlanner(t, nil, "", "", "", "", "Paris", "", "", "l", "b")
	if wf.Stage() != domain.StageWishes {
		t.Fatalf("expected back to wishes, got %s\n%s", wf.Stage(), out)
	}
	if wf.Plan().Wishes == nil || wf.Plan().Wishes.DestinationInput != "Paris" {
		t.Fatalf("back must keep the wishes")
	}

	script = append(append([]string{}, parisScript...), "r")
	wf, _ = runPlanner(t, nil, "", script...)
	if wf.Stage() != domain.StageWishes || wf.Plan().Destination != nil {
		t.Fatalf("expected restart to clear the plan, got %s", wf.Stage())
	}
}

func TestSetEnvValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TRIPLINE_JWT_SECRET=s\nTRIPLINE_USER_ID=old\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := setEnvValue(path, "TRIPLINE_USER_ID", "new"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := setEnvValue(path, "TRIPLINE_LLM_API_KEY", "k"); err != nil {
		t.Fatalf("append: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "TRIPLINE_JWT_SECRET=s\nTRIPLINE_USER_ID=new\nTRIPLINE_LLM_API_KEY=k\n"
	if string(b) != want {
		t.Fatalf("unexpected .env:\n%s", b)
	}
}

func TestParseActivities(t *testing.T) {
	tags, err := parseActivities([]string{" Food ", "", "beaches"})
	if err != nil || len(tags) != 2 || tags[0] != domain.ActivityFood {
		t.Fatalf("unexpected tags %v %v", tags, err)
	}
	if _, err := parseActivities([]string{"skydiving"}); err == nil {
		t.Fatalf("expected unknown activity to fail")
	}
}
