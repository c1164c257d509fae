package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tripline/internal/catalog"
	"tripline/internal/domain"
	"tripline/internal/itinerary"
	"tripline/internal/scoring"
	"tripline/internal/swipe"
)

// Workflow is one traveller's walk through the planning stages. It owns its
// TripPlan exclusively and is not safe for concurrent use.
type Workflow struct {
	ID string

	engine  Engine
	stage   domain.Stage
	userID  string
	prefs   domain.Preferences
	plan    domain.TripPlan
	created time.Time

	destinations *swipe.Session[domain.Destination]
	stays        *swipe.Session[domain.Property]
	dining       []domain.Restaurant
	activities   []domain.Experience

	saveErr error
}

func emptyPlan() domain.TripPlan {
	return domain.TripPlan{Restaurants: []domain.Restaurant{}, Experiences: []domain.Experience{}}
}

func (w *Workflow) Stage() domain.Stage             { return w.stage }
func (w *Workflow) UserID() string                  { return w.userID }
func (w *Workflow) Preferences() domain.Preferences { return w.prefs }
func (w *Workflow) Plan() domain.TripPlan           { return w.plan }
func (w *Workflow) Created() time.Time              { return w.created }

func (w *Workflow) ensureStage(op string, allowed ...domain.Stage) error {
	for _, s := range allowed {
		if w.stage == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not allowed in stage %s", domain.ErrInvalidTransition, op, w.stage)
}

func (w *Workflow) persistFailed(op string, err error) error {
	w.engine.logger().Printf("[planner] %s for workflow %s failed: %v", op, w.ID, err)
	return &domain.PersistenceError{Op: op, Err: err}
}

// Start attaches the traveller (empty for a guest) and moves to Preferences.
// Stored preferences are loaded for known users; a load failure is reported
// but the workflow still advances with empty preferences.
func (w *Workflow) Start(ctx context.Context, userID string) error {
	if err := w.ensureStage("start", domain.StageOnboarding); err != nil {
		return err
	}
	w.userID = strings.TrimSpace(userID)
	w.stage = domain.StagePreferences
	if w.userID == "" || w.engine.Store == nil {
		return nil
	}
	prefs, err := w.engine.Store.GetPreferences(ctx, w.userID)
	if err != nil {
		return w.persistFailed("load preferences", err)
	}
	w.prefs = prefs
	return nil
}

// SavePreferences records the onboarding answers and moves to Wishes. It may
// also be called from Wishes to amend them. A store failure is returned as a
// *domain.PersistenceError after the transition has happened.
func (w *Workflow) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	if err := w.ensureStage("save preferences", domain.StagePreferences, domain.StageWishes); err != nil {
		return err
	}
	w.prefs = prefs
	w.stage = domain.StageWishes
	if w.userID == "" || w.engine.Store == nil {
		return nil
	}
	if err := w.engine.Store.SavePreferences(ctx, w.userID, prefs); err != nil {
		return w.persistFailed("save preferences", err)
	}
	return nil
}

// SubmitWishes parses the request, gathers destination candidates and opens
// the destination swipe session.
func (w *Workflow) SubmitWishes(ctx context.Context, wishes domain.Wishes) error {
	if err := w.ensureStage("submit wishes", domain.StageWishes); err != nil {
		return err
	}
	wishes.DestinationInput = strings.TrimSpace(wishes.DestinationInput)
	if wishes.DestinationInput == "" {
		return domain.ErrMissingDestination
	}
	in := w.engine.Intents.Parse(ctx, wishes.Query())
	dests := w.engine.Destinations.Destinations(ctx, wishes, in)
	if n := w.engine.planner().DestinationCandidates; len(dests) > n {
		dests = dests[:n]
	}
	w.plan.Wishes = &wishes
	w.plan.Intent = &in
	w.destinations = swipe.New(dests)
	w.stage = domain.StageDestination
	return nil
}

// Like accepts the current candidate of the active swipe stage.
func (w *Workflow) Like() error {
	switch w.stage {
	case domain.StageDestination:
		return w.destinations.Like()
	case domain.StageAccommodation:
		return w.stays.Like()
	}
	return fmt.Errorf("%w: no swipe session in stage %s", domain.ErrInvalidTransition, w.stage)
}

// Pass rejects the current candidate of the active swipe stage.
func (w *Workflow) Pass() error {
	switch w.stage {
	case domain.StageDestination:
		return w.destinations.Pass()
	case domain.StageAccommodation:
		return w.stays.Pass()
	}
	return fmt.Errorf("%w: no swipe session in stage %s", domain.ErrInvalidTransition, w.stage)
}

// ResetSwipe restarts the active swipe stage. It is the only way out of a
// session that finished with nothing liked.
func (w *Workflow) ResetSwipe() error {
	switch w.stage {
	case domain.StageDestination:
		w.destinations.Reset()
		return nil
	case domain.StageAccommodation:
		w.stays.Reset()
		return nil
	}
	return fmt.Errorf("%w: no swipe session in stage %s", domain.ErrInvalidTransition, w.stage)
}

func choices[T any](s *swipe.Session[T]) ([]T, error) {
	if !s.Complete() {
		return nil, domain.ErrSwipeIncomplete
	}
	liked := s.Liked()
	if len(liked) == 0 {
		return nil, domain.ErrNoLikedCandidates
	}
	return liked, nil
}

func pick[T domain.Candidate](liked []T, id string) (T, error) {
	if id == "" {
		return liked[0], nil
	}
	for _, c := range liked {
		if c.Info().ID == id {
			return c, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s was not liked", domain.ErrUnknownCandidate, id)
}

// DestinationChoices is the liked list offered once every destination was shown.
func (w *Workflow) DestinationChoices() ([]domain.Destination, error) {
	if err := w.ensureStage("destination choices", domain.StageDestination); err != nil {
		return nil, err
	}
	return choices(w.destinations)
}

// AccommodationChoices is the liked list offered once every property was shown.
func (w *Workflow) AccommodationChoices() ([]domain.Property, error) {
	if err := w.ensureStage("accommodation choices", domain.StageAccommodation); err != nil {
		return nil, err
	}
	return choices(w.stays)
}

// ChooseDestination freezes a liked destination into the plan and opens the
// accommodation swipe session. An empty id takes the first liked one.
func (w *Workflow) ChooseDestination(id string) error {
	liked, err := w.DestinationChoices()
	if err != nil {
		return err
	}
	d, err := pick(liked, id)
	if err != nil {
		return err
	}
	w.plan.Destination = &d
	w.stays = swipe.New(w.accommodationCandidates(d))
	w.stage = domain.StageAccommodation
	return nil
}

// ChooseAccommodation freezes a liked property into the plan and moves to Dining.
func (w *Workflow) ChooseAccommodation(id string) error {
	liked, err := w.AccommodationChoices()
	if err != nil {
		return err
	}
	p, err := pick(liked, id)
	if err != nil {
		return err
	}
	w.plan.Accommodation = &p
	w.dining = rankedAt[domain.Restaurant](w, domain.KindRestaurant, w.engine.planner().DiningCandidates)
	w.stage = domain.StageDining
	return nil
}

// DiningOptions are the restaurants offered in the Dining stage, best first.
func (w *Workflow) DiningOptions() []domain.Restaurant { return append([]domain.Restaurant{}, w.dining...) }

// ExperienceOptions are the experiences offered in the Experiences stage, best first.
func (w *Workflow) ExperienceOptions() []domain.Experience {
	return append([]domain.Experience{}, w.activities...)
}

func selectByID[T domain.Candidate](options []T, ids []string) ([]T, error) {
	out := []T{}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		found := false
		for _, o := range options {
			if o.Info().ID == id {
				out = append(out, o)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s was not offered", domain.ErrUnknownCandidate, id)
		}
		seen[id] = true
	}
	return out, nil
}

// SelectRestaurants stores the chosen restaurants (possibly none) and moves to Experiences.
func (w *Workflow) SelectRestaurants(ids []string) error {
	if err := w.ensureStage("select restaurants", domain.StageDining); err != nil {
		return err
	}
	picked, err := selectByID(w.dining, ids)
	if err != nil {
		return err
	}
	w.plan.Restaurants = picked
	w.activities = w.experienceCandidates()
	w.stage = domain.StageExperiences
	return nil
}

func (w *Workflow) experienceCandidates() []domain.Experience {
	return rankedAt[domain.Experience](w, domain.KindExperience, w.engine.planner().ExperienceCandidates)
}

// SelectExperiences stores the chosen experiences and moves to Itinerary.
func (w *Workflow) SelectExperiences(ids []string) error {
	if err := w.ensureStage("select experiences", domain.StageExperiences); err != nil {
		return err
	}
	picked, err := selectByID(w.activities, ids)
	if err != nil {
		return err
	}
	w.plan.Experiences = picked
	return w.enterItinerary()
}

// FinishEarly jumps from Dining or Experiences straight to Itinerary, keeping
// the current stage's picks and clearing every later stage's data.
func (w *Workflow) FinishEarly(ids []string) error {
	if err := w.ensureStage("finish early", domain.StageDining, domain.StageExperiences); err != nil {
		return err
	}
	if w.stage == domain.StageDining {
		picked, err := selectByID(w.dining, ids)
		if err != nil {
			return err
		}
		w.plan.Restaurants = picked
		w.plan.Experiences = []domain.Experience{}
		w.activities = nil
		return w.enterItinerary()
	}
	picked, err := selectByID(w.activities, ids)
	if err != nil {
		return err
	}
	w.plan.Experiences = picked
	return w.enterItinerary()
}

func (w *Workflow) enterItinerary() error {
	days, err := itinerary.Schedule(w.plan, w.engine.times())
	if err != nil {
		return err
	}
	w.plan.Itinerary = days
	w.plan.Budget = nil
	w.stage = domain.StageItinerary
	return nil
}

// EstimateBudget previews the totals Finalize will store.
func (w *Workflow) EstimateBudget() domain.BudgetBreakdown {
	return itinerary.Budget(w.plan, w.engine.pricing())
}

// Finalize computes the budget, moves to Done and saves the plan for known
// users. A failed save keeps Done and the plan; RetrySave can try again.
func (w *Workflow) Finalize(ctx context.Context) error {
	if err := w.ensureStage("finalize", domain.StageItinerary); err != nil {
		return err
	}
	days, err := itinerary.Schedule(w.plan, w.engine.times())
	if err != nil {
		return err
	}
	b := itinerary.Budget(w.plan, w.engine.pricing())
	w.plan.Itinerary = days
	w.plan.Budget = &b
	if w.plan.Name == "" {
		w.plan.Name = "Trip to " + w.plan.DestinationName()
	}
	w.stage = domain.StageDone
	return w.save(ctx)
}

// RetrySave repeats a failed save. Only legal in Done before a successful save.
func (w *Workflow) RetrySave(ctx context.Context) error {
	if err := w.ensureStage("retry save", domain.StageDone); err != nil {
		return err
	}
	if w.plan.Saved {
		return fmt.Errorf("%w: plan already saved", domain.ErrInvalidTransition)
	}
	if w.userID == "" {
		return fmt.Errorf("%w: guests cannot save plans", domain.ErrInvalidTransition)
	}
	return w.save(ctx)
}

func (w *Workflow) save(ctx context.Context) error {
	if w.userID == "" || w.engine.Store == nil {
		return nil
	}
	id, err := w.engine.Store.SaveTripPlan(ctx, w.userID, w.plan)
	if err != nil {
		w.saveErr = err
		return w.persistFailed("save trip plan", err)
	}
	w.saveErr = nil
	w.plan.ID = id
	w.plan.Saved = true
	return nil
}

// Back returns to the previous stage from Destination through Itinerary.
// Collected data stays until a forward step overwrites it. Experiences
// skipped by finishing early are offered on the way back.
func (w *Workflow) Back() error {
	if w.stage.Before(domain.StageDestination) || w.stage == domain.StageDone {
		return fmt.Errorf("%w: cannot go back from %s", domain.ErrInvalidTransition, w.stage)
	}
	prev, _ := w.stage.Prev()
	if prev == domain.StageExperiences && w.activities == nil {
		w.activities = w.experienceCandidates()
	}
	w.stage = prev
	return nil
}

// Restart returns to Wishes with an empty plan. Preferences and the attached
// user survive.
func (w *Workflow) Restart() error {
	if err := w.ensureStage("restart", domain.StageDining, domain.StageExperiences, domain.StageItinerary, domain.StageDone); err != nil {
		return err
	}
	w.plan = emptyPlan()
	w.destinations = nil
	w.stays = nil
	w.dining = nil
	w.activities = nil
	w.saveErr = nil
	w.stage = domain.StageWishes
	return nil
}

// scoringPrefs merges the stored preferences with what the wishes asked for.
func (w *Workflow) scoringPrefs() domain.Preferences {
	p := w.prefs
	if in := w.plan.Intent; in != nil {
		p.Activities = append(append([]domain.ActivityTag{}, p.Activities...), in.Activities...)
		if _, ok := p.BudgetCeiling(); !ok && in.Budget != nil {
			b := *in.Budget
			p.Budget = &b
		}
	}
	return p
}

// accommodationCandidates ranks properties at the destination, widening to the
// whole catalog when the city has none.
func (w *Workflow) accommodationCandidates(d domain.Destination) []domain.Property {
	n := w.engine.planner().AccommodationCandidates
	props := catalog.Of[domain.Property](w.engine.Catalog.Filter(catalog.Filters{Kind: domain.KindProperty, City: d.City}))
	if len(props) == 0 {
		props = catalog.Of[domain.Property](w.engine.Catalog.Filter(catalog.Filters{Kind: domain.KindProperty}))
	}
	return scoring.Rank(props, w.scoringPrefs(), n)
}

func rankedAt[T domain.Candidate](w *Workflow, kind domain.Kind, n int) []T {
	city := ""
	if w.plan.Destination != nil {
		city = w.plan.Destination.City
	}
	items := catalog.Of[T](w.engine.Catalog.Filter(catalog.Filters{Kind: kind, City: city}))
	if len(items) == 0 {
		items = catalog.Of[T](w.engine.Catalog.Filter(catalog.Filters{Kind: kind}))
	}
	return scoring.Rank(items, w.scoringPrefs(), n)
}

// SaveError is the last save failure, if the plan is still unsaved.
func (w *Workflow) SaveError() error { return w.saveErr }

// Snapshot is the serializable state of a workflow.
type Snapshot struct {
	ID                string                          `json:"id"`
	Stage             domain.Stage                    `json:"stage"`
	UserID            string                          `json:"user_id,omitempty"`
	Preferences       domain.Preferences              `json:"preferences"`
	Plan              domain.TripPlan                 `json:"plan"`
	Destinations      *swipe.View[domain.Destination] `json:"destinations,omitempty"`
	Accommodations    *swipe.View[domain.Property]    `json:"accommodations,omitempty"`
	RestaurantOptions []domain.Restaurant             `json:"restaurant_options,omitempty"`
	ExperienceOptions []domain.Experience             `json:"experience_options,omitempty"`
	CanGoBack         bool                            `json:"can_go_back"`
	SaveError         string                          `json:"save_error,omitempty"`
	CreatedAt         time.Time                       `json:"created_at"`
}

func (w *Workflow) Snapshot() Snapshot {
	s := Snapshot{
		ID:                w.ID,
		Stage:             w.stage,
		UserID:            w.userID,
		Preferences:       w.prefs,
		Plan:              w.plan,
		RestaurantOptions: w.DiningOptions(),
		ExperienceOptions: w.ExperienceOptions(),
		CanGoBack:         !w.stage.Before(domain.StageDestination) && w.stage != domain.StageDone,
		CreatedAt:         w.created,
	}
	if w.destinations != nil {
		v := w.destinations.View()
		s.Destinations = &v
	}
	if w.stays != nil {
		v := w.stays.View()
		s.Accommodations = &v
	}
	if w.saveErr != nil {
		s.SaveError = w.saveErr.Error()
	}
	return s
}
