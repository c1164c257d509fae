package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ActivityTag names a kind of activity a candidate satisfies or a traveller wants.
type ActivityTag string

const (
	ActivityWhales    ActivityTag = "whales"
	ActivityMountains ActivityTag = "mountains"
	ActivityBeaches   ActivityTag = "beaches"
	ActivityCulture   ActivityTag = "culture"
	ActivityFood      ActivityTag = "food"
	ActivityAdventure ActivityTag = "adventure"
	ActivityNightlife ActivityTag = "nightlife"
	ActivityFamily    ActivityTag = "family"
)

// KnownActivities lists every tag in a stable order.
var KnownActivities = []ActivityTag{
	ActivityWhales, ActivityMountains, ActivityBeaches, ActivityCulture,
	ActivityFood, ActivityAdventure, ActivityNightlife, ActivityFamily,
}

func (a ActivityTag) Valid() bool {
	for _, k := range KnownActivities {
		if k == a {
			return true
		}
	}
	return false
}

// DateRange is an inclusive pair of travel dates.
type DateRange struct {
	Start time.Time `json:"start" format:"date"`
	End   time.Time `json:"end" format:"date"`
}

// Nights returns the number of nights between Start and End, or 0 for an invalid range.
func (d DateRange) Nights() int {
	if d.Start.IsZero() || d.End.IsZero() || !d.End.After(d.Start) {
		return 0
	}
	return int(d.End.Sub(d.Start).Hours() / 24)
}

// Intent is the structured reading of a free-text travel request.
type Intent struct {
	Activities []ActivityTag `json:"activities"`
	Location   *string       `json:"location,omitempty"`
	Budget     *float64      `json:"budget,omitempty"`
	Dates      *DateRange    `json:"dates,omitempty"`
	GroupSize  int           `json:"group_size"`
	Source     string        `json:"source" enum:"llm,keywords"`
}

// Preferences holds onboarding answers. Set once, may be amended.
type Preferences struct {
	AgeGroup            string        `json:"age_group,omitempty"`
	TravelFrequency     string        `json:"travel_frequency,omitempty"`
	BudgetRange         string        `json:"budget_range,omitempty"`
	GroupPreference     []string      `json:"group_preference,omitempty"`
	VacationStyle       []string      `json:"vacation_style,omitempty"`
	AccommodationType   []string      `json:"accommodation_type,omitempty"`
	LocationPreferences []string      `json:"location_preferences,omitempty"`
	TransportPreference []string      `json:"transport_preference,omitempty"`
	DietaryRestrictions []string      `json:"dietary_restrictions,omitempty"`
	Interests           []string      `json:"interests,omitempty"`
	AccessibilityNeeds  []string      `json:"accessibility_needs,omitempty"`
	LanguagePreferences []string      `json:"language_preferences,omitempty"`
	Activities          []ActivityTag `json:"activities,omitempty"`
	Budget              *float64      `json:"budget,omitempty"`
}

var amountPattern = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)

// BudgetCeiling returns the explicit budget, or else the upper bound of BudgetRange.
// Open-ended ranges ("$10,000+", "No budget limit") have no ceiling.
func (p Preferences) BudgetCeiling() (float64, bool) {
	if p.Budget != nil {
		return *p.Budget, true
	}
	return ParseBudgetRange(p.BudgetRange)
}

// ParseBudgetRange extracts the upper bound of strings like "$500 - $1,500" or "Under $500".
func ParseBudgetRange(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "+") {
		return 0, false
	}
	matches := amountPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(matches[len(matches)-1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Wishes is the free-form trip request collected before destination selection.
type Wishes struct {
	DestinationInput        string     `json:"destination_input"`
	TripDuration            string     `json:"trip_duration,omitempty"`
	TravelDates             *DateRange `json:"travel_dates,omitempty"`
	Flexibility             string     `json:"flexibility,omitempty"`
	TravelGroup             string     `json:"travel_group,omitempty"`
	GroupDetails            string     `json:"group_details,omitempty"`
	BudgetTotal             string     `json:"budget_total,omitempty"`
	TripStyle               []string   `json:"trip_style,omitempty"`
	MustHaveActivities      []string   `json:"must_have_activities,omitempty"`
	AccommodationPreference string     `json:"accommodation_preference,omitempty"`
	AccommodationTypes      []string   `json:"accommodation_types,omitempty"`
	SpecialOccasions        []string   `json:"special_occasions,omitempty"`
	AdditionalWishes        string     `json:"additional_wishes,omitempty"`
}

// Query renders the wishes as a free-text request for the intent parser.
func (w Wishes) Query() string {
	parts := []string{"I want to travel to " + strings.TrimSpace(w.DestinationInput) + "."}
	if len(w.TripStyle) > 0 {
		parts = append(parts, "Trip style: "+strings.Join(w.TripStyle, ", ")+".")
	}
	if len(w.MustHaveActivities) > 0 {
		parts = append(parts, "Must have: "+strings.Join(w.MustHaveActivities, ", ")+".")
	}
	if w.TravelGroup != "" {
		parts = append(parts, "Travelling: "+w.TravelGroup+".")
	}
	if w.BudgetTotal != "" {
		parts = append(parts, "Budget: "+w.BudgetTotal+".")
	}
	if s := strings.TrimSpace(w.AdditionalWishes); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// BudgetBreakdown is the per-category cost estimate computed when leaving the itinerary stage.
type BudgetBreakdown struct {
	Nights         int     `json:"nights"`
	Accommodation  float64 `json:"accommodation"`
	Dining         float64 `json:"dining"`
	Experiences    float64 `json:"experiences"`
	LocalTransport float64 `json:"local_transport"`
	Total          float64 `json:"total"`
}

// Slot is one time block of a day plan.
type Slot struct {
	Time       string   `json:"time"`
	Activities []string `json:"activities"`
}

type DayPlan struct {
	Label string `json:"label"`
	Slots []Slot `json:"slots"`
}

// TripPlan accumulates the output of every workflow stage.
type TripPlan struct {
	ID            string           `json:"id,omitempty"`
	Name          string           `json:"name,omitempty"`
	Wishes        *Wishes          `json:"wishes,omitempty"`
	Intent        *Intent          `json:"intent,omitempty"`
	Destination   *Destination     `json:"destination,omitempty"`
	Accommodation *Property        `json:"accommodation,omitempty"`
	Restaurants   []Restaurant     `json:"restaurants"`
	Experiences   []Experience     `json:"experiences"`
	Budget        *BudgetBreakdown `json:"budget,omitempty"`
	Itinerary     []DayPlan        `json:"itinerary,omitempty"`
	Saved         bool             `json:"saved"`
}

// DestinationName returns the chosen destination or "Unknown".
func (p TripPlan) DestinationName() string {
	if p.Destination == nil {
		return "Unknown"
	}
	return p.Destination.Name
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	AccountType string `json:"account_type"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// SavedPlan is a trip plan as stored for a user.
type SavedPlan struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Destination string   `json:"destination"`
	TravelDates string   `json:"travel_dates,omitempty"`
	Plan        TripPlan `json:"plan"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
