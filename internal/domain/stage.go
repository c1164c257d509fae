package domain

// Stage is a step of the planning workflow.
type Stage string

const (
	StageOnboarding    Stage = "onboarding"
	StagePreferences   Stage = "preferences"
	StageWishes        Stage = "wishes"
	StageDestination   Stage = "destination"
	StageAccommodation Stage = "accommodation"
	StageDining        Stage = "dining"
	StageExperiences   Stage = "experiences"
	StageItinerary     Stage = "itinerary"
	StageDone          Stage = "done"
)

// StageOrder is the happy path, first to last.
var StageOrder = []Stage{
	StageOnboarding, StagePreferences, StageWishes, StageDestination,
	StageAccommodation, StageDining, StageExperiences, StageItinerary, StageDone,
}

func (s Stage) index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the following stage on the happy path.
func (s Stage) Next() (Stage, bool) {
	i := s.index()
	if i < 0 || i == len(StageOrder)-1 {
		return s, false
	}
	return StageOrder[i+1], true
}

// Prev returns the preceding stage on the happy path.
func (s Stage) Prev() (Stage, bool) {
	i := s.index()
	if i <= 0 {
		return s, false
	}
	return StageOrder[i-1], true
}

// Before reports whether s comes earlier than other on the happy path.
func (s Stage) Before(other Stage) bool {
	return s.index() < other.index()
}
