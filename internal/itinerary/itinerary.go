// Package itinerary derives the budget and day-by-day schedule from a finished
// trip plan and renders it as a PDF.
package itinerary

import (
	"fmt"
	"time"

	"tripline/internal/config"
	"tripline/internal/domain"
)

// Pricing holds the flat estimates used for the budget.
type Pricing struct {
	Nights             int
	RestaurantEstimate float64
	LocalTransport     float64
}

func PricingFrom(p config.Planner) Pricing {
	return Pricing{Nights: p.Nights, RestaurantEstimate: p.RestaurantEstimate, LocalTransport: p.LocalTransport}
}

// NightsFor prefers the nights implied by the wished travel dates.
func (p Pricing) NightsFor(plan domain.TripPlan) int {
	if plan.Wishes != nil && plan.Wishes.TravelDates != nil {
		if n := plan.Wishes.TravelDates.Nights(); n > 0 {
			return n
		}
	}
	return p.Nights
}

// Budget sums nightly rate × nights, a flat estimate per restaurant, every
// experience price and the local transport estimate.
func Budget(plan domain.TripPlan, p Pricing) domain.BudgetBreakdown {
	b := domain.BudgetBreakdown{Nights: p.NightsFor(plan), LocalTransport: p.LocalTransport}
	if plan.Accommodation != nil {
		b.Accommodation = plan.Accommodation.Price * float64(b.Nights)
	}
	b.Dining = float64(len(plan.Restaurants)) * p.RestaurantEstimate
	for _, e := range plan.Experiences {
		b.Experiences += e.Price
	}
	b.Total = b.Accommodation + b.Dining + b.Experiences + b.LocalTransport
	return b
}

// Times are the assumed arrival and departure clock times, e.g. "2:30 PM".
type Times struct {
	Arrival   string
	Departure string
}

func TimesFrom(p config.Planner) Times {
	return Times{Arrival: p.ArrivalTime, Departure: p.DepartureTime}
}

// Schedule lays out the three-day template. Named restaurants and experiences
// are used in selection order; missing ones get generic placeholders.
func Schedule(plan domain.TripPlan, t Times) ([]domain.DayPlan, error) {
	arrival, err := config.ParseClock(t.Arrival)
	if err != nil {
		return nil, err
	}
	departure, err := config.ParseClock(t.Departure)
	if err != nil {
		return nil, err
	}
	arrivalHour, departureHour := arrival/60, departure/60

	checkin := arrivalHour + 1
	lunch := max(checkin+1, 14)
	transfer := max(departureHour-2, 16)
	checkout := max(transfer-1, 14)

	rest := func(i int, placeholder string) string {
		if i < len(plan.Restaurants) {
			return plan.Restaurants[i].Name
		}
		return placeholder
	}
	exp := func(i int, placeholder string) string {
		if i < len(plan.Experiences) {
			return plan.Experiences[i].Name
		}
		return placeholder
	}
	stay := "accommodation"
	if plan.Accommodation != nil {
		stay = plan.Accommodation.Name
	}
	finalMeal := rest(4, rest(0, "favorite spot"))

	return []domain.DayPlan{
		{Label: "Day 1", Slots: []domain.Slot{
			{Time: t.Arrival, Activities: []string{
				"Arrive in " + plan.DestinationName(),
				fmt.Sprintf("Check in at %s (%s)", stay, clock(checkin)),
			}},
			{Time: clock(lunch), Activities: []string{"Lunch at " + rest(0, "local restaurant"), "City walking tour"}},
			{Time: clock(19), Activities: []string{"Dinner at " + rest(1, "recommended restaurant"), "Evening stroll around the neighborhood"}},
		}},
		{Label: "Day 2", Slots: []domain.Slot{
			{Time: clock(9), Activities: []string{"Breakfast at " + stay, exp(0, "Museum visit")}},
			{Time: clock(13), Activities: []string{"Lunch at " + rest(2, "local café"), exp(1, "Adventure activity")}},
			{Time: clock(18), Activities: []string{"Sunset boat tour", "Dinner at " + rest(3, "restaurant with a view")}},
		}},
		{Label: "Day 3", Slots: []domain.Slot{
			{Time: clock(10), Activities: []string{"Leisurely breakfast", exp(2, "Shopping and souvenirs")}},
			{Time: clock(checkout), Activities: []string{"Final meal at " + finalMeal, "Pack and check out"}},
			{Time: clock(transfer), Activities: []string{"Departure preparation", fmt.Sprintf("Leave %s at %s", plan.DestinationName(), t.Departure)}},
		}},
	}, nil
}

func clock(hour int) string {
	return time.Date(2000, 1, 1, hour%24, 0, 0, 0, time.UTC).Format("3:04 PM")
}
