package itinerary

import (
	"context"
	"fmt"
	"log"
	"time"

	"itinerary-planner/internal/models"
	"itinerary-planner/internal/routing"
	"itinerary-planner/internal/timeofday"
)

// ErrPrecondition is returned when a day cannot be optimised as it stands
type ErrPrecondition struct {
	Reason string
}

func (e *ErrPrecondition) Error() string {
	return fmt.Sprintf("cannot optimize route: %s", e.Reason)
}

// ApplyOrder reorders the day by perm, replaces its segments and recalculates
func ApplyOrder(day models.DayPlan, perm []int, segments []models.TravelSegment) models.DayPlan {
	out := day.Clone()
	out.Activities = routing.ApplyPermutation(out.Activities, perm)
	out.TravelSegments = append([]models.TravelSegment(nil), segments...)
	return Recalculate(out)
}

// OptimizeResult carries the optimised day and the assembly behind it
type OptimizeResult struct {
	Day      models.DayPlan
	Order    []int
	Assembly *routing.Assembly
}

// Optimizer reorders a day's activities and fetches fresh travel segments
type Optimizer struct {
	assembler routing.LegAssembler
	location  *time.Location
}

// NewOptimizer creates an Optimizer. Day dates are read in loc (nil means UTC).
func NewOptimizer(assembler routing.LegAssembler, loc *time.Location) *Optimizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Optimizer{assembler: assembler, location: loc}
}

// Optimize solves the visiting order from the accommodation (or the first
// activity), resolves every leg and recalculates with the fresh segments.
func (o *Optimizer) Optimize(ctx context.Context, day models.DayPlan) (*OptimizeResult, error) {
	if len(day.Activities) < 2 {
		return nil, &ErrPrecondition{Reason: "at least 2 activities are required"}
	}

	origin, ok := Origin(day)
	if !ok {
		return nil, &ErrPrecondition{Reason: "the day has no accommodation or first activity with a location"}
	}

	start := time.Now()
	perm := routing.SolveOrder(origin, day.Activities, day.DayStart())
	ordered := routing.ApplyPermutation(day.Activities, perm)

	assembly, err := o.assembler.Assemble(ctx, routing.AssembleRequest{
		Origin:     origin,
		Activities: ordered,
		Departure:  o.departure(day),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble travel segments: %w", err)
	}

	optimized := ApplyOrder(day, perm, assembly.Segments)
	log.Printf("[ITINERARY] Optimized day: date=%s activities=%d travel_secs=%d placeholders=%d duration=%v",
		day.Date, len(optimized.Activities), assembly.TotalTravelSecs, assembly.Placeholders, time.Since(start))

	return &OptimizeResult{Day: optimized, Order: perm, Assembly: assembly}, nil
}

// Origin is the accommodation location, else the first activity's location
func Origin(day models.DayPlan) (models.Coordinates, bool) {
	if day.Accommodation != nil && day.Accommodation.Location != nil {
		return *day.Accommodation.Location, true
	}
	if len(day.Activities) > 0 && day.Activities[0].HasLocation() {
		return *day.Activities[0].Location, true
	}
	return models.Coordinates{}, false
}

// departure is the day's date at its start time, or today when the date is unset
func (o *Optimizer) departure(day models.DayPlan) time.Time {
	date, err := time.ParseInLocation("2006-01-02", day.Date, o.location)
	if err != nil {
		now := time.Now().In(o.location)
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, o.location)
	}
	return date.Add(time.Duration(timeofday.ToMinutes(day.DayStart())) * time.Minute)
}
