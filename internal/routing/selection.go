package routing

import (
	"fmt"
	"math"

	"itinerary-planner/internal/models"
	"itinerary-planner/internal/timeofday"
	"itinerary-planner/internal/travel"
)

const (
	// MaxWalkingMinutes is the longest walk offered as a primary leg
	MaxWalkingMinutes = 45
	// CompetitiveToleranceMinutes is the gap under which both modes are offered
	CompetitiveToleranceMinutes = 15
)

// PlaceholderDuration marks a leg without travel data
const PlaceholderDuration = "?"

// SelectLeg picks the segment to store for one leg from a walking and a transit
// estimate (either may be nil). It reports false when neither is available.
func SelectLeg(fromID, toID string, walking, transit *travel.Estimate) (models.TravelSegment, bool) {
	switch {
	case walking == nil && transit == nil:
		return models.TravelSegment{}, false
	case walking == nil:
		return segmentFrom(fromID, toID, transit, models.ModeTransit), true
	case transit == nil:
		return segmentFrom(fromID, toID, walking, models.ModeWalking), true
	}

	walkSecs := walking.DurationSecs
	transitSecs := transit.DurationSecs
	tolerance := float64(CompetitiveToleranceMinutes * 60)

	if walkSecs > MaxWalkingMinutes*60 {
		return segmentFrom(fromID, toID, transit, models.ModeTransit), true
	}
	if walkSecs-transitSecs > tolerance {
		return segmentFrom(fromID, toID, transit, models.ModeTransit), true
	}
	if transitSecs-walkSecs > tolerance {
		return segmentFrom(fromID, toID, walking, models.ModeWalking), true
	}

	// Competitive: faster one leads, ties go to walking
	primary, alternative := walking, transit
	primaryMode, altMode := models.ModeWalking, models.ModeTransit
	if transitSecs < walkSecs {
		primary, alternative = transit, walking
		primaryMode, altMode = models.ModeTransit, models.ModeWalking
	}

	seg := segmentFrom(fromID, toID, primary, primaryMode)
	altResolved := resolvedMode(alternative, altMode)
	altDuration := timeofday.FormatDuration(alternative.DurationMinutes())
	seg.AlternativeMode = altResolved
	seg.AlternativeDuration = altDuration
	seg.AlternativeLabel = fmt.Sprintf("%s: %s", altResolved.Label(), altDuration)
	return seg, true
}

// PlaceholderSegment is stored when no provider could answer for a leg.
// Its zero duration makes the recalculator fall back to the default buffer.
func PlaceholderSegment(fromID, toID string) models.TravelSegment {
	return models.TravelSegment{
		FromID:        fromID,
		ToID:          toID,
		Mode:          models.ModeWalking,
		DurationValue: 0,
		Duration:      PlaceholderDuration,
	}
}

// FallbackSegment wraps an answer from the provider-agnostic fallback
func FallbackSegment(fromID, toID string, est *travel.Estimate) models.TravelSegment {
	return segmentFrom(fromID, toID, est, models.ModeTransit)
}

func segmentFrom(fromID, toID string, est *travel.Estimate, requested models.TravelMode) models.TravelSegment {
	// A real answer never stores 0 s, which would read as a placeholder
	secs := int(math.Round(est.DurationSecs))
	if secs < 1 {
		secs = 1
	}
	seg := models.TravelSegment{
		FromID:        fromID,
		ToID:          toID,
		Mode:          resolvedMode(est, requested),
		DurationValue: secs,
		Duration:      timeofday.FormatDuration(est.DurationMinutes()),
	}
	if est.DistanceMeters > 0 {
		seg.Distance = travel.FormatDistance(est.DistanceMeters)
	}
	if est.Fare != nil {
		fare := *est.Fare
		seg.TransitFare = &fare
	}
	return seg
}

func resolvedMode(est *travel.Estimate, requested models.TravelMode) models.TravelMode {
	if est.Mode != "" {
		return est.Mode
	}
	return requested
}
