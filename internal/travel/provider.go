// Package travel estimates the travel time of a single leg between two coordinates.
package travel

import (
	"context"
	"fmt"
	"time"

	"itinerary-planner/internal/models"
)

// Estimate is a provider's answer for one leg
type Estimate struct {
	// Mode is the resolved mode; transit providers may narrow TRANSIT to TRAIN or BUS
	Mode           models.TravelMode
	DurationSecs   float64
	DistanceMeters float64
	Fare           *models.Fare
}

// DurationMinutes returns the duration rounded up to whole minutes
func (e *Estimate) DurationMinutes() int {
	return int((e.DurationSecs + 59) / 60)
}

// Provider returns a travel-time estimate for one leg departing at the given time
type Provider interface {
	Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*Estimate, error)
}

// ErrEstimateFailed is returned when a provider cannot produce an estimate
type ErrEstimateFailed struct {
	Mode   models.TravelMode
	Origin models.Coordinates
	Dest   models.Coordinates
	Reason string
}

func (e *ErrEstimateFailed) Error() string {
	return fmt.Sprintf("travel estimate failed: mode=%s %s", e.Mode, e.Reason)
}

// FormatDistance renders meters for display ("850 m", "2.4 km")
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
