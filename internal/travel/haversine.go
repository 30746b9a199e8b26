package travel

import (
	"context"
	"math"
	"time"

	"itinerary-planner/internal/models"
)

const (
	// DefaultFallbackSpeedKmh approximates door-to-door public transport speed in a city
	DefaultFallbackSpeedKmh = 18.0
	// DefaultFallbackWait is added to every estimate for waiting and transfers
	DefaultFallbackWait = 5 * time.Minute
	// detourFactor converts great-circle distance into a street-network distance
	detourFactor = 1.3
)

type haversineEstimator struct {
	speedKmh float64
	wait     time.Duration
}

// NewHaversineEstimator creates a provider that needs no network: great-circle
// distance at speedKmh plus a fixed wait. It answers any mode as TRANSIT and is
// used as the last resort when the mode-specific providers fail.
func NewHaversineEstimator(speedKmh float64, wait time.Duration) Provider {
	if speedKmh <= 0 {
		speedKmh = DefaultFallbackSpeedKmh
	}
	if wait < 0 {
		wait = 0
	}
	return &haversineEstimator{speedKmh: speedKmh, wait: wait}
}

func (h *haversineEstimator) Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validCoordinates(origin) || !validCoordinates(dest) {
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "coordinates not resolved"}
	}

	meters := models.HaversineMeters(origin, dest) * detourFactor
	secs := meters/(h.speedKmh*1000)*3600 + h.wait.Seconds()

	return &Estimate{
		Mode:           models.ModeTransit,
		DurationSecs:   math.Round(secs),
		DistanceMeters: math.Round(meters),
	}, nil
}

// validCoordinates rejects the zero value and out-of-range points
func validCoordinates(c models.Coordinates) bool {
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
