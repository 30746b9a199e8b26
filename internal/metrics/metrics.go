// Package metrics records leg resolutions and optimisation runs.
package metrics

import (
	"context"
	"time"

	"itinerary-planner/internal/models"
)

// LegSource names where a stored leg came from
type LegSource string

const (
	SourceSelected    LegSource = "selected"
	SourceFallback    LegSource = "fallback"
	SourcePlaceholder LegSource = "placeholder"
)

// LegSample describes one resolved leg
type LegSample struct {
	Mode         models.TravelMode
	Source       LegSource
	DurationSecs int
	Alternative  bool
	Elapsed      time.Duration
}

// OptimizationSample describes one optimize-route run
type OptimizationSample struct {
	TripID          string
	DayIndex        int
	Activities      int
	Placeholders    int
	TotalTravelSecs int
	Elapsed         time.Duration
}

// Recorder receives samples. Implementations must not block the caller on I/O failures.
type Recorder interface {
	RecordLeg(ctx context.Context, s LegSample)
	RecordOptimization(ctx context.Context, s OptimizationSample)
	Close()
}

type noopRecorder struct{}

// Noop returns a Recorder that discards everything
func Noop() Recorder { return noopRecorder{} }

func (noopRecorder) RecordLeg(context.Context, LegSample)                   {}
func (noopRecorder) RecordOptimization(context.Context, OptimizationSample) {}
func (noopRecorder) Close()                                                 {}
