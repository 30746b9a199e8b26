package travel

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"itinerary-planner/internal/models"
)

type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next in a circuit breaker so a dead upstream fails
// fast instead of costing every leg its full timeout.
func NewBreakerProvider(name string, next Provider) Provider {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("[BREAKER] State change: name=%s from=%s to=%s", name, from.String(), to.String())
		},
		// Caller cancellation says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &breakerProvider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *breakerProvider) Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*Estimate, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.Estimate(ctx, mode, origin, dest, departure)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "circuit " + p.cb.Name() + " open"}
		}
		return nil, err
	}
	return v.(*Estimate), nil
}
