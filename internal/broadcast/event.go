// Package broadcast publishes committed trip snapshots to live clients and
// message brokers.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"itinerary-planner/internal/models"
)

// EventType is also used as the broker routing key
type EventType string

const (
	EventTripCreated EventType = "trip.created"
	EventTripUpdated EventType = "trip.updated"
	EventTripDeleted EventType = "trip.deleted"
)

// TripEvent is sent after a mutation has been saved. Trip is nil for deletions.
type TripEvent struct {
	Type   EventType    `json:"type"`
	TripID string       `json:"tripId"`
	Trip   *models.Trip `json:"trip,omitempty"`
	At     time.Time    `json:"at"`
}

// NewTripEvent stamps an event with the current time
func NewTripEvent(typ EventType, trip *models.Trip) TripEvent {
	ev := TripEvent{Type: typ, Trip: trip, At: time.Now().UTC()}
	if trip != nil {
		ev.TripID = trip.ID
	}
	return ev
}

// Broadcaster delivers trip events. Publish failures never undo a save.
type Broadcaster interface {
	Publish(ctx context.Context, ev TripEvent) error
	Close() error
}

func encodeEvent(ev TripEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trip event: %w", err)
	}
	return data, nil
}

type multi []Broadcaster

// Multi fans every event out to all non-nil broadcasters
func Multi(bs ...Broadcaster) Broadcaster {
	var m multi
	for _, b := range bs {
		if b != nil {
			m = append(m, b)
		}
	}
	return m
}

func (m multi) Publish(ctx context.Context, ev TripEvent) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(ctx, ev); err != nil {
			log.Printf("[BROADCAST] Publish failed: type=%s trip=%s err=%v", ev.Type, ev.TripID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, b := range m {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
