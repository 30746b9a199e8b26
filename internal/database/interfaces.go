package database

import (
	"context"
	"fmt"

	"itinerary-planner/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Trips() TripRepository
	TravelCache() TravelCacheRepository
}

// TripRepository handles trip persistence. Trips are always stored and returned whole.
type TripRepository interface {
	List(ctx context.Context, search string) ([]models.Trip, error)
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	Create(ctx context.Context, t *models.Trip) (*models.Trip, error)
	Update(ctx context.Context, t *models.Trip) (*models.Trip, error)
	Delete(ctx context.Context, id string) error
}

// TravelCacheRepository handles persistence of provider answers per leg.
// Get returns nil, nil on a miss.
type TravelCacheRepository interface {
	Get(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, bucket string) (*models.TravelCacheEntry, error)
	Set(ctx context.Context, entry *models.TravelCacheEntry) error
	Clear(ctx context.Context) error
}

// TravelCacheKey builds the lookup key for a leg; coordinates are rounded to 5 decimals (~1m)
func TravelCacheKey(mode models.TravelMode, origin, dest models.Coordinates, bucket string) string {
	return fmt.Sprintf("%s|%.5f,%.5f->%.5f,%.5f|%s", mode,
		models.RoundCoordinate(origin.Lat), models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat), models.RoundCoordinate(dest.Lng),
		bucket)
}

// EntryKey returns the lookup key for a stored entry
func EntryKey(e *models.TravelCacheEntry) string {
	return TravelCacheKey(e.Mode, e.Origin, e.Destination, e.DepartureBucket)
}
