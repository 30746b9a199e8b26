package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"itinerary-planner/internal/models"
)

type travelCacheRepository struct {
	store *Store
}

func (r *travelCacheRepository) Get(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, bucket string) (*models.TravelCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT mode, origin_lat, origin_lng, dest_lat, dest_lng, departure_bucket,
	                 duration_secs, distance_meters, sub_mode, fare_amount, fare_currency
	          FROM travel_cache
	          WHERE mode = ? AND origin_lat = ? AND origin_lng = ? AND dest_lat = ? AND dest_lng = ? AND departure_bucket = ?`

	var entry models.TravelCacheEntry
	var subMode string
	var fare sql.NullFloat64
	err := r.store.db.QueryRowContext(ctx, query, string(mode),
		models.RoundCoordinate(origin.Lat), models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat), models.RoundCoordinate(dest.Lng),
		bucket,
	).Scan(
		&entry.Mode,
		&entry.Origin.Lat, &entry.Origin.Lng,
		&entry.Destination.Lat, &entry.Destination.Lng,
		&entry.DepartureBucket,
		&entry.DurationSecs, &entry.DistanceMeters,
		&subMode, &fare, &entry.FareCurrency,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get travel cache entry: %w", err)
	}

	entry.SubMode = models.TravelMode(subMode)
	if fare.Valid {
		amount := fare.Float64
		entry.FareAmount = &amount
	}
	return &entry, nil
}

func (r *travelCacheRepository) Set(ctx context.Context, entry *models.TravelCacheEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `INSERT OR REPLACE INTO travel_cache
	          (mode, origin_lat, origin_lng, dest_lat, dest_lng, departure_bucket,
	           duration_secs, distance_meters, sub_mode, fare_amount, fare_currency)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var fare sql.NullFloat64
	if entry.FareAmount != nil {
		fare = sql.NullFloat64{Float64: *entry.FareAmount, Valid: true}
	}

	_, err := r.store.db.ExecContext(ctx, query,
		string(entry.Mode),
		models.RoundCoordinate(entry.Origin.Lat), models.RoundCoordinate(entry.Origin.Lng),
		models.RoundCoordinate(entry.Destination.Lat), models.RoundCoordinate(entry.Destination.Lng),
		entry.DepartureBucket,
		entry.DurationSecs, entry.DistanceMeters,
		string(entry.SubMode), fare, entry.FareCurrency,
	)
	if err != nil {
		return fmt.Errorf("failed to set travel cache entry: %w", err)
	}

	return nil
}

func (r *travelCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM travel_cache"); err != nil {
		return fmt.Errorf("failed to clear travel cache: %w", err)
	}

	return nil
}
