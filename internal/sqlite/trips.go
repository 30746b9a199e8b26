package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"itinerary-planner/internal/database"
	"itinerary-planner/internal/models"
)

const timeLayout = time.RFC3339Nano

type tripRepository struct {
	store *Store
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	var days, createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Title, &days, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &t.Days); err != nil {
		return nil, fmt.Errorf("failed to decode days of trip %s: %w", t.ID, err)
	}
	var err error
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for trip %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at for trip %s: %w", t.ID, err)
	}
	return &t, nil
}

func encodeDays(days []models.DayPlan) (string, error) {
	if days == nil {
		days = []models.DayPlan{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("failed to encode days: %w", err)
	}
	return string(b), nil
}

func (r *tripRepository) List(ctx context.Context, search string) ([]models.Trip, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows *sql.Rows
	var err error

	if search != "" {
		query := `SELECT id, title, days, created_at, updated_at
		          FROM trips
		          WHERE title LIKE ?
		          ORDER BY title`
		rows, err = r.store.db.QueryContext(ctx, query, "%"+search+"%")
	} else {
		query := `SELECT id, title, days, created_at, updated_at
		          FROM trips
		          ORDER BY title`
		rows, err = r.store.db.QueryContext(ctx, query)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	trips := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trips: %w", err)
	}

	return trips, nil
}

func (r *tripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT id, title, days, created_at, updated_at FROM trips WHERE id = ?`
	t, err := scanTrip(r.store.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

func (r *tripRepository) Create(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	days, err := encodeDays(t.Days)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `INSERT INTO trips (id, title, days, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.store.db.ExecContext(ctx, query, t.ID, t.Title, days, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, database.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	log.Printf("[SQLITE] Created trip: id=%s", t.ID)
	return t, nil
}

func (r *tripRepository) Update(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	days, err := encodeDays(t.Days)
	if err != nil {
		return nil, err
	}

	var createdAt string
	err = r.store.db.QueryRowContext(ctx, `SELECT created_at FROM trips WHERE id = ?`, t.ID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trip: %w", err)
	}

	now := time.Now().UTC()
	query := `UPDATE trips SET title = ?, days = ?, updated_at = ? WHERE id = ?`
	if _, err := r.store.db.ExecContext(ctx, query, t.Title, days, now.Format(timeLayout), t.ID); err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}

	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for trip %s: %w", t.ID, err)
	}
	t.UpdatedAt = now
	log.Printf("[SQLITE] Updated trip: id=%s", t.ID)
	return t, nil
}

func (r *tripRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result, err := r.store.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}

	log.Printf("[SQLITE] Deleted trip: id=%s", id)
	return nil
}
