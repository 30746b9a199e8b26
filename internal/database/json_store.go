package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"itinerary-planner/internal/models"
)

// JSONData represents the structure of the JSON file
type JSONData struct {
	Version int           `json:"version"`
	Trips   []models.Trip `json:"trips"`
}

const jsonDataVersion = 1

// JSONStore is a JSON file-based data store
type JSONStore struct {
	filePath string
	data     *JSONData
	mu       sync.RWMutex

	tripRepository        TripRepository
	travelCacheRepository TravelCacheRepository
}

func (s *JSONStore) Trips() TripRepository              { return s.tripRepository }
func (s *JSONStore) TravelCache() TravelCacheRepository { return s.travelCacheRepository }

// NewJSONStore opens (or creates) the trip document at filePath
func NewJSONStore(filePath string, travelCache TravelCacheRepository) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	log.Printf("Using JSON data file: %s", filePath)

	store := &JSONStore{
		filePath: filePath,
		data:     &JSONData{},
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	store.tripRepository = &jsonTripRepository{repo: genericRepository[models.Trip]{
		store:        store,
		getSlice:     func(d *JSONData) *[]models.Trip { return &d.Trips },
		entityName:   "trip",
		getID:        func(t *models.Trip) string { return t.ID },
		setID:        func(t *models.Trip, id string) { t.ID = id },
		getName:      func(t *models.Trip) string { return t.Title },
		clone:        func(t models.Trip) models.Trip { return t.Clone() },
		getCreatedAt: func(t *models.Trip) time.Time { return t.CreatedAt },
		setCreatedAt: func(t *models.Trip, v time.Time) { t.CreatedAt = v },
		setUpdatedAt: func(t *models.Trip, v time.Time) { t.UpdatedAt = v },
	}}
	store.travelCacheRepository = travelCache

	return store, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = &JSONData{Version: jsonDataVersion, Trips: []models.Trip{}}
		return s.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	if err := json.Unmarshal(data, s.data); err != nil {
		return fmt.Errorf("failed to parse data file: %w", err)
	}

	if s.data.Trips == nil {
		s.data.Trips = []models.Trip{}
	}
	if s.data.Version == 0 {
		s.data.Version = jsonDataVersion
	}

	log.Printf("Loaded data: %d trips", len(s.data.Trips))
	return nil
}

func (s *JSONStore) saveUnlocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Close is a no-op for JSON store (data is saved after each operation)
func (s *JSONStore) Close() error {
	return nil
}

// HealthCheck verifies the data file is still readable
func (s *JSONStore) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.filePath)
	return err
}

// ==================== Trip Repository ====================

type jsonTripRepository struct {
	repo genericRepository[models.Trip]
}

func (r *jsonTripRepository) List(ctx context.Context, search string) ([]models.Trip, error) {
	return r.repo.list(ctx, search)
}

func (r *jsonTripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	return r.repo.getByID(ctx, id)
}

func (r *jsonTripRepository) Create(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	return r.repo.create(ctx, t)
}

func (r *jsonTripRepository) Update(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	return r.repo.update(ctx, t)
}

func (r *jsonTripRepository) Delete(ctx context.Context, id string) error {
	return r.repo.delete(ctx, id)
}
