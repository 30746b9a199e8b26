package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"itinerary-planner/internal/database"
	"itinerary-planner/internal/models"
	"itinerary-planner/internal/travel"
)

// EstimateCall tracks a call to the provider
type EstimateCall struct {
	Mode      models.TravelMode
	Origin    models.Coordinates
	Dest      models.Coordinates
	Departure time.Time
}

// MockProvider is a deterministic travel.Provider for tests.
// Unless overridden, a leg takes haversine distance at SpeedKmh[mode].
type MockProvider struct {
	mu        sync.Mutex
	SpeedKmh  map[models.TravelMode]float64
	Overrides map[string]*travel.Estimate
	// Failures makes every call for a mode return an error
	Failures map[models.TravelMode]bool
	// Delay is slept (respecting ctx) before answering
	Delay time.Duration
	Calls []EstimateCall
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		SpeedKmh: map[models.TravelMode]float64{
			models.ModeWalking: 4.8,
			models.ModeTransit: 20,
			models.ModeDriving: 30,
		},
		Overrides: make(map[string]*travel.Estimate),
		Failures:  make(map[models.TravelMode]bool),
	}
}

func (m *MockProvider) makeKey(mode models.TravelMode, origin, dest models.Coordinates) string {
	return fmt.Sprintf("%s|%.5f,%.5f->%.5f,%.5f", mode, origin.Lat, origin.Lng, dest.Lat, dest.Lng)
}

// SetEstimate fixes the answer for one mode and origin-destination pair
func (m *MockProvider) SetEstimate(mode models.TravelMode, origin, dest models.Coordinates, est travel.Estimate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if est.Mode == "" {
		est.Mode = mode
	}
	m.Overrides[m.makeKey(mode, origin, dest)] = &est
}

// Fail makes all queries for mode return an error
func (m *MockProvider) Fail(mode models.TravelMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[mode] = true
}

func (m *MockProvider) Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*travel.Estimate, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, EstimateCall{Mode: mode, Origin: origin, Dest: dest, Departure: departure})
	delay := m.Delay
	failing := m.Failures[mode]
	override, hasOverride := m.Overrides[m.makeKey(mode, origin, dest)]
	speed := m.SpeedKmh[mode]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failing {
		return nil, &travel.ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "mock failure"}
	}

	if hasOverride {
		est := *override
		return &est, nil
	}

	if speed <= 0 {
		return nil, &travel.ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "mode not supported by mock"}
	}

	dist := models.HaversineMeters(origin, dest)
	return &travel.Estimate{
		Mode:           mode,
		DurationSecs:   dist / (speed * 1000) * 3600,
		DistanceMeters: dist,
	}, nil
}

// CallCount returns the number of recorded calls for mode
func (m *MockProvider) CallCount(mode models.TravelMode) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Mode == mode {
			n++
		}
	}
	return n
}

// ResetCalls clears the recorded calls
func (m *MockProvider) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// MockTravelCache is an in-memory database.TravelCacheRepository
type MockTravelCache struct {
	mu      sync.Mutex
	entries map[string]*models.TravelCacheEntry
}

func NewMockTravelCache() *MockTravelCache {
	return &MockTravelCache{
		entries: make(map[string]*models.TravelCacheEntry),
	}
}

func (c *MockTravelCache) Get(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, bucket string) (*models.TravelCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[database.TravelCacheKey(mode, origin, dest, bucket)]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, nil
}

func (c *MockTravelCache) Set(ctx context.Context, entry *models.TravelCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *entry
	c.entries[database.EntryKey(entry)] = &copied
	return nil
}

func (c *MockTravelCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*models.TravelCacheEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockTravelCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
