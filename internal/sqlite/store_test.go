package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"itinerary-planner/internal/database"
	"itinerary-planner/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "itinerary.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTrip(title string) *models.Trip {
	duration := 90
	return &models.Trip{
		Title: title,
		Days: []models.DayPlan{{
			Date:          "2025-04-01",
			City:          "Tokyo",
			Accommodation: &models.Accommodation{Name: "Hotel", Location: &models.Coordinates{Lat: 35.6895, Lng: 139.6917}},
			Activities: []models.Activity{
				{ID: "a1", Name: "Meiji Jingu", StartTime: "09:00", EndTime: "10:00", LockedStartTime: true},
				{ID: "a2", Name: "Ueno", StartTime: "10:30", EndTime: "12:00", LockedDurationMinutes: &duration},
			},
			TravelSegments: []models.TravelSegment{{FromID: "a1", ToID: "a2", Mode: models.ModeTrain, DurationValue: 1500}},
		}},
	}
}

func TestStore_TripRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Trips().Create(ctx, sampleTrip("Tokyo"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}

	got, err := store.Trips().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	day := got.Days[0]
	if day.Accommodation == nil || day.Accommodation.Location.Lat != 35.6895 {
		t.Errorf("accommodation lost: %+v", day.Accommodation)
	}
	if !day.Activities[0].LockedStartTime {
		t.Error("anchor flag lost")
	}
	if day.Activities[1].LockedDurationMinutes == nil || *day.Activities[1].LockedDurationMinutes != 90 {
		t.Error("locked duration lost")
	}
	if len(day.TravelSegments) != 1 || day.TravelSegments[0].Mode != models.ModeTrain {
		t.Errorf("segments lost: %+v", day.TravelSegments)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestStore_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := sampleTrip("Tokyo")
	trip.ID = "fixed"
	if _, err := store.Trips().Create(ctx, trip); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	again := sampleTrip("Tokyo again")
	again.ID = "fixed"
	if _, err := store.Trips().Create(ctx, again); !errors.Is(err, database.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestStore_UpdateKeepsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Trips().Create(ctx, sampleTrip("Tokyo"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	createdAt := created.CreatedAt

	created.Title = "Tokyo and Nikko"
	created.Days = append(created.Days, models.DayPlan{Date: "2025-04-02", City: "Nikko"})
	updated, err := store.Trips().Update(ctx, created)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.CreatedAt.Equal(createdAt) {
		t.Errorf("created_at changed on update")
	}

	got, _ := store.Trips().GetByID(ctx, created.ID)
	if got.Title != "Tokyo and Nikko" || len(got.Days) != 2 {
		t.Errorf("update not persisted: %+v", got)
	}

	missing := sampleTrip("ghost")
	missing.ID = "does-not-exist"
	if _, err := store.Trips().Update(ctx, missing); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Osaka", "Kyoto", "Tokyo"} {
		if _, err := store.Trips().Create(ctx, sampleTrip(title)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	all, err := store.Trips().List(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 || all[0].Title != "Kyoto" || all[2].Title != "Tokyo" {
		t.Errorf("expected trips sorted by title, got %+v", all)
	}

	filtered, _ := store.Trips().List(ctx, "osa")
	if len(filtered) != 1 || filtered[0].Title != "Osaka" {
		t.Errorf("expected only Osaka, got %+v", filtered)
	}

	if err := store.Trips().Delete(ctx, all[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Trips().GetByID(ctx, all[0].ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Trips().Delete(ctx, all[0].ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_TravelCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cache := store.TravelCache()

	origin := models.Coordinates{Lat: 35.689512345, Lng: 139.691712345}
	dest := models.Coordinates{Lat: 35.7141, Lng: 139.7774}
	amount := 210.0

	if got, err := cache.Get(ctx, models.ModeTransit, origin, dest, "Tue 09"); err != nil || got != nil {
		t.Fatalf("expected miss, got %+v err=%v", got, err)
	}

	err := cache.Set(ctx, &models.TravelCacheEntry{
		Mode:            models.ModeTransit,
		Origin:          origin,
		Destination:     dest,
		DepartureBucket: "Tue 09",
		DurationSecs:    1500,
		DistanceMeters:  8000,
		SubMode:         models.ModeTrain,
		FareAmount:      &amount,
		FareCurrency:    "JPY",
	})
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Lookups round to 5 decimals, so a nearby point hits
	near := models.Coordinates{Lat: 35.689514, Lng: 139.691714}
	got, err := cache.Get(ctx, models.ModeTransit, near, dest, "Tue 09")
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %+v err=%v", got, err)
	}
	if got.SubMode != models.ModeTrain || got.FareAmount == nil || *got.FareAmount != 210 {
		t.Errorf("unexpected entry %+v", got)
	}

	if other, _ := cache.Get(ctx, models.ModeTransit, origin, dest, "Tue 18"); other != nil {
		t.Error("different departure bucket should miss")
	}
	if other, _ := cache.Get(ctx, models.ModeWalking, origin, dest, "Tue 09"); other != nil {
		t.Error("different mode should miss")
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got, _ := cache.Get(ctx, models.ModeTransit, origin, dest, "Tue 09"); got != nil {
		t.Error("expected miss after clear")
	}
}

func TestStore_HealthCheckAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itinerary.db")
	store, err := New(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	created, err := store.Trips().Create(context.Background(), sampleTrip("Persisted"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	store.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Trips().GetByID(context.Background(), created.ID); err != nil {
		t.Errorf("trip not persisted: %v", err)
	}
}
