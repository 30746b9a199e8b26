package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"itinerary-planner/internal/models"
)

func newTestStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.json")
	store, err := NewJSONStore(path, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, path
}

func sampleTrip() *models.Trip {
	return &models.Trip{
		Title: "Kansai",
		Days: []models.DayPlan{{
			Date: "2025-04-01",
			City: "Kyoto",
			Activities: []models.Activity{
				{ID: "a1", Name: "Fushimi Inari", StartTime: "09:00", EndTime: "11:00"},
			},
		}},
	}
}

func TestJSONStore_CreateAssignsIDAndTimestamps(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Trips().Create(ctx, sampleTrip())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.Trips().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "Kansai" || len(got.Days) != 1 || got.Days[0].Activities[0].Name != "Fushimi Inari" {
		t.Errorf("unexpected trip: %+v", got)
	}
}

func TestJSONStore_DuplicateIDRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	trip := sampleTrip()
	trip.ID = "fixed"
	if _, err := store.Trips().Create(ctx, trip); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	again := sampleTrip()
	again.ID = "fixed"
	if _, err := store.Trips().Create(ctx, again); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestJSONStore_ReturnedTripsAreCopies(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Trips().Create(ctx, sampleTrip())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, _ := store.Trips().GetByID(ctx, created.ID)
	got.Days[0].Activities[0].Name = "mutated"

	again, _ := store.Trips().GetByID(ctx, created.ID)
	if again.Days[0].Activities[0].Name != "Fushimi Inari" {
		t.Error("mutating a returned trip must not change the stored snapshot")
	}
}

func TestJSONStore_UpdateAndReload(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	created, err := store.Trips().Create(ctx, sampleTrip())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	createdAt := created.CreatedAt

	created.Title = "Kansai & Nara"
	created.Days[0].Activities = append(created.Days[0].Activities, models.Activity{ID: "a2", Name: "Nara Park"})
	updated, err := store.Trips().Update(ctx, created)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.CreatedAt.Equal(createdAt) {
		t.Error("update must preserve created_at")
	}

	reopened, err := NewJSONStore(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Trips().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if got.Title != "Kansai & Nara" || len(got.Days[0].Activities) != 2 {
		t.Errorf("unexpected trip after reopen: %+v", got)
	}
}

func TestJSONStore_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Trips().GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on get, got %v", err)
	}
	if _, err := store.Trips().Update(ctx, &models.Trip{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
	if err := store.Trips().Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestJSONStore_ListSearchAndDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Tokyo", "Hokkaido", "Kyoto"} {
		trip := sampleTrip()
		trip.Title = title
		if _, err := store.Trips().Create(ctx, trip); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	all, err := store.Trips().List(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 || all[0].Title != "Hokkaido" || all[2].Title != "Tokyo" {
		t.Errorf("expected trips sorted by title, got %v", titles(all))
	}

	kyo, _ := store.Trips().List(ctx, "KYO")
	if len(kyo) != 2 {
		t.Errorf("expected 2 matches for 'KYO', got %v", titles(kyo))
	}

	if err := store.Trips().Delete(ctx, all[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	remaining, _ := store.Trips().List(ctx, "")
	if len(remaining) != 2 {
		t.Errorf("expected 2 trips after delete, got %d", len(remaining))
	}
}

func titles(trips []models.Trip) []string {
	out := make([]string, len(trips))
	for i, t := range trips {
		out[i] = t.Title
	}
	return out
}
