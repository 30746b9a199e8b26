package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-planner/internal/metrics"
	"itinerary-planner/internal/models"
	"itinerary-planner/internal/testutil"
	"itinerary-planner/internal/travel"
)

type recordingRecorder struct {
	mu   sync.Mutex
	legs []metrics.LegSample
}

func (r *recordingRecorder) RecordLeg(_ context.Context, s metrics.LegSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legs = append(r.legs, s)
}

func (r *recordingRecorder) RecordOptimization(context.Context, metrics.OptimizationSample) {}
func (r *recordingRecorder) Close()                                                         {}

var (
	hotel  = models.Coordinates{Lat: 35.6895, Lng: 139.6917}
	shrine = models.Coordinates{Lat: 35.6764, Lng: 139.6993}
	museum = models.Coordinates{Lat: 35.7188, Lng: 139.7765}
)

func assemblyDay() []models.Activity {
	s, m := shrine, museum
	return []models.Activity{
		{ID: "shrine", StartTime: "09:00", EndTime: "10:00", Location: &s},
		{ID: "museum", StartTime: "10:30", EndTime: "12:00", Location: &m},
	}
}

func TestAssemble_SelectsPerLegAndAdvancesClock(t *testing.T) {
	walking := testutil.NewMockProvider()
	transit := testutil.NewMockProvider()
	walking.SetEstimate(models.ModeWalking, hotel, shrine, travel.Estimate{DurationSecs: 1200, DistanceMeters: 1600})
	transit.SetEstimate(models.ModeTransit, hotel, shrine, travel.Estimate{DurationSecs: 1320})
	walking.SetEstimate(models.ModeWalking, shrine, museum, travel.Estimate{DurationSecs: 4200})
	transit.SetEstimate(models.ModeTransit, shrine, museum, travel.Estimate{Mode: models.ModeTrain, DurationSecs: 1500})

	recorder := &recordingRecorder{}
	a := NewAssembler(walking, transit, nil, time.Second, recorder)
	departure := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	result, err := a.Assemble(context.Background(), AssembleRequest{
		Origin:     hotel,
		Activities: assemblyDay(),
		Departure:  departure,
	})
	require.NoError(t, err)
	require.Len(t, result.Segments, 2)

	first := result.Segments[0]
	assert.Equal(t, models.StartID, first.FromID)
	assert.Equal(t, "shrine", first.ToID)
	assert.Equal(t, models.ModeWalking, first.Mode)
	assert.Equal(t, "Transit: 22 min", first.AlternativeLabel)

	second := result.Segments[1]
	assert.Equal(t, "shrine", second.FromID)
	assert.Equal(t, "museum", second.ToID)
	assert.Equal(t, models.ModeTrain, second.Mode)
	assert.Empty(t, second.AlternativeMode)

	assert.Equal(t, 2700, result.TotalTravelSecs)
	assert.Equal(t, 0, result.Placeholders)

	// Second leg departs after the first leg's travel plus the shrine's hour
	require.Len(t, transit.Calls, 2)
	assert.Equal(t, departure, transit.Calls[0].Departure)
	assert.Equal(t, departure.Add(20*time.Minute+60*time.Minute), transit.Calls[1].Departure)

	require.Len(t, recorder.legs, 2)
	assert.Equal(t, metrics.SourceSelected, recorder.legs[0].Source)
	assert.True(t, recorder.legs[0].Alternative)
}

func TestAssemble_FallbackThenPlaceholder(t *testing.T) {
	walking := testutil.NewMockProvider()
	transit := testutil.NewMockProvider()
	fallback := testutil.NewMockProvider()
	walking.Fail(models.ModeWalking)
	transit.Fail(models.ModeTransit)
	fallback.Fail(models.ModeTransit)

	a := NewAssembler(walking, transit, fallback, time.Second, nil)
	result, err := a.Assemble(context.Background(), AssembleRequest{Origin: hotel, Activities: assemblyDay()})
	require.NoError(t, err)

	for _, seg := range result.Segments {
		assert.Equal(t, PlaceholderDuration, seg.Duration)
		assert.Equal(t, 0, seg.DurationValue)
		assert.Equal(t, models.ModeWalking, seg.Mode)
	}
	assert.Equal(t, 2, result.Placeholders)
	assert.Equal(t, 0, result.TotalTravelSecs)
	assert.Equal(t, 2, fallback.CallCount(models.ModeTransit))
}

func TestAssemble_FallbackAnswers(t *testing.T) {
	walking := testutil.NewMockProvider()
	transit := testutil.NewMockProvider()
	walking.Fail(models.ModeWalking)
	transit.Fail(models.ModeTransit)
	fallback := testutil.NewMockProvider()

	a := NewAssembler(walking, transit, fallback, time.Second, nil)
	result, err := a.Assemble(context.Background(), AssembleRequest{Origin: hotel, Activities: assemblyDay()})
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	for _, seg := range result.Segments {
		assert.Equal(t, models.ModeTransit, seg.Mode)
		assert.Greater(t, seg.DurationValue, 0)
	}
	assert.Equal(t, 0, result.Placeholders)
}

func TestAssemble_SlowProviderTimesOut(t *testing.T) {
	walking := testutil.NewMockProvider()
	walking.Delay = 500 * time.Millisecond
	transit := testutil.NewMockProvider()

	a := NewAssembler(walking, transit, nil, 20*time.Millisecond, nil)
	result, err := a.Assemble(context.Background(), AssembleRequest{Origin: hotel, Activities: assemblyDay()[:1]})
	require.NoError(t, err)

	require.Len(t, result.Segments, 1)
	assert.Equal(t, models.ModeTransit, result.Segments[0].Mode)
	assert.Empty(t, result.Segments[0].AlternativeMode)
}

func TestAssemble_UnresolvedLocationBecomesPlaceholder(t *testing.T) {
	walking := testutil.NewMockProvider()
	transit := testutil.NewMockProvider()

	activities := assemblyDay()
	activities[0].Location = nil

	a := NewAssembler(walking, transit, nil, time.Second, nil)
	result, err := a.Assemble(context.Background(), AssembleRequest{Origin: hotel, OriginID: "hotel", Activities: activities})
	require.NoError(t, err)

	assert.Equal(t, "hotel", result.Segments[0].FromID)
	assert.Equal(t, 2, result.Placeholders, "both legs touching the unresolved stop lack data")
	assert.Equal(t, 0, walking.CallCount(models.ModeWalking))
	assert.Equal(t, 0, transit.CallCount(models.ModeTransit))
}

func TestAssemble_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAssembler(testutil.NewMockProvider(), testutil.NewMockProvider(), nil, time.Second, nil)
	_, err := a.Assemble(ctx, AssembleRequest{Origin: hotel, Activities: assemblyDay()})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_Empty(t *testing.T) {
	a := NewAssembler(testutil.NewMockProvider(), testutil.NewMockProvider(), nil, time.Second, nil)
	result, err := a.Assemble(context.Background(), AssembleRequest{Origin: hotel})

	require.NoError(t, err)
	assert.Empty(t, result.Segments)
}

func TestAssemble_PersistentCacheSurvivesRestart(t *testing.T) {
	walking := testutil.NewMockProvider()
	transit := testutil.NewMockProvider()
	store := testutil.NewMockTravelCache()
	departure := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	build := func() LegAssembler {
		return NewAssembler(
			travel.NewCachedProvider(walking, store, time.Minute),
			travel.NewCachedProvider(transit, store, time.Minute),
			nil, time.Second, nil)
	}
	req := AssembleRequest{Origin: hotel, Activities: assemblyDay(), Departure: departure}

	first, err := build().Assemble(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, store.Count())
	walkCalls, transitCalls := walking.CallCount(models.ModeWalking), transit.CallCount(models.ModeTransit)

	// a fresh in-memory layer reads through to the shared store
	second, err := build().Assemble(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, walkCalls, walking.CallCount(models.ModeWalking))
	assert.Equal(t, transitCalls, transit.CallCount(models.ModeTransit))
}
