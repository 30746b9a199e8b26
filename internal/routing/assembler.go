package routing

import (
	"context"
	"log"
	"sync"
	"time"

	"itinerary-planner/internal/metrics"
	"itinerary-planner/internal/models"
	"itinerary-planner/internal/schedule"
	"itinerary-planner/internal/travel"
)

// DefaultLegTimeout bounds each provider query
const DefaultLegTimeout = 10 * time.Second

type assembler struct {
	walking    travel.Provider
	transit    travel.Provider
	fallback   travel.Provider
	legTimeout time.Duration
	recorder   metrics.Recorder
}

// NewAssembler creates a LegAssembler. Any provider may be nil, in which case
// that query is skipped; a nil recorder discards samples.
func NewAssembler(walking, transit, fallback travel.Provider, legTimeout time.Duration, recorder metrics.Recorder) LegAssembler {
	if legTimeout <= 0 {
		legTimeout = DefaultLegTimeout
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &assembler{
		walking:    walking,
		transit:    transit,
		fallback:   fallback,
		legTimeout: legTimeout,
		recorder:   recorder,
	}
}

// Assemble resolves origin→first→…→last in path order. Legs are sequential
// because each transit query departs at the clock left by the previous leg plus
// the visited activity's duration. A failed leg becomes a placeholder; only
// cancellation of ctx aborts.
func (a *assembler) Assemble(ctx context.Context, req AssembleRequest) (*Assembly, error) {
	fromID := req.OriginID
	if fromID == "" {
		fromID = models.StartID
	}
	clock := req.Departure
	if clock.IsZero() {
		clock = time.Now()
	}

	result := &Assembly{Segments: make([]models.TravelSegment, 0, len(req.Activities))}
	position := req.Origin
	positionKnown := true

	log.Printf("[ASSEMBLE] Resolving legs: count=%d departure=%s", len(req.Activities), clock.Format(time.RFC3339))

	for _, act := range req.Activities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var seg models.TravelSegment
		var source metrics.LegSource
		start := time.Now()

		if !positionKnown || !act.HasLocation() {
			seg = PlaceholderSegment(fromID, act.ID)
			source = metrics.SourcePlaceholder
		} else {
			var err error
			seg, source, err = a.resolveLeg(ctx, fromID, act.ID, position, act.Coords(), clock)
			if err != nil {
				return nil, err
			}
		}

		if source == metrics.SourcePlaceholder {
			result.Placeholders++
			log.Printf("[ASSEMBLE] No travel data: from=%s to=%s", fromID, act.ID)
		} else {
			result.TotalTravelSecs += seg.DurationValue
		}
		result.Segments = append(result.Segments, seg)

		a.recorder.RecordLeg(ctx, metrics.LegSample{
			Mode:         seg.Mode,
			Source:       source,
			DurationSecs: seg.DurationValue,
			Alternative:  seg.AlternativeMode != "",
			Elapsed:      time.Since(start),
		})

		clock = clock.Add(time.Duration(seg.DurationValue) * time.Second)
		clock = clock.Add(time.Duration(schedule.EffectiveDuration(act)) * time.Minute)

		fromID = act.ID
		positionKnown = act.HasLocation()
		if positionKnown {
			position = act.Coords()
		}
	}

	log.Printf("[ASSEMBLE] Done: legs=%d total_travel_secs=%d placeholders=%d",
		len(result.Segments), result.TotalTravelSecs, result.Placeholders)
	return result, nil
}

// resolveLeg queries walking and transit concurrently, then applies SelectLeg,
// then the fallback provider, then a placeholder
func (a *assembler) resolveLeg(ctx context.Context, fromID, toID string, origin, dest models.Coordinates, departure time.Time) (models.TravelSegment, metrics.LegSource, error) {
	var walking, transit *travel.Estimate
	var wg sync.WaitGroup

	if a.walking != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			walking = a.query(ctx, a.walking, models.ModeWalking, origin, dest, departure)
		}()
	}
	if a.transit != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transit = a.query(ctx, a.transit, models.ModeTransit, origin, dest, departure)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return models.TravelSegment{}, "", err
	}

	if seg, ok := SelectLeg(fromID, toID, walking, transit); ok {
		return seg, metrics.SourceSelected, nil
	}

	if a.fallback != nil {
		if est := a.query(ctx, a.fallback, models.ModeTransit, origin, dest, departure); est != nil {
			return FallbackSegment(fromID, toID, est), metrics.SourceFallback, nil
		}
		if err := ctx.Err(); err != nil {
			return models.TravelSegment{}, "", err
		}
	}

	return PlaceholderSegment(fromID, toID), metrics.SourcePlaceholder, nil
}

// query runs one provider call under its own timeout; failures are logged and yield nil
func (a *assembler) query(ctx context.Context, p travel.Provider, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) *travel.Estimate {
	qctx, cancel := context.WithTimeout(ctx, a.legTimeout)
	defer cancel()

	est, err := p.Estimate(qctx, mode, origin, dest, departure)
	if err != nil {
		log.Printf("[ASSEMBLE] Estimate failed: mode=%s err=%v", mode, err)
		return nil
	}
	return est
}
