package travel

import (
	"context"
	"log"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"itinerary-planner/internal/database"
	"itinerary-planner/internal/models"
)

const (
	defaultMemoryTTL      = 30 * time.Minute
	memoryCleanupInterval = 10 * time.Minute
)

type cachedProvider struct {
	next   Provider
	store  database.TravelCacheRepository
	memory *cache.Cache
	group  singleflight.Group
}

// NewCachedProvider wraps next with an in-memory TTL cache, an optional persistent
// cache (store may be nil) and de-duplication of concurrent identical queries.
// Transit answers are keyed by weekday and hour of departure; walking and driving
// answers do not depend on the departure time.
func NewCachedProvider(next Provider, store database.TravelCacheRepository, ttl time.Duration) Provider {
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	return &cachedProvider{
		next:   next,
		store:  store,
		memory: cache.New(ttl, memoryCleanupInterval),
	}
}

// DepartureBucket groups departures that should share a cached transit answer
func DepartureBucket(mode models.TravelMode, departure time.Time) string {
	if !mode.IsTransit() || departure.IsZero() {
		return ""
	}
	return departure.Format("Mon 15")
}

func (p *cachedProvider) Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*Estimate, error) {
	bucket := DepartureBucket(mode, departure)
	key := database.TravelCacheKey(mode, origin, dest, bucket)

	if cached, found := p.memory.Get(key); found {
		est := *cached.(*Estimate)
		return &est, nil
	}

	if p.store != nil {
		entry, err := p.store.Get(ctx, mode, origin, dest, bucket)
		if err != nil {
			log.Printf("[ERROR] Travel cache read failed: key=%s err=%v", key, err)
		} else if entry != nil {
			est := estimateFromEntry(entry)
			p.memory.Set(key, est, cache.DefaultExpiration)
			copied := *est
			return &copied, nil
		}
	}

	v, err, shared := p.group.Do(key, func() (interface{}, error) {
		est, err := p.next.Estimate(ctx, mode, origin, dest, departure)
		if err != nil {
			return nil, err
		}
		p.memory.Set(key, est, cache.DefaultExpiration)
		if p.store != nil {
			if err := p.store.Set(ctx, entryFromEstimate(mode, origin, dest, bucket, est)); err != nil {
				log.Printf("[ERROR] Travel cache write failed: key=%s err=%v", key, err)
			}
		}
		return est, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("[CACHE] Shared in-flight estimate: key=%s", key)
	}

	est := *v.(*Estimate)
	return &est, nil
}

func estimateFromEntry(e *models.TravelCacheEntry) *Estimate {
	est := &Estimate{
		Mode:           e.Mode,
		DurationSecs:   e.DurationSecs,
		DistanceMeters: e.DistanceMeters,
	}
	if e.SubMode != "" {
		est.Mode = e.SubMode
	}
	if e.FareAmount != nil {
		est.Fare = &models.Fare{Amount: *e.FareAmount, Currency: e.FareCurrency}
	}
	return est
}

func entryFromEstimate(mode models.TravelMode, origin, dest models.Coordinates, bucket string, est *Estimate) *models.TravelCacheEntry {
	entry := &models.TravelCacheEntry{
		Mode:            mode,
		Origin:          origin,
		Destination:     dest,
		DepartureBucket: bucket,
		DurationSecs:    est.DurationSecs,
		DistanceMeters:  est.DistanceMeters,
	}
	if est.Mode != mode {
		entry.SubMode = est.Mode
	}
	if est.Fare != nil {
		amount := est.Fare.Amount
		entry.FareAmount = &amount
		entry.FareCurrency = est.Fare.Currency
	}
	return entry
}
