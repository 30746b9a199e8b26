package geocoding

import (
	"context"
	"log"
	"strings"

	"itinerary-planner/internal/models"
)

// Place is the canonical form of a free-text place query
type Place struct {
	Name     string
	Address  string
	Coords   models.Coordinates
	PhotoRef string
}

// Enricher resolves place queries for new activities
type Enricher interface {
	Enrich(ctx context.Context, query string) (*Place, error)
}

type geocoderEnricher struct {
	geocoder Geocoder
}

// NewEnricher builds an Enricher on top of a Geocoder
func NewEnricher(geocoder Geocoder) Enricher {
	return &geocoderEnricher{geocoder: geocoder}
}

func (e *geocoderEnricher) Enrich(ctx context.Context, query string) (*Place, error) {
	result, err := e.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	name := result.Name
	if name == "" {
		name, _, _ = strings.Cut(result.DisplayName, ",")
	}
	return &Place{
		Name:     strings.TrimSpace(name),
		Address:  result.DisplayName,
		Coords:   result.Coords,
		PhotoRef: result.PhotoRef,
	}, nil
}

// EnrichActivity fills a missing location, address or photo from the enricher,
// querying by address or else name. Failures are logged and the activity is
// returned unchanged. The activity name is never replaced.
func EnrichActivity(ctx context.Context, e Enricher, a models.Activity) models.Activity {
	if e == nil || a.HasLocation() {
		return a
	}
	query := strings.TrimSpace(a.Address)
	if query == "" {
		query = strings.TrimSpace(a.Name)
	}
	if query == "" {
		return a
	}

	place, err := e.Enrich(ctx, query)
	if err != nil {
		log.Printf("[GEOCODING] Enrichment skipped: activity=%s query=%s err=%v", a.ID, query, err)
		return a
	}

	coords := place.Coords
	a.Location = &coords
	if a.Address == "" {
		a.Address = place.Address
	}
	if a.PhotoRef == "" {
		a.PhotoRef = place.PhotoRef
	}
	return a
}

// ResolveAccommodation geocodes an accommodation without coordinates
func ResolveAccommodation(ctx context.Context, g Geocoder, acc *models.Accommodation) {
	if g == nil || acc == nil || acc.Location != nil {
		return
	}
	query := strings.TrimSpace(acc.Address)
	if query == "" {
		query = strings.TrimSpace(acc.Name)
	}
	if query == "" {
		return
	}
	result, err := g.GeocodeWithRetry(ctx, query, 2)
	if err != nil {
		log.Printf("[GEOCODING] Accommodation unresolved: name=%s err=%v", acc.Name, err)
		return
	}
	coords := result.Coords
	acc.Location = &coords
}
