package routing

import (
	"context"
	"time"

	"itinerary-planner/internal/models"
)

// AssembleRequest is a solved path whose legs need travel data
type AssembleRequest struct {
	Origin models.Coordinates
	// OriginID names the origin in the first segment; defaults to models.StartID
	OriginID string
	// Activities are in path order
	Activities []models.Activity
	// Departure is when the traveller leaves the origin
	Departure time.Time
}

// Assembly is the result of resolving every leg of a path
type Assembly struct {
	Segments        []models.TravelSegment
	TotalTravelSecs int
	Placeholders    int
}

// LegAssembler resolves travel segments for a solved path
type LegAssembler interface {
	Assemble(ctx context.Context, req AssembleRequest) (*Assembly, error)
}
