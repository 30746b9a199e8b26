package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"itinerary-planner/internal/models"
)

const (
	minSearchLength    = 3
	defaultSearchLimit = 5
	maxSearchLimit     = 10
)

// PlaceResult is one geocode search hit
type PlaceResult struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"displayName"`
	Type        string             `json:"type,omitempty"`
	Location    models.Coordinates `json:"location"`
	PhotoRef    string             `json:"photoRef,omitempty"`
}

// HandlePlaceSearch handles GET /api/v1/geocode/search?q=...&limit=N
func (h *Handler) HandlePlaceSearch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query().Get("q")
	log.Printf("[HTTP] GET /api/v1/geocode/search: query=%s", query)

	if len(query) < minSearchLength {
		h.writeJSON(w, http.StatusOK, []PlaceResult{})
		return
	}

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.handleValidationError(w, "Limit must be a positive number")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	results, err := h.Geocoder.Search(r.Context(), query, limit)
	if err != nil {
		// Lookups are best-effort for the client, an empty list is a valid answer
		log.Printf("[ERROR] Failed to search places: query=%s err=%v", query, err)
		h.writeJSON(w, http.StatusOK, []PlaceResult{})
		return
	}

	out := make([]PlaceResult, len(results))
	for i, res := range results {
		out[i] = PlaceResult{
			Name:        res.Name,
			DisplayName: res.DisplayName,
			Type:        res.Type,
			Location:    res.Coords,
			PhotoRef:    res.PhotoRef,
		}
	}

	log.Printf("[HTTP] GET /api/v1/geocode/search: query=%s results_count=%d", query, len(out))
	h.writeJSON(w, http.StatusOK, out)
}
