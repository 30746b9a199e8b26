package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"itinerary-planner/internal/broadcast"
	"itinerary-planner/internal/geocoding"
	"itinerary-planner/internal/itinerary"
	"itinerary-planner/internal/models"
	"itinerary-planner/internal/timeofday"
)

// TripRequest is the body of POST /api/v1/trips and PUT /api/v1/trips/:id
type TripRequest struct {
	ID    string           `json:"id,omitempty"`
	Title string           `json:"title"`
	Days  []models.DayPlan `json:"days"`
}

func (req *TripRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return invalid("Title is required")
	}
	for i, day := range req.Days {
		if day.Date != "" {
			if _, err := time.Parse("2006-01-02", day.Date); err != nil {
				return invalid(fmt.Sprintf("Day %d: date must be YYYY-MM-DD", i))
			}
		}
		if day.StartTime != "" && !timeofday.Valid(day.StartTime) {
			return invalid(fmt.Sprintf("Day %d: startTime must be HH:mm", i))
		}
		for _, a := range day.Activities {
			if strings.TrimSpace(a.Name) == "" {
				return invalid(fmt.Sprintf("Day %d: every activity needs a name", i))
			}
		}
	}
	return nil
}

// prepareDays resolves accommodations and re-flows every day so stored days
// always satisfy the schedule invariants
func (h *Handler) prepareDays(ctx context.Context, days []models.DayPlan) []models.DayPlan {
	out := make([]models.DayPlan, len(days))
	for i, day := range days {
		day = day.Clone()
		if day.Activities == nil {
			day.Activities = []models.Activity{}
		}
		if day.StartTime == "" && h.DefaultDayStart != "" {
			day.StartTime = h.DefaultDayStart
		}
		for k := range day.Activities {
			if strings.TrimSpace(day.Activities[k].ID) == "" {
				day.Activities[k].ID = newActivityID()
			}
		}
		geocoding.ResolveAccommodation(ctx, h.Geocoder, day.Accommodation)
		out[i] = itinerary.Recalculate(day)
	}
	return out
}

// HandleListTrips handles GET /api/v1/trips
func (h *Handler) HandleListTrips(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	search := r.URL.Query().Get("search")
	trips, err := h.DB.Trips().List(r.Context(), search)
	if err != nil {
		log.Printf("[ERROR] Failed to list trips: search=%s err=%v", search, err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] GET /api/v1/trips: search=%s count=%d", search, len(trips))
	h.writeJSON(w, http.StatusOK, trips)
}

// HandleGetTrip handles GET /api/v1/trips/:id
func (h *Handler) HandleGetTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	trip, err := h.DB.Trips().GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trip)
}

// HandleCreateTrip handles POST /api/v1/trips
func (h *Handler) HandleCreateTrip(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[HTTP] POST /api/v1/trips: invalid_body err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.handleError(w, err)
		return
	}

	trip := &models.Trip{
		ID:    strings.TrimSpace(req.ID),
		Title: req.Title,
		Days:  h.prepareDays(r.Context(), req.Days),
	}
	created, err := h.DB.Trips().Create(r.Context(), trip)
	if err != nil {
		log.Printf("[ERROR] Failed to create trip: title=%s err=%v", req.Title, err)
		h.handleError(w, err)
		return
	}

	h.publish(r.Context(), broadcast.EventTripCreated, created.ID, created)
	log.Printf("[HTTP] Created trip: id=%s title=%s days=%d", created.ID, created.Title, len(created.Days))
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleUpdateTrip handles PUT /api/v1/trips/:id
func (h *Handler) HandleUpdateTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[HTTP] PUT /api/v1/trips/%s: invalid_body err=%v", id, err)
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.handleError(w, err)
		return
	}

	days := h.prepareDays(r.Context(), req.Days)

	var updated *models.Trip
	err := h.Queue.Do(id, func() error {
		var err error
		updated, err = h.DB.Trips().Update(r.Context(), &models.Trip{ID: id, Title: req.Title, Days: days})
		if err != nil {
			return err
		}
		h.publish(r.Context(), broadcast.EventTripUpdated, id, updated)
		return nil
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	log.Printf("[HTTP] Updated trip: id=%s days=%d", id, len(updated.Days))
	h.writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteTrip handles DELETE /api/v1/trips/:id
func (h *Handler) HandleDeleteTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	err := h.Queue.Do(id, func() error {
		if err := h.DB.Trips().Delete(r.Context(), id); err != nil {
			return err
		}
		h.publish(r.Context(), broadcast.EventTripDeleted, id, nil)
		return nil
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	log.Printf("[HTTP] Deleted trip: id=%s", id)
	w.WriteHeader(http.StatusNoContent)
}
