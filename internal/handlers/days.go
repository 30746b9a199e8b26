package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"itinerary-planner/internal/broadcast"
	"itinerary-planner/internal/geocoding"
	"itinerary-planner/internal/itinerary"
	"itinerary-planner/internal/metrics"
	"itinerary-planner/internal/models"
)

func newActivityID() string {
	return uuid.NewString()
}

// DayResponse is returned by every day mutation
type DayResponse struct {
	TripID   string         `json:"tripId"`
	DayIndex int            `json:"dayIndex"`
	Day      models.DayPlan `json:"day"`
}

// OptimizeResponse adds the solver and assembly outcome to a DayResponse
type OptimizeResponse struct {
	DayResponse
	Order           []int `json:"order"`
	TotalTravelSecs int   `json:"totalTravelSecs"`
	Placeholders    int   `json:"placeholders"`
}

type dayMutation func(ctx context.Context, day models.DayPlan) (models.DayPlan, error)

func dayIndexParam(ps httprouter.Params) (int, error) {
	i, err := strconv.Atoi(ps.ByName("day"))
	if err != nil || i < 0 {
		return 0, invalid("Day must be a non-negative index")
	}
	return i, nil
}

func hasActivity(day models.DayPlan, id string) bool {
	id = strings.TrimSpace(id)
	for _, a := range day.Activities {
		if a.ID == id {
			return true
		}
	}
	return false
}

// mutateDay loads the trip, applies fn to one day, saves and broadcasts, all
// under the trip's mutation lock. On failure the error response is written
// and nil is returned.
func (h *Handler) mutateDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params, op string, fn dayMutation) *DayResponse {
	ctx := r.Context()
	tripID := ps.ByName("id")
	dayIndex, err := dayIndexParam(ps)
	if err != nil {
		h.handleError(w, err)
		return nil
	}

	var resp *DayResponse
	err = h.Queue.Do(tripID, func() error {
		trip, err := h.DB.Trips().GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if dayIndex >= len(trip.Days) {
			return errDayNotFound
		}

		day, err := fn(ctx, trip.Days[dayIndex])
		if err != nil {
			return err
		}
		trip.Days[dayIndex] = day

		saved, err := h.DB.Trips().Update(ctx, trip)
		if err != nil {
			return err
		}
		h.publish(ctx, broadcast.EventTripUpdated, tripID, saved)

		resp = &DayResponse{TripID: tripID, DayIndex: dayIndex, Day: saved.Days[dayIndex]}
		return nil
	})
	if err != nil {
		log.Printf("[HTTP] %s failed: trip=%s day=%s err=%v", op, tripID, ps.ByName("day"), err)
		h.handleError(w, err)
		return nil
	}

	log.Printf("[HTTP] %s: trip=%s day=%d activities=%d", op, tripID, dayIndex, len(resp.Day.Activities))
	return resp
}

func (h *Handler) writeDay(w http.ResponseWriter, resp *DayResponse) {
	if resp != nil {
		h.writeJSON(w, http.StatusOK, resp)
	}
}

// AddActivityRequest is the body of POST .../activities
type AddActivityRequest struct {
	Activity models.Activity `json:"activity"`
	AfterID  string          `json:"afterId"`
}

// HandleAddActivity handles POST /api/v1/trips/:id/days/:day/activities
func (h *Handler) HandleAddActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req AddActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Activity.Name) == "" {
		h.handleValidationError(w, "Activity name is required")
		return
	}

	// Enrichment does network I/O, keep it outside the trip lock
	activity := geocoding.EnrichActivity(r.Context(), h.Enricher, req.Activity)

	h.writeDay(w, h.mutateDay(w, r, ps, "ADD_ACTIVITY", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		return itinerary.Add(day, activity, req.AfterID), nil
	}))
}

// HandleAcceptSuggestion handles POST /api/v1/trips/:id/days/:day/suggestions
func (h *Handler) HandleAcceptSuggestion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var s models.Suggestion
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(s.Activity.Name) == "" {
		h.handleValidationError(w, "Suggestion needs an activity name")
		return
	}

	s.Activity = geocoding.EnrichActivity(r.Context(), h.Enricher, s.Activity)

	h.writeDay(w, h.mutateDay(w, r, ps, "ACCEPT_SUGGESTION", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		return itinerary.AcceptSuggestion(day, s), nil
	}))
}

// HandleDeleteActivity handles DELETE /api/v1/trips/:id/days/:day/activities/:activityId
func (h *Handler) HandleDeleteActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	activityID := ps.ByName("activityId")
	h.writeDay(w, h.mutateDay(w, r, ps, "DELETE_ACTIVITY", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		out, ok := itinerary.Delete(day, activityID)
		if !ok {
			return day, errActivityNotFound
		}
		return out, nil
	}))
}

// MoveRequest is the body of POST .../activities/:activityId/move
type MoveRequest struct {
	Direction string `json:"direction"`
}

// HandleMoveActivity handles POST /api/v1/trips/:id/days/:day/activities/:activityId/move.
// Moving past either end leaves the day as it is.
func (h *Handler) HandleMoveActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}

	var move func(models.DayPlan, string) (models.DayPlan, bool)
	switch strings.ToLower(req.Direction) {
	case "up":
		move = itinerary.MoveUp
	case "down":
		move = itinerary.MoveDown
	default:
		h.handleValidationError(w, "Direction must be up or down")
		return
	}

	activityID := ps.ByName("activityId")
	h.writeDay(w, h.mutateDay(w, r, ps, "MOVE_ACTIVITY", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		if !hasActivity(day, activityID) {
			return day, errActivityNotFound
		}
		if out, ok := move(day, activityID); ok {
			return out, nil
		}
		return day, nil
	}))
}

// ReorderRequest is the body of POST .../reorder
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// HandleReorder handles POST /api/v1/trips/:id/days/:day/reorder
func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}

	h.writeDay(w, h.mutateDay(w, r, ps, "REORDER", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		out, ok := itinerary.Reorder(day, req.From, req.To)
		if !ok {
			return day, invalid("From and to must be valid activity positions")
		}
		return out, nil
	}))
}

// HandleSortByTime handles POST /api/v1/trips/:id/days/:day/sort
func (h *Handler) HandleSortByTime(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.writeDay(w, h.mutateDay(w, r, ps, "SORT", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		return itinerary.SortByTime(day), nil
	}))
}

// HandleRecalculate handles POST /api/v1/trips/:id/days/:day/recalculate
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.writeDay(w, h.mutateDay(w, r, ps, "RECALCULATE", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		return itinerary.Recalculate(day), nil
	}))
}

// SplitRequest is the body of POST .../activities/:activityId/split.
// Either Parts or Count (at least 2) must be given.
type SplitRequest struct {
	Parts []models.Activity `json:"parts"`
	Count int               `json:"count"`
}

// HandleSplitActivity handles POST /api/v1/trips/:id/days/:day/activities/:activityId/split
func (h *Handler) HandleSplitActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if len(req.Parts) == 0 && req.Count < 2 {
		h.handleValidationError(w, "Give parts or a count of at least 2")
		return
	}

	// Parts without an address inherit the original location instead
	for i, p := range req.Parts {
		if strings.TrimSpace(p.Address) != "" {
			req.Parts[i] = geocoding.EnrichActivity(r.Context(), h.Enricher, p)
		}
	}

	activityID := ps.ByName("activityId")
	h.writeDay(w, h.mutateDay(w, r, ps, "SPLIT_ACTIVITY", func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
		var out models.DayPlan
		var ok bool
		if len(req.Parts) > 0 {
			out, ok = itinerary.Split(day, activityID, req.Parts)
		} else {
			out, ok = itinerary.SplitEvenly(day, activityID, req.Count)
		}
		if !ok {
			return day, errActivityNotFound
		}
		return out, nil
	}))
}

// HandleOptimize handles POST /api/v1/trips/:id/days/:day/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start := time.Now()

	var result *itinerary.OptimizeResult
	resp := h.mutateDay(w, r, ps, "OPTIMIZE", func(ctx context.Context, day models.DayPlan) (models.DayPlan, error) {
		var err error
		result, err = h.Optimizer.Optimize(ctx, day)
		if err != nil {
			return day, err
		}
		return result.Day, nil
	})
	if resp == nil {
		return
	}

	h.recorder().RecordOptimization(r.Context(), metrics.OptimizationSample{
		TripID:          resp.TripID,
		DayIndex:        resp.DayIndex,
		Activities:      len(resp.Day.Activities),
		Placeholders:    result.Assembly.Placeholders,
		TotalTravelSecs: result.Assembly.TotalTravelSecs,
		Elapsed:         time.Since(start),
	})

	h.writeJSON(w, http.StatusOK, OptimizeResponse{
		DayResponse:     *resp,
		Order:           result.Order,
		TotalTravelSecs: result.Assembly.TotalTravelSecs,
		Placeholders:    result.Assembly.Placeholders,
	})
}
