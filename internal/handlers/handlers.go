package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"itinerary-planner/internal/broadcast"
	"itinerary-planner/internal/database"
	"itinerary-planner/internal/geocoding"
	"itinerary-planner/internal/itinerary"
	"itinerary-planner/internal/metrics"
	"itinerary-planner/internal/models"
)

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB          database.DataStore
	Geocoder    geocoding.Geocoder
	Enricher    geocoding.Enricher
	Optimizer   *itinerary.Optimizer
	Broadcaster broadcast.Broadcaster
	Metrics     metrics.Recorder
	Queue       *MutationQueue

	// DefaultDayStart fills days saved without a start time
	DefaultDayStart string
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var (
	errDayNotFound      = errors.New("day not found")
	errActivityNotFound = errors.New("activity not found")
)

// validationError is reported to the client as a 400
type validationError struct {
	message string
}

func (e *validationError) Error() string { return e.message }

func invalid(message string) error { return &validationError{message: message} }

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handlePreconditionError handles 422 errors for days that cannot be optimised
func (h *Handler) handlePreconditionError(w http.ResponseWriter, err *itinerary.ErrPrecondition) {
	h.writeError(w, http.StatusUnprocessableEntity, "PRECONDITION_FAILED", err.Reason, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleError maps domain and storage errors onto the error envelope
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var verr *validationError
	var perr *itinerary.ErrPrecondition
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.handleNotFound(w, "Trip not found")
	case errors.Is(err, errDayNotFound), errors.Is(err, errActivityNotFound):
		h.handleNotFound(w, err.Error())
	case errors.Is(err, database.ErrAlreadyExists):
		h.writeError(w, http.StatusConflict, "CONFLICT", "Trip already exists", nil)
	case errors.As(err, &verr):
		h.handleValidationError(w, verr.message)
	case errors.As(err, &perr):
		h.handlePreconditionError(w, perr)
	default:
		h.handleInternalError(w, err)
	}
}

// publish broadcasts a committed change. Failures are logged only.
func (h *Handler) publish(ctx context.Context, typ broadcast.EventType, tripID string, trip *models.Trip) {
	if h.Broadcaster == nil {
		return
	}
	ev := broadcast.NewTripEvent(typ, trip)
	ev.TripID = tripID
	if err := h.Broadcaster.Publish(ctx, ev); err != nil {
		log.Printf("[BROADCAST] Event not delivered: type=%s trip=%s err=%v", typ, tripID, err)
	}
}

func (h *Handler) recorder() metrics.Recorder {
	if h.Metrics == nil {
		return metrics.Noop()
	}
	return h.Metrics
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := "ok"
	dbStatus := "connected"

	if err := h.DB.HealthCheck(r.Context()); err != nil {
		status = "degraded"
		dbStatus = "error"
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"version":  "1.0.0",
		"database": dbStatus,
	})
}
