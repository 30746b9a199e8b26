package travel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"itinerary-planner/internal/models"
)

const otpPlan = `{
  "plan": {
    "itineraries": [
      {"duration": 2400, "legs": [{"mode": "WALK", "distance": 400}, {"mode": "BUS", "distance": 6000}]},
      {"duration": 1500, "legs": [
        {"mode": "WALK", "distance": 300},
        {"mode": "SUBWAY", "distance": 7000},
        {"mode": "BUS", "distance": 900}
      ],
       "fare": {"fare": {"regular": {"cents": 210, "currency": {"currencyCode": "JPY", "defaultFractionDigits": 0}}}}}
    ]
  }
}`

func newTestTransit(url string, loc *time.Location) *transitProvider {
	return &transitProvider{
		baseURL:    url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		location:   loc,
	}
}

func TestTransitEstimate_PicksFastestItinerary(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plan" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(otpPlan))
	}))
	defer server.Close()

	departure := time.Date(2025, 4, 1, 1, 30, 0, 0, time.UTC)
	est, err := newTestTransit(server.URL, tokyo).Estimate(context.Background(), models.ModeTransit, shinjuku, ueno, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if query["date"] != "2025-04-01" || query["time"] != "10:30" {
		t.Errorf("departure not converted to planner time zone: date=%s time=%s", query["date"], query["time"])
	}
	if query["fromPlace"] != "35.689500,139.691700" {
		t.Errorf("unexpected fromPlace %s", query["fromPlace"])
	}
	if query["mode"] != "TRANSIT,WALK" {
		t.Errorf("unexpected mode %s", query["mode"])
	}
	if est.DurationSecs != 1500 {
		t.Errorf("expected fastest itinerary (1500s), got %f", est.DurationSecs)
	}
	if est.Mode != models.ModeTrain {
		t.Errorf("expected TRAIN from the subway leg, got %s", est.Mode)
	}
	if est.DistanceMeters != 8200 {
		t.Errorf("expected summed leg distance 8200, got %f", est.DistanceMeters)
	}
	if est.Fare == nil || est.Fare.Amount != 210 || est.Fare.Currency != "JPY" {
		t.Errorf("unexpected fare %+v", est.Fare)
	}
}

func TestTransitEstimate_PlannerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"id": 404, "msg": "PATH_NOT_FOUND"}}`))
	}))
	defer server.Close()

	_, err := newTestTransit(server.URL, time.UTC).Estimate(context.Background(), models.ModeTransit, shinjuku, ueno, time.Now())

	var failed *ErrEstimateFailed
	if !errors.As(err, &failed) {
		t.Fatalf("expected ErrEstimateFailed, got %v", err)
	}
	if failed.Reason != "PATH_NOT_FOUND" {
		t.Errorf("unexpected reason %q", failed.Reason)
	}
}

func TestTransitEstimate_NoItineraries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"plan": {"itineraries": []}}`))
	}))
	defer server.Close()

	_, err := newTestTransit(server.URL, time.UTC).Estimate(context.Background(), models.ModeTransit, shinjuku, ueno, time.Now())
	if err == nil || !strings.Contains(err.Error(), "no itineraries") {
		t.Fatalf("expected no itineraries error, got %v", err)
	}
}

func TestTransitEstimate_RejectsWalking(t *testing.T) {
	_, err := NewTransitProvider("", nil).Estimate(context.Background(), models.ModeWalking, shinjuku, ueno, time.Now())
	if err == nil {
		t.Fatal("expected error for walking mode")
	}
}

func TestSubMode(t *testing.T) {
	tests := []struct {
		name string
		legs []otpLeg
		want models.TravelMode
	}{
		{"walk only", []otpLeg{{Mode: "WALK", Distance: 500}}, models.ModeTransit},
		{"bus", []otpLeg{{Mode: "BUS", Distance: 3000}}, models.ModeBus},
		{"longest leg wins", []otpLeg{{Mode: "BUS", Distance: 3000}, {Mode: "RAIL", Distance: 12000}}, models.ModeTrain},
		{"tram counts as train", []otpLeg{{Mode: "TRAM", Distance: 2000}}, models.ModeTrain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := subMode(tt.legs); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRegularFare_DefaultsToTwoDigits(t *testing.T) {
	it := &otpItinerary{}
	it.Fare = &struct {
		Fare map[string]otpMoney `json:"fare"`
	}{Fare: map[string]otpMoney{"regular": {Cents: 275}}}

	fare := regularFare(it)
	if fare == nil || fare.Amount != 2.75 {
		t.Errorf("expected 2.75, got %+v", fare)
	}

	if regularFare(&otpItinerary{}) != nil {
		t.Error("expected nil fare when none reported")
	}
}
