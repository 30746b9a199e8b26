package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"itinerary-planner/internal/models"
)

// DefaultTransitURL is a local OpenTripPlanner instance
const DefaultTransitURL = "http://localhost:8080/otp/routers/default"

type transitProvider struct {
	baseURL    string
	httpClient *http.Client
	location   *time.Location
}

type otpPlanResponse struct {
	Plan struct {
		Itineraries []otpItinerary `json:"itineraries"`
	} `json:"plan"`
	Error *struct {
		ID  int    `json:"id"`
		Msg string `json:"msg"`
	} `json:"error"`
}

type otpItinerary struct {
	Duration float64  `json:"duration"`
	Legs     []otpLeg `json:"legs"`
	Fare     *struct {
		Fare map[string]otpMoney `json:"fare"`
	} `json:"fare"`
}

type otpLeg struct {
	Mode     string  `json:"mode"`
	Distance float64 `json:"distance"`
}

type otpMoney struct {
	Cents    int `json:"cents"`
	Currency struct {
		CurrencyCode          string `json:"currencyCode"`
		DefaultFractionDigits *int   `json:"defaultFractionDigits"`
	} `json:"currency"`
}

// NewTransitProvider creates an OpenTripPlanner-backed provider for TRANSIT.
// Departure times are expressed in loc (UTC when nil).
func NewTransitProvider(baseURL string, loc *time.Location) Provider {
	if baseURL == "" {
		baseURL = DefaultTransitURL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &transitProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		location: loc,
	}
}

func (p *transitProvider) Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*Estimate, error) {
	if !mode.IsTransit() {
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "mode not served by transit planner"}
	}

	local := departure.In(p.location)
	params := url.Values{}
	params.Set("fromPlace", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lng))
	params.Set("toPlace", fmt.Sprintf("%.6f,%.6f", dest.Lat, dest.Lng))
	params.Set("mode", "TRANSIT,WALK")
	params.Set("date", local.Format("2006-01-02"))
	params.Set("time", local.Format("15:04"))
	params.Set("numItineraries", "3")
	queryURL := fmt.Sprintf("%s/plan?%s", p.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to create transit request: err=%v", err)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Transit API request failed: err=%v", err)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Transit API error: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &ErrEstimateFailed{
			Mode:   mode,
			Origin: origin,
			Dest:   dest,
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var planResp otpPlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&planResp); err != nil {
		log.Printf("[ERROR] Failed to decode transit response: err=%v", err)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: err.Error()}
	}

	if planResp.Error != nil {
		log.Printf("[TRANSIT] Planner returned error: id=%d msg=%s", planResp.Error.ID, planResp.Error.Msg)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: planResp.Error.Msg}
	}

	best := fastestItinerary(planResp.Plan.Itineraries)
	if best == nil {
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "no itineraries returned"}
	}

	est := &Estimate{
		Mode:         subMode(best.Legs),
		DurationSecs: best.Duration,
		Fare:         regularFare(best),
	}
	for _, leg := range best.Legs {
		est.DistanceMeters += leg.Distance
	}

	log.Printf("[TRANSIT] Leg estimated: origin=(%.6f,%.6f) dest=(%.6f,%.6f) departure=%s mode=%s duration=%.0f",
		origin.Lat, origin.Lng, dest.Lat, dest.Lng, local.Format("15:04"), est.Mode, est.DurationSecs)
	return est, nil
}

func fastestItinerary(itineraries []otpItinerary) *otpItinerary {
	var best *otpItinerary
	for i := range itineraries {
		if best == nil || itineraries[i].Duration < best.Duration {
			best = &itineraries[i]
		}
	}
	return best
}

// subMode names the itinerary after its longest in-vehicle leg
func subMode(legs []otpLeg) models.TravelMode {
	mode := models.ModeTransit
	longest := 0.0
	for _, leg := range legs {
		var m models.TravelMode
		switch leg.Mode {
		case "RAIL", "SUBWAY", "TRAM", "MONORAIL", "FUNICULAR":
			m = models.ModeTrain
		case "BUS", "TROLLEYBUS", "COACH":
			m = models.ModeBus
		default:
			continue
		}
		if leg.Distance > longest {
			longest = leg.Distance
			mode = m
		}
	}
	return mode
}

func regularFare(it *otpItinerary) *models.Fare {
	if it.Fare == nil {
		return nil
	}
	money, ok := it.Fare.Fare["regular"]
	if !ok || money.Cents < 0 {
		return nil
	}
	digits := 2
	if money.Currency.DefaultFractionDigits != nil {
		digits = *money.Currency.DefaultFractionDigits
	}
	return &models.Fare{
		Amount:   float64(money.Cents) / math.Pow10(digits),
		Currency: money.Currency.CurrencyCode,
	}
}
