package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"itinerary-planner/internal/models"
)

const (
	// DefaultOSRMWalkURL serves the foot profile
	DefaultOSRMWalkURL = "https://routing.openstreetmap.de/routed-foot"
	// DefaultOSRMDriveURL serves the car profile
	DefaultOSRMDriveURL = "https://router.project-osrm.org"
)

type osrmProvider struct {
	// profiles maps a travel mode to the OSRM base URL and profile name serving it
	profiles   map[models.TravelMode]osrmProfile
	httpClient *http.Client
}

type osrmProfile struct {
	baseURL string
	name    string
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// NewOSRMProvider creates an OSRM-backed provider for WALKING and DRIVING.
// Empty URLs fall back to the public demo servers.
func NewOSRMProvider(walkURL, driveURL string) Provider {
	if walkURL == "" {
		walkURL = DefaultOSRMWalkURL
	}
	if driveURL == "" {
		driveURL = DefaultOSRMDriveURL
	}
	return &osrmProvider{
		profiles: map[models.TravelMode]osrmProfile{
			models.ModeWalking: {baseURL: walkURL, name: "foot"},
			models.ModeDriving: {baseURL: driveURL, name: "driving"},
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *osrmProvider) Estimate(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, departure time.Time) (*Estimate, error) {
	profile, ok := p.profiles[mode]
	if !ok {
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "mode not served by OSRM"}
	}

	if models.SamePoint(origin, dest) {
		return &Estimate{Mode: mode}, nil
	}

	// OSRM takes lng,lat pairs; a 2x2 table with one source and one destination is a single leg
	queryURL := fmt.Sprintf("%s/table/v1/%s/%.6f,%.6f;%.6f,%.6f?annotations=distance,duration&sources=0&destinations=1",
		profile.baseURL, profile.name, origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to create OSRM request: mode=%s err=%v", mode, err)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: err.Error()}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] OSRM API request failed: mode=%s err=%v", mode, err)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] OSRM API error: mode=%s status=%d body=%s", mode, resp.StatusCode, string(body))
		return nil, &ErrEstimateFailed{
			Mode:   mode,
			Origin: origin,
			Dest:   dest,
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var osrmResp osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		log.Printf("[ERROR] Failed to decode OSRM response: mode=%s err=%v", mode, err)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: err.Error()}
	}

	if osrmResp.Code != "Ok" {
		log.Printf("[ERROR] OSRM returned error code: mode=%s code=%s message=%s", mode, osrmResp.Code, osrmResp.Message)
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: fmt.Sprintf("OSRM error: %s", osrmResp.Code)}
	}

	if len(osrmResp.Durations) == 0 || len(osrmResp.Durations[0]) == 0 {
		return nil, &ErrEstimateFailed{Mode: mode, Origin: origin, Dest: dest, Reason: "no results returned"}
	}

	est := &Estimate{
		Mode:         mode,
		DurationSecs: osrmResp.Durations[0][0],
	}
	if len(osrmResp.Distances) > 0 && len(osrmResp.Distances[0]) > 0 {
		est.DistanceMeters = osrmResp.Distances[0][0]
	}

	log.Printf("[OSRM] Leg estimated: mode=%s origin=(%.6f,%.6f) dest=(%.6f,%.6f) duration=%.0f distance=%.0f",
		mode, origin.Lat, origin.Lng, dest.Lat, dest.Lng, est.DurationSecs, est.DistanceMeters)
	return est, nil
}
