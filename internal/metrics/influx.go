package metrics

import (
	"context"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxConfig holds the InfluxDB connection settings
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type influxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInfluxRecorder writes samples through the non-blocking write API.
// Write errors are logged from the API's error channel.
func NewInfluxRecorder(cfg InfluxConfig) Recorder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	go func() {
		for err := range writeAPI.Errors() {
			log.Printf("[ERROR] InfluxDB write failed: err=%v", err)
		}
	}()

	log.Printf("[METRICS] InfluxDB recorder initialized: url=%s org=%s bucket=%s", cfg.URL, cfg.Org, cfg.Bucket)
	return &influxRecorder{client: client, writeAPI: writeAPI}
}

func (r *influxRecorder) RecordLeg(ctx context.Context, s LegSample) {
	r.writeAPI.WritePoint(LegPoint(s, time.Now()))
}

func (r *influxRecorder) RecordOptimization(ctx context.Context, s OptimizationSample) {
	r.writeAPI.WritePoint(OptimizationPoint(s, time.Now()))
}

// Close flushes pending writes
func (r *influxRecorder) Close() {
	r.writeAPI.Flush()
	r.client.Close()
}

// LegPoint converts a leg sample to an InfluxDB point
func LegPoint(s LegSample, ts time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement("itinerary_leg").
		AddTag("mode", string(s.Mode)).
		AddTag("source", string(s.Source)).
		AddField("duration_secs", s.DurationSecs).
		AddField("has_alternative", s.Alternative).
		AddField("elapsed_ms", s.Elapsed.Milliseconds()).
		SetTime(ts)
}

// OptimizationPoint converts an optimisation sample to an InfluxDB point
func OptimizationPoint(s OptimizationSample, ts time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement("itinerary_optimization").
		AddTag("trip_id", s.TripID).
		AddField("day", s.DayIndex).
		AddField("activities", s.Activities).
		AddField("placeholders", s.Placeholders).
		AddField("total_travel_secs", s.TotalTravelSecs).
		AddField("elapsed_ms", s.Elapsed.Milliseconds()).
		SetTime(ts)
}
