package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"itinerary-planner/internal/models"
)

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// readTrip loads a trip from a .json file or, for any other extension, YAML
func readTrip(path string) (*models.Trip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trip file: %w", err)
	}

	var trip models.Trip
	if isJSON(path) {
		err = json.Unmarshal(data, &trip)
	} else {
		err = yaml.Unmarshal(data, &trip)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse trip file %s: %w", path, err)
	}
	return &trip, nil
}

// writeTrip replaces path atomically in the format its extension names
func writeTrip(path string, trip *models.Trip) error {
	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(trip, "", "  ")
	} else {
		data, err = yaml.Marshal(trip)
	}
	if err != nil {
		return fmt.Errorf("failed to encode trip: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write trip file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace trip file: %w", err)
	}
	return nil
}

// selectDays returns every day index when day is negative, else just day
func selectDays(trip *models.Trip, day int) ([]int, error) {
	if day < 0 {
		out := make([]int, len(trip.Days))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if day >= len(trip.Days) {
		return nil, fmt.Errorf("day %d out of range, trip has %d days", day, len(trip.Days))
	}
	return []int{day}, nil
}
