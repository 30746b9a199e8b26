package models

import "math"

// EarthRadiusM is the mean radius of Earth in meters
const EarthRadiusM = 6_371_000.0

// HaversineMeters returns the great-circle distance between two points in meters
func HaversineMeters(a, b Coordinates) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// SamePoint reports whether two coordinates are equal at cache-key precision
func SamePoint(a, b Coordinates) bool {
	return RoundCoordinate(a.Lat) == RoundCoordinate(b.Lat) &&
		RoundCoordinate(a.Lng) == RoundCoordinate(b.Lng)
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
