package spatial

import (
	"errors"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// ErrInvalidPoint indicates coordinates outside the valid lat/lng range.
var ErrInvalidPoint = errors.New("invalid coordinates")

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point lies within lat [-90,90] and lng [-180,180].
func (p Point) Validate() error {
	if !s2.LatLngFromDegrees(p.Lat, p.Lng).IsValid() {
		return ErrInvalidPoint
	}
	return nil
}

// DistanceMeters returns the great-circle distance between two points in meters.
func DistanceMeters(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Within reports whether b lies within radiusMeters of a.
// A non-positive radius disables the check.
func Within(a, b Point, radiusMeters float64) bool {
	if radiusMeters <= 0 {
		return true
	}
	return DistanceMeters(a, b) <= radiusMeters
}
