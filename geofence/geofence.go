// Package geofence decides whether a reported position lies inside a
// location's circular boundary. It has no side effects and performs no I/O.
package geofence

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the IUGG mean Earth radius.
const EarthRadiusKm = 6371.0088

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRadius     = errors.New("invalid radius")
)

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Fence is a circle around Center. RadiusKm is in kilometers.
type Fence struct {
	Center   Point
	RadiusKm float64
}

// Result is the outcome of a proximity check. DistanceKm is rounded to two
// decimal places.
type Result struct {
	Verified   bool
	DistanceKm float64
}

// Validate checks that p is a finite point within latitude [-90,90] and
// longitude [-180,180].
func Validate(p Point) error {
	if !finite(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, p.Latitude)
	}
	if !finite(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, p.Longitude)
	}
	return nil
}

// Distance returns the great-circle distance between a and b in kilometers
// using the haversine formula.
func Distance(a, b Point) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// Verify reports whether reported lies within fence. A point exactly on the
// boundary is verified.
func Verify(reported Point, fence Fence) (Result, error) {
	if !finite(fence.RadiusKm) || fence.RadiusKm < 0 {
		return Result{}, fmt.Errorf("%w: %v km", ErrInvalidRadius, fence.RadiusKm)
	}
	d, err := Distance(reported, fence.Center)
	if err != nil {
		return Result{}, err
	}
	// Compare the unrounded distance; rounding is for reporting only.
	return Result{
		Verified:   d <= fence.RadiusKm,
		DistanceKm: Round2(d),
	}, nil
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func haversine(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
