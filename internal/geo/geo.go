// Package geo provides geofence validation based on great-circle distance.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// ErrInvalidCoordinates reports a latitude outside [-90,90] or a longitude
// outside [-180,180].
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Validate checks that a coordinate pair is within valid WGS84 ranges.
func Validate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidCoordinates, lat, lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinates, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinates, lng)
	}
	return nil
}

// Distance computes the haversine great-circle distance in meters between two
// coordinates. The spherical approximation is accurate to well under 0.5% at
// the sub-kilometer ranges geofencing cares about.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Fence is an allowed-radius constraint around an anchor coordinate.
type Fence struct {
	AnchorLat         float64
	AnchorLng         float64
	MaxDistanceMeters float64
}

// Check validates the submitted coordinates and reports whether they fall
// within the fence, along with the computed distance to the anchor.
func (f Fence) Check(lat, lng float64) (ok bool, distanceMeters float64, err error) {
	if err := Validate(lat, lng); err != nil {
		return false, 0, err
	}
	distanceMeters = Distance(lat, lng, f.AnchorLat, f.AnchorLng)
	return distanceMeters <= f.MaxDistanceMeters, distanceMeters, nil
}
