package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters: средний радиус Земли, используемый формулой гаверсинусов.
const EarthRadiusMeters = 6371000.0

// BandDegrees is the height of a latitude band used for lock keys (~111 m).
const BandDegrees = 0.001

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Validate reports whether the point lies inside the valid coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("latitude is not a finite number")
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("longitude is not a finite number")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lng)
	}
	return nil
}

// IsUnset reports the (0,0) placeholder that map pickers emit before the user
// chooses a location.
func (p Point) IsUnset() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dPhi := toRadians(b.Lat - a.Lat)
	dLambda := toRadians(b.Lng - a.Lng)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// rounding can push h slightly outside [0,1] for antipodal points
	h = math.Max(0, math.Min(1, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// LatitudeBand returns the index of the BandDegrees-high band containing lat.
func LatitudeBand(lat float64) int64 {
	return int64(math.Floor(lat / BandDegrees))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
