package domain

import "fmt"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is inside numeric WGS 84 range.
// Samples that fail this check are dropped, never propagated.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// String renders the point as "lat, lon", the form the roaming service expects.
func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon)
}
