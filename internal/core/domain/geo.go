package domain

import "time"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position is a sample delivered by a position provider, with an optional
// accuracy hint in meters.
type Position struct {
	Point    GeoPoint  `json:"point"`
	Accuracy float64   `json:"accuracy,omitempty"`
	Time     time.Time `json:"time"`
}
