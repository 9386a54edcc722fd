package models

import (
	"math"
	"time"
)

// PositionSample is a raw location report from a client. Samples are ephemeral:
// only the last accepted sample per participant is retained by the position
// filter to compute the next delta.
type PositionSample struct {
	Lat        float64    `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng        float64    `json:"lng" validate:"required,gte=-180,lte=180"`
	AccuracyM  float64    `json:"accuracy" validate:"gte=0"`
	SpeedMps   *float64   `json:"speed,omitempty"`
	ClientTime time.Time  `json:"client_time"`
}

// Valid reports whether the sample carries finite, plausible coordinates.
// Malformed samples are rejected at the filter boundary with no state change.
func (s *PositionSample) Valid() bool {
	if math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0) || math.IsNaN(s.Lng) || math.IsInf(s.Lng, 0) {
		return false
	}
	if math.IsNaN(s.AccuracyM) || math.IsInf(s.AccuracyM, 0) || s.AccuracyM < 0 {
		return false
	}
	return s.Lat >= -90 && s.Lat <= 90 && s.Lng >= -180 && s.Lng <= 180
}
