// Package race implements the real-time race-session engine: position
// filtering, progress tracking, ranking, session lifecycle and completion
// coordination. All per-session state is owned by a single actor goroutine.
package race

import (
	"github.com/yourusername/runbattle/internal/geo"
	"github.com/yourusername/runbattle/internal/models"
)

// Verdict classifies the outcome of filtering one position sample
type Verdict string

const (
	VerdictAccepted   Verdict = "accepted"
	VerdictMalformed  Verdict = "malformed"
	VerdictInaccurate Verdict = "inaccurate"
	VerdictBootstrap  Verdict = "bootstrap"
	VerdictJump       Verdict = "jump"
	VerdictJitter     Verdict = "jitter"
)

// FilterConfig holds the sample-quality thresholds
type FilterConfig struct {
	MaxAccuracyM float64
	MaxJumpM     float64
	MinMoveM     float64
}

// DefaultFilterConfig returns the production thresholds
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxAccuracyM: 20,
		MaxJumpM:     100,
		MinMoveM:     3,
	}
}

// FilterState is the retained per-participant filter window: the last
// accepted sample acting as the reference point for the next delta.
type FilterState struct {
	hasRef bool
	refLat float64
	refLng float64
}

// PositionFilter converts a raw, possibly erroneous location stream into
// trustworthy incremental distance. It holds no per-participant state of
// its own; callers pass the participant's FilterState, so the filter is
// safe for concurrent use across participants as long as updates for one
// participant are serialized.
type PositionFilter struct {
	cfg FilterConfig
}

// NewPositionFilter creates a filter with the given thresholds
func NewPositionFilter(cfg FilterConfig) *PositionFilter {
	return &PositionFilter{cfg: cfg}
}

// Apply evaluates one sample against the participant's filter state.
// It returns the validated incremental distance (0 unless accepted) and
// the verdict explaining what happened to the sample.
func (f *PositionFilter) Apply(state *FilterState, sample models.PositionSample) (float64, Verdict) {
	if !sample.Valid() {
		return 0, VerdictMalformed
	}
	if sample.AccuracyM > f.cfg.MaxAccuracyM {
		return 0, VerdictInaccurate
	}

	// First accepted sample is the reference point and contributes no
	// distance; distance is only defined between two points.
	if !state.hasRef {
		state.hasRef = true
		state.refLat = sample.Lat
		state.refLng = sample.Lng
		return 0, VerdictBootstrap
	}

	delta := geo.HaversineM(state.refLat, state.refLng, sample.Lat, sample.Lng)

	// A localization glitch: move the reference so future deltas are not
	// compounded, but add nothing.
	if delta > f.cfg.MaxJumpM {
		state.refLat = sample.Lat
		state.refLng = sample.Lng
		return 0, VerdictJump
	}

	// GPS jitter: drop without touching the reference point.
	if delta < f.cfg.MinMoveM {
		return 0, VerdictJitter
	}

	state.refLat = sample.Lat
	state.refLng = sample.Lng
	return delta, VerdictAccepted
}
