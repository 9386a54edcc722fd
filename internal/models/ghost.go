package models

import (
	"github.com/google/uuid"
)

// GhostCheckpoint is one (distance, elapsed) point of a prerecorded run
type GhostCheckpoint struct {
	DistanceM float64 `json:"distance_m"`
	ElapsedMs int64   `json:"elapsed_ms"`
}

// GhostBaseline is an immutable prerecorded reference run used for solo
// comparison. It is read-only during a live session and safely shared
// without locking.
type GhostBaseline struct {
	RunID           uuid.UUID         `json:"run_id"`
	TargetDistanceM float64           `json:"target_distance_m"`
	Checkpoints     []GhostCheckpoint `json:"checkpoints"`
	// AvgPaceSecPerKm is the fallback pace used when no checkpoints exist
	AvgPaceSecPerKm float64 `json:"avg_pace_sec_per_km"`
}

// HasCheckpoints reports whether the baseline carries an ordered checkpoint list
func (b *GhostBaseline) HasCheckpoints() bool {
	return len(b.Checkpoints) > 0
}
