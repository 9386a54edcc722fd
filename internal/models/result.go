package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResultEntry is one participant's row in the final result read model.
// Distances and paces are stored as exact decimals so the persisted record
// does not drift from what was broadcast.
type ResultEntry struct {
	UserID         uuid.UUID         `db:"user_id" json:"user_id"`
	FinalRank      int               `db:"final_rank" json:"final_rank"`
	Status         ParticipantStatus `db:"status" json:"status"`
	TotalDistanceM decimal.Decimal   `db:"total_distance_m" json:"total_distance_m"`
	TotalTimeMs    int64             `db:"total_time_ms" json:"total_time_ms"`
	AvgPaceMinKm   decimal.Decimal   `db:"avg_pace_min_km" json:"avg_pace_min_km"`
	// Deltas to the 1st-place finisher, head-to-head mode only
	DeltaToWinnerMs int64           `db:"delta_to_winner_ms" json:"delta_to_winner_ms"`
	DeltaToWinnerM  decimal.Decimal `db:"delta_to_winner_m" json:"delta_to_winner_m"`
}

// RaceResult is the durable record handed to persistence once a session
// reaches COMPLETED
type RaceResult struct {
	SessionID       uuid.UUID     `db:"session_id" json:"session_id"`
	Mode            SessionMode   `db:"mode" json:"mode"`
	TargetDistanceM float64       `db:"target_distance_m" json:"target_distance_m"`
	CompletedAt     time.Time     `db:"completed_at" json:"completed_at"`
	Entries         []ResultEntry `json:"entries"`
}
