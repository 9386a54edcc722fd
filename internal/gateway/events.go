package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbound event types pushed to connected clients.
const (
	OutboundRankingUpdate   = "ranking_update"
	OutboundStateTransition = "state_transition"
	OutboundGhostUpdate     = "ghost_update"
	OutboundError           = "error"
)

// Inbound message types accepted from clients.
const (
	InboundPosition    = "position"
	InboundFinishClaim = "finish_claim"
	InboundQuit        = "quit"
	InboundReady       = "ready"
)

// OutboundEvent is the envelope for every server-to-client message.
type OutboundEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewOutboundEvent wraps a marshalled payload in the standard envelope.
func NewOutboundEvent(sessionID uuid.UUID, eventType string, data json.RawMessage, now time.Time) OutboundEvent {
	return OutboundEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID.String(),
		Type:      eventType,
		Timestamp: now.UTC(),
		Data:      data,
	}
}

// RankingEntryPayload is one row of a ranking_update broadcast.
type RankingEntryPayload struct {
	UserID          string  `json:"user_id"`
	Rank            int     `json:"rank"`
	Status          string  `json:"status"`
	DistanceM       float64 `json:"distance_m"`
	ElapsedMs       int64   `json:"elapsed_ms"`
	ProgressPercent float64 `json:"progress_percent"`
	GapToLeaderM    float64 `json:"gap_to_leader_m"`
	PaceDisplay     string  `json:"pace_display"`
}

// RankingUpdatePayload carries the full ordered leaderboard.
type RankingUpdatePayload struct {
	Entries []RankingEntryPayload `json:"entries"`
}

// StateTransitionPayload announces a session status change.
type StateTransitionPayload struct {
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	GraceSeconds int    `json:"grace_seconds,omitempty"`
}

// GhostUpdatePayload carries the runner-versus-baseline comparison for
// solo sessions.
type GhostUpdatePayload struct {
	Status  string  `json:"status"`
	DeltaMs int64   `json:"delta_ms"`
	DeltaM  float64 `json:"delta_m"`
}

// ErrorPayload is sent to a single client when its message is rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InboundMessage is the envelope for every client-to-server message.
type InboundMessage struct {
	Type string          `json:"type" validate:"required,oneof=position finish_claim quit ready"`
	Data json.RawMessage `json:"data"`
}

// PositionPayload is a raw GPS fix from the device.
type PositionPayload struct {
	Lat        float64  `json:"lat" validate:"min=-90,max=90"`
	Lng        float64  `json:"lng" validate:"min=-180,max=180"`
	AccuracyM  float64  `json:"accuracy_m" validate:"min=0"`
	SpeedMps   *float64 `json:"speed_mps,omitempty"`
	ClientTime int64    `json:"client_time" validate:"required"`
}

// FinishClaimPayload is the client's assertion that it crossed the
// target distance, with its own odometer readings.
type FinishClaimPayload struct {
	TotalDistanceM float64 `json:"total_distance_m" validate:"min=0"`
	TotalTimeMs    int64   `json:"total_time_ms" validate:"min=0"`
	AvgPaceMinKm   float64 `json:"avg_pace_min_km" validate:"min=0"`
}
