package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionMode distinguishes multi-participant battles from solo ghost runs
type SessionMode string

const (
	ModeHeadToHead SessionMode = "HEAD_TO_HEAD"
	ModeSoloGhost  SessionMode = "SOLO_GHOST"
)

// SessionStatus is the lifecycle state of a race session
type SessionStatus string

const (
	StatusLobby        SessionStatus = "LOBBY"
	StatusCountdown    SessionStatus = "COUNTDOWN"
	StatusRunning      SessionStatus = "RUNNING"
	StatusGraceTimeout SessionStatus = "GRACE_TIMEOUT"
	StatusCompleted    SessionStatus = "COMPLETED"
	StatusCancelled    SessionStatus = "CANCELLED"
)

// Session represents one race instance toward a shared target distance
type Session struct {
	ID              uuid.UUID     `db:"id" json:"id" validate:"required"`
	TargetDistanceM float64       `db:"target_distance_m" json:"target_distance_m" validate:"required,gt=0"`
	Mode            SessionMode   `db:"mode" json:"mode" validate:"required,oneof=HEAD_TO_HEAD SOLO_GHOST"`
	Status          SessionStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	StartedAt       *time.Time    `db:"started_at" json:"started_at"`
	EndedAt         *time.Time    `db:"ended_at" json:"ended_at"`
	GraceTimeout    time.Duration `db:"-" json:"-"`
	GraceStartedAt  *time.Time    `db:"grace_started_at" json:"grace_started_at"`
	GhostRunID      *uuid.UUID    `db:"ghost_run_id" json:"ghost_run_id"`
}

// IsTerminal reports whether the session reached a final state
func (s *Session) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// IsLive reports whether participants may still accumulate distance
func (s *Session) IsLive() bool {
	return s.Status == StatusRunning || s.Status == StatusGraceTimeout
}

// ElapsedMs returns milliseconds since the race started, or 0 before RUNNING.
// Elapsed time is undefined during the lobby and countdown windows.
func (s *Session) ElapsedMs(now time.Time) int64 {
	if s.StartedAt == nil || now.Before(*s.StartedAt) {
		return 0
	}
	return now.Sub(*s.StartedAt).Milliseconds()
}
