package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus is the per-participant finish state within a session
type ParticipantStatus string

const (
	ParticipantActive   ParticipantStatus = "ACTIVE"
	ParticipantFinished ParticipantStatus = "FINISHED"
	ParticipantQuit     ParticipantStatus = "QUIT"
)

// Participant represents one user's membership in a race session.
// Distance is monotonically non-decreasing while ACTIVE; once the participant
// reaches a terminal status its distance and elapsed time are frozen.
type Participant struct {
	UserID     uuid.UUID         `db:"user_id" json:"user_id" validate:"required"`
	Rank       int               `db:"rank" json:"rank"`
	DistanceM  float64           `db:"distance_m" json:"distance_m"`
	ElapsedMs  int64             `db:"elapsed_ms" json:"elapsed_ms"`
	Status     ParticipantStatus `db:"status" json:"status"`
	FinishedAt *time.Time        `db:"finished_at" json:"finished_at"`
	LastUpdate time.Time         `db:"last_update" json:"last_update"`
	LastSeen   time.Time         `db:"last_seen" json:"last_seen"`
}

// IsTerminal reports whether the participant can no longer accumulate distance
func (p *Participant) IsTerminal() bool {
	return p.Status == ParticipantFinished || p.Status == ParticipantQuit
}

// PaceMinPerKm returns the average pace in minutes per kilometer,
// or 0 when the pace is undefined (no distance covered yet)
func (p *Participant) PaceMinPerKm() float64 {
	if p.DistanceM <= 0 {
		return 0
	}
	return float64(p.ElapsedMs) / 60000.0 / (p.DistanceM / 1000.0)
}
