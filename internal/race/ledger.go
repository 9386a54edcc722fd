package race

import (
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/runbattle/internal/models"
)

// Ledger is the authoritative per-session map of participant progress.
// It has no internal locking: the session actor is its sole mutator, so
// Snapshot is a consistent copy-on-read without synchronization.
type Ledger struct {
	participants map[uuid.UUID]*models.Participant
	order        []uuid.UUID
}

// NewLedger seeds a ledger with one ACTIVE participant per user, in join order
func NewLedger(userIDs []uuid.UUID, now time.Time) *Ledger {
	l := &Ledger{
		participants: make(map[uuid.UUID]*models.Participant, len(userIDs)),
		order:        make([]uuid.UUID, 0, len(userIDs)),
	}
	for _, id := range userIDs {
		if _, ok := l.participants[id]; ok {
			continue
		}
		l.participants[id] = &models.Participant{
			UserID:     id,
			Status:     models.ParticipantActive,
			LastUpdate: now,
			LastSeen:   now,
		}
		l.order = append(l.order, id)
	}
	return l
}

// RecordDistance adds validated meters to an ACTIVE participant's cumulative
// distance and advances its elapsed time. It is a no-op for terminal
// participants: a FINISHED or QUIT participant's figures never change again.
// Returns true if the snapshot changed.
func (l *Ledger) RecordDistance(userID uuid.UUID, meters float64, elapsedMs int64, now time.Time) bool {
	p, ok := l.participants[userID]
	if !ok || p.Status != models.ParticipantActive || meters <= 0 {
		return false
	}
	p.DistanceM += meters
	p.ElapsedMs = elapsedMs
	p.LastUpdate = now
	p.LastSeen = now
	return true
}

// MarkFinished freezes an ACTIVE participant as FINISHED. Finishing is
// idempotent: a race exists between the distance threshold being crossed
// and an explicit finish claim arriving, so repeated calls are no-ops.
// Returns true only when the participant newly finished.
func (l *Ledger) MarkFinished(userID uuid.UUID, elapsedMs int64, now time.Time) bool {
	p, ok := l.participants[userID]
	if !ok || p.Status != models.ParticipantActive {
		return false
	}
	p.Status = models.ParticipantFinished
	p.ElapsedMs = elapsedMs
	finishedAt := now
	p.FinishedAt = &finishedAt
	p.LastUpdate = now
	p.LastSeen = now
	return true
}

// MarkQuit transitions an ACTIVE participant to QUIT, retaining its last
// cumulative distance. Idempotent like MarkFinished.
func (l *Ledger) MarkQuit(userID uuid.UUID, now time.Time) bool {
	p, ok := l.participants[userID]
	if !ok || p.Status != models.ParticipantActive {
		return false
	}
	p.Status = models.ParticipantQuit
	p.LastUpdate = now
	p.LastSeen = now
	return true
}

// ForceQuitActive marks every remaining ACTIVE participant as QUIT. Used at
// grace expiry. Returns the number of participants transitioned.
func (l *Ledger) ForceQuitActive(now time.Time) int {
	n := 0
	for _, id := range l.order {
		if l.MarkQuit(id, now) {
			n++
		}
	}
	return n
}

// Touch records client liveness without changing progress. Samples from a
// finished participant keep flowing for liveness but never move its distance.
func (l *Ledger) Touch(userID uuid.UUID, now time.Time) {
	if p, ok := l.participants[userID]; ok {
		p.LastSeen = now
	}
}

// Get returns the participant for a user, or nil if unknown
func (l *Ledger) Get(userID uuid.UUID) *models.Participant {
	return l.participants[userID]
}

// ActiveCount returns the number of participants still ACTIVE
func (l *Ledger) ActiveCount() int {
	n := 0
	for _, p := range l.participants {
		if p.Status == models.ParticipantActive {
			n++
		}
	}
	return n
}

// Size returns the total number of participants
func (l *Ledger) Size() int {
	return len(l.participants)
}

// Snapshot returns an immutable copy of all participant states in join
// order. A participant's distance and finish status are always copied
// together, never partially updated.
func (l *Ledger) Snapshot() []models.Participant {
	out := make([]models.Participant, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.participants[id])
	}
	return out
}
