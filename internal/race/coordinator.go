package race

import (
	"time"

	"github.com/yourusername/runbattle/internal/models"
)

// Decision is the Completion Coordinator's requested state-machine action
type Decision int

const (
	DecisionNone Decision = iota
	// DecisionComplete requests RUNNING/GRACE_TIMEOUT -> COMPLETED
	DecisionComplete
	// DecisionEnterGrace requests RUNNING -> GRACE_TIMEOUT
	DecisionEnterGrace
	// DecisionExpireGrace requests force-quit of remaining ACTIVE
	// participants followed by -> COMPLETED
	DecisionExpireGrace
)

// Coordinator translates ledger state into session transition requests.
// It is evaluated after every ledger mutation and by the grace timer.
// What counts as finishing (the distance threshold) is the caller's
// concern; the coordinator only decides what to do once someone has.
type Coordinator struct {
	graceTimeout time.Duration
}

// NewCoordinator creates a coordinator with the session's grace window
func NewCoordinator(graceTimeout time.Duration) *Coordinator {
	return &Coordinator{graceTimeout: graceTimeout}
}

// GraceTimeout returns the fixed grace window duration
func (c *Coordinator) GraceTimeout() time.Duration {
	return c.graceTimeout
}

// Evaluate inspects the session and a ledger snapshot and returns the
// transition to request, short-circuiting in priority order.
func (c *Coordinator) Evaluate(session *models.Session, snapshot []models.Participant, newlyFinished bool, now time.Time) Decision {
	if !session.IsLive() {
		return DecisionNone
	}

	activeCount := 0
	for _, p := range snapshot {
		if p.Status == models.ParticipantActive {
			activeCount++
		}
	}

	// Covers both the last finisher and the last quitter
	if activeCount == 0 {
		return DecisionComplete
	}

	if session.Status == models.StatusRunning && newlyFinished && activeCount > 0 {
		return DecisionEnterGrace
	}

	if session.Status == models.StatusGraceTimeout && session.GraceStartedAt != nil &&
		now.Sub(*session.GraceStartedAt) >= session.GraceTimeout {
		return DecisionExpireGrace
	}

	return DecisionNone
}
