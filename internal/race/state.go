package race

import (
	"fmt"
	"time"

	"github.com/yourusername/runbattle/internal/models"
)

// stateRank orders session states so transitions can never move backwards
var stateRank = map[models.SessionStatus]int{
	models.StatusLobby:        0,
	models.StatusCountdown:    1,
	models.StatusRunning:      2,
	models.StatusGraceTimeout: 3,
	models.StatusCompleted:    4,
	models.StatusCancelled:    4,
}

// legalTransitions enumerates the allowed edges of the session lifecycle
var legalTransitions = map[models.SessionStatus][]models.SessionStatus{
	models.StatusLobby:        {models.StatusCountdown, models.StatusCancelled},
	models.StatusCountdown:    {models.StatusRunning, models.StatusCancelled},
	models.StatusRunning:      {models.StatusGraceTimeout, models.StatusCompleted},
	models.StatusGraceTimeout: {models.StatusCompleted},
}

// StateMachine owns the lifecycle of one race session. It is the single
// writer of session status; only the session actor may apply transitions.
type StateMachine struct {
	session *models.Session
}

// NewStateMachine wraps a session whose status starts at LOBBY
func NewStateMachine(session *models.Session) *StateMachine {
	if session.Status == "" {
		session.Status = models.StatusLobby
	}
	return &StateMachine{session: session}
}

// Session returns the underlying session record
func (m *StateMachine) Session() *models.Session {
	return m.session
}

// Status returns the current session status
func (m *StateMachine) Status() models.SessionStatus {
	return m.session.Status
}

// CanTransition reports whether moving to the target state is legal
func (m *StateMachine) CanTransition(to models.SessionStatus) bool {
	for _, next := range legalTransitions[m.session.Status] {
		if next == to {
			return true
		}
	}
	return false
}

func (m *StateMachine) transition(to models.SessionStatus) error {
	if !m.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, m.session.Status, to)
	}
	if stateRank[to] < stateRank[m.session.Status] {
		return fmt.Errorf("%w: %s -> %s moves backwards", models.ErrInvalidTransition, m.session.Status, to)
	}
	m.session.Status = to
	return nil
}

// BeginCountdown moves LOBBY -> COUNTDOWN
func (m *StateMachine) BeginCountdown() error {
	return m.transition(models.StatusCountdown)
}

// Start moves COUNTDOWN -> RUNNING and marks the session start time from
// which all participants' elapsed time is measured
func (m *StateMachine) Start(now time.Time) error {
	if err := m.transition(models.StatusRunning); err != nil {
		return err
	}
	startedAt := now
	m.session.StartedAt = &startedAt
	return nil
}

// EnterGrace moves RUNNING -> GRACE_TIMEOUT, fixing the grace window at
// entry. The window is never extended or reset by later finishers.
func (m *StateMachine) EnterGrace(now time.Time, timeout time.Duration) error {
	if err := m.transition(models.StatusGraceTimeout); err != nil {
		return err
	}
	graceStart := now
	m.session.GraceStartedAt = &graceStart
	m.session.GraceTimeout = timeout
	return nil
}

// Complete moves RUNNING or GRACE_TIMEOUT -> COMPLETED
func (m *StateMachine) Complete(now time.Time) error {
	if err := m.transition(models.StatusCompleted); err != nil {
		return err
	}
	endedAt := now
	m.session.EndedAt = &endedAt
	return nil
}

// Cancel moves LOBBY or COUNTDOWN -> CANCELLED
func (m *StateMachine) Cancel(now time.Time) error {
	if err := m.transition(models.StatusCancelled); err != nil {
		return err
	}
	endedAt := now
	m.session.EndedAt = &endedAt
	return nil
}

// ForceCancel terminates the session regardless of current state. A crashed
// actor must never leave a session silently stuck, so structural failures
// land here rather than in the legal-transition table.
func (m *StateMachine) ForceCancel(now time.Time) {
	if m.session.IsTerminal() {
		return
	}
	m.session.Status = models.StatusCancelled
	endedAt := now
	m.session.EndedAt = &endedAt
}
