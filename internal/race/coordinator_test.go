package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/runbattle/internal/models"
)

func runningSession(status models.SessionStatus) *models.Session {
	s := newTestSession()
	s.Status = status
	started := time.Now().Add(-10 * time.Minute)
	s.StartedAt = &started
	return s
}

func TestCoordinatorIgnoresNonLiveSessions(t *testing.T) {
	c := NewCoordinator(time.Minute)
	now := time.Now()
	snap := []models.Participant{participant(models.ParticipantFinished, 5000, 1500000, now)}

	for _, status := range []models.SessionStatus{
		models.StatusLobby, models.StatusCountdown, models.StatusCompleted, models.StatusCancelled,
	} {
		s := newTestSession()
		s.Status = status
		assert.Equal(t, DecisionNone, c.Evaluate(s, snap, true, now), "status %s", status)
	}
}

func TestCoordinatorCompletesWhenNoActiveRemain(t *testing.T) {
	c := NewCoordinator(time.Minute)
	now := time.Now()

	// Covers both the last-finisher and the last-quitter cases
	snaps := [][]models.Participant{
		{
			participant(models.ParticipantFinished, 5000, 1500000, now),
			participant(models.ParticipantFinished, 5000, 1600000, now),
		},
		{
			participant(models.ParticipantFinished, 5000, 1500000, now),
			participant(models.ParticipantQuit, 3000, 0, now),
		},
	}
	for _, snap := range snaps {
		assert.Equal(t, DecisionComplete, c.Evaluate(runningSession(models.StatusRunning), snap, true, now))
		assert.Equal(t, DecisionComplete, c.Evaluate(runningSession(models.StatusGraceTimeout), snap, false, now))
	}
}

func TestCoordinatorOpensGraceOnFirstFinisher(t *testing.T) {
	c := NewCoordinator(time.Minute)
	now := time.Now()
	snap := []models.Participant{
		participant(models.ParticipantFinished, 5000, 1500000, now),
		participant(models.ParticipantActive, 4200, 1500000, now),
	}

	assert.Equal(t, DecisionEnterGrace, c.Evaluate(runningSession(models.StatusRunning), snap, true, now))

	// Without a fresh finisher a running session keeps running
	assert.Equal(t, DecisionNone, c.Evaluate(runningSession(models.StatusRunning), snap, false, now))
}

func TestCoordinatorExpiresGrace(t *testing.T) {
	c := NewCoordinator(time.Minute)
	now := time.Now()
	snap := []models.Participant{
		participant(models.ParticipantFinished, 5000, 1500000, now),
		participant(models.ParticipantActive, 4200, 1500000, now),
	}

	s := runningSession(models.StatusGraceTimeout)
	graceStart := now.Add(-30 * time.Second)
	s.GraceStartedAt = &graceStart
	s.GraceTimeout = time.Minute

	// Still inside the window
	assert.Equal(t, DecisionNone, c.Evaluate(s, snap, false, now))

	// Window elapsed
	assert.Equal(t, DecisionExpireGrace, c.Evaluate(s, snap, false, now.Add(31*time.Second)))
}
