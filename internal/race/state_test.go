package race

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/runbattle/internal/models"
)

func newTestSession() *models.Session {
	return &models.Session{
		ID:              uuid.New(),
		TargetDistanceM: 5000,
		Mode:            models.ModeHeadToHead,
		Status:          models.StatusLobby,
		CreatedAt:       time.Now(),
	}
}

func TestStateMachineHappyPath(t *testing.T) {
	sm := NewStateMachine(newTestSession())
	now := time.Now()

	require.NoError(t, sm.BeginCountdown())
	require.NoError(t, sm.Start(now))
	require.NotNil(t, sm.Session().StartedAt)

	require.NoError(t, sm.EnterGrace(now.Add(25*time.Minute), 60*time.Second))
	assert.Equal(t, 60*time.Second, sm.Session().GraceTimeout)
	require.NotNil(t, sm.Session().GraceStartedAt)

	require.NoError(t, sm.Complete(now.Add(26*time.Minute)))
	assert.Equal(t, models.StatusCompleted, sm.Status())
	require.NotNil(t, sm.Session().EndedAt)
}

func TestStateMachineDirectCompletion(t *testing.T) {
	sm := NewStateMachine(newTestSession())
	now := time.Now()

	require.NoError(t, sm.BeginCountdown())
	require.NoError(t, sm.Start(now))

	// Last active participant going terminal skips the grace window
	require.NoError(t, sm.Complete(now.Add(time.Minute)))
	assert.Equal(t, models.StatusCompleted, sm.Status())
}

func TestStateMachineCancelOnlyBeforeRunning(t *testing.T) {
	sm := NewStateMachine(newTestSession())
	require.NoError(t, sm.Cancel(time.Now()))
	assert.Equal(t, models.StatusCancelled, sm.Status())

	sm = NewStateMachine(newTestSession())
	require.NoError(t, sm.BeginCountdown())
	require.NoError(t, sm.Cancel(time.Now()))

	sm = NewStateMachine(newTestSession())
	require.NoError(t, sm.BeginCountdown())
	require.NoError(t, sm.Start(time.Now()))
	err := sm.Cancel(time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestStateMachineRejectsIllegalTransitions(t *testing.T) {
	now := time.Now()

	sm := NewStateMachine(newTestSession())
	assert.ErrorIs(t, sm.Start(now), models.ErrInvalidTransition)
	assert.ErrorIs(t, sm.EnterGrace(now, time.Minute), models.ErrInvalidTransition)
	assert.ErrorIs(t, sm.Complete(now), models.ErrInvalidTransition)

	require.NoError(t, sm.BeginCountdown())
	assert.ErrorIs(t, sm.BeginCountdown(), models.ErrInvalidTransition)
}

func TestStateMachineIsMonotonic(t *testing.T) {
	sm := NewStateMachine(newTestSession())
	now := time.Now()

	require.NoError(t, sm.BeginCountdown())
	require.NoError(t, sm.Start(now))
	require.NoError(t, sm.EnterGrace(now, time.Minute))

	// The state machine never returns to RUNNING, so a second grace
	// window is impossible by construction.
	assert.ErrorIs(t, sm.EnterGrace(now, time.Minute), models.ErrInvalidTransition)
	require.NoError(t, sm.Complete(now))
	assert.ErrorIs(t, sm.BeginCountdown(), models.ErrInvalidTransition)
	assert.ErrorIs(t, sm.Complete(now), models.ErrInvalidTransition)
}

func TestStateMachineForceCancel(t *testing.T) {
	sm := NewStateMachine(newTestSession())
	now := time.Now()

	require.NoError(t, sm.BeginCountdown())
	require.NoError(t, sm.Start(now))

	sm.ForceCancel(now)
	assert.Equal(t, models.StatusCancelled, sm.Status())

	// Terminal states stay put
	sm.ForceCancel(now.Add(time.Second))
	assert.Equal(t, models.StatusCancelled, sm.Status())
}
