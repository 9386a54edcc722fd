package race

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/runbattle/internal/models"
)

type stubBaselineFetcher struct {
	baseline *models.GhostBaseline
	err      error
	calls    int
}

func (f *stubBaselineFetcher) FetchBaseline(_ context.Context, _ uuid.UUID) (*models.GhostBaseline, error) {
	f.calls++
	return f.baseline, f.err
}

func newTestManager(clock clockwork.Clock) (*Manager, *recordingBroadcaster, *stubSink, *stubBaselineFetcher) {
	bc := &recordingBroadcaster{}
	sink := &stubSink{}
	baselines := &stubBaselineFetcher{baseline: paceOnlyBaseline(300)}
	m := NewManager(DefaultActorConfig(), bc, sink, baselines, clock, testLogger())
	return m, bc, sink, baselines
}

func TestManagerCreateAndDispatch(t *testing.T) {
	m, _, _, _ := newTestManager(clockwork.NewFakeClock())
	defer m.Shutdown(context.Background())

	a, b := uuid.New(), uuid.New()
	actor, err := m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 5000,
		Mode:            models.ModeHeadToHead,
		Members:         []uuid.UUID{a, b},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusLobby, actor.Status())
	assert.Equal(t, 1, m.ActiveSessions())

	require.NoError(t, m.Dispatch(actor.Session().ID, Event{Type: EventReady, ParticipantID: a}))

	err = m.Dispatch(uuid.New(), Event{Type: EventReady, ParticipantID: a})
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestManagerRejectsUndersizedSessions(t *testing.T) {
	m, _, _, _ := newTestManager(clockwork.NewFakeClock())
	defer m.Shutdown(context.Background())

	_, err := m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 5000,
		Mode:            models.ModeHeadToHead,
		Members:         []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)

	_, err = m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 0,
		Mode:            models.ModeHeadToHead,
		Members:         []uuid.UUID{uuid.New(), uuid.New()},
	})
	require.Error(t, err)
}

func TestManagerFetchesBaselineForSoloSessions(t *testing.T) {
	m, _, _, baselines := newTestManager(clockwork.NewFakeClock())
	defer m.Shutdown(context.Background())

	runID := uuid.New()
	actor, err := m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 5000,
		Mode:            models.ModeSoloGhost,
		Members:         []uuid.UUID{uuid.New()},
		GhostRunID:      &runID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, baselines.calls)
	assert.NotNil(t, actor.baseline)

	baselines.err = models.ErrBaselineNotFound
	baselines.baseline = nil
	_, err = m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 5000,
		Mode:            models.ModeSoloGhost,
		Members:         []uuid.UUID{uuid.New()},
		GhostRunID:      &runID,
	})
	assert.ErrorIs(t, err, models.ErrBaselineNotFound)
}

func TestManagerSweepsExpiredLobbies(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m, _, _, _ := newTestManager(clock)
	defer m.Shutdown(context.Background())

	actor, err := m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 5000,
		Mode:            models.ModeHeadToHead,
		Members:         []uuid.UUID{uuid.New(), uuid.New()},
		LobbyDeadline:   30 * time.Second,
	})
	require.NoError(t, err)

	// Before the deadline the sweep leaves the lobby alone
	m.SweepLobbies()
	assert.Equal(t, models.StatusLobby, actor.Status())

	clock.Advance(31 * time.Second)
	m.SweepLobbies()

	// Enough members remain, so the expiry forces the countdown
	require.Eventually(t, func() bool { return actor.Status() == models.StatusCountdown },
		time.Second, time.Millisecond)
}

func TestManagerRemovesTerminalActors(t *testing.T) {
	m, _, _, _ := newTestManager(clockwork.NewFakeClock())
	defer m.Shutdown(context.Background())

	a, b := uuid.New(), uuid.New()
	actor, err := m.CreateSession(context.Background(), CreateSessionInput{
		TargetDistanceM: 5000,
		Mode:            models.ModeHeadToHead,
		Members:         []uuid.UUID{a, b},
	})
	require.NoError(t, err)

	// Both quitting in the lobby drops membership below the minimum
	require.NoError(t, m.Dispatch(actor.Session().ID, Event{Type: EventQuit, ParticipantID: a}))

	require.Eventually(t, func() bool { return m.ActiveSessions() == 0 },
		time.Second, time.Millisecond)

	_, ok := m.Get(actor.Session().ID)
	assert.False(t, ok)
}
