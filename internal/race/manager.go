package race

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/runbattle/internal/metrics"
	"github.com/yourusername/runbattle/internal/models"
)

// CreateSessionInput describes a session handed over by matchmaking: a fixed
// target distance and participant list.
type CreateSessionInput struct {
	SessionID       uuid.UUID
	TargetDistanceM float64
	Mode            models.SessionMode
	Members         []uuid.UUID
	GhostRunID      *uuid.UUID
	LobbyDeadline   time.Duration
}

// Manager is the registry of live session actors. Sessions are independent:
// their actors run fully in parallel with no shared mutable state, and the
// manager only routes events and handles teardown.
type Manager struct {
	cfg         ActorConfig
	broadcaster Broadcaster
	sink        ResultSink
	baselines   BaselineFetcher
	clock       clockwork.Clock
	logger      *logrus.Logger

	mu       sync.RWMutex
	actors   map[uuid.UUID]*Actor
	lobbies  map[uuid.UUID]time.Time
	baseCtx  context.Context
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewManager creates a session manager
func NewManager(
	cfg ActorConfig,
	broadcaster Broadcaster,
	sink ResultSink,
	baselines BaselineFetcher,
	clock clockwork.Clock,
	logger *logrus.Logger,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:         cfg,
		broadcaster: broadcaster,
		sink:        sink,
		baselines:   baselines,
		clock:       clock,
		logger:      logger,
		actors:      make(map[uuid.UUID]*Actor),
		lobbies:     make(map[uuid.UUID]time.Time),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// CreateSession spins up an actor for a new session in LOBBY
func (m *Manager) CreateSession(ctx context.Context, input CreateSessionInput) (*Actor, error) {
	if input.SessionID == uuid.Nil {
		input.SessionID = uuid.New()
	}
	if input.TargetDistanceM <= 0 {
		return nil, fmt.Errorf("target distance must be positive, got %v", input.TargetDistanceM)
	}

	minParticipants := m.cfg.MinParticipants
	if input.Mode == models.ModeSoloGhost {
		minParticipants = 1
	}
	if len(input.Members) < minParticipants {
		return nil, fmt.Errorf("session needs at least %d participants, got %d", minParticipants, len(input.Members))
	}

	var baseline *models.GhostBaseline
	if input.Mode == models.ModeSoloGhost && input.GhostRunID != nil {
		b, err := m.baselines.FetchBaseline(ctx, *input.GhostRunID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch ghost baseline: %w", err)
		}
		baseline = b
	}

	session := &models.Session{
		ID:              input.SessionID,
		TargetDistanceM: input.TargetDistanceM,
		Mode:            input.Mode,
		Status:          models.StatusLobby,
		CreatedAt:       m.clock.Now(),
		GhostRunID:      input.GhostRunID,
	}

	cfg := m.cfg
	cfg.MinParticipants = minParticipants

	actor := NewActor(session, input.Members, baseline, cfg, m.broadcaster, m.sink, m.clock, m.logger)
	actor.onTerminal = m.remove

	m.mu.Lock()
	if _, exists := m.actors[session.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s already exists", session.ID)
	}
	m.actors[session.ID] = actor
	if input.LobbyDeadline > 0 {
		m.lobbies[session.ID] = m.clock.Now().Add(input.LobbyDeadline)
	}
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	actor.Start(m.baseCtx)

	m.logger.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"mode":         session.Mode,
		"participants": len(input.Members),
		"target_m":     session.TargetDistanceM,
	}).Info("Session created")

	return actor, nil
}

// Dispatch routes an inbound event to its session actor
func (m *Manager) Dispatch(sessionID uuid.UUID, ev Event) error {
	m.mu.RLock()
	actor, ok := m.actors[sessionID]
	m.mu.RUnlock()
	if !ok {
		return models.ErrSessionNotFound
	}
	return actor.Enqueue(ev)
}

// Get returns the actor for a session, if it is still live
func (m *Manager) Get(sessionID uuid.UUID) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actor, ok := m.actors[sessionID]
	return actor, ok
}

// SweepLobbies injects a lobby-expiry event into every session whose lobby
// deadline passed. The decision itself runs inside the session actor so the
// single-writer invariant holds.
func (m *Manager) SweepLobbies() {
	now := m.clock.Now()

	m.mu.Lock()
	expired := make([]*Actor, 0)
	for id, deadline := range m.lobbies {
		if now.Before(deadline) {
			continue
		}
		delete(m.lobbies, id)
		if actor, ok := m.actors[id]; ok {
			expired = append(expired, actor)
		}
	}
	m.mu.Unlock()

	for _, actor := range expired {
		if err := actor.Enqueue(Event{Type: EventLobbyExpiry, ReceivedAt: now}); err != nil {
			m.logger.WithError(err).Warn("Failed to enqueue lobby expiry")
		}
	}
}

// ActiveSessions returns the number of live actors
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors)
}

// remove is the actor teardown hook
func (m *Manager) remove(sessionID uuid.UUID) {
	m.mu.Lock()
	if _, ok := m.actors[sessionID]; ok {
		delete(m.actors, sessionID)
		delete(m.lobbies, sessionID)
		metrics.SessionsActive.Dec()
	}
	m.mu.Unlock()

	m.logger.WithField("session_id", sessionID).Debug("Session actor torn down")
}

// Shutdown cancels all live actors and waits for them to drain
func (m *Manager) Shutdown(ctx context.Context) {
	m.stopOnce.Do(m.cancel)

	m.mu.RLock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.RUnlock()

	for _, a := range actors {
		select {
		case <-a.Done():
		case <-ctx.Done():
			return
		}
	}
}
