package race

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/runbattle/internal/models"
)

// EventType identifies an inbound session event
type EventType string

const (
	EventPosition    EventType = "position"
	EventFinishClaim EventType = "finish_claim"
	EventQuit        EventType = "quit"
	EventReady       EventType = "ready"
	EventLobbyExpiry EventType = "lobby_expiry"
)

// FinishClaim is a client-asserted completion. It is a hint that triggers a
// server-side recheck against the ledger, never authoritative on its own.
type FinishClaim struct {
	TotalDistanceM float64 `json:"totalDistance"`
	TotalTimeMs    int64   `json:"totalTimeMs"`
	AvgPaceMinKm   float64 `json:"avgPace"`
}

// Event is one unit of work for a session actor. All events for a session
// are processed one at a time, in arrival order, by that session's actor.
type Event struct {
	Type          EventType
	ParticipantID uuid.UUID
	Sample        models.PositionSample
	Claim         *FinishClaim
	ReceivedAt    time.Time
}

// Broadcaster fans ranking and state updates out to session members. The
// engine only depends on this interface; the WebSocket gateway implements it.
type Broadcaster interface {
	BroadcastRanking(sessionID uuid.UUID, ranking []RankedParticipant)
	BroadcastTransition(sessionID uuid.UUID, status models.SessionStatus, graceTimeoutSeconds int)
	BroadcastGhost(sessionID uuid.UUID, comparison GhostComparison)
}

// ResultSink receives the durable read model once a session terminates
type ResultSink interface {
	SaveResult(ctx context.Context, result *models.RaceResult) error
	ArchiveSession(ctx context.Context, session *models.Session) error
}

// BaselineFetcher resolves a prerecorded ghost baseline by run id
type BaselineFetcher interface {
	FetchBaseline(ctx context.Context, runID uuid.UUID) (*models.GhostBaseline, error)
}
