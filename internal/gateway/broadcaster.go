package gateway

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/runbattle/internal/metrics"
	"github.com/yourusername/runbattle/internal/models"
	"github.com/yourusername/runbattle/internal/race"
)

// Broadcaster translates engine updates into wire envelopes and hands
// them to the hub. It implements race.Broadcaster.
type Broadcaster struct {
	hub    *Hub
	clock  clockwork.Clock
	logger *logrus.Logger
}

func NewBroadcaster(hub *Hub, clock clockwork.Clock, logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		clock:  clock,
		logger: logger,
	}
}

func (b *Broadcaster) BroadcastRanking(sessionID uuid.UUID, ranking []race.RankedParticipant) {
	entries := make([]RankingEntryPayload, 0, len(ranking))
	for _, rp := range ranking {
		entries = append(entries, RankingEntryPayload{
			UserID:          rp.UserID.String(),
			Rank:            rp.Rank,
			Status:          string(rp.Status),
			DistanceM:       rp.DistanceM,
			ElapsedMs:       rp.ElapsedMs,
			ProgressPercent: rp.ProgressPercent,
			GapToLeaderM:    rp.GapToLeaderM,
			PaceDisplay:     rp.PaceDisplay,
		})
	}
	b.send(sessionID, OutboundRankingUpdate, RankingUpdatePayload{Entries: entries})
}

func (b *Broadcaster) BroadcastTransition(sessionID uuid.UUID, status models.SessionStatus, graceTimeoutSeconds int) {
	b.send(sessionID, OutboundStateTransition, StateTransitionPayload{
		Status:       string(status),
		GraceSeconds: graceTimeoutSeconds,
	})
}

func (b *Broadcaster) BroadcastGhost(sessionID uuid.UUID, comparison race.GhostComparison) {
	b.send(sessionID, OutboundGhostUpdate, GhostUpdatePayload{
		Status:  string(comparison.Status),
		DeltaMs: comparison.DeltaMs,
		DeltaM:  comparison.DeltaM,
	})
}

func (b *Broadcaster) send(sessionID uuid.UUID, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"event_type": eventType,
			"error":      err.Error(),
		}).Error("Failed to marshal broadcast payload")
		return
	}

	envelope := NewOutboundEvent(sessionID, eventType, data, b.clock.Now())
	raw, err := json.Marshal(envelope)
	if err != nil {
		b.logger.WithError(err).Error("Failed to marshal broadcast envelope")
		return
	}

	b.hub.Broadcast(sessionID, raw)
	metrics.RecordBroadcast(eventType)
}
