// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for race integrity events:
// claim reconciliation, forced outcomes and terminal transitions.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogFinishClaimMismatch logs a finish claim whose odometer disagrees with
// the server-computed distance.
func (al *AuditLogger) LogFinishClaimMismatch(sessionID, participantID uuid.UUID, claimedDistanceM, serverDistanceM float64) {
	al.WithFields(logrus.Fields{
		"session_id":       sessionID,
		"participant_id":   participantID,
		"claimed_distance": claimedDistanceM,
		"server_distance":  serverDistanceM,
		"drift_m":          claimedDistanceM - serverDistanceM,
	}).Warn("Finish claim disagrees with server-computed distance")
}

// LogForcedQuit logs runners marked did-not-finish when a grace window
// expires.
func (al *AuditLogger) LogForcedQuit(sessionID uuid.UUID, forcedCount int) {
	al.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"forced_quit": forcedCount,
	}).Info("Grace window expired, remaining runners marked did-not-finish")
}

// LogSessionOutcome logs a session reaching a terminal state.
func (al *AuditLogger) LogSessionOutcome(sessionID uuid.UUID, status string, participants int, endedAt time.Time) {
	al.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"status":       status,
		"participants": participants,
		"ended_at":     endedAt.UTC(),
	}).Info("Session reached terminal state")
}
