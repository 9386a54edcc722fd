package repository

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/runbattle/internal/metrics"
	"github.com/yourusername/runbattle/internal/models"
)

// Sink routes terminal session data into the repositories. It implements
// race.ResultSink.
type Sink struct {
	repos  *Repositories
	logger *logrus.Logger
}

// NewSink creates a result sink backed by the given repositories
func NewSink(repos *Repositories, logger *logrus.Logger) *Sink {
	return &Sink{repos: repos, logger: logger}
}

// SaveResult persists the final read model of a completed session
func (s *Sink) SaveResult(ctx context.Context, result *models.RaceResult) error {
	timer := prometheus.NewTimer(metrics.ResultPersistLatency)
	defer timer.ObserveDuration()

	if err := s.repos.Result.Insert(ctx, result); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": result.SessionID,
		"mode":       result.Mode,
		"entries":    len(result.Entries),
	}).Info("Race result persisted")

	return nil
}

// ArchiveSession stores the terminal session snapshot
func (s *Sink) ArchiveSession(ctx context.Context, session *models.Session) error {
	return s.repos.SessionArchive.Archive(ctx, session)
}
