package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/runbattle/internal/models"
)

// ResultRepository defines the interface for race result data access
type ResultRepository interface {
	Insert(ctx context.Context, result *models.RaceResult) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.RaceResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.RaceResult, error)
}

// SessionArchiveRepository defines the interface for archived session data access
type SessionArchiveRepository interface {
	Archive(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	ListEndedBetween(ctx context.Context, start, end time.Time) ([]*models.Session, error)
}
