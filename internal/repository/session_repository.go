package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/runbattle/internal/database"
	"github.com/yourusername/runbattle/internal/models"
)

// PostgresSessionArchiveRepository implements SessionArchiveRepository for PostgreSQL
type PostgresSessionArchiveRepository struct {
	db *database.DB
}

// NewPostgresSessionArchiveRepository creates a new session archive repository
func NewPostgresSessionArchiveRepository(db *database.DB) SessionArchiveRepository {
	return &PostgresSessionArchiveRepository{db: db}
}

// Archive stores the terminal snapshot of a session. Archiving the same
// session twice overwrites with the latest snapshot.
func (r *PostgresSessionArchiveRepository) Archive(ctx context.Context, session *models.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_archive (
			id, mode, status, target_distance_m,
			created_at, started_at, ended_at, grace_started_at, ghost_run_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			grace_started_at = EXCLUDED.grace_started_at
	`,
		session.ID, session.Mode, session.Status, session.TargetDistanceM,
		session.CreatedAt, session.StartedAt, session.EndedAt, session.GraceStartedAt, session.GhostRunID,
	)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}

	return nil
}

// GetByID retrieves an archived session
func (r *PostgresSessionArchiveRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	err := r.db.QueryRow(ctx, `
		SELECT id, mode, status, target_distance_m,
		       created_at, started_at, ended_at, grace_started_at, ghost_run_id
		FROM session_archive
		WHERE id = $1
	`, sessionID).Scan(
		&session.ID, &session.Mode, &session.Status, &session.TargetDistanceM,
		&session.CreatedAt, &session.StartedAt, &session.EndedAt, &session.GraceStartedAt, &session.GhostRunID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get archived session: %w", err)
	}

	return session, nil
}

// ListEndedBetween retrieves sessions that terminated inside a time window
func (r *PostgresSessionArchiveRepository) ListEndedBetween(ctx context.Context, start, end time.Time) ([]*models.Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, mode, status, target_distance_m,
		       created_at, started_at, ended_at, grace_started_at, ghost_run_id
		FROM session_archive
		WHERE ended_at >= $1 AND ended_at < $2
		ORDER BY ended_at
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		if err := rows.Scan(
			&session.ID, &session.Mode, &session.Status, &session.TargetDistanceM,
			&session.CreatedAt, &session.StartedAt, &session.EndedAt, &session.GraceStartedAt, &session.GhostRunID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archived session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived sessions: %w", err)
	}

	return sessions, nil
}
