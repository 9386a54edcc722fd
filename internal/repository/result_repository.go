package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/runbattle/internal/database"
	"github.com/yourusername/runbattle/internal/models"
)

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new race result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// Insert persists a race result and its per-participant entries in one
// transaction. Re-inserting the same session is a no-op so a retried
// persistence call cannot duplicate rows.
func (r *PostgresResultRepository) Insert(ctx context.Context, result *models.RaceResult) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO race_results (session_id, mode, target_distance_m, completed_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id) DO NOTHING
		`, result.SessionID, result.Mode, result.TargetDistanceM, result.CompletedAt)
		if err != nil {
			return fmt.Errorf("failed to insert race result: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		for _, entry := range result.Entries {
			_, err := tx.Exec(ctx, `
				INSERT INTO result_entries (
					session_id, user_id, final_rank, status,
					total_distance_m, total_time_ms, avg_pace_min_km,
					delta_to_winner_ms, delta_to_winner_m
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`,
				result.SessionID, entry.UserID, entry.FinalRank, entry.Status,
				entry.TotalDistanceM.String(), entry.TotalTimeMs, entry.AvgPaceMinKm.String(),
				entry.DeltaToWinnerMs, entry.DeltaToWinnerM.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert result entry: %w", err)
			}
		}
		return nil
	})
}

// GetBySessionID retrieves a result with its entries ordered by rank
func (r *PostgresResultRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.RaceResult, error) {
	result := &models.RaceResult{}
	err := r.db.QueryRow(ctx, `
		SELECT session_id, mode, target_distance_m, completed_at
		FROM race_results
		WHERE session_id = $1
	`, sessionID).Scan(&result.SessionID, &result.Mode, &result.TargetDistanceM, &result.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get race result: %w", err)
	}

	entries, err := r.loadEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result.Entries = entries

	return result, nil
}

// ListByUser retrieves the most recent results a user took part in
func (r *PostgresResultRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.RaceResult, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rr.session_id, rr.mode, rr.target_distance_m, rr.completed_at
		FROM race_results rr
		JOIN result_entries re ON re.session_id = rr.session_id
		WHERE re.user_id = $1
		ORDER BY rr.completed_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list race results: %w", err)
	}
	defer rows.Close()

	var results []*models.RaceResult
	for rows.Next() {
		result := &models.RaceResult{}
		if err := rows.Scan(&result.SessionID, &result.Mode, &result.TargetDistanceM, &result.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan race result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate race results: %w", err)
	}

	for _, result := range results {
		entries, err := r.loadEntries(ctx, result.SessionID)
		if err != nil {
			return nil, err
		}
		result.Entries = entries
	}

	return results, nil
}

func (r *PostgresResultRepository) loadEntries(ctx context.Context, sessionID uuid.UUID) ([]models.ResultEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, final_rank, status,
		       total_distance_m, total_time_ms, avg_pace_min_km,
		       delta_to_winner_ms, delta_to_winner_m
		FROM result_entries
		WHERE session_id = $1
		ORDER BY CASE WHEN final_rank = 0 THEN 1 ELSE 0 END, final_rank
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query result entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ResultEntry
	for rows.Next() {
		var entry models.ResultEntry
		var totalDistance, avgPace, deltaM string
		if err := rows.Scan(
			&entry.UserID, &entry.FinalRank, &entry.Status,
			&totalDistance, &entry.TotalTimeMs, &avgPace,
			&entry.DeltaToWinnerMs, &deltaM,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result entry: %w", err)
		}

		if entry.TotalDistanceM, err = decimal.NewFromString(totalDistance); err != nil {
			return nil, fmt.Errorf("failed to parse total distance: %w", err)
		}
		if entry.AvgPaceMinKm, err = decimal.NewFromString(avgPace); err != nil {
			return nil, fmt.Errorf("failed to parse average pace: %w", err)
		}
		if entry.DeltaToWinnerM, err = decimal.NewFromString(deltaM); err != nil {
			return nil, fmt.Errorf("failed to parse winner delta: %w", err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate result entries: %w", err)
	}

	return entries, nil
}
