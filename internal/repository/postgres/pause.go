package postgres

import (
	"context"
	"database/sql"
	"errors"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// PauseRepository is a PostgreSQL implementation of repository.PauseRepository.
type PauseRepository struct {
	q Querier
}

const pauseColumns = `id, trip_id, reason_code, notes, started_at, ended_at, is_active`

// Create persists a new pause.
func (r *PauseRepository) Create(ctx context.Context, pause *domain.Pause) error {
	query := `
		INSERT INTO trip_pauses (` + pauseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		pause.ID,
		pause.TripID,
		pause.ReasonCode,
		pause.Notes,
		pause.StartedAt,
		nullTime(pause.EndedAt),
		pause.IsActive,
	)

	return err
}

// ListByTrip retrieves all pauses of a trip, oldest first.
func (r *PauseRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.Pause, error) {
	query := `SELECT ` + pauseColumns + ` FROM trip_pauses WHERE trip_id = $1 ORDER BY started_at`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pauses []*domain.Pause
	for rows.Next() {
		pause, err := scanPause(rows)
		if err != nil {
			return nil, err
		}
		pauses = append(pauses, pause)
	}

	return pauses, rows.Err()
}

// GetActiveByTrip retrieves the active pause of a trip.
// Returns nil if no pause is active.
func (r *PauseRepository) GetActiveByTrip(ctx context.Context, tripID string) (*domain.Pause, error) {
	query := `SELECT ` + pauseColumns + ` FROM trip_pauses WHERE trip_id = $1 AND is_active = TRUE LIMIT 1`

	pause, err := scanPause(r.q.QueryRowContext(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return pause, nil
}

// Update updates an existing pause.
func (r *PauseRepository) Update(ctx context.Context, pause *domain.Pause) error {
	query := `
		UPDATE trip_pauses
		SET reason_code = $1, notes = $2, started_at = $3, ended_at = $4, is_active = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		pause.ReasonCode,
		pause.Notes,
		pause.StartedAt,
		nullTime(pause.EndedAt),
		pause.IsActive,
		pause.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanPause(row rowScanner) (*domain.Pause, error) {
	var pause domain.Pause
	var endedAt sql.NullTime

	err := row.Scan(
		&pause.ID,
		&pause.TripID,
		&pause.ReasonCode,
		&pause.Notes,
		&pause.StartedAt,
		&endedAt,
		&pause.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		pause.EndedAt = endedAt.Time
	}

	return &pause, nil
}

// Ensure PauseRepository implements repository.PauseRepository.
var _ repository.PauseRepository = (*PauseRepository)(nil)
