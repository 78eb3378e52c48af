package postgres

import (
	"context"
	"database/sql"
	"errors"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// AssignmentRepository is a PostgreSQL implementation of
// repository.AssignmentRepository.
type AssignmentRepository struct {
	q Querier
}

const assignmentColumns = `id, card_id, vehicle_id, started_at, ended_at, active`

// Create persists a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *domain.CardAssignment) error {
	query := `
		INSERT INTO card_assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		assignment.ID,
		assignment.CardID,
		assignment.VehicleID,
		assignment.StartedAt,
		nullTime(assignment.EndedAt),
		assignment.Active,
	)

	return err
}

// GetActiveByCard retrieves the active assignment of a card.
// Returns nil if none is active.
func (r *AssignmentRepository) GetActiveByCard(ctx context.Context, cardID string) (*domain.CardAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM card_assignments WHERE card_id = $1 AND active = TRUE LIMIT 1`

	var assignment domain.CardAssignment
	var endedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, cardID).Scan(
		&assignment.ID,
		&assignment.CardID,
		&assignment.VehicleID,
		&assignment.StartedAt,
		&endedAt,
		&assignment.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if endedAt.Valid {
		assignment.EndedAt = endedAt.Time
	}

	return &assignment, nil
}

// Update updates an existing assignment.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *domain.CardAssignment) error {
	query := `
		UPDATE card_assignments
		SET vehicle_id = $1, started_at = $2, ended_at = $3, active = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		assignment.VehicleID,
		assignment.StartedAt,
		nullTime(assignment.EndedAt),
		assignment.Active,
		assignment.ID,
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

// Ensure AssignmentRepository implements repository.AssignmentRepository.
var _ repository.AssignmentRepository = (*AssignmentRepository)(nil)
