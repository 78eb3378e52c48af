package postgres

import (
	"context"
	"database/sql"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// MovementRepository is a PostgreSQL implementation of
// repository.MovementRepository.
type MovementRepository struct {
	q Querier
}

const movementColumns = `id, card_id, movement_type, amount, reference, recharge_id, trip_id, occurred_at`

// Create appends a new movement to the ledger.
func (r *MovementRepository) Create(ctx context.Context, movement *domain.CreditMovement) error {
	query := `
		INSERT INTO card_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		movement.ID,
		movement.CardID,
		movement.Type,
		movement.Amount,
		movement.Reference,
		nullString(movement.RechargeID),
		nullString(movement.TripID),
		movement.OccurredAt,
	)

	return err
}

// ListByCard retrieves all movements for a card, newest first.
func (r *MovementRepository) ListByCard(ctx context.Context, cardID string) ([]*domain.CreditMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM card_movements WHERE card_id = $1 ORDER BY occurred_at DESC`

	rows, err := r.q.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*domain.CreditMovement
	for rows.Next() {
		var m domain.CreditMovement
		var rechargeID, tripID sql.NullString

		if err := rows.Scan(
			&m.ID,
			&m.CardID,
			&m.Type,
			&m.Amount,
			&m.Reference,
			&rechargeID,
			&tripID,
			&m.OccurredAt,
		); err != nil {
			return nil, err
		}

		m.RechargeID = rechargeID.String
		m.TripID = tripID.String
		movements = append(movements, &m)
	}

	return movements, rows.Err()
}

// Balance computes sum(in) - sum(out) over the card's movements. Callers that
// mutate the ledger lock the card row first, which keeps this read consistent
// with concurrent inserts.
func (r *MovementRepository) Balance(ctx context.Context, cardID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN movement_type = 'in' THEN amount ELSE -amount END), 0)
		FROM card_movements WHERE card_id = $1
	`

	var balance float64
	if err := r.q.QueryRowContext(ctx, query, cardID).Scan(&balance); err != nil {
		return 0, err
	}

	return balance, nil
}

// DeleteByRecharge removes the in-movement created by a recharge.
func (r *MovementRepository) DeleteByRecharge(ctx context.Context, rechargeID string) error {
	query := `DELETE FROM card_movements WHERE recharge_id = $1`

	_, err := r.q.ExecContext(ctx, query, rechargeID)
	return err
}

// Ensure MovementRepository implements repository.MovementRepository.
var _ repository.MovementRepository = (*MovementRepository)(nil)
