package postgres

import (
	"context"
	"database/sql"
	"errors"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// RechargeRepository is a PostgreSQL implementation of
// repository.RechargeRepository.
type RechargeRepository struct {
	q Querier
}

const rechargeColumns = `id, card_id, reference, amount, state, recharge_date, invoice_number, notes, created_at`

// Create persists a new recharge.
func (r *RechargeRepository) Create(ctx context.Context, recharge *domain.Recharge) error {
	query := `
		INSERT INTO recharges (` + rechargeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		recharge.ID,
		recharge.CardID,
		recharge.Reference,
		recharge.Amount,
		recharge.State,
		recharge.RechargeDate,
		recharge.InvoiceNumber,
		recharge.Notes,
		recharge.CreatedAt,
	)

	return err
}

// GetByID retrieves a recharge by ID.
func (r *RechargeRepository) GetByID(ctx context.Context, id string) (*domain.Recharge, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharges WHERE id = $1`
	return scanRechargeRow(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a recharge by ID with a row lock.
func (r *RechargeRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Recharge, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharges WHERE id = $1 FOR UPDATE`
	return scanRechargeRow(r.q.QueryRowContext(ctx, query, id))
}

// CountByCard returns the number of recharges recorded for a card.
func (r *RechargeRepository) CountByCard(ctx context.Context, cardID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM recharges WHERE card_id = $1`, cardID).Scan(&count)
	return count, err
}

// Update updates an existing recharge.
func (r *RechargeRepository) Update(ctx context.Context, recharge *domain.Recharge) error {
	query := `
		UPDATE recharges
		SET reference = $1, amount = $2, state = $3, recharge_date = $4, invoice_number = $5, notes = $6
		WHERE id = $7
	`

	result, err := r.q.ExecContext(ctx, query,
		recharge.Reference,
		recharge.Amount,
		recharge.State,
		recharge.RechargeDate,
		recharge.InvoiceNumber,
		recharge.Notes,
		recharge.ID,
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

func scanRechargeRow(row rowScanner) (*domain.Recharge, error) {
	var recharge domain.Recharge

	err := row.Scan(
		&recharge.ID,
		&recharge.CardID,
		&recharge.Reference,
		&recharge.Amount,
		&recharge.State,
		&recharge.RechargeDate,
		&recharge.InvoiceNumber,
		&recharge.Notes,
		&recharge.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &recharge, nil
}

// Ensure RechargeRepository implements repository.RechargeRepository.
var _ repository.RechargeRepository = (*RechargeRepository)(nil)
