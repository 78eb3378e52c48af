package postgres

import (
	"context"
	"database/sql"
	"errors"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// CardRepository is a PostgreSQL implementation of repository.CardRepository.
type CardRepository struct {
	q Querier
}

const cardColumns = `id, number, active, vehicle_id, notes, created_at`

// Create persists a new card.
func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		card.ID,
		card.Number,
		card.Active,
		nullString(card.VehicleID),
		card.Notes,
		card.CreatedAt,
	)

	return err
}

// GetByID retrieves a card by ID.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	return scanCardRow(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a card by ID with a row lock.
func (r *CardRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`
	return scanCardRow(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves all cards.
func (r *CardRepository) GetAll(ctx context.Context) ([]*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards ORDER BY number`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// Update updates an existing card.
func (r *CardRepository) Update(ctx context.Context, card *domain.Card) error {
	query := `
		UPDATE cards
		SET number = $1, active = $2, vehicle_id = $3, notes = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		card.Number,
		card.Active,
		nullString(card.VehicleID),
		card.Notes,
		card.ID,
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

func scanCardRow(row rowScanner) (*domain.Card, error) {
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return card, nil
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var vehicleID sql.NullString

	err := row.Scan(
		&card.ID,
		&card.Number,
		&card.Active,
		&vehicleID,
		&card.Notes,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.VehicleID = vehicleID.String
	return &card, nil
}

// Ensure CardRepository implements repository.CardRepository.
var _ repository.CardRepository = (*CardRepository)(nil)
