package repository

import (
	"context"

	"driverpro/internal/domain"
)

// CardRepository defines the persistence operations for cards.
type CardRepository interface {
	// Create persists a new card.
	Create(ctx context.Context, card *domain.Card) error

	// GetByID retrieves a card by ID.
	GetByID(ctx context.Context, id string) (*domain.Card, error)

	// GetByIDForUpdate retrieves a card by ID, locking the row for the
	// duration of the surrounding transaction. Ledger mutations lock the
	// card first so balance check and movement insert are serialized.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Card, error)

	// GetAll retrieves all cards.
	GetAll(ctx context.Context) ([]*domain.Card, error)

	// Update updates an existing card.
	Update(ctx context.Context, card *domain.Card) error
}

// MovementRepository defines the persistence operations for credit movements.
type MovementRepository interface {
	// Create appends a new movement to the ledger.
	Create(ctx context.Context, movement *domain.CreditMovement) error

	// ListByCard retrieves all movements for a card, newest first.
	ListByCard(ctx context.Context, cardID string) ([]*domain.CreditMovement, error)

	// Balance computes sum(in) - sum(out) over the card's movements.
	Balance(ctx context.Context, cardID string) (float64, error)

	// DeleteByRecharge removes the in-movement created by a recharge.
	// Only used to reverse a cancelled recharge.
	DeleteByRecharge(ctx context.Context, rechargeID string) error
}

// RechargeRepository defines the persistence operations for recharges.
type RechargeRepository interface {
	// Create persists a new recharge.
	Create(ctx context.Context, recharge *domain.Recharge) error

	// GetByID retrieves a recharge by ID.
	GetByID(ctx context.Context, id string) (*domain.Recharge, error)

	// GetByIDForUpdate retrieves a recharge by ID, locking the row for the
	// duration of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Recharge, error)

	// CountByCard returns the number of recharges recorded for a card.
	CountByCard(ctx context.Context, cardID string) (int, error)

	// Update updates an existing recharge.
	Update(ctx context.Context, recharge *domain.Recharge) error
}

// AssignmentRepository defines the persistence operations for card-vehicle
// assignment history.
type AssignmentRepository interface {
	// Create persists a new assignment.
	Create(ctx context.Context, assignment *domain.CardAssignment) error

	// GetActiveByCard retrieves the active assignment of a card.
	// Returns nil if none is active.
	GetActiveByCard(ctx context.Context, cardID string) (*domain.CardAssignment, error)

	// Update updates an existing assignment.
	Update(ctx context.Context, assignment *domain.CardAssignment) error
}
