package postgres

import (
	"context"
	"database/sql"

	"driverpro/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories bound to the pooled connection.
func (s *Store) Repos() repository.Repos {
	return reposFor(s.db)
}

// InTransaction runs fn with transaction-scoped repositories.
func (s *Store) InTransaction(ctx context.Context, fn func(repository.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(reposFor(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func reposFor(q Querier) repository.Repos {
	return repository.Repos{
		Trips:       &TripRepository{q: q},
		Pauses:      &PauseRepository{q: q},
		Cards:       &CardRepository{q: q},
		Movements:   &MovementRepository{q: q},
		Recharges:   &RechargeRepository{q: q},
		Assignments: &AssignmentRepository{q: q},
	}
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
