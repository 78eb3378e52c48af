package repository

import "context"

// Repos bundles the repositories that participate in a single transaction.
type Repos struct {
	Trips       TripRepository
	Pauses      PauseRepository
	Cards       CardRepository
	Movements   MovementRepository
	Recharges   RechargeRepository
	Assignments AssignmentRepository
}

// Store is the transactional boundary for the services. A state transition
// and its ledger side effects run inside one InTransaction call, so either
// both commit or both roll back.
type Store interface {
	// Repos returns repositories bound to the underlying connection,
	// outside any transaction.
	Repos() Repos

	// InTransaction runs fn with transaction-scoped repositories and
	// commits if fn returns nil, rolling back otherwise.
	InTransaction(ctx context.Context, fn func(Repos) error) error
}
