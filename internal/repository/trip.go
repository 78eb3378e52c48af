package repository

import (
	"context"
	"time"

	"driverpro/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetByIDForUpdate retrieves a trip by ID, locking the row for the
	// duration of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// ListByDriver retrieves trips for a driver, newest first.
	ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Trip, error)

	// ListByState retrieves trips in the given state.
	ListByState(ctx context.Context, state domain.TripState) ([]*domain.Trip, error)

	// ListScheduledDue retrieves draft scheduled trips due before the given
	// deadline that have not been reminded yet.
	ListScheduledDue(ctx context.Context, deadline time.Time) ([]*domain.Trip, error)

	// Update updates an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error
}

// PauseRepository defines the persistence operations for trip pauses.
type PauseRepository interface {
	// Create persists a new pause.
	Create(ctx context.Context, pause *domain.Pause) error

	// ListByTrip retrieves all pauses of a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.Pause, error)

	// GetActiveByTrip retrieves the active pause of a trip.
	// Returns nil if no pause is active.
	GetActiveByTrip(ctx context.Context, tripID string) (*domain.Pause, error)

	// Update updates an existing pause.
	Update(ctx context.Context, pause *domain.Pause) error
}
