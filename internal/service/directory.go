package service

import "context"

// FleetDirectory is the read-only view of the external fleet system. Lookups
// are synchronous and carry no caching guarantee.
type FleetDirectory interface {
	// ResolveDriverPartner returns the partner id linked to a driver user,
	// or empty if the user has no partner.
	ResolveDriverPartner(ctx context.Context, userID string) (string, error)

	// FindAssignedVehicle returns the active vehicle assigned to a partner,
	// or empty if none.
	FindAssignedVehicle(ctx context.Context, partnerID string) (string, error)

	// VehicleDriver returns the partner id a vehicle is assigned to, or
	// empty if unassigned.
	VehicleDriver(ctx context.Context, vehicleID string) (string, error)
}

// CardDirectory resolves the active card for a vehicle.
type CardDirectory interface {
	// FindActiveCardForVehicle returns the id of the vehicle's active card,
	// or empty if none.
	FindActiveCardForVehicle(ctx context.Context, vehicleID string) (string, error)
}

// CardCacheInvalidator drops cached vehicle->card lookups after an
// assignment change.
type CardCacheInvalidator interface {
	InvalidateVehicleCard(ctx context.Context, vehicleID string) error
}

// TripLocker serializes concurrent start attempts on the same trip. The row
// lock inside the transaction is the primary defense; this keeps concurrent
// requests from even reaching the database.
type TripLocker interface {
	AcquireTripLock(ctx context.Context, tripID string) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}
