package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// FleetDirectory resolves driver/vehicle relationships from the read-only
// fleet tables. The core never writes these; they belong to the fleet system.
type FleetDirectory struct {
	q Querier
}

// NewFleetDirectory creates a fleet directory backed by PostgreSQL.
func NewFleetDirectory(db *sql.DB) *FleetDirectory {
	return &FleetDirectory{q: db}
}

// ResolveDriverPartner returns the partner (contact) id linked to a driver
// user. Empty if the user has no partner.
func (d *FleetDirectory) ResolveDriverPartner(ctx context.Context, userID string) (string, error) {
	var partnerID string
	err := d.q.QueryRowContext(ctx,
		`SELECT partner_id FROM driver_partners WHERE user_id = $1`, userID,
	).Scan(&partnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return partnerID, nil
}

// FindAssignedVehicle returns the active vehicle assigned to a partner.
// Empty if the partner has no vehicle.
func (d *FleetDirectory) FindAssignedVehicle(ctx context.Context, partnerID string) (string, error) {
	var vehicleID string
	err := d.q.QueryRowContext(ctx,
		`SELECT id FROM fleet_vehicles WHERE driver_partner_id = $1 AND active = TRUE LIMIT 1`, partnerID,
	).Scan(&vehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return vehicleID, nil
}

// VehicleDriver returns the partner id the vehicle is assigned to.
// Empty if the vehicle is unassigned or unknown.
func (d *FleetDirectory) VehicleDriver(ctx context.Context, vehicleID string) (string, error) {
	var partnerID sql.NullString
	err := d.q.QueryRowContext(ctx,
		`SELECT driver_partner_id FROM fleet_vehicles WHERE id = $1`, vehicleID,
	).Scan(&partnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return partnerID.String, nil
}

// CardDirectory resolves the active card for a vehicle.
type CardDirectory struct {
	q Querier
}

// NewCardDirectory creates a card directory backed by PostgreSQL.
func NewCardDirectory(db *sql.DB) *CardDirectory {
	return &CardDirectory{q: db}
}

// FindActiveCardForVehicle returns the id of the active card assigned to a
// vehicle. Empty if the vehicle has no active card.
func (d *CardDirectory) FindActiveCardForVehicle(ctx context.Context, vehicleID string) (string, error) {
	var cardID string
	err := d.q.QueryRowContext(ctx,
		`SELECT id FROM cards WHERE vehicle_id = $1 AND active = TRUE LIMIT 1`, vehicleID,
	).Scan(&cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return cardID, nil
}
