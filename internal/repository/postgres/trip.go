package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

const tripColumns = `
	id, name, driver_id, vehicle_id, card_id, state,
	origin, destination, passenger_count, passenger_reference, comments,
	payment_method, payment_reference, payment_in_foreign,
	amount_local, amount_foreign, exchange_rate,
	is_recharge_trip, credit_consumed, credit_refunded, consumed_credits,
	is_empty_trip, empty_started_at, empty_wait_limit_minutes,
	alert_30_sent, alert_15_sent, alert_5_sent,
	is_scheduled, scheduled_at, scheduled_reminder_sent,
	started_at, ended_at, created_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31, $32, $33)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.Name,
		trip.DriverID,
		nullString(trip.VehicleID),
		nullString(trip.CardID),
		trip.State,
		trip.Origin,
		trip.Destination,
		trip.PassengerCount,
		trip.PassengerReference,
		trip.Comments,
		trip.PaymentMethod,
		trip.PaymentReference,
		trip.PaymentInForeign,
		trip.AmountLocal,
		trip.AmountForeign,
		trip.ExchangeRate,
		trip.IsRechargeTrip,
		trip.CreditConsumed,
		trip.CreditRefunded,
		trip.ConsumedCredits,
		trip.IsEmptyTrip,
		nullTime(trip.EmptyStartedAt),
		trip.EmptyWaitLimitMinutes,
		trip.Alert30Sent,
		trip.Alert15Sent,
		trip.Alert5Sent,
		trip.IsScheduled,
		nullTime(trip.ScheduledAt),
		trip.ScheduledReminderSent,
		nullTime(trip.StartedAt),
		nullTime(trip.EndedAt),
		trip.CreatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a trip by ID with a row lock, serializing
// concurrent transitions on the same trip.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// ListByDriver retrieves trips for a driver, newest first.
func (r *TripRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Trip, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListByState retrieves trips in the given state.
func (r *TripRepository) ListByState(ctx context.Context, state domain.TripState) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE state = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListScheduledDue retrieves draft scheduled trips due before deadline that
// have not been reminded yet.
func (r *TripRepository) ListScheduledDue(ctx context.Context, deadline time.Time) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE is_scheduled = TRUE
		  AND scheduled_reminder_sent = FALSE
		  AND state = $1
		  AND scheduled_at <= $2
		ORDER BY scheduled_at
	`

	rows, err := r.q.QueryContext(ctx, query, domain.TripStateDraft, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips SET
			name = $1, driver_id = $2, vehicle_id = $3, card_id = $4, state = $5,
			origin = $6, destination = $7, passenger_count = $8,
			passenger_reference = $9, comments = $10,
			payment_method = $11, payment_reference = $12, payment_in_foreign = $13,
			amount_local = $14, amount_foreign = $15, exchange_rate = $16,
			is_recharge_trip = $17, credit_consumed = $18, credit_refunded = $19,
			consumed_credits = $20,
			is_empty_trip = $21, empty_started_at = $22, empty_wait_limit_minutes = $23,
			alert_30_sent = $24, alert_15_sent = $25, alert_5_sent = $26,
			is_scheduled = $27, scheduled_at = $28, scheduled_reminder_sent = $29,
			started_at = $30, ended_at = $31
		WHERE id = $32
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.Name,
		trip.DriverID,
		nullString(trip.VehicleID),
		nullString(trip.CardID),
		trip.State,
		trip.Origin,
		trip.Destination,
		trip.PassengerCount,
		trip.PassengerReference,
		trip.Comments,
		trip.PaymentMethod,
		trip.PaymentReference,
		trip.PaymentInForeign,
		trip.AmountLocal,
		trip.AmountForeign,
		trip.ExchangeRate,
		trip.IsRechargeTrip,
		trip.CreditConsumed,
		trip.CreditRefunded,
		trip.ConsumedCredits,
		trip.IsEmptyTrip,
		nullTime(trip.EmptyStartedAt),
		trip.EmptyWaitLimitMinutes,
		trip.Alert30Sent,
		trip.Alert15Sent,
		trip.Alert5Sent,
		trip.IsScheduled,
		nullTime(trip.ScheduledAt),
		trip.ScheduledReminderSent,
		nullTime(trip.StartedAt),
		nullTime(trip.EndedAt),
		trip.ID,
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TripRepository) scanOne(row rowScanner) (*domain.Trip, error) {
	trip, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (r *TripRepository) scanAll(rows *sql.Rows) ([]*domain.Trip, error) {
	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var vehicleID, cardID sql.NullString
	var emptyStartedAt, scheduledAt, startedAt, endedAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.Name,
		&trip.DriverID,
		&vehicleID,
		&cardID,
		&trip.State,
		&trip.Origin,
		&trip.Destination,
		&trip.PassengerCount,
		&trip.PassengerReference,
		&trip.Comments,
		&trip.PaymentMethod,
		&trip.PaymentReference,
		&trip.PaymentInForeign,
		&trip.AmountLocal,
		&trip.AmountForeign,
		&trip.ExchangeRate,
		&trip.IsRechargeTrip,
		&trip.CreditConsumed,
		&trip.CreditRefunded,
		&trip.ConsumedCredits,
		&trip.IsEmptyTrip,
		&emptyStartedAt,
		&trip.EmptyWaitLimitMinutes,
		&trip.Alert30Sent,
		&trip.Alert15Sent,
		&trip.Alert5Sent,
		&trip.IsScheduled,
		&scheduledAt,
		&trip.ScheduledReminderSent,
		&startedAt,
		&endedAt,
		&trip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.VehicleID = vehicleID.String
	trip.CardID = cardID.String
	if emptyStartedAt.Valid {
		trip.EmptyStartedAt = emptyStartedAt.Time
	}
	if scheduledAt.Valid {
		trip.ScheduledAt = scheduledAt.Time
	}
	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		trip.EndedAt = endedAt.Time
	}

	return &trip, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
