package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

const tripCreditCost = 1.0

// TripService drives the trip state machine: creation, start/pause/resume,
// completion, cancellation with refund, and the empty-trip (client search)
// variant. Credit debits and refunds happen in the same transaction as the
// state transition.
type TripService struct {
	store         repository.Store
	fleet         FleetDirectory
	cards         CardDirectory
	locker        TripLocker
	notifications *NotificationService

	// defaultEmptyWait applies when a search is started without a limit.
	defaultEmptyWait time.Duration

	// defaultExchangeRate applies when a trip is created without a rate.
	defaultExchangeRate float64
}

// NewTripService creates a new TripService.
func NewTripService(store repository.Store, fleet FleetDirectory, cards CardDirectory, locker TripLocker, notifications *NotificationService, defaultEmptyWait time.Duration, defaultExchangeRate float64) *TripService {
	if defaultEmptyWait <= 0 {
		defaultEmptyWait = domain.DefaultEmptyWaitLimitMinutes * time.Minute
	}
	if defaultExchangeRate <= 0 {
		defaultExchangeRate = domain.DefaultExchangeRate
	}
	return &TripService{
		store:               store,
		fleet:               fleet,
		cards:               cards,
		locker:              locker,
		notifications:       notifications,
		defaultEmptyWait:    defaultEmptyWait,
		defaultExchangeRate: defaultExchangeRate,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	Name               string
	DriverID           string
	Origin             string
	Destination        string
	PassengerCount     int
	PassengerReference string
	Comments           string

	PaymentMethod    string
	PaymentReference string
	PaymentInForeign bool
	AmountLocal      float64
	AmountForeign    float64
	ExchangeRate     float64

	IsRechargeTrip bool

	IsScheduled bool
	ScheduledAt time.Time
}

// CreateTrip creates a trip in draft state. The driver's vehicle and the
// vehicle's card are resolved through the fleet directory at creation time.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*domain.Trip, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.ExchangeRate == 0 {
		req.ExchangeRate = s.defaultExchangeRate
	}
	if err := validateMoney(req.AmountLocal, req.AmountForeign, req.ExchangeRate, req.PaymentInForeign); err != nil {
		return nil, err
	}
	if req.IsScheduled && !req.ScheduledAt.After(time.Now()) {
		return nil, ErrScheduledDatetimeInPast
	}

	vehicleID, cardID, err := s.resolveDriverAssignment(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}

	trip := &domain.Trip{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		DriverID:           req.DriverID,
		VehicleID:          vehicleID,
		CardID:             cardID,
		State:              domain.TripStateDraft,
		Origin:             req.Origin,
		Destination:        req.Destination,
		PassengerCount:     req.PassengerCount,
		PassengerReference: req.PassengerReference,
		Comments:           req.Comments,
		PaymentMethod:      req.PaymentMethod,
		PaymentReference:   req.PaymentReference,
		PaymentInForeign:   req.PaymentInForeign,
		AmountLocal:        req.AmountLocal,
		AmountForeign:      req.AmountForeign,
		ExchangeRate:       req.ExchangeRate,
		IsRechargeTrip:     req.IsRechargeTrip,
		IsScheduled:        req.IsScheduled,
		ScheduledAt:        req.ScheduledAt,
		CreatedAt:          time.Now(),
	}
	if trip.Name == "" {
		trip.Name = fmt.Sprintf("Trip %s", trip.ID[:8])
	}

	err = s.store.InTransaction(ctx, func(r repository.Repos) error {
		return r.Trips.Create(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripCreated, trip, "Trip created",
		fmt.Sprintf("Trip %s was created", trip.Name))

	return trip, nil
}

// resolveDriverAssignment looks up the driver's active vehicle and that
// vehicle's active card. Both may be empty; the start transition enforces
// their presence where required.
func (s *TripService) resolveDriverAssignment(ctx context.Context, driverID string) (vehicleID, cardID string, err error) {
	partnerID, err := s.fleet.ResolveDriverPartner(ctx, driverID)
	if err != nil {
		return "", "", err
	}
	if partnerID == "" {
		return "", "", nil
	}

	vehicleID, err = s.fleet.FindAssignedVehicle(ctx, partnerID)
	if err != nil || vehicleID == "" {
		return "", "", err
	}

	cardID, err = s.cards.FindActiveCardForVehicle(ctx, vehicleID)
	if err != nil {
		return "", "", err
	}
	return vehicleID, cardID, nil
}

// TripSnapshot is a trip together with its pauses and derived timing fields.
type TripSnapshot struct {
	Trip               *domain.Trip
	Pauses             []*domain.Pause
	PausedHours        float64
	EffectiveHours     float64
	EmptyMinutesLeft   int
	CurrentPauseReason string
}

// GetTrip retrieves a trip with its pause history and derived durations.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*TripSnapshot, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	repos := s.store.Repos()

	trip, err := repos.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	pauses, err := repos.Pauses.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return buildSnapshot(trip, pauses, time.Now()), nil
}

func buildSnapshot(trip *domain.Trip, pauses []*domain.Pause, now time.Time) *TripSnapshot {
	snap := &TripSnapshot{
		Trip:             trip,
		Pauses:           pauses,
		PausedHours:      domain.PauseDuration(pauses, now),
		EmptyMinutesLeft: trip.EmptyTimeRemaining(now),
	}
	snap.EffectiveHours = trip.Duration() - snap.PausedHours
	if snap.EffectiveHours < 0 {
		snap.EffectiveHours = 0
	}
	if p := domain.CurrentPause(pauses); p != nil {
		snap.CurrentPauseReason = p.ReasonCode
	}
	return snap
}

// ListByDriver retrieves a driver's trips, newest first.
func (s *TripService) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.store.Repos().Trips.ListByDriver(ctx, driverID, limit)
}

// Start transitions a draft trip to active. Recharge trips consume one credit
// from the trip's card in the same transaction; the CreditConsumed flag makes
// the debit happen at most once per trip.
func (s *TripService) Start(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	if s.locker != nil {
		acquired, err := s.locker.AcquireTripLock(ctx, tripID)
		if err == nil && acquired {
			defer s.locker.ReleaseTripLock(ctx, tripID)
		}
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateDraft {
			return ErrInvalidState
		}

		if err := s.checkDriverVehicle(ctx, trip); err != nil {
			return err
		}
		if trip.CardID == "" {
			return ErrNoCardAssigned
		}

		if trip.IsRechargeTrip {
			if trip.CreditConsumed {
				return ErrAlreadyConsumed
			}
			reference := fmt.Sprintf("Trip start: %s", trip.Name)
			if err := consumeCredit(ctx, r, trip.CardID, tripCreditCost, reference, trip.ID); err != nil {
				return err
			}
			trip.CreditConsumed = true
			trip.ConsumedCredits = tripCreditCost
		}

		trip.State = domain.TripStateActive
		trip.StartedAt = time.Now()
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripStarted, trip, "Trip started",
		fmt.Sprintf("Trip %s is underway", trip.Name))

	return trip, nil
}

// checkDriverVehicle verifies the trip's vehicle is still assigned to the
// trip's driver in the fleet directory.
func (s *TripService) checkDriverVehicle(ctx context.Context, trip *domain.Trip) error {
	if trip.VehicleID == "" {
		return ErrNoVehicleAssigned
	}

	partnerID, err := s.fleet.ResolveDriverPartner(ctx, trip.DriverID)
	if err != nil {
		return err
	}

	assignedTo, err := s.fleet.VehicleDriver(ctx, trip.VehicleID)
	if err != nil {
		return err
	}

	if partnerID == "" || assignedTo != partnerID {
		return ErrDriverVehicleMismatch
	}
	return nil
}

// Pause suspends an active trip. At most one pause is open at any time.
func (s *TripService) Pause(ctx context.Context, tripID, reasonCode, notes string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateActive {
			return ErrInvalidState
		}

		active, err := r.Pauses.GetActiveByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrAlreadyPaused
		}

		pause := &domain.Pause{
			ID:         uuid.New().String(),
			TripID:     tripID,
			ReasonCode: reasonCode,
			Notes:      notes,
			StartedAt:  time.Now(),
			IsActive:   true,
		}
		if err := r.Pauses.Create(ctx, pause); err != nil {
			return err
		}

		trip.State = domain.TripStatePaused
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripPaused, trip, "Trip paused",
		fmt.Sprintf("Trip %s was paused", trip.Name))

	return trip, nil
}

// Resume closes the open pause and returns the trip to active.
func (s *TripService) Resume(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStatePaused {
			return ErrInvalidState
		}

		if err := closeActivePause(ctx, r, tripID); err != nil {
			return err
		}

		trip.State = domain.TripStateActive
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripResumed, trip, "Trip resumed",
		fmt.Sprintf("Trip %s resumed", trip.Name))

	return trip, nil
}

// Done completes an active or paused trip. A still-open pause is closed so
// the pause log never outlives the trip.
func (s *TripService) Done(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateActive && trip.State != domain.TripStatePaused {
			return ErrInvalidState
		}

		if trip.IsRechargeTrip && !trip.CreditConsumed {
			return ErrCreditNotConsumed
		}

		if err := closeActivePause(ctx, r, tripID); err != nil {
			return err
		}

		trip.State = domain.TripStateDone
		trip.EndedAt = time.Now()
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripDone, trip, "Trip completed",
		fmt.Sprintf("Trip %s was completed", trip.Name))

	return trip, nil
}

// Cancel cancels a trip from any non-terminal state. When refund is set and
// the trip consumed a credit, the refund goes through the same guarded path
// as RefundCredit inside the cancellation transaction.
func (s *TripService) Cancel(ctx context.Context, tripID string, refund bool) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	var refunded bool
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State == domain.TripStateDone {
			return ErrCannotCancelCompleted
		}
		if trip.State == domain.TripStateCancelled {
			return ErrInvalidState
		}

		if err := closeActivePause(ctx, r, tripID); err != nil {
			return err
		}

		trip.State = domain.TripStateCancelled
		trip.EndedAt = time.Now()

		if refund && trip.CreditConsumed && !trip.CreditRefunded {
			if err := refundTripCredit(ctx, r, trip); err != nil {
				return err
			}
			refunded = true
		}

		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripCancelled, trip, "Trip cancelled",
		fmt.Sprintf("Trip %s was cancelled", trip.Name))
	if refunded {
		s.notifications.NotifyTrip(ctx, EventCreditRefunded, trip, "Credit refunded",
			fmt.Sprintf("Credit for trip %s was returned to the card", trip.Name))
	}

	return trip, nil
}

// RefundCredit returns the consumed credit of a cancelled trip. The
// CreditRefunded flag makes the refund happen at most once.
func (s *TripService) RefundCredit(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateCancelled {
			return ErrInvalidState
		}
		if !trip.CreditConsumed {
			return ErrCreditNotConsumed
		}
		if trip.CreditRefunded {
			return ErrAlreadyRefunded
		}

		if err := refundTripCredit(ctx, r, trip); err != nil {
			return err
		}

		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventCreditRefunded, trip, "Credit refunded",
		fmt.Sprintf("Credit for trip %s was returned to the card", trip.Name))

	return trip, nil
}

// refundTripCredit appends the in-movement for the trip's consumed credit and
// marks the trip refunded. Callers hold the trip row lock and have already
// checked the guards.
func refundTripCredit(ctx context.Context, r repository.Repos, trip *domain.Trip) error {
	if trip.CardID == "" {
		return ErrNoCardAssigned
	}

	amount := trip.ConsumedCredits
	if amount <= 0 {
		amount = tripCreditCost
	}

	reference := fmt.Sprintf("Refund: %s", trip.Name)
	if err := refundCredit(ctx, r, trip.CardID, amount, reference, trip.ID); err != nil {
		return err
	}

	trip.CreditRefunded = true
	return nil
}

// closeActivePause ends the trip's open pause, if any.
func closeActivePause(ctx context.Context, r repository.Repos, tripID string) error {
	pause, err := r.Pauses.GetActiveByTrip(ctx, tripID)
	if err != nil || pause == nil {
		return err
	}

	pause.IsActive = false
	pause.EndedAt = time.Now()
	return r.Pauses.Update(ctx, pause)
}

// StartEmpty transitions a draft trip into the empty (client search) state.
// The wait limit defaults to the configured value when the request leaves it
// unset.
func (s *TripService) StartEmpty(ctx context.Context, tripID string, waitLimitMinutes int) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateDraft {
			return ErrInvalidState
		}

		if err := s.checkDriverVehicle(ctx, trip); err != nil {
			return err
		}

		limit := waitLimitMinutes
		if limit <= 0 {
			limit = int(s.defaultEmptyWait.Minutes())
		}

		trip.State = domain.TripStateEmpty
		trip.IsEmptyTrip = true
		trip.EmptyStartedAt = time.Now()
		trip.EmptyWaitLimitMinutes = limit
		trip.Alert30Sent = false
		trip.Alert15Sent = false
		trip.Alert5Sent = false
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventEmptyTripStarted, trip, "Client search started",
		fmt.Sprintf("Search %s expires in %d minutes", trip.Name, trip.EmptyWaitLimitMinutes))

	return trip, nil
}

// ConvertEmptyRequest carries the client details a search needs before it can
// become a real trip.
type ConvertEmptyRequest struct {
	TripID      string
	ClientName  string
	Origin      string
	Destination string
}

// ConvertEmptyToActive turns a searching trip into an active trip once a
// client is found. The search itself never debits, so a recharge trip
// consumes its credit here, in the same transaction as the activation.
func (s *TripService) ConvertEmptyToActive(ctx context.Context, req ConvertEmptyRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.ClientName == "" || req.Origin == "" || req.Destination == "" {
		return nil, ErrMissingClientInfo
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, req.TripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateEmpty {
			return ErrInvalidState
		}

		if err := s.checkDriverVehicle(ctx, trip); err != nil {
			return err
		}

		if trip.IsRechargeTrip && !trip.CreditConsumed {
			if trip.CardID == "" {
				return ErrNoCardAssigned
			}
			reference := fmt.Sprintf("Trip start: %s", trip.Name)
			if err := consumeCredit(ctx, r, trip.CardID, tripCreditCost, reference, trip.ID); err != nil {
				return err
			}
			trip.CreditConsumed = true
			trip.ConsumedCredits = tripCreditCost
		}

		trip.PassengerReference = req.ClientName
		trip.Origin = req.Origin
		trip.Destination = req.Destination
		trip.State = domain.TripStateActive
		trip.EmptyStartedAt = time.Time{}
		trip.StartedAt = time.Now()
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventEmptyTripConverted, trip, "Client found",
		fmt.Sprintf("Search %s converted to an active trip", trip.Name))

	return trip, nil
}

// CancelEmpty cancels a searching trip before its wait limit runs out.
func (s *TripService) CancelEmpty(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var trip *domain.Trip
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateEmpty {
			return ErrInvalidState
		}

		trip.State = domain.TripStateCancelled
		trip.EndedAt = time.Now()
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyTrip(ctx, EventTripCancelled, trip, "Search cancelled",
		fmt.Sprintf("Search %s was cancelled", trip.Name))

	return trip, nil
}

// validateMoney checks the payment amounts at creation time. The exchange
// rate must be positive regardless of the payment currency.
func validateMoney(amountLocal, amountForeign, exchangeRate float64, paymentInForeign bool) error {
	if amountLocal < 0 || amountForeign < 0 {
		return ErrInvalidAmount
	}
	if exchangeRate <= 0 {
		return ErrInvalidExchangeRate
	}
	if paymentInForeign && amountForeign <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
