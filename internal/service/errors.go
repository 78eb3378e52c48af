package service

import "errors"

var (
	// ErrInvalidState is returned when an action is not legal in the trip's
	// or recharge's current state.
	ErrInvalidState = errors.New("action not allowed in current state")

	// ErrInsufficientBalance is returned when a card does not have enough
	// credits for a consumption.
	ErrInsufficientBalance = errors.New("insufficient card balance")

	// ErrAlreadyConsumed is returned when a trip already consumed its credit.
	ErrAlreadyConsumed = errors.New("credit already consumed for this trip")

	// ErrAlreadyRefunded is returned when a trip's credit was already refunded.
	ErrAlreadyRefunded = errors.New("credit already refunded for this trip")

	// ErrAlreadyPaused is returned when a trip already has an active pause.
	ErrAlreadyPaused = errors.New("trip is already paused")

	// ErrCannotCancelCompleted is returned when cancelling a completed trip.
	ErrCannotCancelCompleted = errors.New("completed trips cannot be cancelled")

	// ErrDriverVehicleMismatch is returned when the trip's vehicle is not
	// assigned to the trip's driver in the fleet directory.
	ErrDriverVehicleMismatch = errors.New("vehicle not assigned to driver")

	// ErrNoVehicleAssigned is returned when a transition requires a vehicle
	// and none is set.
	ErrNoVehicleAssigned = errors.New("no vehicle assigned to trip")

	// ErrNoCardAssigned is returned when a transition requires a card and
	// none is set.
	ErrNoCardAssigned = errors.New("no card assigned to trip")

	// ErrMissingClientInfo is returned when converting an empty trip without
	// client name, origin and destination.
	ErrMissingClientInfo = errors.New("client name, origin and destination are required")

	// ErrCreditNotConsumed is returned when a recharge trip reaches an
	// active state without a consumed credit.
	ErrCreditNotConsumed = errors.New("recharge trip requires a consumed credit")

	// ErrInvalidAmount is returned when a monetary amount is negative or a
	// required foreign amount is missing.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidExchangeRate is returned when the exchange rate is not positive.
	ErrInvalidExchangeRate = errors.New("exchange rate must be positive")

	// ErrScheduledDatetimeInPast is returned when a scheduled trip has a
	// non-future appointment.
	ErrScheduledDatetimeInPast = errors.New("scheduled datetime must be in the future")

	// ErrRechargeLocked is returned when editing a confirmed or cancelled
	// recharge outside the allowed fields.
	ErrRechargeLocked = errors.New("confirmed recharges are read-only except state, notes and invoice fields")

	// ErrInvalidTripID is returned when the trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidCardID is returned when the card ID is empty.
	ErrInvalidCardID = errors.New("invalid card id")

	// ErrInvalidRechargeID is returned when the recharge ID is empty.
	ErrInvalidRechargeID = errors.New("invalid recharge id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRechargeAmount is returned when a recharge amount is not positive.
	ErrInvalidRechargeAmount = errors.New("recharge amount must be positive")
)
