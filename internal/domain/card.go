package domain

import "time"

// Card is a prepaid credit card tied to a fleet vehicle. Its balance is never
// stored: it is always derived from the card's movements.
type Card struct {
	ID        string
	Number    string // unique card number per company
	Active    bool
	VehicleID string // fleet vehicle id, empty if unassigned
	Notes     string
	CreatedAt time.Time
}

// MovementType distinguishes credits added to and consumed from a card.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// CreditMovement is an immutable ledger entry against a card. Movements are
// append-only; the only permitted deletion is the reversal of an in-movement
// when its recharge is cancelled.
type CreditMovement struct {
	ID         string
	CardID     string
	Type       MovementType
	Amount     float64
	Reference  string
	RechargeID string // originating recharge, if any
	TripID     string // related trip, if any
	OccurredAt time.Time
}

// RechargeState represents the lifecycle of a card top-up.
type RechargeState string

const (
	RechargeStateDraft     RechargeState = "draft"
	RechargeStateConfirmed RechargeState = "confirmed"
	RechargeStateCancelled RechargeState = "cancelled"
)

// Recharge is a credit top-up on a card. Exactly one in-movement exists iff
// the recharge is confirmed.
type Recharge struct {
	ID            string
	CardID        string
	Reference     string // REC-<card>-NNN
	Amount        int    // integer credits
	State         RechargeState
	RechargeDate  time.Time
	InvoiceNumber string
	Notes         string
	CreatedAt     time.Time
}

// CardAssignment records the history of a card's attachment to vehicles. At
// most one assignment per card is active at a time.
type CardAssignment struct {
	ID        string
	CardID    string
	VehicleID string
	StartedAt time.Time
	EndedAt   time.Time
	Active    bool
}

// CreditWarning returns a human-readable summary of the balance, mirroring
// what drivers see before starting a recharge trip.
func CreditWarning(balance float64) string {
	switch {
	case balance <= 0:
		return "no credits available"
	case balance <= 5:
		return "low credits"
	default:
		return "credits available"
	}
}
