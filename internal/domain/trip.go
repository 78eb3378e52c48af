package domain

import "time"

// TripState represents the current state of a trip.
type TripState string

const (
	TripStateDraft     TripState = "draft"
	TripStateEmpty     TripState = "empty"
	TripStateActive    TripState = "active"
	TripStatePaused    TripState = "paused"
	TripStateDone      TripState = "done"
	TripStateCancelled TripState = "cancelled"
)

// DefaultEmptyWaitLimitMinutes is the wait limit applied to a client search
// when none is given.
const DefaultEmptyWaitLimitMinutes = 60

// DefaultExchangeRate is the foreign-to-local conversion rate applied when a
// trip is created without one. The rate is always positive, even on trips
// paid in the local currency.
const DefaultExchangeRate = 20.0

// IsTerminal reports whether no further transitions are allowed from s.
func (s TripState) IsTerminal() bool {
	return s == TripStateDone || s == TripStateCancelled
}

// Trip represents a driver trip. The empty-trip (client search) variant lives
// in the same state machine under TripStateEmpty.
type Trip struct {
	ID        string
	Name      string
	DriverID  string // driver user id
	VehicleID string // fleet vehicle id, empty if unassigned
	CardID    string // prepaid card id, empty if unassigned
	State     TripState

	Origin             string
	Destination        string
	PassengerCount     int
	PassengerReference string
	Comments           string

	// Payment information. AmountLocal is in the local currency;
	// AmountForeign applies only when PaymentInForeign is set.
	PaymentMethod    string
	PaymentReference string
	PaymentInForeign bool
	AmountLocal      float64
	AmountForeign    float64
	ExchangeRate     float64

	// Credit bookkeeping. CreditConsumed and CreditRefunded are the
	// idempotency guards against double debit/refund.
	IsRechargeTrip  bool
	CreditConsumed  bool
	CreditRefunded  bool
	ConsumedCredits float64

	// Empty-trip (client search) fields.
	IsEmptyTrip           bool
	EmptyStartedAt        time.Time
	EmptyWaitLimitMinutes int
	Alert30Sent           bool
	Alert15Sent           bool
	Alert5Sent            bool

	// Scheduled-trip fields.
	IsScheduled           bool
	ScheduledAt           time.Time
	ScheduledReminderSent bool

	StartedAt time.Time
	EndedAt   time.Time
	CreatedAt time.Time
}

// Duration returns the total trip duration in hours. Zero until the trip has
// both start and end timestamps.
func (t *Trip) Duration() float64 {
	if t.StartedAt.IsZero() || t.EndedAt.IsZero() {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt).Hours()
}

// TotalAmountLocal returns the trip total converted to the local currency.
func (t *Trip) TotalAmountLocal() float64 {
	return TotalAmountLocal(t.AmountLocal, t.AmountForeign, t.ExchangeRate, t.PaymentInForeign)
}

// EmptyTimeRemaining returns the minutes left before an empty trip expires,
// floored at zero. Zero for trips that are not searching.
func (t *Trip) EmptyTimeRemaining(now time.Time) int {
	if t.State != TripStateEmpty || t.EmptyStartedAt.IsZero() {
		return 0
	}
	remaining := float64(t.EmptyWaitLimitMinutes) - now.Sub(t.EmptyStartedAt).Minutes()
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// Pause represents a pause interval within a trip. At most one pause per trip
// is active at any time.
type Pause struct {
	ID         string
	TripID     string
	ReasonCode string
	Notes      string
	StartedAt  time.Time
	EndedAt    time.Time
	IsActive   bool
}

// Duration returns the pause duration in hours. Open pauses are measured
// against now.
func (p *Pause) Duration(now time.Time) float64 {
	if p.StartedAt.IsZero() {
		return 0
	}
	end := p.EndedAt
	if end.IsZero() {
		end = now
	}
	return end.Sub(p.StartedAt).Hours()
}

// PauseDuration returns the summed duration of the given pauses in hours.
func PauseDuration(pauses []*Pause, now time.Time) float64 {
	var total float64
	for _, p := range pauses {
		total += p.Duration(now)
	}
	return total
}

// CurrentPause returns the active pause, or nil if none is active.
func CurrentPause(pauses []*Pause) *Pause {
	for _, p := range pauses {
		if p.IsActive {
			return p
		}
	}
	return nil
}
