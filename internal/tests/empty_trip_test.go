package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"driverpro/internal/domain"
	"driverpro/internal/service"
)

// ──────────────────────────────────────────────
// EMPTY TRIPS (CLIENT SEARCH)
// ──────────────────────────────────────────────

type emptyTripFixture struct {
	*tripFixture
	sweepService *service.SweepService
}

func newEmptyTripFixture(t *testing.T, balance int) *emptyTripFixture {
	t.Helper()

	f := &emptyTripFixture{tripFixture: newTripFixture(t, balance)}
	notifications := service.NewNotificationService(f.sink)
	f.sweepService = service.NewSweepService(f.store, notifications, 0)
	return f
}

// startSearch creates a draft trip and puts it into the empty state with the
// given wait limit, backdating the search start by elapsed.
func (f *emptyTripFixture) startSearch(t *testing.T, waitLimit int, elapsed time.Duration) *domain.Trip {
	t.Helper()
	ctx := context.Background()

	trip := f.createTrip(t, service.CreateTripRequest{})
	started, err := f.tripService.StartEmpty(ctx, trip.ID, waitLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed > 0 {
		started.EmptyStartedAt = started.EmptyStartedAt.Add(-elapsed)
		if err := f.store.Trips.Update(ctx, started); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return started
}

func TestEmptyTrip_StartDefaultsWaitLimit(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	trip := f.startSearch(t, 0, 0)

	if trip.State != domain.TripStateEmpty {
		t.Errorf("expected empty state, got %s", trip.State)
	}
	if !trip.IsEmptyTrip {
		t.Error("expected IsEmptyTrip to be set")
	}
	if trip.EmptyWaitLimitMinutes != domain.DefaultEmptyWaitLimitMinutes {
		t.Errorf("expected default wait limit %d, got %d", domain.DefaultEmptyWaitLimitMinutes, trip.EmptyWaitLimitMinutes)
	}
}

func TestEmptyTrip_StartDoesNotConsumeCredit(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 3)
	ctx := context.Background()

	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	if _, err := f.tripService.StartEmpty(ctx, trip.ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 3 {
		t.Errorf("search must not consume credit, balance %v", balance)
	}
}

func TestEmptyTrip_ConvertRequiresClientInfo(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	trip := f.startSearch(t, 60, 0)

	_, err := f.tripService.ConvertEmptyToActive(context.Background(), service.ConvertEmptyRequest{
		TripID:     trip.ID,
		ClientName: "Ana",
		Origin:     "Airport",
		// Destination missing.
	})
	if !errors.Is(err, service.ErrMissingClientInfo) {
		t.Errorf("expected ErrMissingClientInfo, got %v", err)
	}
}

func TestEmptyTrip_ConvertActivatesTrip(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	trip := f.startSearch(t, 60, 0)

	converted, err := f.tripService.ConvertEmptyToActive(context.Background(), service.ConvertEmptyRequest{
		TripID:      trip.ID,
		ClientName:  "Ana",
		Origin:      "Airport",
		Destination: "Downtown",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if converted.State != domain.TripStateActive {
		t.Errorf("expected active state, got %s", converted.State)
	}
	if converted.PassengerReference != "Ana" {
		t.Errorf("expected client Ana, got %s", converted.PassengerReference)
	}
	if converted.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}
}

func TestEmptyTrip_ConvertRechargeTripConsumesCreditAndCompletes(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 2)
	ctx := context.Background()

	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	if _, err := f.tripService.StartEmpty(ctx, trip.ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	converted, err := f.tripService.ConvertEmptyToActive(ctx, service.ConvertEmptyRequest{
		TripID:      trip.ID,
		ClientName:  "Ana",
		Origin:      "Airport",
		Destination: "Downtown",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !converted.CreditConsumed {
		t.Error("expected CreditConsumed to be set")
	}
	if converted.ConsumedCredits != 1 {
		t.Errorf("expected 1 consumed credit, got %v", converted.ConsumedCredits)
	}
	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 1 {
		t.Errorf("expected balance 1 after conversion, got %v", balance)
	}

	// The converted trip must be completable like any started recharge trip.
	done, err := f.tripService.Done(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.State != domain.TripStateDone {
		t.Errorf("expected done state, got %s", done.State)
	}
}

func TestEmptyTrip_ConvertRechargeTripWithoutBalanceFails(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	ctx := context.Background()

	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	if _, err := f.tripService.StartEmpty(ctx, trip.ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.tripService.ConvertEmptyToActive(ctx, service.ConvertEmptyRequest{
		TripID:      trip.ID,
		ClientName:  "Ana",
		Origin:      "Airport",
		Destination: "Downtown",
	})
	if !errors.Is(err, service.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	// The search keeps running; the driver may recharge and retry.
	stored, _ := f.store.Trips.GetByID(ctx, trip.ID)
	if stored.State != domain.TripStateEmpty {
		t.Errorf("expected empty state, got %s", stored.State)
	}
}

func TestEmptyTrip_SweepAutoCancelsExpired(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	trip := f.startSearch(t, 60, 61*time.Minute)
	ctx := context.Background()

	result, err := f.sweepService.SweepEmptyTrips(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cancelled != 1 {
		t.Errorf("expected 1 cancellation, got %d", result.Cancelled)
	}

	stored, _ := f.store.Trips.GetByID(ctx, trip.ID)
	if stored.State != domain.TripStateCancelled {
		t.Errorf("expected cancelled state, got %s", stored.State)
	}
	if f.sink.CountType(service.EventEmptyTripExpired) != 1 {
		t.Errorf("expected one expiry event, got %d", f.sink.CountType(service.EventEmptyTripExpired))
	}
}

func TestEmptyTrip_SweepSendsTieredAlerts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		elapsed   time.Duration
		eventType service.EventType
	}{
		{"thirty minutes left", 31 * time.Minute, service.EventEmptyTrip30},
		{"fifteen minutes left", 46 * time.Minute, service.EventEmptyTrip15},
		{"five minutes left", 56 * time.Minute, service.EventEmptyTrip5},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newEmptyTripFixture(t, 0)
			f.startSearch(t, 60, tc.elapsed)

			result, err := f.sweepService.SweepEmptyTrips(context.Background(), time.Now())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.AlertsSent != 1 {
				t.Fatalf("expected 1 alert, got %d", result.AlertsSent)
			}
			if f.sink.CountType(tc.eventType) != 1 {
				t.Errorf("expected one %s event, got %d", tc.eventType, f.sink.CountType(tc.eventType))
			}
		})
	}
}

func TestEmptyTrip_AlertFiresOncePerTier(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	// 46 minutes elapsed on a 60-minute search: 14 minutes remaining.
	f.startSearch(t, 60, 46*time.Minute)
	ctx := context.Background()

	result, err := f.sweepService.SweepEmptyTrips(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlertsSent != 1 {
		t.Fatalf("expected 1 alert, got %d", result.AlertsSent)
	}

	// One minute later (13 remaining) the 15-tier is spent and the 5-tier is
	// not due, so the sweep sends nothing.
	result, err = f.sweepService.SweepEmptyTrips(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlertsSent != 0 {
		t.Errorf("expected 0 alerts, got %d", result.AlertsSent)
	}

	if f.sink.CountType(service.EventEmptyTrip15) != 1 {
		t.Errorf("expected one 15-minute alert, got %d", f.sink.CountType(service.EventEmptyTrip15))
	}
	if f.sink.CountType(service.EventEmptyTrip30) != 0 {
		t.Errorf("the skipped 30-minute tier must not fire, got %d", f.sink.CountType(service.EventEmptyTrip30))
	}
}

func TestEmptyTrip_ExpiredSearchGetsNoAlert(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	f.startSearch(t, 60, 2*time.Hour)

	result, err := f.sweepService.SweepEmptyTrips(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cancelled != 1 {
		t.Errorf("expected 1 cancellation, got %d", result.Cancelled)
	}
	if result.AlertsSent != 0 {
		t.Errorf("expired search must be cancelled, not alerted, got %d alerts", result.AlertsSent)
	}
}

func TestEmptyTrip_CancelSearch(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	trip := f.startSearch(t, 60, 0)

	cancelled, err := f.tripService.CancelEmpty(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.State != domain.TripStateCancelled {
		t.Errorf("expected cancelled state, got %s", cancelled.State)
	}
}

func TestEmptyTrip_TimeRemainingFloorsAtZero(t *testing.T) {
	t.Parallel()

	now := time.Now()
	trip := &domain.Trip{
		State:                 domain.TripStateEmpty,
		EmptyStartedAt:        now.Add(-90 * time.Minute),
		EmptyWaitLimitMinutes: 60,
	}

	if got := trip.EmptyTimeRemaining(now); got != 0 {
		t.Errorf("expected 0 minutes remaining, got %d", got)
	}
}

// ──────────────────────────────────────────────
// SCHEDULED REMINDERS
// ──────────────────────────────────────────────

func TestScheduled_ReminderSentOnce(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)
	ctx := context.Background()

	trip := f.createTrip(t, service.CreateTripRequest{
		IsScheduled: true,
		ScheduledAt: time.Now().Add(10 * time.Minute),
	})

	sent, err := f.sweepService.SweepScheduledReminders(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 {
		t.Errorf("expected 1 reminder, got %d", sent)
	}

	// A second pass must not remind again.
	sent, err = f.sweepService.SweepScheduledReminders(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected 0 reminders on second pass, got %d", sent)
	}

	stored, _ := f.store.Trips.GetByID(ctx, trip.ID)
	if !stored.ScheduledReminderSent {
		t.Error("expected ScheduledReminderSent to be set")
	}
	if f.sink.CountType(service.EventScheduledTripReminder) != 1 {
		t.Errorf("expected one reminder event, got %d", f.sink.CountType(service.EventScheduledTripReminder))
	}
}

func TestScheduled_ReminderNotSentTooEarly(t *testing.T) {
	t.Parallel()

	f := newEmptyTripFixture(t, 0)

	f.createTrip(t, service.CreateTripRequest{
		IsScheduled: true,
		ScheduledAt: time.Now().Add(2 * time.Hour),
	})

	sent, err := f.sweepService.SweepScheduledReminders(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected 0 reminders for a distant appointment, got %d", sent)
	}
}
