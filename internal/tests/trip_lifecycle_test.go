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
// TRIP LIFECYCLE
// ──────────────────────────────────────────────

type tripFixture struct {
	store       *MockStore
	fleet       *MockFleetDirectory
	cards       *MockCardDirectory
	sink        *MockEventSink
	locker      *MockTripLocker
	tripService *service.TripService
	cardService *service.CardService
	card        *domain.Card
}

// newTripFixture wires a driver with a vehicle and an active card holding the
// given balance.
func newTripFixture(t *testing.T, balance int) *tripFixture {
	t.Helper()

	f := &tripFixture{
		store:  NewMockStore(),
		fleet:  NewMockFleetDirectory(),
		cards:  NewMockCardDirectory(),
		sink:   NewMockEventSink(),
		locker: NewMockTripLocker(),
	}
	f.cardService = service.NewCardService(f.store, f.cards)
	notifications := service.NewNotificationService(f.sink)
	f.tripService = service.NewTripService(f.store, f.fleet, f.cards, f.locker, notifications, 0, 0)

	f.fleet.Assign("driver-1", "partner-1", "vehicle-1")

	card, err := f.cardService.CreateCard(context.Background(), service.CreateCardRequest{
		Number:    "CARD-001",
		VehicleID: "vehicle-1",
	})
	if err != nil {
		t.Fatalf("unexpected error creating card: %v", err)
	}
	f.card = card
	f.cards.Cards["vehicle-1"] = card.ID

	if balance > 0 {
		confirmRecharge(t, f.cardService, card.ID, balance)
	}
	return f
}

func (f *tripFixture) createTrip(t *testing.T, req service.CreateTripRequest) *domain.Trip {
	t.Helper()

	if req.DriverID == "" {
		req.DriverID = "driver-1"
	}
	trip, err := f.tripService.CreateTrip(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error creating trip: %v", err)
	}
	return trip
}

func TestTrip_CreateResolvesVehicleAndCard(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{Name: "morning run"})

	if trip.State != domain.TripStateDraft {
		t.Errorf("expected draft state, got %s", trip.State)
	}
	if trip.VehicleID != "vehicle-1" {
		t.Errorf("expected vehicle-1, got %s", trip.VehicleID)
	}
	if trip.CardID != f.card.ID {
		t.Errorf("expected card %s, got %s", f.card.ID, trip.CardID)
	}
}

func TestTrip_StartConsumesOneCredit(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 3)
	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	ctx := context.Background()

	started, err := f.tripService.Start(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if started.State != domain.TripStateActive {
		t.Errorf("expected active state, got %s", started.State)
	}
	if !started.CreditConsumed {
		t.Error("expected CreditConsumed to be set")
	}
	if started.ConsumedCredits != 1 {
		t.Errorf("expected 1 consumed credit, got %v", started.ConsumedCredits)
	}

	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 2 {
		t.Errorf("expected balance 2, got %v", balance)
	}
}

func TestTrip_StartWithoutBalanceFails(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})

	if _, err := f.tripService.Start(context.Background(), trip.ID); !errors.Is(err, service.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	// The trip must stay in draft.
	stored, _ := f.store.Trips.GetByID(context.Background(), trip.ID)
	if stored.State != domain.TripStateDraft {
		t.Errorf("expected draft state, got %s", stored.State)
	}
}

func TestTrip_NonRechargeTripSkipsCreditGuard(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	started, err := f.tripService.Start(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.CreditConsumed {
		t.Error("non-recharge trip must not consume credit")
	}

	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 0 {
		t.Errorf("expected balance 0, got %v", balance)
	}
}

func TestTrip_SecondStartIsRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 3)
	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tripService.Start(ctx, trip.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	// The balance must only drop once.
	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 2 {
		t.Errorf("expected balance 2, got %v", balance)
	}
}

func TestTrip_BalanceOfOneAllowsExactlyOneRechargeTrip(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 1)
	first := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	second := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tripService.Start(ctx, second.ID); !errors.Is(err, service.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTrip_StartRequiresVehicleMatch(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 3)
	trip := f.createTrip(t, service.CreateTripRequest{})

	// The vehicle changes hands between creation and start.
	f.fleet.Holders["vehicle-1"] = "partner-2"

	if _, err := f.tripService.Start(context.Background(), trip.ID); !errors.Is(err, service.ErrDriverVehicleMismatch) {
		t.Errorf("expected ErrDriverVehicleMismatch, got %v", err)
	}
}

func TestTrip_PauseResumeRoundTrip(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paused, err := f.tripService.Pause(ctx, trip.ID, "toll_booth", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paused.State != domain.TripStatePaused {
		t.Errorf("expected paused state, got %s", paused.State)
	}

	// A second pause on a paused trip is not legal.
	if _, err := f.tripService.Pause(ctx, trip.ID, "lunch", ""); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	resumed, err := f.tripService.Resume(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resumed.State != domain.TripStateActive {
		t.Errorf("expected active state, got %s", resumed.State)
	}

	pauses, _ := f.store.Pauses.ListByTrip(ctx, trip.ID)
	if len(pauses) != 1 {
		t.Fatalf("expected 1 pause, got %d", len(pauses))
	}
	if pauses[0].IsActive {
		t.Error("pause must be closed after resume")
	}
	if pauses[0].EndedAt.IsZero() {
		t.Error("closed pause must have an end timestamp")
	}
}

func TestTrip_DoneFromPausedClosesPause(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tripService.Pause(ctx, trip.ID, "break", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, err := f.tripService.Done(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.State != domain.TripStateDone {
		t.Errorf("expected done state, got %s", done.State)
	}
	if done.EndedAt.IsZero() {
		t.Error("expected EndedAt to be set")
	}

	active, _ := f.store.Pauses.GetActiveByTrip(ctx, trip.ID)
	if active != nil {
		t.Error("no pause may stay open after completion")
	}
}

func TestTrip_CancelDoneIsRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tripService.Done(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.tripService.Cancel(ctx, trip.ID, false); !errors.Is(err, service.ErrCannotCancelCompleted) {
		t.Errorf("expected ErrCannotCancelCompleted, got %v", err)
	}
}

func TestTrip_CancelWithRefundReturnsCredit(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 3)
	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := f.tripService.Cancel(ctx, trip.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cancelled.CreditRefunded {
		t.Error("expected CreditRefunded to be set")
	}

	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 3 {
		t.Errorf("expected balance restored to 3, got %v", balance)
	}
}

func TestTrip_RefundIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 3)
	trip := f.createTrip(t, service.CreateTripRequest{IsRechargeTrip: true})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tripService.Cancel(ctx, trip.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.tripService.RefundCredit(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.tripService.RefundCredit(ctx, trip.ID); !errors.Is(err, service.ErrAlreadyRefunded) {
		t.Errorf("expected ErrAlreadyRefunded, got %v", err)
	}

	balance, _ := f.cardService.Balance(ctx, f.card.ID)
	if balance != 3 {
		t.Errorf("expected balance 3 after single refund, got %v", balance)
	}
}

func TestTrip_RefundRequiresConsumedCredit(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	if _, err := f.tripService.Cancel(ctx, trip.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.tripService.RefundCredit(ctx, trip.ID); !errors.Is(err, service.ErrCreditNotConsumed) {
		t.Errorf("expected ErrCreditNotConsumed, got %v", err)
	}
}

func TestTrip_CreateDefaultsExchangeRate(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	ctx := context.Background()

	// A local-currency trip created without a rate still gets the default.
	trip := f.createTrip(t, service.CreateTripRequest{
		AmountLocal: 100,
	})
	if trip.ExchangeRate != domain.DefaultExchangeRate {
		t.Errorf("expected default rate %v, got %v", domain.DefaultExchangeRate, trip.ExchangeRate)
	}

	stored, _ := f.store.Trips.GetByID(ctx, trip.ID)
	if stored.ExchangeRate != domain.DefaultExchangeRate {
		t.Errorf("expected persisted rate %v, got %v", domain.DefaultExchangeRate, stored.ExchangeRate)
	}
}

func TestTrip_CreateRejectsNegativeExchangeRate(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)

	_, err := f.tripService.CreateTrip(context.Background(), service.CreateTripRequest{
		DriverID:     "driver-1",
		AmountLocal:  100,
		ExchangeRate: -1,
	})
	if !errors.Is(err, service.ErrInvalidExchangeRate) {
		t.Errorf("expected ErrInvalidExchangeRate, got %v", err)
	}
}

func TestTrip_ScheduledMustBeInFuture(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)

	_, err := f.tripService.CreateTrip(context.Background(), service.CreateTripRequest{
		DriverID:    "driver-1",
		IsScheduled: true,
		ScheduledAt: time.Now().Add(-time.Hour),
	})
	if !errors.Is(err, service.ErrScheduledDatetimeInPast) {
		t.Errorf("expected ErrScheduledDatetimeInPast, got %v", err)
	}
}

func TestTrip_StartPublishesEvent(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	if _, err := f.tripService.Start(ctx, trip.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.sink.CountType(service.EventTripStarted) != 1 {
		t.Errorf("expected one trip_started event, got %d", f.sink.CountType(service.EventTripStarted))
	}
	for _, e := range f.sink.Events {
		if e.UserID != "driver-1" {
			t.Errorf("expected events addressed to driver-1, got %s", e.UserID)
		}
	}
}

func TestTrip_SinkFailureDoesNotBlockTransition(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	f.sink.PublishError = errors.New("redis down")
	trip := f.createTrip(t, service.CreateTripRequest{})

	started, err := f.tripService.Start(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("transition must survive sink failure, got %v", err)
	}
	if started.State != domain.TripStateActive {
		t.Errorf("expected active state, got %s", started.State)
	}
}

func TestTrip_CommandDispatch(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	trip := f.createTrip(t, service.CreateTripRequest{})
	ctx := context.Background()

	applied, err := f.tripService.Apply(ctx, trip.ID, service.StartCommand{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.State != domain.TripStateActive {
		t.Errorf("expected active state, got %s", applied.State)
	}

	applied, err = f.tripService.Apply(ctx, trip.ID, service.PauseCommand{ReasonCode: "fuel"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.State != domain.TripStatePaused {
		t.Errorf("expected paused state, got %s", applied.State)
	}
}

func TestTrip_SnapshotEffectiveHours(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t, 0)
	now := time.Now()

	trip := &domain.Trip{
		ID:        "trip-snap",
		DriverID:  "driver-1",
		State:     domain.TripStateDone,
		StartedAt: now.Add(-4 * time.Hour),
		EndedAt:   now,
		CreatedAt: now.Add(-4 * time.Hour),
	}
	f.store.AddTrip(trip)
	if err := f.store.Pauses.Create(context.Background(), &domain.Pause{
		ID:        "pause-1",
		TripID:    trip.ID,
		StartedAt: now.Add(-3 * time.Hour),
		EndedAt:   now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := f.tripService.GetTrip(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Trip.Duration() != 4 {
		t.Errorf("expected 4h duration, got %v", snap.Trip.Duration())
	}
	if snap.PausedHours != 1 {
		t.Errorf("expected 1h paused, got %v", snap.PausedHours)
	}
	if snap.EffectiveHours != 3 {
		t.Errorf("expected 3h effective, got %v", snap.EffectiveHours)
	}
}
