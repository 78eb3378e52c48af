package tests

import (
	"context"
	"errors"
	"testing"

	"driverpro/internal/domain"
	"driverpro/internal/service"
)

// ──────────────────────────────────────────────
// CARD LEDGER
// ──────────────────────────────────────────────

func newCardFixture(t *testing.T) (*MockStore, *service.CardService, *domain.Card) {
	t.Helper()

	store := NewMockStore()
	cardService := service.NewCardService(store, nil)

	card, err := cardService.CreateCard(context.Background(), service.CreateCardRequest{
		Number: "CARD-001",
	})
	if err != nil {
		t.Fatalf("unexpected error creating card: %v", err)
	}
	return store, cardService, card
}

func confirmRecharge(t *testing.T, cardService *service.CardService, cardID string, amount int) *domain.Recharge {
	t.Helper()

	recharge, err := cardService.CreateRecharge(context.Background(), service.CreateRechargeRequest{
		CardID: cardID,
		Amount: amount,
	})
	if err != nil {
		t.Fatalf("unexpected error creating recharge: %v", err)
	}
	recharge, err = cardService.ConfirmRecharge(context.Background(), recharge.ID)
	if err != nil {
		t.Fatalf("unexpected error confirming recharge: %v", err)
	}
	return recharge
}

func TestLedger_BalanceIsSumOfMovements(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	confirmRecharge(t, cardService, card.ID, 10)
	confirmRecharge(t, cardService, card.ID, 5)

	if _, err := cardService.Consume(ctx, card.ID, 3, "manual adjustment", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := cardService.Balance(ctx, card.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 12 {
		t.Errorf("expected balance 12, got %v", balance)
	}
}

func TestLedger_ConsumeFailsOnInsufficientBalance(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	confirmRecharge(t, cardService, card.ID, 2)

	if _, err := cardService.Consume(ctx, card.ID, 5, "too much", ""); !errors.Is(err, service.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	// The failed consume must not leave a movement behind.
	balance, _ := cardService.Balance(ctx, card.ID)
	if balance != 2 {
		t.Errorf("expected balance 2 after failed consume, got %v", balance)
	}
}

func TestLedger_RefundHasNoFloor(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	// Refund on an empty card is allowed; it is a corrective entry.
	balance, err := cardService.Refund(ctx, card.ID, 2, "correction", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 2 {
		t.Errorf("expected balance 2, got %v", balance)
	}
}

func TestLedger_RechargeReferenceSequence(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	first, err := cardService.CreateRecharge(ctx, service.CreateRechargeRequest{CardID: card.ID, Amount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cardService.CreateRecharge(ctx, service.CreateRechargeRequest{CardID: card.ID, Amount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Reference != "REC-CARD-001-001" {
		t.Errorf("expected reference REC-CARD-001-001, got %s", first.Reference)
	}
	if second.Reference != "REC-CARD-001-002" {
		t.Errorf("expected reference REC-CARD-001-002, got %s", second.Reference)
	}
}

func TestLedger_DraftRechargeDoesNotCount(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	if _, err := cardService.CreateRecharge(ctx, service.CreateRechargeRequest{CardID: card.ID, Amount: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, _ := cardService.Balance(ctx, card.ID)
	if balance != 0 {
		t.Errorf("expected balance 0 while recharge is draft, got %v", balance)
	}
}

func TestLedger_ConfirmRechargeOnlyFromDraft(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	recharge := confirmRecharge(t, cardService, card.ID, 10)

	if _, err := cardService.ConfirmRecharge(ctx, recharge.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on double confirm, got %v", err)
	}

	// Double confirm must not duplicate the in-movement.
	balance, _ := cardService.Balance(ctx, card.ID)
	if balance != 10 {
		t.Errorf("expected balance 10, got %v", balance)
	}
}

func TestLedger_CancelConfirmedRechargeReversesBalance(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	recharge := confirmRecharge(t, cardService, card.ID, 10)

	cancelled, err := cardService.CancelRecharge(ctx, recharge.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.State != domain.RechargeStateCancelled {
		t.Errorf("expected state cancelled, got %s", cancelled.State)
	}

	balance, _ := cardService.Balance(ctx, card.ID)
	if balance != 0 {
		t.Errorf("expected balance 0 after cancellation, got %v", balance)
	}

	movements, _ := cardService.Movements(ctx, card.ID)
	if len(movements) != 0 {
		t.Errorf("expected no movements after reversal, got %d", len(movements))
	}
}

func TestLedger_ConfirmedRechargeIsWriteLocked(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	recharge := confirmRecharge(t, cardService, card.ID, 10)

	notes := "late note"
	_, err := cardService.UpdateRecharge(ctx, service.UpdateRechargeRequest{
		RechargeID: recharge.ID,
		Notes:      &notes,
	})
	if !errors.Is(err, service.ErrRechargeLocked) {
		t.Errorf("expected ErrRechargeLocked, got %v", err)
	}

	// Managers may still edit the allow-listed fields.
	updated, err := cardService.UpdateRecharge(ctx, service.UpdateRechargeRequest{
		RechargeID: recharge.ID,
		Notes:      &notes,
		Manager:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Notes != notes {
		t.Errorf("expected notes %q, got %q", notes, updated.Notes)
	}
	if updated.Amount != 10 {
		t.Errorf("amount must not change, got %d", updated.Amount)
	}
}

func TestLedger_CreditWarning(t *testing.T) {
	t.Parallel()

	_, cardService, card := newCardFixture(t)
	ctx := context.Background()

	snap, err := cardService.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CreditWarning != "no credits available" {
		t.Errorf("expected no-credits warning, got %q", snap.CreditWarning)
	}

	confirmRecharge(t, cardService, card.ID, 3)
	snap, _ = cardService.GetCard(ctx, card.ID)
	if snap.CreditWarning != "low credits" {
		t.Errorf("expected low-credits warning, got %q", snap.CreditWarning)
	}
}

// ──────────────────────────────────────────────
// CARD ASSIGNMENT HISTORY
// ──────────────────────────────────────────────

func TestAssignment_ReassignClosesPrevious(t *testing.T) {
	t.Parallel()

	store, cardService, card := newCardFixture(t)
	ctx := context.Background()

	if _, err := cardService.AssignVehicle(ctx, card.ID, "vehicle-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cardService.AssignVehicle(ctx, card.ID, "vehicle-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := store.Assignments.GetActiveByCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active == nil {
		t.Fatal("expected an active assignment")
	}
	if active.VehicleID != "vehicle-2" {
		t.Errorf("expected active assignment on vehicle-2, got %s", active.VehicleID)
	}

	updated, _ := store.Cards.GetByID(ctx, card.ID)
	if updated.VehicleID != "vehicle-2" {
		t.Errorf("expected card on vehicle-2, got %s", updated.VehicleID)
	}
}

func TestAssignment_ReassignInvalidatesCardCache(t *testing.T) {
	t.Parallel()

	store := NewMockStore()
	directory := NewMockCardDirectory()
	cardService := service.NewCardService(store, directory)
	ctx := context.Background()

	card, err := cardService.CreateCard(ctx, service.CreateCardRequest{Number: "CARD-001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := cardService.AssignVehicle(ctx, card.ID, "vehicle-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cardService.AssignVehicle(ctx, card.ID, "vehicle-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both sides of the move must be dropped from the cache: the old
	// vehicle still maps to this card and the new vehicle may be cached
	// without one.
	want := map[string]bool{"vehicle-1": false, "vehicle-2": false}
	for _, vehicleID := range directory.Invalidated {
		if _, ok := want[vehicleID]; ok {
			want[vehicleID] = true
		}
	}
	for vehicleID, seen := range want {
		if !seen {
			t.Errorf("expected cache invalidation for %s", vehicleID)
		}
	}
}

func TestAssignment_DetachLeavesNoActiveAssignment(t *testing.T) {
	t.Parallel()

	store, cardService, card := newCardFixture(t)
	ctx := context.Background()

	if _, err := cardService.AssignVehicle(ctx, card.ID, "vehicle-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cardService.AssignVehicle(ctx, card.ID, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, _ := store.Assignments.GetActiveByCard(ctx, card.ID)
	if active != nil {
		t.Errorf("expected no active assignment, got one on %s", active.VehicleID)
	}
}
