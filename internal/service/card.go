package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// CardService handles the prepaid card ledger: balances, credit movements,
// recharges and vehicle assignments. The balance is always derived from the
// movement log, never written directly.
type CardService struct {
	store       repository.Store
	invalidator CardCacheInvalidator
}

// NewCardService creates a new CardService. invalidator may be nil when no
// vehicle->card cache is in front of the store.
func NewCardService(store repository.Store, invalidator CardCacheInvalidator) *CardService {
	return &CardService{store: store, invalidator: invalidator}
}

// CreateCardRequest contains the parameters for creating a card.
type CreateCardRequest struct {
	Number    string
	VehicleID string
	Notes     string
}

// CreateCard registers a new card, optionally assigned to a vehicle.
func (s *CardService) CreateCard(ctx context.Context, req CreateCardRequest) (*domain.Card, error) {
	if req.Number == "" {
		return nil, ErrInvalidCardID
	}

	card := &domain.Card{
		ID:        uuid.New().String(),
		Number:    req.Number,
		Active:    true,
		VehicleID: req.VehicleID,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}

	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		if err := r.Cards.Create(ctx, card); err != nil {
			return err
		}
		if card.VehicleID != "" {
			return openAssignment(ctx, r, card.ID, card.VehicleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The vehicle may be cached as having no card.
	s.invalidateVehicleCard(ctx, card.VehicleID)

	return card, nil
}

// CardSnapshot is a card together with its derived balance.
type CardSnapshot struct {
	Card          *domain.Card
	Balance       float64
	CreditWarning string
}

// GetCard retrieves a card and its derived balance.
func (s *CardService) GetCard(ctx context.Context, cardID string) (*CardSnapshot, error) {
	if cardID == "" {
		return nil, ErrInvalidCardID
	}

	repos := s.store.Repos()

	card, err := repos.Cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	balance, err := repos.Movements.Balance(ctx, cardID)
	if err != nil {
		return nil, err
	}

	return &CardSnapshot{
		Card:          card,
		Balance:       balance,
		CreditWarning: domain.CreditWarning(balance),
	}, nil
}

// Balance computes the card's balance as sum(in) - sum(out).
func (s *CardService) Balance(ctx context.Context, cardID string) (float64, error) {
	if cardID == "" {
		return 0, ErrInvalidCardID
	}
	return s.store.Repos().Movements.Balance(ctx, cardID)
}

// Movements lists the card's ledger, newest first.
func (s *CardService) Movements(ctx context.Context, cardID string) ([]*domain.CreditMovement, error) {
	if cardID == "" {
		return nil, ErrInvalidCardID
	}
	return s.store.Repos().Movements.ListByCard(ctx, cardID)
}

// Consume debits credits from a card. Fails with ErrInsufficientBalance if
// the derived balance is below the requested amount.
func (s *CardService) Consume(ctx context.Context, cardID string, amount float64, reference, tripID string) (float64, error) {
	if cardID == "" {
		return 0, ErrInvalidCardID
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance float64
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		if err := consumeCredit(ctx, r, cardID, amount, reference, tripID); err != nil {
			return err
		}
		var err error
		balance, err = r.Movements.Balance(ctx, cardID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// Refund credits a card unconditionally. Refunds are corrective, so there is
// no balance floor check.
func (s *CardService) Refund(ctx context.Context, cardID string, amount float64, reference, tripID string) (float64, error) {
	if cardID == "" {
		return 0, ErrInvalidCardID
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance float64
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		if err := refundCredit(ctx, r, cardID, amount, reference, tripID); err != nil {
			return err
		}
		var err error
		balance, err = r.Movements.Balance(ctx, cardID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// consumeCredit appends an out-movement inside the caller's transaction. The
// card row is locked first so the balance check and the insert cannot race
// with a concurrent consumption.
func consumeCredit(ctx context.Context, r repository.Repos, cardID string, amount float64, reference, tripID string) error {
	if _, err := r.Cards.GetByIDForUpdate(ctx, cardID); err != nil {
		return err
	}

	balance, err := r.Movements.Balance(ctx, cardID)
	if err != nil {
		return err
	}

	if balance < amount {
		return ErrInsufficientBalance
	}

	return r.Movements.Create(ctx, &domain.CreditMovement{
		ID:         uuid.New().String(),
		CardID:     cardID,
		Type:       domain.MovementOut,
		Amount:     amount,
		Reference:  reference,
		TripID:     tripID,
		OccurredAt: time.Now(),
	})
}

// refundCredit appends an in-movement inside the caller's transaction.
func refundCredit(ctx context.Context, r repository.Repos, cardID string, amount float64, reference, tripID string) error {
	if _, err := r.Cards.GetByIDForUpdate(ctx, cardID); err != nil {
		return err
	}

	return r.Movements.Create(ctx, &domain.CreditMovement{
		ID:         uuid.New().String(),
		CardID:     cardID,
		Type:       domain.MovementIn,
		Amount:     amount,
		Reference:  reference,
		TripID:     tripID,
		OccurredAt: time.Now(),
	})
}

// CreateRechargeRequest contains the parameters for creating a recharge.
type CreateRechargeRequest struct {
	CardID        string
	Amount        int
	InvoiceNumber string
	Notes         string
}

// CreateRecharge records a draft recharge with a REC-<card>-NNN reference.
func (s *CardService) CreateRecharge(ctx context.Context, req CreateRechargeRequest) (*domain.Recharge, error) {
	if req.CardID == "" {
		return nil, ErrInvalidCardID
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidRechargeAmount
	}

	var recharge *domain.Recharge
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		card, err := r.Cards.GetByID(ctx, req.CardID)
		if err != nil {
			return err
		}

		count, err := r.Recharges.CountByCard(ctx, card.ID)
		if err != nil {
			return err
		}

		recharge = &domain.Recharge{
			ID:            uuid.New().String(),
			CardID:        card.ID,
			Reference:     fmt.Sprintf("REC-%s-%03d", card.Number, count+1),
			Amount:        req.Amount,
			State:         domain.RechargeStateDraft,
			RechargeDate:  time.Now(),
			InvoiceNumber: req.InvoiceNumber,
			Notes:         req.Notes,
			CreatedAt:     time.Now(),
		}

		return r.Recharges.Create(ctx, recharge)
	})
	if err != nil {
		return nil, err
	}

	return recharge, nil
}

// ConfirmRecharge confirms a draft recharge and appends the in-movement.
// Exactly one in-movement exists iff the recharge is confirmed.
func (s *CardService) ConfirmRecharge(ctx context.Context, rechargeID string) (*domain.Recharge, error) {
	if rechargeID == "" {
		return nil, ErrInvalidRechargeID
	}

	var recharge *domain.Recharge
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		recharge, err = r.Recharges.GetByIDForUpdate(ctx, rechargeID)
		if err != nil {
			return err
		}

		if recharge.State != domain.RechargeStateDraft {
			return ErrInvalidState
		}

		movement := &domain.CreditMovement{
			ID:         uuid.New().String(),
			CardID:     recharge.CardID,
			Type:       domain.MovementIn,
			Amount:     float64(recharge.Amount),
			Reference:  fmt.Sprintf("Recharge: %s", recharge.Reference),
			RechargeID: recharge.ID,
			OccurredAt: recharge.RechargeDate,
		}
		if err := r.Movements.Create(ctx, movement); err != nil {
			return err
		}

		recharge.State = domain.RechargeStateConfirmed
		return r.Recharges.Update(ctx, recharge)
	})
	if err != nil {
		return nil, err
	}

	return recharge, nil
}

// CancelRecharge cancels a recharge. A confirmed recharge has its in-movement
// deleted first, reversing the balance; this is the only permitted deletion
// in the ledger.
func (s *CardService) CancelRecharge(ctx context.Context, rechargeID string) (*domain.Recharge, error) {
	if rechargeID == "" {
		return nil, ErrInvalidRechargeID
	}

	var recharge *domain.Recharge
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		recharge, err = r.Recharges.GetByIDForUpdate(ctx, rechargeID)
		if err != nil {
			return err
		}

		if recharge.State == domain.RechargeStateCancelled {
			return ErrInvalidState
		}

		if recharge.State == domain.RechargeStateConfirmed {
			if err := r.Movements.DeleteByRecharge(ctx, recharge.ID); err != nil {
				return err
			}
		}

		recharge.State = domain.RechargeStateCancelled
		return r.Recharges.Update(ctx, recharge)
	})
	if err != nil {
		return nil, err
	}

	return recharge, nil
}

// UpdateRechargeRequest contains the editable fields of a recharge. Confirmed
// and cancelled recharges are write-locked except for notes and invoice
// details, and only for managers.
type UpdateRechargeRequest struct {
	RechargeID    string
	Notes         *string
	InvoiceNumber *string
	Manager       bool
}

// UpdateRecharge edits the allow-listed fields of a recharge.
func (s *CardService) UpdateRecharge(ctx context.Context, req UpdateRechargeRequest) (*domain.Recharge, error) {
	if req.RechargeID == "" {
		return nil, ErrInvalidRechargeID
	}

	var recharge *domain.Recharge
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		recharge, err = r.Recharges.GetByIDForUpdate(ctx, req.RechargeID)
		if err != nil {
			return err
		}

		if recharge.State != domain.RechargeStateDraft && !req.Manager {
			return ErrRechargeLocked
		}

		if req.Notes != nil {
			recharge.Notes = *req.Notes
		}
		if req.InvoiceNumber != nil {
			recharge.InvoiceNumber = *req.InvoiceNumber
		}

		return r.Recharges.Update(ctx, recharge)
	})
	if err != nil {
		return nil, err
	}

	return recharge, nil
}

// AssignVehicle attaches a card to a vehicle, closing the previous active
// assignment.
func (s *CardService) AssignVehicle(ctx context.Context, cardID, vehicleID string) (*domain.Card, error) {
	if cardID == "" {
		return nil, ErrInvalidCardID
	}

	var card *domain.Card
	var previousVehicleID string
	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		card, err = r.Cards.GetByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}

		previousVehicleID = card.VehicleID
		card.VehicleID = vehicleID
		if err := r.Cards.Update(ctx, card); err != nil {
			return err
		}

		if vehicleID == "" {
			return closeAssignment(ctx, r, cardID)
		}
		return openAssignment(ctx, r, cardID, vehicleID)
	})
	if err != nil {
		return nil, err
	}

	// Drop stale vehicle->card cache entries once the change is committed.
	// Both sides of the move are stale: the old vehicle still maps to this
	// card and the new vehicle may be cached as having none.
	s.invalidateVehicleCard(ctx, previousVehicleID)
	s.invalidateVehicleCard(ctx, vehicleID)

	return card, nil
}

func (s *CardService) invalidateVehicleCard(ctx context.Context, vehicleID string) {
	if s.invalidator == nil || vehicleID == "" {
		return
	}
	if err := s.invalidator.InvalidateVehicleCard(ctx, vehicleID); err != nil {
		log.Printf("failed to invalidate card cache for vehicle %s: %v", vehicleID, err)
	}
}

// GetAllCards retrieves all cards.
func (s *CardService) GetAllCards(ctx context.Context) ([]*domain.Card, error) {
	return s.store.Repos().Cards.GetAll(ctx)
}

func openAssignment(ctx context.Context, r repository.Repos, cardID, vehicleID string) error {
	if err := closeAssignment(ctx, r, cardID); err != nil {
		return err
	}

	return r.Assignments.Create(ctx, &domain.CardAssignment{
		ID:        uuid.New().String(),
		CardID:    cardID,
		VehicleID: vehicleID,
		StartedAt: time.Now(),
		Active:    true,
	})
}

func closeAssignment(ctx context.Context, r repository.Repos, cardID string) error {
	current, err := r.Assignments.GetActiveByCard(ctx, cardID)
	if err != nil || current == nil {
		return err
	}

	current.Active = false
	current.EndedAt = time.Now()
	return r.Assignments.Update(ctx, current)
}
