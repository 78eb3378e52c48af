package service

import (
	"context"
	"fmt"

	"driverpro/internal/domain"
)

// TripCommand is a closed union of trip transitions. Each command maps to
// exactly one TripService method; unknown commands are rejected at dispatch.
type TripCommand interface {
	isTripCommand()
}

// StartCommand starts a draft trip.
type StartCommand struct{}

// PauseCommand suspends an active trip.
type PauseCommand struct {
	ReasonCode string
	Notes      string
}

// ResumeCommand resumes a paused trip.
type ResumeCommand struct{}

// DoneCommand completes an active or paused trip.
type DoneCommand struct{}

// CancelCommand cancels a non-completed trip, optionally refunding the
// consumed credit.
type CancelCommand struct {
	Refund bool
}

// RefundCreditCommand refunds a cancelled trip's consumed credit.
type RefundCreditCommand struct{}

// StartEmptyCommand turns a draft trip into a client search.
type StartEmptyCommand struct {
	WaitLimitMinutes int
}

// ConvertEmptyCommand turns a client search into an active trip.
type ConvertEmptyCommand struct {
	ClientName  string
	Origin      string
	Destination string
}

// CancelEmptyCommand cancels a client search.
type CancelEmptyCommand struct{}

func (StartCommand) isTripCommand()        {}
func (PauseCommand) isTripCommand()        {}
func (ResumeCommand) isTripCommand()       {}
func (DoneCommand) isTripCommand()         {}
func (CancelCommand) isTripCommand()       {}
func (RefundCreditCommand) isTripCommand() {}
func (StartEmptyCommand) isTripCommand()   {}
func (ConvertEmptyCommand) isTripCommand() {}
func (CancelEmptyCommand) isTripCommand()  {}

// Apply dispatches a command against a trip and returns the updated trip.
func (s *TripService) Apply(ctx context.Context, tripID string, cmd TripCommand) (*domain.Trip, error) {
	switch c := cmd.(type) {
	case StartCommand:
		return s.Start(ctx, tripID)
	case PauseCommand:
		return s.Pause(ctx, tripID, c.ReasonCode, c.Notes)
	case ResumeCommand:
		return s.Resume(ctx, tripID)
	case DoneCommand:
		return s.Done(ctx, tripID)
	case CancelCommand:
		return s.Cancel(ctx, tripID, c.Refund)
	case RefundCreditCommand:
		return s.RefundCredit(ctx, tripID)
	case StartEmptyCommand:
		return s.StartEmpty(ctx, tripID, c.WaitLimitMinutes)
	case ConvertEmptyCommand:
		return s.ConvertEmptyToActive(ctx, ConvertEmptyRequest{
			TripID:      tripID,
			ClientName:  c.ClientName,
			Origin:      c.Origin,
			Destination: c.Destination,
		})
	case CancelEmptyCommand:
		return s.CancelEmpty(ctx, tripID)
	default:
		return nil, fmt.Errorf("unknown trip command %T", cmd)
	}
}
