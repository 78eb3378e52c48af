package service

import (
	"context"
	"log"
	"time"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
)

// Alert tiers in minutes remaining. Each tier covers the window down to the
// next tier, so a sweep that lands at 14 minutes sends the 15-minute alert
// and a later sweep at 13 sends nothing.
var alertTiers = []int{5, 15, 30}

// ScheduledReminderLead is how far ahead of the appointment the reminder for
// a scheduled trip goes out.
const ScheduledReminderLead = 15 * time.Minute

// SweepService runs the periodic passes over searching and scheduled trips:
// expiring overdue searches, sending tiered time-remaining alerts, and
// reminding drivers of upcoming scheduled trips.
type SweepService struct {
	store         repository.Store
	notifications *NotificationService
	reminderLead  time.Duration
}

// NewSweepService creates a new SweepService.
func NewSweepService(store repository.Store, notifications *NotificationService, reminderLead time.Duration) *SweepService {
	if reminderLead <= 0 {
		reminderLead = ScheduledReminderLead
	}
	return &SweepService{store: store, notifications: notifications, reminderLead: reminderLead}
}

// SweepResult summarizes one empty-trip sweep pass.
type SweepResult struct {
	Scanned    int
	Cancelled  int
	AlertsSent int
}

// SweepEmptyTrips walks all searching trips once. Expired searches are
// auto-cancelled; the rest get at most one pending alert each. A failure on
// one trip is logged and does not stop the pass.
func (s *SweepService) SweepEmptyTrips(ctx context.Context, now time.Time) (*SweepResult, error) {
	trips, err := s.store.Repos().Trips.ListByState(ctx, domain.TripStateEmpty)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(trips)}
	for _, trip := range trips {
		cancelled, alerted, err := s.sweepOne(ctx, trip.ID, now)
		if err != nil {
			log.Printf("empty-trip sweep failed for trip %s: %v", trip.ID, err)
			continue
		}
		if cancelled {
			result.Cancelled++
		}
		if alerted {
			result.AlertsSent++
		}
	}
	return result, nil
}

// sweepOne re-reads the trip under lock so a concurrent conversion or cancel
// between list and update is not clobbered.
func (s *SweepService) sweepOne(ctx context.Context, tripID string, now time.Time) (cancelled, alerted bool, err error) {
	var trip *domain.Trip
	var alertMinutes int

	err = s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateEmpty {
			return nil
		}

		elapsed := now.Sub(trip.EmptyStartedAt).Minutes()
		if elapsed >= float64(trip.EmptyWaitLimitMinutes) {
			trip.State = domain.TripStateCancelled
			trip.EndedAt = now
			cancelled = true
			return r.Trips.Update(ctx, trip)
		}

		remaining := trip.EmptyTimeRemaining(now)
		tier := alertTierFor(remaining)
		if tier == 0 || alertFlagSent(trip, tier) {
			return nil
		}

		markAlertSent(trip, tier)
		alertMinutes = tier
		alerted = true
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return false, false, err
	}

	if cancelled {
		s.notifications.NotifyTrip(ctx, EventEmptyTripExpired, trip, "Search expired",
			"The client search ran out of time and was cancelled")
	}
	if alerted {
		s.notifications.NotifyEmptyTripAlert(ctx, trip, alertMinutes)
	}
	return cancelled, alerted, nil
}

// alertTierFor returns the tier whose window covers the remaining minutes,
// or zero when no alert is due yet.
func alertTierFor(remaining int) int {
	for _, tier := range alertTiers {
		if remaining <= tier {
			return tier
		}
	}
	return 0
}

func alertFlagSent(trip *domain.Trip, threshold int) bool {
	switch threshold {
	case 5:
		return trip.Alert5Sent
	case 15:
		return trip.Alert15Sent
	default:
		return trip.Alert30Sent
	}
}

func markAlertSent(trip *domain.Trip, threshold int) {
	switch threshold {
	case 5:
		trip.Alert5Sent = true
	case 15:
		trip.Alert15Sent = true
	default:
		trip.Alert30Sent = true
	}
}

// SweepScheduledReminders reminds drivers of scheduled trips whose
// appointment is within the reminder lead. Each trip is reminded once.
func (s *SweepService) SweepScheduledReminders(ctx context.Context, now time.Time) (int, error) {
	trips, err := s.store.Repos().Trips.ListScheduledDue(ctx, now.Add(s.reminderLead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, trip := range trips {
		reminded, err := s.remindOne(ctx, trip.ID)
		if err != nil {
			log.Printf("scheduled reminder failed for trip %s: %v", trip.ID, err)
			continue
		}
		if reminded {
			sent++
		}
	}
	return sent, nil
}

func (s *SweepService) remindOne(ctx context.Context, tripID string) (bool, error) {
	var trip *domain.Trip
	var reminded bool

	err := s.store.InTransaction(ctx, func(r repository.Repos) error {
		var err error
		trip, err = r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		if trip.State != domain.TripStateDraft || !trip.IsScheduled || trip.ScheduledReminderSent {
			return nil
		}

		trip.ScheduledReminderSent = true
		reminded = true
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return false, err
	}

	if reminded {
		s.notifications.NotifyScheduledReminder(ctx, trip)
	}
	return reminded, nil
}
