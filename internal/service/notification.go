package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"driverpro/internal/domain"
)

// EventType identifies an outbound domain event.
type EventType string

const (
	EventTripCreated           EventType = "trip_created"
	EventTripStarted           EventType = "trip_started"
	EventTripPaused            EventType = "trip_paused"
	EventTripResumed           EventType = "trip_resumed"
	EventTripDone              EventType = "trip_done"
	EventTripCancelled         EventType = "trip_cancelled"
	EventCreditRefunded        EventType = "credit_refunded"
	EventEmptyTripStarted      EventType = "empty_trip_started"
	EventEmptyTrip30           EventType = "empty_trip_30"
	EventEmptyTrip15           EventType = "empty_trip_15"
	EventEmptyTrip5            EventType = "empty_trip_5"
	EventEmptyTripExpired      EventType = "empty_trip_expired"
	EventEmptyTripConverted    EventType = "empty_trip_converted"
	EventScheduledTripReminder EventType = "scheduled_trip_reminder"
)

// Event is the payload published to the external notification sink.
type Event struct {
	Type      EventType `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EntityID  string    `json:"entity_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink delivers events to the external pub/sub channel keyed by
// recipient user. Delivery is at-most-once.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// NotificationService builds and publishes domain events. Publish failures
// are logged and never propagated: a lost notification must not roll back a
// committed transition.
type NotificationService struct {
	sink EventSink
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(sink EventSink) *NotificationService {
	return &NotificationService{sink: sink}
}

// NotifyTrip publishes a trip lifecycle event to the trip's driver.
func (s *NotificationService) NotifyTrip(ctx context.Context, eventType EventType, trip *domain.Trip, title, body string) {
	s.publish(ctx, Event{
		Type:      eventType,
		Title:     title,
		Body:      body,
		EntityID:  trip.ID,
		UserID:    trip.DriverID,
		Timestamp: time.Now(),
	})
}

// NotifyEmptyTripAlert publishes a tiered time-remaining alert.
func (s *NotificationService) NotifyEmptyTripAlert(ctx context.Context, trip *domain.Trip, minutesRemaining int) {
	var eventType EventType
	switch minutesRemaining {
	case 5:
		eventType = EventEmptyTrip5
	case 15:
		eventType = EventEmptyTrip15
	default:
		eventType = EventEmptyTrip30
	}

	s.publish(ctx, Event{
		Type:      eventType,
		Title:     fmt.Sprintf("%d minutes remaining", minutesRemaining),
		Body:      fmt.Sprintf("Search %s is about to expire", trip.Name),
		EntityID:  trip.ID,
		UserID:    trip.DriverID,
		Timestamp: time.Now(),
	})
}

// NotifyScheduledReminder publishes a reminder for an upcoming scheduled trip.
func (s *NotificationService) NotifyScheduledReminder(ctx context.Context, trip *domain.Trip) {
	s.publish(ctx, Event{
		Type:      EventScheduledTripReminder,
		Title:     "Upcoming scheduled trip",
		Body:      fmt.Sprintf("Trip %s is scheduled for %s", trip.Name, trip.ScheduledAt.Format("2006-01-02 15:04")),
		EntityID:  trip.ID,
		UserID:    trip.DriverID,
		Timestamp: time.Now(),
	})
}

func (s *NotificationService) publish(ctx context.Context, event Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		log.Printf("notification publish failed: type=%s entity=%s user=%s: %v",
			event.Type, event.EntityID, event.UserID, err)
	}
}
