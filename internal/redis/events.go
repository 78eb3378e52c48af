package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"driverpro/internal/service"
)

const notificationChannelPrefix = "driverpro:notifications:"

// EventPublisher delivers domain events over Redis pub/sub. Each recipient
// user has their own channel so mobile gateways can subscribe per driver.
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Publish serializes the event and publishes it to the recipient's channel.
func (p *EventPublisher) Publish(ctx context.Context, event service.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channel := notificationChannelPrefix + event.UserID
	return p.client.Publish(ctx, channel, data).Err()
}
