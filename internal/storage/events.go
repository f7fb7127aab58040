package storage

import (
	"context"
	"encoding/json"
	"errors"

	"feedbackhub/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis Pub/Sub channel carrying lifecycle events.
const EventsChannel = "feedback:events"

// ErrNoBroker is returned when events are published without Redis configured.
var ErrNoBroker = errors.New("event broker not configured")

// EventBroker moves events between service instances.
type EventBroker interface {
	PublishEvent(ctx context.Context, ev models.Event) error
	SubscribeEvents(ctx context.Context) *redis.PubSub
}

var _ EventBroker = (*Service)(nil)

// PublishEvent публікує подію в Redis Pub/Sub
func (s *Service) PublishEvent(ctx context.Context, ev models.Event) error {
	if s.Redis == nil {
		return ErrNoBroker
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, EventsChannel, payload).Err()
}

// SubscribeEvents returns nil when Redis is not configured.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(ctx, EventsChannel)
}
