// Package events fans feedback lifecycle events out to connected dashboard
// clients. Events travel between instances over Redis Pub/Sub; without Redis
// they are delivered in-process.
package events

import (
	"context"

	"feedbackhub/backend/internal/models"
)

// Publisher is implemented by anything that accepts lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, ev models.Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, models.Event) {}

// Client is the interface for a connected event consumer (e.g., a WebSocket).
type Client interface {
	// GetClientID returns the unique identifier of the connection.
	GetClientID() string
	// Wants reports whether the client subscribed to this event.
	Wants(ev models.Event) bool
	// GetSendChannel returns the channel the hub writes the client's events to.
	GetSendChannel() chan<- models.Event
	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's send channel and connection.
	Close()
}
