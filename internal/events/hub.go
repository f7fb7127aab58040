package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage"
)

const broadcastBuffer = 256

// Hub keeps the set of connected clients and delivers events to them. Only
// the Run goroutine touches Clients.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	broadcastCh chan models.Event
	done        chan struct{}
	Broker      storage.EventBroker
}

// NewHub creates a hub. broker may be nil for single-instance deployments.
func NewHub(broker storage.EventBroker) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		broadcastCh:  make(chan models.Event, broadcastBuffer),
		done:         make(chan struct{}),
		Broker:       broker,
	}
}

var _ Publisher = (*Hub)(nil)

// Publish hands an event to the broker, or straight to local clients when no
// broker is reachable. Publishing never blocks the calling request.
func (h *Hub) Publish(ctx context.Context, ev models.Event) {
	if h.Broker != nil {
		err := h.Broker.PublishEvent(ctx, ev)
		if err == nil {
			return
		}
		if !errors.Is(err, storage.ErrNoBroker) {
			log.Printf("WARNING: Failed to publish %s event for feedback %s, delivering locally: %v", ev.Type, ev.FeedbackID, err)
		}
	}
	h.enqueue(ev)
}

func (h *Hub) enqueue(ev models.Event) {
	select {
	case h.broadcastCh <- ev:
	default:
		log.Printf("WARNING: Event buffer full, dropping %s event for feedback %s", ev.Type, ev.FeedbackID)
	}
}

// Run is the hub's dispatcher loop. It returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	h.startPubSubListener(ctx)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for id, client := range h.Clients {
				client.Close()
				delete(h.Clients, id)
			}
			return

		case client := <-h.RegisterCh:
			h.Clients[client.GetClientID()] = client
			log.Printf("INFO: Event client %s connected (%d total)", client.GetClientID(), len(h.Clients))

		case client := <-h.UnregisterCh:
			if _, ok := h.Clients[client.GetClientID()]; ok {
				delete(h.Clients, client.GetClientID())
				client.Close()
			}

		case ev := <-h.broadcastCh:
			h.deliver(ev)
		}
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; it is a no-op once the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(ev models.Event) {
	for id, client := range h.Clients {
		if !client.Wants(ev) {
			continue
		}
		select {
		case client.GetSendChannel() <- ev:
		default:
			// Slow consumer; drop it rather than stall everyone else.
			log.Printf("WARNING: Event client %s is not keeping up, disconnecting", id)
			delete(h.Clients, id)
			client.Close()
		}
	}
}

// startPubSubListener запускає Goroutine, яка слухає Redis Pub/Sub
func (h *Hub) startPubSubListener(ctx context.Context) {
	if h.Broker == nil {
		return
	}
	pubsub := h.Broker.SubscribeEvents(ctx)
	if pubsub == nil {
		return
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("ERROR: Failed to decode event from Redis: %v", err)
					continue
				}
				h.enqueue(ev)
			}
		}
	}()
}
