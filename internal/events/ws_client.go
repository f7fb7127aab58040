package events

import (
	"encoding/json"
	"log"
	"time"

	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// WebSocketClient streams events to one dashboard connection.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.Event

	// AppFilter limits the stream to one application when set.
	AppFilter *uuid.UUID
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, appFilter *uuid.UUID) *WebSocketClient {
	return &WebSocketClient{
		ID:        uuid.NewString(),
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.Event, sendBuffer),
		AppFilter: appFilter,
	}
}

func (c *WebSocketClient) GetClientID() string                  { return c.ID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

func (c *WebSocketClient) Wants(ev models.Event) bool {
	return c.AppFilter == nil || *c.AppFilter == ev.ApplicationID
}

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which makes writePump send a close frame and exit.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only services control frames; dashboard clients do not send data.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: Event client %s read error: %v", c.ID, err)
			}
			return
		}
	}
}

// writePump writes queued events as JSON text frames and keeps the connection alive.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ERROR: Failed to encode event for client %s: %v", c.ID, err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
