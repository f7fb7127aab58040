package handler

import (
	"log"
	"net/http"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ServeEvents upgrades an operator connection to a live stream of lifecycle
// events. Browsers cannot set headers on WebSocket requests, so the token may
// also come from ?access_token.
func (h *Handler) ServeEvents(c *gin.Context) {
	if h.Hub == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Live events are not enabled"})
		return
	}

	token := credential(c, "access_token")
	if token == "" || !auth.LooksLikeJWT(token) {
		respondError(c, apperr.InvalidCredential("Authorization token missing"))
		return
	}
	p, err := h.Tokens.Parse(token)
	if err != nil {
		respondError(c, err)
		return
	}

	var filter *uuid.UUID
	if raw := c.Query("app_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid app_id")
			return
		}
		filter = &id
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkEventsOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}

	client := events.NewWebSocketClient(h.Hub, conn, filter)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	log.Printf("INFO: Operator %s subscribed to events as client %s", p.OperatorID, client.ID)
	client.Run()
}

// checkEventsOrigin allows non-browser clients and the configured dashboards.
func (h *Handler) checkEventsOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || len(h.opts.DashboardOrigins) == 0 || originListed(h.opts.DashboardOrigins, origin)
}
