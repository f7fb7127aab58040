package handler

import (
	"net/http"

	"feedbackhub/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// Me describes the caller behind the presented credential.
func (h *Handler) Me(c *gin.Context) {
	p := principalFrom(c)
	if p.Kind == auth.KindApplication {
		c.JSON(http.StatusOK, gin.H{"kind": "application", "application_id": p.ApplicationID})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":  "operator",
		"id":    p.OperatorID,
		"email": p.Email,
		"name":  p.Name,
		"role":  p.Role,
	})
}

// Health reports liveness and, when configured, database reachability.
func (h *Handler) Health(c *gin.Context) {
	if h.opts.Ping != nil {
		if err := h.opts.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "version": h.opts.Version})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.opts.Version})
}
