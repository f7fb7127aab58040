package handler

import (
	"net/http"
	"strconv"

	"feedbackhub/backend/internal/tenancy"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListApplications(c *gin.Context) {
	apps, err := h.Applications.ListApplications(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// CreateApplication responds with the application including its plaintext
// api_key, the only time it is ever returned.
func (h *Handler) CreateApplication(c *gin.Context) {
	var in tenancy.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	app, err := h.Applications.CreateApplication(c.Request.Context(), principalFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) GetApplication(c *gin.Context) {
	id, ok := pathUUID(c, "id", "application")
	if !ok {
		return
	}
	app, err := h.Applications.GetApplication(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) UpdateApplication(c *gin.Context) {
	id, ok := pathUUID(c, "id", "application")
	if !ok {
		return
	}
	var in tenancy.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	app, err := h.Applications.UpdateApplication(c.Request.Context(), principalFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Application updated successfully", gin.H{"application": app})
}

// DeleteApplication needs ?confirm=true when the application still has feedback.
func (h *Handler) DeleteApplication(c *gin.Context) {
	id, ok := pathUUID(c, "id", "application")
	if !ok {
		return
	}
	confirm := false
	if raw := c.Query("confirm"); raw != "" {
		var err error
		if confirm, err = strconv.ParseBool(raw); err != nil {
			badRequest(c, "confirm must be true or false")
			return
		}
	}
	if err := h.Applications.DeleteApplication(c.Request.Context(), principalFrom(c), id, confirm); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Application deleted successfully", nil)
}

func (h *Handler) RegenerateAPIKey(c *gin.Context) {
	id, ok := pathUUID(c, "id", "application")
	if !ok {
		return
	}
	app, err := h.Applications.RegenerateAPIKey(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "API key regenerated successfully", gin.H{"api_key": app.APIKey})
}
