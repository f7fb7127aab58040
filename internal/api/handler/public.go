package handler

import (
	"net/http"

	"feedbackhub/backend/internal/feedback"

	"github.com/gin-gonic/gin"
)

// SubmitFeedback is the widget ingestion endpoint; the tenant comes from the API key.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var in feedback.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	p := principalFrom(c)
	fb, err := h.Feedback.Create(c.Request.Context(), p, p.ApplicationID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": fb.ID, "message": "Feedback submitted successfully"})
}

func (h *Handler) PublicFeedbackStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	status, err := h.Feedback.PublicStatus(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) PublicCategories(c *gin.Context) {
	h.listCategories(c, principalFrom(c).ApplicationID)
}
