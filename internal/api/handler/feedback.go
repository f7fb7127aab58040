package handler

import (
	"net/http"

	"feedbackhub/backend/internal/feedback"

	"github.com/gin-gonic/gin"
)

// ListFeedback serves GET /feedback?app_id=&status=&priority=&category_id=&page=&limit=.
func (h *Handler) ListFeedback(c *gin.Context) {
	q, err := feedback.ParseQuery(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.Feedback.List(c.Request.Context(), principalFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetFeedback(c *gin.Context) {
	id, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	fb, err := h.Feedback.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *Handler) UpdateFeedback(c *gin.Context) {
	id, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	var in feedback.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	fb, err := h.Feedback.Update(c.Request.Context(), principalFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Feedback updated successfully", gin.H{"feedback": fb})
}

func (h *Handler) DeleteFeedback(c *gin.Context) {
	id, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	if err := h.Feedback.Delete(c.Request.Context(), principalFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Feedback deleted successfully", nil)
}
