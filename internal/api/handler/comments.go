package handler

import (
	"net/http"

	"feedbackhub/backend/internal/comment"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListComments(c *gin.Context) {
	fbID, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	comments, err := h.Comments.List(c.Request.Context(), principalFrom(c), fbID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *Handler) CreateComment(c *gin.Context) {
	fbID, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	var in comment.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	created, err := h.Comments.Create(c.Request.Context(), principalFrom(c), fbID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateComment(c *gin.Context) {
	fbID, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	commentID, ok := pathUUID(c, "commentId", "comment")
	if !ok {
		return
	}
	var in comment.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	updated, err := h.Comments.Update(c.Request.Context(), principalFrom(c), fbID, commentID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Comment updated successfully", gin.H{"comment": updated})
}

func (h *Handler) DeleteComment(c *gin.Context) {
	fbID, ok := pathUUID(c, "id", "feedback")
	if !ok {
		return
	}
	commentID, ok := pathUUID(c, "commentId", "comment")
	if !ok {
		return
	}
	if err := h.Comments.Delete(c.Request.Context(), principalFrom(c), fbID, commentID); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Comment deleted successfully", nil)
}
