package handler

import (
	"net/http"

	"feedbackhub/backend/internal/category"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) ListCategories(c *gin.Context) {
	appID, ok := pathUUID(c, "id", "application")
	if !ok {
		return
	}
	h.listCategories(c, appID)
}

func (h *Handler) listCategories(c *gin.Context, appID uuid.UUID) {
	categories, err := h.Categories.List(c.Request.Context(), principalFrom(c), appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	appID, ok := pathUUID(c, "id", "application")
	if !ok {
		return
	}
	var in category.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	created, err := h.Categories.Create(c.Request.Context(), principalFrom(c), appID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
