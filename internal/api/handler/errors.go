package handler

import (
	"log"
	"net/http"

	"feedbackhub/backend/internal/apperr"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// respondError writes the {error} body for err. Internal failures are
// reported to Sentry and answered with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		sentry.CaptureException(err)
	}
	c.AbortWithStatusJSON(kind.Status(), gin.H{"error": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func respondMessage(c *gin.Context, msg string, extra gin.H) {
	body := gin.H{"message": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
