package handler

import (
	"net/http"
	"strings"
	"sync"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/ratelimit"
)

const (
	principalKey   = "principal"
	applicationKey = "application"
	apiKeyHeader   = "X-API-Key"
)

func principalFrom(c *gin.Context) auth.Principal {
	if p, ok := c.Get(principalKey); ok {
		return p.(auth.Principal)
	}
	return auth.Principal{}
}

// credential finds the bearer credential. The query parameter is accepted
// for WebSocket and widget clients that cannot set headers.
func credential(c *gin.Context, queryParam string) string {
	if token, ok := auth.BearerToken(c.GetHeader("Authorization")); ok {
		return token
	}
	if key := strings.TrimSpace(c.GetHeader(apiKeyHeader)); key != "" {
		return key
	}
	if queryParam != "" {
		return strings.TrimSpace(c.Query(queryParam))
	}
	return ""
}

// RequireAuth accepts an operator session token or an application API key.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := credential(c, "")
		if token == "" {
			respondError(c, apperr.InvalidCredential("Authorization token missing"))
			return
		}

		if auth.LooksLikeJWT(token) {
			p, err := h.Tokens.Parse(token)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Set(principalKey, p)
			c.Next()
			return
		}

		app, err := h.Applications.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(principalKey, auth.ForApplication(app.ID))
		c.Set(applicationKey, app)
		c.Next()
	}
}

// RequireAPIKey authenticates ingestion requests and enforces the
// application's allowed origins for browser callers.
func (h *Handler) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := credential(c, "api_key")
		if key == "" {
			respondError(c, apperr.InvalidCredential("API key required"))
			return
		}
		app, err := h.Applications.Authenticate(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		if !app.AllowsOrigin(c.GetHeader("Origin")) {
			respondError(c, apperr.Forbidden("Origin not allowed for this application"))
			return
		}
		c.Set(principalKey, auth.ForApplication(app.ID))
		c.Set(applicationKey, app)
		c.Next()
	}
}

// RequireOperator rejects API-key principals.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principalFrom(c).IsOperator() {
			respondError(c, apperr.Forbidden("Operator access required"))
			return
		}
		c.Next()
	}
}

// throttle spaces out requests per application.
type throttle struct {
	rate     int
	mu       sync.Mutex
	limiters map[uuid.UUID]ratelimit.Limiter
}

func newThrottle(rate int) *throttle {
	return &throttle{rate: rate, limiters: make(map[uuid.UUID]ratelimit.Limiter)}
}

func (t *throttle) limiter(appID uuid.UUID) ratelimit.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[appID]
	if !ok {
		l = ratelimit.New(t.rate, ratelimit.WithSlack(t.rate))
		t.limiters[appID] = l
	}
	return l
}

// Throttle must run after RequireAPIKey.
func (h *Handler) Throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.throttle.rate <= 0 {
			c.Next()
			return
		}
		if app, ok := c.Get(applicationKey); ok {
			h.throttle.limiter(app.(*models.Application).ID).Take()
		}
		c.Next()
	}
}

// CORS answers preflight requests. Public ingestion routes reflect any
// origin (the API key's allowed origins are checked after authentication);
// dashboard routes only allow the configured origins.
func (h *Handler) CORS() gin.HandlerFunc {
	publicPrefix := h.opts.APIPrefix + "/public"
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			allowed := strings.HasPrefix(c.Request.URL.Path, publicPrefix) || originListed(h.opts.DashboardOrigins, origin)
			if allowed {
				header := c.Writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Add("Vary", "Origin")
				header.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
				header.Set("Access-Control-Max-Age", "600")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originListed(list []string, origin string) bool {
	for _, o := range list {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
