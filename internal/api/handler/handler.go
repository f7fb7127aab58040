package handler

import (
	"context"
	"strings"

	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/category"
	"feedbackhub/backend/internal/comment"
	"feedbackhub/backend/internal/events"
	"feedbackhub/backend/internal/feedback"
	"feedbackhub/backend/internal/storage"
	"feedbackhub/backend/internal/tenancy"
)

// Options tune the HTTP layer; the zero value is usable.
type Options struct {
	APIPrefix        string
	DashboardOrigins []string
	// IngestRatePerSecond throttles public submissions per application. Zero disables it.
	IngestRatePerSecond int
	Version             string
	// Ping reports backing-store health for GET /health.
	Ping func(ctx context.Context) error
}

// Handler містить сервіси, які обслуговують HTTP-запити
type Handler struct {
	Applications *tenancy.Service
	Categories   *category.Service
	Feedback     *feedback.Service
	Comments     *comment.Service
	Tokens       *auth.TokenManager
	Hub          *events.Hub

	opts     Options
	throttle *throttle
}

// NewHandler wires the domain services on top of s. hub may be nil, in which
// case lifecycle events are dropped and /events is unavailable.
func NewHandler(s storage.Storage, hub *events.Hub, tokens *auth.TokenManager, opts Options) *Handler {
	var pub events.Publisher = events.Discard
	if hub != nil {
		pub = hub
	}
	opts.APIPrefix = strings.TrimRight(opts.APIPrefix, "/")
	return &Handler{
		Applications: tenancy.NewService(s),
		Categories:   category.NewService(s),
		Feedback:     feedback.NewService(s, pub),
		Comments:     comment.NewService(s, pub),
		Tokens:       tokens,
		Hub:          hub,
		opts:         opts,
		throttle:     newThrottle(opts.IngestRatePerSecond),
	}
}
