// Package tenancy manages applications, their API keys, and the mapping from a
// presented key back to its tenant.
package tenancy

import (
	"context"
	"log"
	"strings"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Service handles the business logic for applications and API keys.
type Service struct {
	Storage storage.Storage
}

// NewService creates a new tenancy service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

type CreateInput struct {
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Description    string   `json:"description"`
	WebhookURL     string   `json:"webhook_url"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// UpdateInput is a partial update; nil fields are left unchanged. An empty
// WebhookURL clears the webhook.
type UpdateInput struct {
	Name           *string   `json:"name"`
	Slug           *string   `json:"slug"`
	Description    *string   `json:"description"`
	IsActive       *bool     `json:"is_active"`
	WebhookURL     *string   `json:"webhook_url"`
	AllowedOrigins *[]string `json:"allowed_origins"`
}

func requireOperator(p auth.Principal) error {
	if !p.IsOperator() {
		return apperr.Forbidden("Operator access required")
	}
	return nil
}

// CreateApplication registers a tenant and issues its first key. The returned
// application carries the plaintext key in APIKey; it is never available again.
func (s *Service) CreateApplication(ctx context.Context, p auth.Principal, in CreateInput) (*models.Application, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	slug, err := validateSlug(in.Slug)
	if err != nil {
		return nil, err
	}
	webhook, err := validateWebhookURL(in.WebhookURL)
	if err != nil {
		return nil, err
	}
	origins, err := normalizeOrigins(in.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	key, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		return nil, apperr.Internal("create application", err)
	}

	app := &models.Application{
		Name:           name,
		Slug:           slug,
		Description:    strings.TrimSpace(in.Description),
		APIKeyHash:     hash,
		APIKeyPrefix:   prefix,
		IsActive:       true,
		WebhookURL:     webhook,
		AllowedOrigins: pq.StringArray(origins),
	}
	if err := s.Storage.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	log.Printf("INFO: Application %s (%s) created with key %s...", app.ID, app.Slug, prefix)
	app.APIKey = key
	return app, nil
}

// ListApplications returns every tenant to operators and only its own
// application to an API-key principal.
func (s *Service) ListApplications(ctx context.Context, p auth.Principal) ([]models.Application, error) {
	if !p.IsOperator() {
		app, err := s.Storage.GetApplication(ctx, p.ApplicationID)
		if err != nil {
			return nil, err
		}
		return []models.Application{*app}, nil
	}
	return s.Storage.ListApplications(ctx)
}

func (s *Service) GetApplication(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Application, error) {
	if !p.CanAccess(id) {
		return nil, apperr.Forbidden("Access to this application is not allowed")
	}
	return s.Storage.GetApplication(ctx, id)
}

// UpdateApplication applies a partial update. The slug may only change while
// no feedback references the application.
func (s *Service) UpdateApplication(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*models.Application, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}

	var (
		name, slug string
		webhook    *string
		origins    []string
		err        error
	)
	if in.Name != nil {
		if name, err = validateName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Slug != nil {
		if slug, err = validateSlug(*in.Slug); err != nil {
			return nil, err
		}
	}
	if in.WebhookURL != nil {
		if webhook, err = validateWebhookURL(*in.WebhookURL); err != nil {
			return nil, err
		}
	}
	if in.AllowedOrigins != nil {
		if origins, err = normalizeOrigins(*in.AllowedOrigins); err != nil {
			return nil, err
		}
	}

	return s.Storage.UpdateApplication(ctx, id, func(app *models.Application, feedbackCount int64) error {
		if in.Slug != nil && slug != app.Slug {
			if feedbackCount > 0 {
				return apperr.Conflict("Slug cannot change once feedback references the application")
			}
			app.Slug = slug
		}
		if in.Name != nil {
			app.Name = name
		}
		if in.Description != nil {
			app.Description = strings.TrimSpace(*in.Description)
		}
		if in.IsActive != nil {
			app.IsActive = *in.IsActive
		}
		if in.WebhookURL != nil {
			app.WebhookURL = webhook
		}
		if in.AllowedOrigins != nil {
			app.AllowedOrigins = pq.StringArray(origins)
		}
		return nil
	})
}

// RegenerateAPIKey swaps the key atomically; the old key stops authenticating
// before the new one is returned.
func (s *Service) RegenerateAPIKey(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Application, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	key, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		return nil, apperr.Internal("regenerate API key", err)
	}
	app, err := s.Storage.RotateAPIKey(ctx, id, hash, prefix)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: API key for application %s rotated, new key %s...", app.ID, prefix)
	app.APIKey = key
	return app, nil
}

// DeleteApplication refuses while feedback exists unless confirm is set.
func (s *Service) DeleteApplication(ctx context.Context, p auth.Principal, id uuid.UUID, confirm bool) error {
	if err := requireOperator(p); err != nil {
		return err
	}
	if err := s.Storage.DeleteApplication(ctx, id, confirm); err != nil {
		return err
	}
	log.Printf("INFO: Application %s deleted (confirmed=%t)", id, confirm)
	return nil
}

// Authenticate resolves a presented API key to its active application. Every
// failure, including an inactive application, is an InvalidCredential.
func (s *Service) Authenticate(ctx context.Context, presented string) (*models.Application, error) {
	if !LooksLikeAPIKey(presented) {
		return nil, apperr.InvalidCredential("Invalid API key")
	}
	hash := HashAPIKey(presented)
	app, err := s.Storage.FindApplicationByKeyHash(ctx, hash)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidCredential("Invalid API key")
		}
		return nil, err
	}
	if !hashesEqual(app.APIKeyHash, hash) || !app.IsActive {
		return nil, apperr.InvalidCredential("Invalid API key")
	}
	return app, nil
}
