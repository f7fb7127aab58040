// Package category manages the per-application taxonomy used to classify feedback.
package category

import (
	"context"
	"regexp"
	"strings"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/config"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage"

	"github.com/google/uuid"
)

const (
	maxNameLen = 100
	maxIconLen = 50
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Service struct {
	Storage storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

type CreateInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// List returns the application's categories ordered by name.
func (s *Service) List(ctx context.Context, p auth.Principal, appID uuid.UUID) ([]models.Category, error) {
	if !p.CanAccess(appID) {
		return nil, apperr.Forbidden("Access to this application is not allowed")
	}
	if _, err := s.Storage.GetApplication(ctx, appID); err != nil {
		return nil, err
	}
	categories, err := s.Storage.ListCategories(ctx, appID)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// Create adds a category. Without a color the next palette entry is used, so
// consecutive categories get distinct colors.
func (s *Service) Create(ctx context.Context, p auth.Principal, appID uuid.UUID, in CreateInput) (*models.Category, error) {
	if !p.IsOperator() {
		return nil, apperr.Forbidden("Operator access required")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if len(name) > maxNameLen {
		return nil, apperr.Validation("Name must be at most %d characters", maxNameLen)
	}
	color := strings.TrimSpace(in.Color)
	if color != "" && !colorPattern.MatchString(color) {
		return nil, apperr.Validation("Color must be a hex value such as #3b82f6")
	}
	icon := strings.TrimSpace(in.Icon)
	if len(icon) > maxIconLen {
		return nil, apperr.Validation("Icon must be at most %d characters", maxIconLen)
	}
	if icon == "" {
		icon = config.DefaultCategoryIcon
	}

	if _, err := s.Storage.GetApplication(ctx, appID); err != nil {
		return nil, err
	}
	if color == "" {
		count, err := s.Storage.CountCategories(ctx, appID)
		if err != nil {
			return nil, err
		}
		color = config.CategoryPalette[int(count)%len(config.CategoryPalette)]
	}

	c := &models.Category{
		ApplicationID: appID,
		Name:          name,
		Color:         color,
		Icon:          icon,
	}
	if err := s.Storage.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
