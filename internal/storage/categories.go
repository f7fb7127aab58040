package storage

import (
	"context"

	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
)

func (s *Service) ListCategories(ctx context.Context, appID uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Where("application_id = ?", appID).Order("name").Find(&categories).Error
	})
	if err != nil {
		return nil, translate(err, "Category", "fetch categories")
	}
	return categories, nil
}

func (s *Service) CountCategories(ctx context.Context, appID uuid.UUID) (int64, error) {
	var count int64
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Model(&models.Category{}).Where("application_id = ?", appID).Count(&count).Error
	})
	return count, translate(err, "Category", "count categories")
}

func (s *Service) CreateCategory(ctx context.Context, category *models.Category) error {
	err := s.DB.WithContext(ctx).Create(category).Error
	return translate(err, "Category", "create category")
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).First(&category, id).Error
	})
	if err != nil {
		return nil, translate(err, "Category", "fetch category")
	}
	return &category, nil
}
