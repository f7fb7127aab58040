package storage

import (
	"context"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateApplication inserts a new application. A duplicate slug yields a Conflict.
func (s *Service) CreateApplication(ctx context.Context, app *models.Application) error {
	err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(app).Error
	return translate(err, "Application", "create application")
}

// ListApplications returns all applications ordered by name.
func (s *Service) ListApplications(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Order("name").Find(&apps).Error
	})
	if err != nil {
		return nil, translate(err, "Application", "fetch applications")
	}
	return apps, nil
}

func (s *Service) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).First(&app, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err, "Application", "fetch application")
	}
	return &app, nil
}

// UpdateApplication locks the row, lets mutate change it and saves the result.
// mutate receives the number of feedback items referencing the application.
// If activation or the origin list changes, the cached key entry is revoked
// before commit so the next authentication sees the new state.
func (s *Service) UpdateApplication(ctx context.Context, id uuid.UUID, mutate func(app *models.Application, feedbackCount int64) error) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&app, "id = ?", id).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Feedback{}).Where("application_id = ?", id).Count(&count).Error; err != nil {
			return err
		}

		before := app
		if err := mutate(&app, count); err != nil {
			return err
		}
		if before.IsActive != app.IsActive || !sameStrings(before.AllowedOrigins, app.AllowedOrigins) {
			if err := s.keys.revoke(ctx, app.APIKeyHash); err != nil {
				return apperr.Internal("update application", err)
			}
		}
		return tx.Omit(clause.Associations).Save(&app).Error
	})
	if err != nil {
		return nil, translate(err, "Application", "update application")
	}
	return &app, nil
}

// RotateAPIKey atomically replaces the key hash. The old hash is tombstoned in
// the cache while the row lock is held, so after commit the old key can only
// be checked against the database, where it no longer exists.
func (s *Service) RotateAPIKey(ctx context.Context, id uuid.UUID, keyHash, keyPrefix string) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&app, "id = ?", id).Error; err != nil {
			return err
		}
		if err := s.keys.revoke(ctx, app.APIKeyHash); err != nil {
			return apperr.Internal("update API key", err)
		}
		app.APIKeyHash = keyHash
		app.APIKeyPrefix = keyPrefix
		return tx.Omit(clause.Associations).Save(&app).Error
	})
	if err != nil {
		return nil, translate(err, "Application", "update API key")
	}
	return &app, nil
}

// DeleteApplication removes an application. While feedback references it the
// delete is refused unless cascade is set, in which case comments, feedback
// and categories are removed in the same transaction.
func (s *Service) DeleteApplication(ctx context.Context, id uuid.UUID, cascade bool) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := forUpdate(tx).First(&app, "id = ?", id).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Feedback{}).Where("application_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 && !cascade {
			return apperr.Conflict("Application has feedback; confirm the delete to remove it with all its feedback")
		}

		if err := s.keys.revoke(ctx, app.APIKeyHash); err != nil {
			return apperr.Internal("delete application", err)
		}

		feedbackIDs := tx.Model(&models.Feedback{}).Select("id").Where("application_id = ?", id)
		if err := tx.Where("feedback_id IN (?)", feedbackIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", id).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", id).Delete(&models.Category{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Application{}, "id = ?", id).Error
	})
	return translate(err, "Application", "delete application")
}

// FindApplicationByKeyHash resolves an API key hash. Cache hits return a
// partial application carrying only the fields authentication needs.
func (s *Service) FindApplicationByKeyHash(ctx context.Context, keyHash string) (*models.Application, error) {
	if app, ok := s.keys.get(ctx, keyHash); ok {
		return app, nil
	}

	var app models.Application
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).First(&app, "api_key_hash = ?", keyHash).Error
	})
	if err != nil {
		return nil, translate(err, "Application", "fetch application")
	}
	s.keys.fill(ctx, &app)
	return &app, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
