package storage

import (
	"context"
	"errors"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(fb).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperr.InvalidReference("Category does not belong to this application")
	}
	return translate(err, "Feedback", "create feedback")
}

func (s *Service) GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	var fb models.Feedback
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).First(&fb, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err, "Feedback", "fetch feedback")
	}
	return &fb, nil
}

// ListFeedback returns one page, newest first, and the number of rows matching
// the filter. Both are read from the same snapshot.
func (s *Service) ListFeedback(ctx context.Context, filter FeedbackFilter) ([]models.Feedback, int64, error) {
	var (
		items []models.Feedback
		total int64
	)
	err := withReadRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := applyFeedbackFilter(tx.Model(&models.Feedback{}), filter).Count(&total).Error; err != nil {
				return err
			}
			items = nil
			return applyFeedbackFilter(tx, filter).
				Order("created_at DESC").
				Order("id DESC").
				Offset(filter.Offset).
				Limit(filter.Limit).
				Find(&items).Error
		}, readSnapshot)
	})
	if err != nil {
		return nil, 0, translate(err, "Feedback", "fetch feedback")
	}
	return items, total, nil
}

func applyFeedbackFilter(q *gorm.DB, f FeedbackFilter) *gorm.DB {
	if f.ApplicationID != nil {
		q = q.Where("application_id = ?", *f.ApplicationID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	return q
}

// UpdateFeedback applies mutate under SELECT ... FOR UPDATE, so concurrent
// updates of one item are serialized and each sees the previous result.
func (s *Service) UpdateFeedback(ctx context.Context, id uuid.UUID, mutate func(fb *models.Feedback) error) (*models.Feedback, error) {
	var fb models.Feedback
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&fb, "id = ?", id).Error; err != nil {
			return err
		}
		if err := mutate(&fb); err != nil {
			return err
		}
		fb.Version++
		return tx.Omit(clause.Associations).Save(&fb).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, apperr.InvalidReference("Category does not belong to this application")
	}
	if err != nil {
		return nil, translate(err, "Feedback", "update feedback")
	}
	return &fb, nil
}

// DeleteFeedback removes the item and its comments in one transaction.
func (s *Service) DeleteFeedback(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feedback_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Feedback{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "Feedback", "delete feedback")
}
