package storage

import (
	"context"
	"errors"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListComments returns a thread oldest first.
func (s *Service) ListComments(ctx context.Context, feedbackID uuid.UUID, includeInternal bool) ([]models.Comment, error) {
	var comments []models.Comment
	err := withReadRetry(ctx, func() error {
		q := s.DB.WithContext(ctx).Where("feedback_id = ?", feedbackID)
		if !includeInternal {
			q = q.Where("is_internal = ?", false)
		}
		return q.Order("created_at ASC").Order("id ASC").Find(&comments).Error
	})
	if err != nil {
		return nil, translate(err, "Comment", "fetch comments")
	}
	return comments, nil
}

func (s *Service) CreateComment(ctx context.Context, comment *models.Comment) error {
	err := s.DB.WithContext(ctx).Create(comment).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		// The feedback was deleted between the existence check and the insert.
		return apperr.NotFound("Feedback not found")
	}
	return translate(err, "Comment", "create comment")
}

func (s *Service) UpdateComment(ctx context.Context, feedbackID, commentID uuid.UUID, mutate func(c *models.Comment) error) (*models.Comment, error) {
	var comment models.Comment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&comment, "id = ? AND feedback_id = ?", commentID, feedbackID).Error; err != nil {
			return err
		}
		if err := mutate(&comment); err != nil {
			return err
		}
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, translate(err, "Comment", "update comment")
	}
	return &comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, feedbackID, commentID uuid.UUID, check func(c *models.Comment) error) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := forUpdate(tx).First(&comment, "id = ? AND feedback_id = ?", commentID, feedbackID).Error; err != nil {
			return err
		}
		if check != nil {
			if err := check(&comment); err != nil {
				return err
			}
		}
		return tx.Delete(&comment).Error
	})
	return translate(err, "Comment", "delete comment")
}
