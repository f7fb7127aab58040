// Package comment manages discussion threads on feedback items. Internal
// comments are visible to operators only.
package comment

import (
	"context"
	"strings"
	"time"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/events"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage"

	"github.com/google/uuid"
)

const maxContentLen = 10000

type Service struct {
	Storage storage.Storage
	Events  events.Publisher
	Now     func() time.Time
}

// NewService creates a comment service. pub may be nil.
func NewService(s storage.Storage, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Discard
	}
	return &Service{Storage: s, Events: pub, Now: time.Now}
}

type CreateInput struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

type UpdateInput struct {
	Content string `json:"content"`
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("Content is required")
	}
	if len(content) > maxContentLen {
		return "", apperr.Validation("Content must be at most %d characters", maxContentLen)
	}
	return content, nil
}

// feedbackFor loads the parent item, hiding items of other tenants.
func (s *Service) feedbackFor(ctx context.Context, p auth.Principal, feedbackID uuid.UUID) (*models.Feedback, error) {
	fb, err := s.Storage.GetFeedback(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(fb.ApplicationID) {
		return nil, apperr.NotFound("Feedback not found")
	}
	return fb, nil
}

// List returns the thread oldest first. Internal comments are left out
// unless the principal is an operator.
func (s *Service) List(ctx context.Context, p auth.Principal, feedbackID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.feedbackFor(ctx, p, feedbackID); err != nil {
		return nil, err
	}
	comments, err := s.Storage.ListComments(ctx, feedbackID, p.SeesInternal())
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// Create appends an operator comment to the thread.
func (s *Service) Create(ctx context.Context, p auth.Principal, feedbackID uuid.UUID, in CreateInput) (*models.Comment, error) {
	if !p.IsOperator() {
		return nil, apperr.Forbidden("Operator access required")
	}
	content, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	fb, err := s.feedbackFor(ctx, p, feedbackID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	c := &models.Comment{
		FeedbackID: feedbackID,
		UserID:     p.OperatorID,
		Content:    content,
		IsInternal: in.IsInternal,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Storage.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventCommentCreated, fb, c)
	return c, nil
}

// canModify allows the author and admins.
func canModify(p auth.Principal, c *models.Comment) error {
	if c.UserID != p.OperatorID && !p.IsAdmin() {
		return apperr.Forbidden("You can only modify your own comments")
	}
	return nil
}

// Update replaces the content. Visibility and parent never change.
func (s *Service) Update(ctx context.Context, p auth.Principal, feedbackID, commentID uuid.UUID, in UpdateInput) (*models.Comment, error) {
	if !p.IsOperator() {
		return nil, apperr.Forbidden("Operator access required")
	}
	content, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.feedbackFor(ctx, p, feedbackID); err != nil {
		return nil, err
	}
	return s.Storage.UpdateComment(ctx, feedbackID, commentID, func(c *models.Comment) error {
		if err := canModify(p, c); err != nil {
			return err
		}
		c.Content = content
		c.UpdatedAt = s.clock()
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, feedbackID, commentID uuid.UUID) error {
	if !p.IsOperator() {
		return apperr.Forbidden("Operator access required")
	}
	fb, err := s.feedbackFor(ctx, p, feedbackID)
	if err != nil {
		return err
	}
	var deleted models.Comment
	err = s.Storage.DeleteComment(ctx, feedbackID, commentID, func(c *models.Comment) error {
		deleted = *c
		return canModify(p, c)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.EventCommentDeleted, fb, &deleted)
	return nil
}

func (s *Service) clock() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}

func (s *Service) publish(ctx context.Context, typ models.EventType, fb *models.Feedback, c *models.Comment) {
	id := c.ID
	s.Events.Publish(ctx, models.Event{
		Type:          typ,
		ApplicationID: fb.ApplicationID,
		FeedbackID:    fb.ID,
		CommentID:     &id,
		Status:        fb.Status,
		Internal:      c.IsInternal,
		OccurredAt:    s.clock(),
	})
}
