// Package feedback implements the feedback lifecycle: submission, triage
// updates with derived audit timestamps, deletion, and the paginated
// dashboard listing.
package feedback

import (
	"context"
	"time"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/config"
	"feedbackhub/backend/internal/events"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage"

	"github.com/google/uuid"
)

type Service struct {
	Storage storage.Storage
	Events  events.Publisher
	Now     func() time.Time
}

// NewService creates a feedback service. pub may be nil.
func NewService(s storage.Storage, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Discard
	}
	return &Service{Storage: s, Events: pub, Now: time.Now}
}

// clock truncates to the storage precision so returned and persisted
// timestamps compare equal.
func (s *Service) clock() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}

var errNotFound = apperr.NotFound("Feedback not found")

var errForeignCategory = apperr.InvalidReference("Category does not belong to this application")

// Create stores a new submission for appID with status new and the default priority.
func (s *Service) Create(ctx context.Context, p auth.Principal, appID uuid.UUID, in CreateInput) (*models.Feedback, error) {
	if !p.CanAccess(appID) {
		return nil, apperr.Forbidden("Access to this application is not allowed")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.Storage.GetApplication(ctx, appID); err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, appID, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	fb := &models.Feedback{
		ApplicationID: appID,
		UserID:        in.UserID,
		CategoryID:    in.CategoryID,
		Title:         in.Title,
		Content:       in.Content,
		Rating:        in.Rating,
		Status:        models.StatusNew,
		Priority:      models.Priority(config.DefaultPriority),
		PageURL:       in.PageURL,
		BrowserInfo:   in.BrowserInfo,
		AppVersion:    in.AppVersion,
		Metadata:      in.Metadata,
		ContactEmail:  in.ContactEmail,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	if err := s.Storage.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventFeedbackCreated, fb, "")
	return fb, nil
}

func (s *Service) checkCategory(ctx context.Context, appID uuid.UUID, categoryID uint) error {
	c, err := s.Storage.GetCategory(ctx, categoryID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return errForeignCategory
	}
	if err != nil {
		return err
	}
	if c.ApplicationID != appID {
		return errForeignCategory
	}
	return nil
}

// Get returns the item if the principal's tenant owns it. Items of other
// tenants are reported as not found.
func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Feedback, error) {
	fb, err := s.Storage.GetFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(fb.ApplicationID) {
		return nil, errNotFound
	}
	return fb, nil
}

// PublicStatus is the reduced view a submitting application may poll.
func (s *Service) PublicStatus(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.PublicStatus, error) {
	fb, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return &models.PublicStatus{
		ID:        fb.ID,
		Status:    fb.Status,
		Priority:  fb.Priority,
		CreatedAt: fb.CreatedAt,
	}, nil
}

// List returns one page, newest first. An application principal only ever
// sees its own feedback; asking for another tenant is forbidden.
func (s *Service) List(ctx context.Context, p auth.Principal, q Query) (*Page, error) {
	if !p.IsOperator() {
		if q.ApplicationID != nil && *q.ApplicationID != p.ApplicationID {
			return nil, apperr.Forbidden("Access to this application is not allowed")
		}
		own := p.ApplicationID
		q.ApplicationID = &own
	}
	q.Page, q.Limit = NormalizePage(q.Page, q.Limit)

	items, total, err := s.Storage.ListFeedback(ctx, storage.FeedbackFilter{
		ApplicationID: q.ApplicationID,
		Status:        q.Status,
		Priority:      q.Priority,
		CategoryID:    q.CategoryID,
		Offset:        q.Offset(),
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Feedback{}
	}
	return &Page{Feedback: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Update applies a triage change under the row lock. Concurrent updates are
// serialized; a stale Version is rejected with a Conflict.
func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*models.Feedback, error) {
	if !p.IsOperator() {
		return nil, apperr.Forbidden("Operator access required")
	}
	change, err := in.parse()
	if err != nil {
		return nil, err
	}

	var target *models.Category
	if in.CategoryID.Value != nil {
		target, err = s.Storage.GetCategory(ctx, *in.CategoryID.Value)
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, errForeignCategory
		}
		if err != nil {
			return nil, err
		}
	}

	var previous models.Status
	fb, err := s.Storage.UpdateFeedback(ctx, id, func(fb *models.Feedback) error {
		if in.Version != nil && *in.Version != fb.Version {
			return apperr.Conflict("Feedback was modified by someone else; reload and try again")
		}
		if target != nil && target.ApplicationID != fb.ApplicationID {
			return errForeignCategory
		}

		now := s.clock()
		previous = fb.Status
		if change.status != nil {
			fb.ApplyStatus(*change.status, now)
		}
		if change.priority != nil {
			fb.Priority = *change.priority
		}
		if in.CategoryID.Set {
			fb.CategoryID = in.CategoryID.Value
		}
		fb.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventFeedbackUpdated, fb, previous)
	return fb, nil
}

// Delete removes the item together with its comments.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.IsOperator() {
		return apperr.Forbidden("Operator access required")
	}
	fb, err := s.Storage.GetFeedback(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Storage.DeleteFeedback(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, models.EventFeedbackDeleted, fb, "")
	return nil
}

func (s *Service) publish(ctx context.Context, typ models.EventType, fb *models.Feedback, previous models.Status) {
	s.Events.Publish(ctx, models.Event{
		Type:           typ,
		ApplicationID:  fb.ApplicationID,
		FeedbackID:     fb.ID,
		Status:         fb.Status,
		PreviousStatus: previous,
		Priority:       fb.Priority,
		OccurredAt:     s.clock(),
	})
}
