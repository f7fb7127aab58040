// Package storagetest provides an in-memory storage.Storage for tests. It
// enforces the same uniqueness, ownership and cascade rules as the gorm
// implementation, and serializes writes with a single mutex.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage"

	"github.com/google/uuid"
)

type Memory struct {
	mu         sync.Mutex
	apps       map[uuid.UUID]models.Application
	categories map[uint]models.Category
	feedback   map[uuid.UUID]models.Feedback
	comments   map[uuid.UUID]models.Comment
	nextCatID  uint

	// Now stamps created_at/updated_at when the caller left them zero.
	Now func() time.Time
}

var _ storage.Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		apps:       make(map[uuid.UUID]models.Application),
		categories: make(map[uint]models.Category),
		feedback:   make(map[uuid.UUID]models.Feedback),
		comments:   make(map[uuid.UUID]models.Comment),
		Now:        time.Now,
	}
}

func (m *Memory) stamp(created, updated *time.Time) {
	now := m.Now()
	if created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = *created
	}
}

func (m *Memory) CreateApplication(_ context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.apps {
		if other.Slug == app.Slug {
			return apperr.Conflict("Application with this slug already exists")
		}
		if other.APIKeyHash == app.APIKeyHash {
			return apperr.Conflict("Application already exists")
		}
	}
	_ = app.BeforeCreate(nil)
	m.stamp(&app.CreatedAt, &app.UpdatedAt)
	stored := *app
	stored.APIKey = ""
	m.apps[app.ID] = stored
	return nil
}

func (m *Memory) ListApplications(context.Context) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apps := make([]models.Application, 0, len(m.apps))
	for _, a := range m.apps {
		apps = append(apps, a)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps, nil
}

func (m *Memory) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, apperr.NotFound("Application not found")
	}
	return &app, nil
}

func (m *Memory) countFeedback(appID uuid.UUID) int64 {
	var n int64
	for _, f := range m.feedback {
		if f.ApplicationID == appID {
			n++
		}
	}
	return n
}

func (m *Memory) UpdateApplication(_ context.Context, id uuid.UUID, mutate func(*models.Application, int64) error) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, apperr.NotFound("Application not found")
	}
	app.AllowedOrigins = append(app.AllowedOrigins[:0:0], app.AllowedOrigins...)
	if err := mutate(&app, m.countFeedback(id)); err != nil {
		return nil, err
	}
	for otherID, other := range m.apps {
		if otherID != id && other.Slug == app.Slug {
			return nil, apperr.Conflict("Application with this slug already exists")
		}
	}
	app.UpdatedAt = m.Now()
	m.apps[id] = app
	return &app, nil
}

func (m *Memory) RotateAPIKey(_ context.Context, id uuid.UUID, keyHash, keyPrefix string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, apperr.NotFound("Application not found")
	}
	app.APIKeyHash = keyHash
	app.APIKeyPrefix = keyPrefix
	app.UpdatedAt = m.Now()
	m.apps[id] = app
	return &app, nil
}

func (m *Memory) DeleteApplication(_ context.Context, id uuid.UUID, cascade bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[id]; !ok {
		return apperr.NotFound("Application not found")
	}
	if m.countFeedback(id) > 0 && !cascade {
		return apperr.Conflict("Application has feedback; confirm the delete to remove it with all its feedback")
	}
	for fid, f := range m.feedback {
		if f.ApplicationID == id {
			m.deleteFeedbackLocked(fid)
		}
	}
	for cid, c := range m.categories {
		if c.ApplicationID == id {
			delete(m.categories, cid)
		}
	}
	delete(m.apps, id)
	return nil
}

func (m *Memory) FindApplicationByKeyHash(_ context.Context, keyHash string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.apps {
		if app.APIKeyHash == keyHash {
			return &app, nil
		}
	}
	return nil, apperr.NotFound("Application not found")
}

func (m *Memory) ListCategories(_ context.Context, appID uuid.UUID) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.categories {
		if c.ApplicationID == appID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CountCategories(ctx context.Context, appID uuid.UUID) (int64, error) {
	cats, _ := m.ListCategories(ctx, appID)
	return int64(len(cats)), nil
}

func (m *Memory) CreateCategory(_ context.Context, category *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[category.ApplicationID]; !ok {
		return apperr.NotFound("Application not found")
	}
	for _, c := range m.categories {
		if c.ApplicationID == category.ApplicationID && c.Name == category.Name {
			return apperr.Conflict("Category with this name already exists for this application")
		}
	}
	m.nextCatID++
	category.ID = m.nextCatID
	m.stamp(&category.CreatedAt, nil)
	m.categories[category.ID] = *category
	return nil
}

func (m *Memory) GetCategory(_ context.Context, id uint) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, apperr.NotFound("Category not found")
	}
	return &c, nil
}

func (m *Memory) CreateFeedback(_ context.Context, fb *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[fb.ApplicationID]; !ok {
		return apperr.NotFound("Application not found")
	}
	if fb.CategoryID != nil {
		if _, ok := m.categories[*fb.CategoryID]; !ok {
			return apperr.InvalidReference("Category does not belong to this application")
		}
	}
	_ = fb.BeforeCreate(nil)
	m.stamp(&fb.CreatedAt, &fb.UpdatedAt)
	if fb.Version == 0 {
		fb.Version = 1
	}
	m.feedback[fb.ID] = *fb
	return nil
}

func (m *Memory) GetFeedback(_ context.Context, id uuid.UUID) (*models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb, ok := m.feedback[id]
	if !ok {
		return nil, apperr.NotFound("Feedback not found")
	}
	return &fb, nil
}

func (m *Memory) ListFeedback(_ context.Context, f storage.FeedbackFilter) ([]models.Feedback, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Feedback
	for _, fb := range m.feedback {
		if f.ApplicationID != nil && fb.ApplicationID != *f.ApplicationID {
			continue
		}
		if f.Status != nil && fb.Status != *f.Status {
			continue
		}
		if f.Priority != nil && fb.Priority != *f.Priority {
			continue
		}
		if f.CategoryID != nil && (fb.CategoryID == nil || *fb.CategoryID != *f.CategoryID) {
			continue
		}
		matched = append(matched, fb)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	total := int64(len(matched))
	start := min(max(f.Offset, 0), len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (m *Memory) UpdateFeedback(_ context.Context, id uuid.UUID, mutate func(*models.Feedback) error) (*models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb, ok := m.feedback[id]
	if !ok {
		return nil, apperr.NotFound("Feedback not found")
	}
	if err := mutate(&fb); err != nil {
		return nil, err
	}
	fb.Version++
	m.feedback[id] = fb
	return &fb, nil
}

func (m *Memory) DeleteFeedback(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feedback[id]; !ok {
		return apperr.NotFound("Feedback not found")
	}
	m.deleteFeedbackLocked(id)
	return nil
}

func (m *Memory) deleteFeedbackLocked(id uuid.UUID) {
	for cid, c := range m.comments {
		if c.FeedbackID == id {
			delete(m.comments, cid)
		}
	}
	delete(m.feedback, id)
}

func (m *Memory) ListComments(_ context.Context, feedbackID uuid.UUID, includeInternal bool) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.FeedbackID != feedbackID || (c.IsInternal && !includeInternal) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *Memory) CreateComment(_ context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feedback[comment.FeedbackID]; !ok {
		return apperr.NotFound("Feedback not found")
	}
	_ = comment.BeforeCreate(nil)
	m.stamp(&comment.CreatedAt, &comment.UpdatedAt)
	m.comments[comment.ID] = *comment
	return nil
}

func (m *Memory) UpdateComment(_ context.Context, feedbackID, commentID uuid.UUID, mutate func(*models.Comment) error) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.FeedbackID != feedbackID {
		return nil, apperr.NotFound("Comment not found")
	}
	if err := mutate(&c); err != nil {
		return nil, err
	}
	m.comments[commentID] = c
	return &c, nil
}

func (m *Memory) DeleteComment(_ context.Context, feedbackID, commentID uuid.UUID, check func(*models.Comment) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.FeedbackID != feedbackID {
		return apperr.NotFound("Comment not found")
	}
	if check != nil {
		if err := check(&c); err != nil {
			return err
		}
	}
	delete(m.comments, commentID)
	return nil
}

// CommentCount reports how many comments exist in total, for orphan checks.
func (m *Memory) CommentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.comments)
}
