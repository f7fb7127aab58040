package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedbackFilter selects feedback for the dashboard list. Nil fields are not
// filtered on; set fields are combined with AND.
type FeedbackFilter struct {
	ApplicationID *uuid.UUID
	Status        *models.Status
	Priority      *models.Priority
	CategoryID    *uint
	Offset        int
	Limit         int
}

// Storage is the persistence contract used by the domain services. Every
// method returns *apperr.Error values; mutate and check callbacks run inside
// the write transaction while the row is locked, and their errors abort it.
type Storage interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	ListApplications(ctx context.Context) ([]models.Application, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	UpdateApplication(ctx context.Context, id uuid.UUID, mutate func(app *models.Application, feedbackCount int64) error) (*models.Application, error)
	RotateAPIKey(ctx context.Context, id uuid.UUID, keyHash, keyPrefix string) (*models.Application, error)
	DeleteApplication(ctx context.Context, id uuid.UUID, cascade bool) error
	FindApplicationByKeyHash(ctx context.Context, keyHash string) (*models.Application, error)

	ListCategories(ctx context.Context, appID uuid.UUID) ([]models.Category, error)
	CountCategories(ctx context.Context, appID uuid.UUID) (int64, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id uint) (*models.Category, error)

	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter FeedbackFilter) ([]models.Feedback, int64, error)
	UpdateFeedback(ctx context.Context, id uuid.UUID, mutate func(fb *models.Feedback) error) (*models.Feedback, error)
	DeleteFeedback(ctx context.Context, id uuid.UUID) error

	ListComments(ctx context.Context, feedbackID uuid.UUID, includeInternal bool) ([]models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	UpdateComment(ctx context.Context, feedbackID, commentID uuid.UUID, mutate func(c *models.Comment) error) (*models.Comment, error)
	DeleteComment(ctx context.Context, feedbackID, commentID uuid.UUID, check func(c *models.Comment) error) error
}

// Service implements Storage on PostgreSQL through gorm, with an optional
// Redis cache in front of API key lookups.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	keys  *keyCache
}

// NewStorageService Constructor. rdb may be nil. The gorm.DB should be opened
// with TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
func NewStorageService(db *gorm.DB, rdb *redis.Client, opts ...Option) *Service {
	s := &Service{
		DB:    db,
		Redis: rdb,
		keys:  newKeyCache(rdb, defaultKeyCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Storage = (*Service)(nil)

// Migrate creates or updates the schema.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.Application{},
		&models.Category{},
		&models.Feedback{},
		&models.Comment{},
	)
}

var conflictMessages = map[string]string{
	"Application": "Application with this slug already exists",
	"Category":    "Category with this name already exists for this application",
}

// translate classifies a gorm error. Errors that are already classified (for
// example, returned from a mutate callback) pass through unchanged.
func translate(err error, entity, action string) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if msg, ok := conflictMessages[entity]; ok {
			return apperr.Conflict(msg)
		}
		return apperr.Conflict(entity + " already exists")
	case errors.Is(err, context.Canceled):
		return apperr.Internal(action, err)
	default:
		log.Printf("ERROR: Failed to %s: %v", action, err)
		return apperr.Internal(action, err)
	}
}

// withReadRetry runs an idempotent read, retrying once on a broken connection.
// Writes are never retried.
func withReadRetry(ctx context.Context, read func() error) error {
	err := read()
	if err != nil && isTransient(err) && ctx.Err() == nil {
		log.Printf("WARNING: Retrying read after transient error: %v", err)
		err = read()
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF)
}

var readSnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
