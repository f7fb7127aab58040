package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Application is the tenant root. Every category and feedback item belongs to
// exactly one application.
type Application struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Slug        string    `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`

	// APIKeyHash is the hex SHA-256 of the current key. The plaintext key is
	// never stored.
	APIKeyHash string `gorm:"type:char(64);not null;uniqueIndex" json:"-"`
	// APIKeyPrefix is the first characters of the key, for display only.
	APIKeyPrefix string `gorm:"type:text;not null" json:"api_key_prefix"`
	// APIKey carries the plaintext key in the create and regenerate responses only.
	APIKey string `gorm:"-" json:"api_key,omitempty"`

	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	WebhookURL     *string        `gorm:"type:text" json:"webhook_url,omitempty"`
	AllowedOrigins pq.StringArray `gorm:"type:text[]" json:"allowed_origins"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Categories []Category `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Feedback   []Feedback `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Application) TableName() string { return "applications" }

// BeforeCreate assigns a random UUID when none is set.
func (a *Application) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AllowsOrigin reports whether a browser origin may submit feedback. An empty
// allow-list accepts every origin.
func (a *Application) AllowsOrigin(origin string) bool {
	if len(a.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, o := range a.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Category is an application-scoped label for classifying feedback.
type Category struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_category_app_name" json:"application_id"`
	Name          string    `gorm:"type:text;not null;uniqueIndex:idx_category_app_name" json:"name"`
	Color         string    `gorm:"type:text;not null" json:"color"`
	Icon          string    `gorm:"type:text;not null;default:''" json:"icon"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Category) TableName() string { return "categories" }
