package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JSONMap is an opaque structured bag stored verbatim as jsonb.
type JSONMap = datatypes.JSONMap

// Feedback is a single piece of end-user input tied to one application.
type Feedback struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;index:idx_feedback_app_created,priority:1" json:"application_id"`
	// UserID identifies the external end user when the widget knows it.
	UserID     *string `gorm:"type:text" json:"user_id,omitempty"`
	CategoryID *uint   `gorm:"index" json:"category_id,omitempty"`

	Title        string   `gorm:"type:text;not null;default:''" json:"title"`
	Content      string   `gorm:"type:text;not null" json:"content"`
	Rating       *int     `gorm:"type:smallint" json:"rating,omitempty"`
	Status       Status   `gorm:"type:text;not null;default:'new';index" json:"status"`
	Priority     Priority `gorm:"type:text;not null;default:'medium';index" json:"priority"`
	PageURL      string   `gorm:"type:text;not null;default:''" json:"page_url"`
	BrowserInfo  JSONMap  `gorm:"type:jsonb" json:"browser_info,omitempty"`
	AppVersion   string   `gorm:"type:text;not null;default:''" json:"app_version"`
	Metadata     JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	ContactEmail string   `gorm:"type:text;not null;default:''" json:"contact_email"`

	CreatedAt  time.Time  `gorm:"index:idx_feedback_app_created,priority:2,sort:desc" json:"created_at"`
	// UpdatedAt is stamped by the service with the same clock as the
	// reviewed_at and resolved_at it sets alongside.
	UpdatedAt  time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Version increments on every update and backs conditional PATCHes.
	Version int `gorm:"not null;default:1" json:"version"`

	Category *Category `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Comments []Comment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Feedback) TableName() string { return "feedback" }

func (f *Feedback) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Comment is a threaded note on a feedback item. Internal comments are for
// operators only.
type Comment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FeedbackID uuid.UUID `gorm:"type:uuid;not null;index:idx_comment_thread,priority:1" json:"feedback_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsInternal bool      `gorm:"not null;default:false" json:"is_internal"`
	CreatedAt  time.Time `gorm:"index:idx_comment_thread,priority:2" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (Comment) TableName() string { return "feedback_comments" }

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// PublicStatus is what an API-key caller may learn about a submission.
type PublicStatus struct {
	ID        uuid.UUID `json:"id"`
	Status    Status    `json:"status"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
