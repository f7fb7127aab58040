package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFeedbackCreated EventType = "feedback.created"
	EventFeedbackUpdated EventType = "feedback.updated"
	EventFeedbackDeleted EventType = "feedback.deleted"
	EventCommentCreated  EventType = "comment.created"
	EventCommentDeleted  EventType = "comment.deleted"
)

// Event is a lifecycle notification fanned out to dashboard clients. It
// carries identifiers and status only, never feedback or comment content.
type Event struct {
	Type           EventType  `json:"type"`
	ApplicationID  uuid.UUID  `json:"application_id"`
	FeedbackID     uuid.UUID  `json:"feedback_id"`
	CommentID      *uuid.UUID `json:"comment_id,omitempty"`
	Status         Status     `json:"status,omitempty"`
	PreviousStatus Status     `json:"previous_status,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	Internal       bool       `json:"internal,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
