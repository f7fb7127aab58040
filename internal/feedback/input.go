package feedback

import (
	"encoding/json"
	"strings"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/models"
)

const (
	maxTitleLen   = 255
	maxContentLen = 10000
	maxEmailLen   = 320
)

// CreateInput is a submission from an end user's widget.
type CreateInput struct {
	UserID       *string        `json:"user_id"`
	CategoryID   *uint          `json:"category_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Rating       *int           `json:"rating"`
	PageURL      string         `json:"page_url"`
	BrowserInfo  models.JSONMap `json:"browser_info"`
	AppVersion   string         `json:"app_version"`
	Metadata     models.JSONMap `json:"metadata"`
	ContactEmail string         `json:"contact_email"`
}

func (in *CreateInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if strings.TrimSpace(in.Content) == "" {
		return apperr.Validation("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return apperr.Validation("Content must be at most %d characters", maxContentLen)
	}
	if len(in.Title) > maxTitleLen {
		return apperr.Validation("Title must be at most %d characters", maxTitleLen)
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return apperr.Validation("Rating must be between 1 and 5")
	}
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	if in.ContactEmail != "" && (!strings.Contains(in.ContactEmail, "@") || len(in.ContactEmail) > maxEmailLen) {
		return apperr.Validation("Invalid contact email")
	}
	if in.UserID != nil {
		if id := strings.TrimSpace(*in.UserID); id == "" {
			in.UserID = nil
		} else {
			in.UserID = &id
		}
	}
	return nil
}

// NullableUint tells an absent JSON field apart from an explicit null.
type NullableUint struct {
	Set   bool
	Value *uint
}

func (n *NullableUint) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// UpdateInput is the triage whitelist. A null category_id removes the
// category. When Version is set the update only applies to that version.
type UpdateInput struct {
	Status     *string      `json:"status"`
	Priority   *string      `json:"priority"`
	CategoryID NullableUint `json:"category_id"`
	Version    *int         `json:"version"`
}

type parsedUpdate struct {
	status   *models.Status
	priority *models.Priority
}

func (in UpdateInput) parse() (parsedUpdate, error) {
	var out parsedUpdate
	if in.Status == nil && in.Priority == nil && !in.CategoryID.Set {
		return out, apperr.Validation("No fields to update")
	}
	if in.Status != nil {
		st, ok := models.ParseStatus(*in.Status)
		if !ok {
			return out, apperr.Validation("Invalid status %q", *in.Status)
		}
		out.status = &st
	}
	if in.Priority != nil {
		pr, ok := models.ParsePriority(*in.Priority)
		if !ok {
			return out, apperr.Validation("Invalid priority %q", *in.Priority)
		}
		out.priority = &pr
	}
	if in.CategoryID.Value != nil && *in.CategoryID.Value == 0 {
		return out, apperr.Validation("Invalid category_id")
	}
	return out, nil
}
