package feedback

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/config"
	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
)

// Query is a parsed list request. Nil filters match everything.
type Query struct {
	ApplicationID *uuid.UUID
	Status        *models.Status
	Priority      *models.Priority
	CategoryID    *uint
	Page          int
	Limit         int
}

// Offset of the first item on the page.
func (q Query) Offset() int { return (q.Page - 1) * q.Limit }

// Page is the list response body.
type Page struct {
	Feedback []models.Feedback `json:"feedback"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// NormalizePage applies the paging defaults: page below 1 becomes 1, limit
// below 1 becomes the default and limit above the maximum is clamped. Page is
// capped so the offset of its first item still fits in an int.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = config.DefaultPage
	}
	switch {
	case limit < 1:
		limit = config.DefaultLimit
	case limit > config.MaxLimit:
		limit = config.MaxLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// ParseQuery reads app_id, status, priority, category_id, page and limit.
// Empty parameters are ignored; malformed ones are a validation error.
func ParseQuery(values url.Values) (Query, error) {
	var q Query

	if raw := strings.TrimSpace(values.Get("app_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, apperr.Validation("Invalid app_id")
		}
		q.ApplicationID = &id
	}
	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		st, ok := models.ParseStatus(raw)
		if !ok {
			return q, apperr.Validation("Invalid status %q", raw)
		}
		q.Status = &st
	}
	if raw := strings.TrimSpace(values.Get("priority")); raw != "" {
		pr, ok := models.ParsePriority(raw)
		if !ok {
			return q, apperr.Validation("Invalid priority %q", raw)
		}
		q.Priority = &pr
	}
	if raw := strings.TrimSpace(values.Get("category_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return q, apperr.Validation("Invalid category_id")
		}
		cid := uint(id)
		q.CategoryID = &cid
	}

	page, err := intParam(values, "page")
	if err != nil {
		return q, err
	}
	limit, err := intParam(values, "limit")
	if err != nil {
		return q, err
	}
	q.Page, q.Limit = NormalizePage(page, limit)
	return q, nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}
