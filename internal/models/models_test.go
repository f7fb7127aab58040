package models_test

import (
	"reflect"
	"testing"
	"time"

	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBeforeCreate_GeneratesUUID verifies that the hooks populate a valid, unique ID.
func TestBeforeCreate_GeneratesUUID(t *testing.T) {
	app := &models.Application{Name: "Acme", Slug: "acme"}
	fb := &models.Feedback{Content: "broken button"}
	c := &models.Comment{Content: "looking"}

	require.NoError(t, app.BeforeCreate(nil))
	require.NoError(t, fb.BeforeCreate(nil))
	require.NoError(t, c.BeforeCreate(nil))

	assert.NotEqual(t, uuid.Nil, app.ID)
	assert.NotEqual(t, uuid.Nil, fb.ID)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.NotEqual(t, app.ID, fb.ID)
}

// TestBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestBeforeCreate_PreservesExistingID(t *testing.T) {
	existing := uuid.New()
	fb := &models.Feedback{ID: existing}

	require.NoError(t, fb.BeforeCreate(nil))
	assert.Equal(t, existing, fb.ID)
}

// TestStructTags guards the gorm and json tags the API contract relies on.
func TestStructTags(t *testing.T) {
	appType := reflect.TypeOf(models.Application{})

	hash, ok := appType.FieldByName("APIKeyHash")
	require.True(t, ok)
	assert.Equal(t, "-", hash.Tag.Get("json"), "key hash must never be serialized")
	assert.Contains(t, hash.Tag.Get("gorm"), "uniqueIndex")

	key, ok := appType.FieldByName("APIKey")
	require.True(t, ok)
	assert.Equal(t, "-", key.Tag.Get("gorm"), "plaintext key must never be persisted")
	assert.Contains(t, key.Tag.Get("json"), "omitempty")

	slug, _ := appType.FieldByName("Slug")
	assert.Contains(t, slug.Tag.Get("gorm"), "uniqueIndex")

	origins, _ := appType.FieldByName("AllowedOrigins")
	assert.Contains(t, origins.Tag.Get("gorm"), "type:text[]")

	fbType := reflect.TypeOf(models.Feedback{})
	appID, _ := fbType.FieldByName("ApplicationID")
	created, _ := fbType.FieldByName("CreatedAt")
	assert.Contains(t, appID.Tag.Get("gorm"), "idx_feedback_app_created")
	assert.Contains(t, created.Tag.Get("gorm"), "idx_feedback_app_created")

	// gorm must not overwrite updated_at on Save.
	for _, typ := range []reflect.Type{fbType, reflect.TypeOf(models.Comment{})} {
		updated, ok := typ.FieldByName("UpdatedAt")
		require.True(t, ok)
		assert.Contains(t, updated.Tag.Get("gorm"), "autoUpdateTime:false", typ.Name())
	}
}

func TestAllowsOrigin(t *testing.T) {
	open := &models.Application{}
	assert.True(t, open.AllowsOrigin("https://anything.example"))

	app := &models.Application{AllowedOrigins: pq.StringArray{"https://acme.example"}}
	assert.True(t, app.AllowsOrigin("https://acme.example"))
	assert.False(t, app.AllowsOrigin("https://evil.example"))
	assert.True(t, app.AllowsOrigin(""), "non-browser callers send no Origin")

	wildcard := &models.Application{AllowedOrigins: pq.StringArray{"*"}}
	assert.True(t, wildcard.AllowsOrigin("https://evil.example"))
}

func TestParseStatusAndPriority(t *testing.T) {
	for _, s := range []string{"new", "in_progress", "resolved", "closed"} {
		_, ok := models.ParseStatus(s)
		assert.True(t, ok, s)
	}
	_, ok := models.ParseStatus("under_review")
	assert.False(t, ok)

	p, ok := models.ParsePriority("urgent")
	assert.True(t, ok)
	assert.Equal(t, models.PriorityUrgent, p)
	_, ok = models.ParsePriority("URGENT")
	assert.False(t, ok)
}

func TestApplyStatus_ReviewedAtSetOnce(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	fb := &models.Feedback{Status: models.StatusNew}

	assert.True(t, fb.ApplyStatus(models.StatusInProgress, t0))
	require.NotNil(t, fb.ReviewedAt)
	assert.Equal(t, t0, *fb.ReviewedAt)

	fb.ApplyStatus(models.StatusNew, t0.Add(time.Hour))
	fb.ApplyStatus(models.StatusClosed, t0.Add(2*time.Hour))
	assert.Equal(t, t0, *fb.ReviewedAt, "reviewed_at is stamped only on the first move away from new")
	assert.Nil(t, fb.ResolvedAt)
}

func TestApplyStatus_ResolvedAtMonotonic(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	fb := &models.Feedback{Status: models.StatusNew}

	fb.ApplyStatus(models.StatusResolved, t0)
	require.NotNil(t, fb.ResolvedAt)
	require.NotNil(t, fb.ReviewedAt, "new -> resolved is also a move away from new")
	assert.Equal(t, t0, *fb.ResolvedAt)

	fb.ApplyStatus(models.StatusInProgress, t0.Add(time.Minute))
	require.NotNil(t, fb.ResolvedAt, "reopening keeps resolved_at")
	assert.Equal(t, models.StatusInProgress, fb.Status)

	fb.ApplyStatus(models.StatusResolved, t0.Add(2*time.Minute))
	assert.Equal(t, t0.Add(2*time.Minute), *fb.ResolvedAt)

	// A clock running behind must not move resolved_at backwards.
	fb.ApplyStatus(models.StatusClosed, t0.Add(3*time.Minute))
	fb.ApplyStatus(models.StatusResolved, t0)
	assert.Equal(t, t0.Add(2*time.Minute), *fb.ResolvedAt)
}

func TestApplyStatus_SameStatusIsNoop(t *testing.T) {
	fb := &models.Feedback{Status: models.StatusNew}
	assert.False(t, fb.ApplyStatus(models.StatusNew, time.Now()))
	assert.Nil(t, fb.ReviewedAt)
}

// TestApplyStatus_AnyToAny walks every edge of the transition graph.
func TestApplyStatus_AnyToAny(t *testing.T) {
	all := []models.Status{models.StatusNew, models.StatusInProgress, models.StatusResolved, models.StatusClosed}
	now := time.Now()
	for _, from := range all {
		for _, to := range all {
			if from == to {
				continue
			}
			fb := &models.Feedback{Status: from}
			assert.True(t, fb.ApplyStatus(to, now), "%s -> %s", from, to)
			assert.Equal(t, to, fb.Status)
		}
	}
}
