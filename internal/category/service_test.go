package category_test

import (
	"context"
	"testing"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/category"
	"feedbackhub/backend/internal/config"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage/storagetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var operator = auth.Operator(uuid.New(), "ops@example.com", "Ops", auth.RoleAgent)

func setup(t *testing.T) (*category.Service, uuid.UUID) {
	t.Helper()
	mem := storagetest.NewMemory()
	app := &models.Application{Name: "Acme", Slug: "acme", APIKeyHash: "h1", IsActive: true}
	require.NoError(t, mem.CreateApplication(context.Background(), app))
	return category.NewService(mem), app.ID
}

func TestCreate_Defaults(t *testing.T) {
	svc, appID := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, operator, appID, category.CreateInput{Name: "  Bug  "})
	require.NoError(t, err)
	assert.Equal(t, "Bug", first.Name)
	assert.Equal(t, "#3b82f6", first.Color)
	assert.Equal(t, config.DefaultCategoryIcon, first.Icon)
	assert.Equal(t, appID, first.ApplicationID)

	second, err := svc.Create(ctx, operator, appID, category.CreateInput{Name: "Idea"})
	require.NoError(t, err)
	assert.Equal(t, config.CategoryPalette[1], second.Color)

	custom, err := svc.Create(ctx, operator, appID, category.CreateInput{Name: "UX", Color: "#ABCDEF", Icon: "palette"})
	require.NoError(t, err)
	assert.Equal(t, "#ABCDEF", custom.Color)
	assert.Equal(t, "palette", custom.Icon)
}

func TestCreate_Validation(t *testing.T) {
	svc, appID := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, operator, appID, category.CreateInput{Name: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, operator, appID, category.CreateInput{Name: "Bug", Color: "blue"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, operator, uuid.New(), category.CreateInput{Name: "Bug"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreate_DuplicateName(t *testing.T) {
	svc, appID := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, operator, appID, category.CreateInput{Name: "Bug"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, operator, appID, category.CreateInput{Name: "Bug"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreate_RequiresOperator(t *testing.T) {
	svc, appID := setup(t)
	_, err := svc.Create(context.Background(), auth.ForApplication(appID), appID, category.CreateInput{Name: "Bug"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestList(t *testing.T) {
	svc, appID := setup(t)
	ctx := context.Background()

	empty, err := svc.List(ctx, operator, appID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"Performance", "Bug", "Idea"} {
		_, err := svc.Create(ctx, operator, appID, category.CreateInput{Name: name})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, auth.ForApplication(appID), appID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Bug", "Idea", "Performance"}, []string{got[0].Name, got[1].Name, got[2].Name})

	_, err = svc.List(ctx, auth.ForApplication(uuid.New()), appID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
