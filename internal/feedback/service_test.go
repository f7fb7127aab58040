package feedback_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sync"
	"testing"
	"time"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/feedback"
	"feedbackhub/backend/internal/models"
	"feedbackhub/backend/internal/storage/storagetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var operator = auth.Operator(uuid.New(), "ops@example.com", "Ops", auth.RoleAgent)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Publish(_ context.Context, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	svc    *feedback.Service
	mem    *storagetest.Memory
	events *recorder
	appA   uuid.UUID
	appB   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storagetest.NewMemory()
	ctx := context.Background()
	a := &models.Application{Name: "A", Slug: "a", APIKeyHash: "ha", IsActive: true}
	b := &models.Application{Name: "B", Slug: "b", APIKeyHash: "hb", IsActive: true}
	require.NoError(t, mem.CreateApplication(ctx, a))
	require.NoError(t, mem.CreateApplication(ctx, b))

	rec := &recorder{}
	svc := feedback.NewService(mem, rec)
	clock := &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc.Now = clock.Now
	return &fixture{svc: svc, mem: mem, events: rec, appA: a.ID, appB: b.ID}
}

func (f *fixture) create(t *testing.T, appID uuid.UUID) *models.Feedback {
	t.Helper()
	fb, err := f.svc.Create(context.Background(), auth.ForApplication(appID), appID, feedback.CreateInput{Content: "It crashes"})
	require.NoError(t, err)
	return fb
}

func (f *fixture) category(t *testing.T, appID uuid.UUID, name string) uint {
	t.Helper()
	c := &models.Category{ApplicationID: appID, Name: name, Color: "#fff", Icon: "tag"}
	require.NoError(t, f.mem.CreateCategory(context.Background(), c))
	return c.ID
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreate(t *testing.T) {
	f := newFixture(t)
	principal := auth.ForApplication(f.appA)

	fb, err := f.svc.Create(context.Background(), principal, f.appA, feedback.CreateInput{
		Title:        "  Crash  ",
		Content:      "App crashes on save",
		Rating:       intPtr(5),
		ContactEmail: "user@example.com",
		BrowserInfo:  models.JSONMap{"ua": "firefox", "screen": map[string]interface{}{"w": 1920.0}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, fb.ID)
	assert.Equal(t, "Crash", fb.Title)
	assert.Equal(t, models.StatusNew, fb.Status)
	assert.Equal(t, models.PriorityMedium, fb.Priority)
	assert.Equal(t, fb.CreatedAt, fb.UpdatedAt)
	assert.Nil(t, fb.ReviewedAt)
	assert.Nil(t, fb.ResolvedAt)
	assert.Equal(t, 1, fb.Version)
	assert.Equal(t, "firefox", fb.BrowserInfo["ua"])
	assert.Equal(t, []models.EventType{models.EventFeedbackCreated}, f.events.types())

	other := f.create(t, f.appA)
	assert.NotEqual(t, fb.ID, other.ID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	principal := auth.ForApplication(f.appA)
	ctx := context.Background()

	cases := []struct {
		name string
		in   feedback.CreateInput
	}{
		{"empty content", feedback.CreateInput{Content: "   "}},
		{"rating 6", feedback.CreateInput{Content: "x", Rating: intPtr(6)}},
		{"rating 0", feedback.CreateInput{Content: "x", Rating: intPtr(0)}},
		{"bad email", feedback.CreateInput{Content: "x", ContactEmail: "nobody"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, principal, f.appA, tc.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
	assert.Empty(t, f.events.types())

	_, err := f.svc.Create(ctx, principal, f.appA, feedback.CreateInput{Content: "x", Rating: intPtr(5)})
	assert.NoError(t, err)
}

func TestCreate_CategoryMustBelongToApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.category(t, f.appA, "Bug")
	foreign := f.category(t, f.appB, "Bug")

	_, err := f.svc.Create(ctx, auth.ForApplication(f.appA), f.appA, feedback.CreateInput{Content: "x", CategoryID: &foreign})
	assert.ErrorIs(t, err, apperr.ErrInvalidReference)

	missing := uint(9999)
	_, err = f.svc.Create(ctx, auth.ForApplication(f.appA), f.appA, feedback.CreateInput{Content: "x", CategoryID: &missing})
	assert.ErrorIs(t, err, apperr.ErrInvalidReference)

	fb, err := f.svc.Create(ctx, auth.ForApplication(f.appA), f.appA, feedback.CreateInput{Content: "x", CategoryID: &own})
	require.NoError(t, err)
	assert.Equal(t, own, *fb.CategoryID)
}

func TestCreate_CrossTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), auth.ForApplication(f.appA), f.appB, feedback.CreateInput{Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGet_OtherTenantIsNotFound(t *testing.T) {
	f := newFixture(t)
	fb := f.create(t, f.appB)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, auth.ForApplication(f.appA), fb.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Get(ctx, auth.ForApplication(f.appA), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.Get(ctx, operator, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, fb.ID, got.ID)

	status, err := f.svc.PublicStatus(ctx, auth.ForApplication(f.appB), fb.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PublicStatus{ID: fb.ID, Status: models.StatusNew, Priority: models.PriorityMedium, CreatedAt: fb.CreatedAt}, *status)
}

func TestUpdate_StatusTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)

	resolved, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("resolved")})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ReviewedAt)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.True(t, resolved.UpdatedAt.After(resolved.CreatedAt))
	assert.Equal(t, resolved.UpdatedAt, *resolved.ResolvedAt, "one clock reading per update")
	assert.Equal(t, resolved.UpdatedAt, *resolved.ReviewedAt)
	assert.Equal(t, 2, resolved.Version)

	reopened, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("in_progress")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reopened.Status)
	require.NotNil(t, reopened.ResolvedAt)
	assert.Equal(t, *resolved.ResolvedAt, *reopened.ResolvedAt)
	assert.Equal(t, *resolved.ReviewedAt, *reopened.ReviewedAt)

	again, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("resolved")})
	require.NoError(t, err)
	assert.True(t, again.ResolvedAt.After(*resolved.ResolvedAt))
	assert.Equal(t, *resolved.ReviewedAt, *again.ReviewedAt)

	reset, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("new")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, reset.Status)
	assert.NotNil(t, reset.ResolvedAt)
	assert.NotNil(t, reset.ReviewedAt)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventFeedbackUpdated, last.Type)
	assert.Equal(t, models.StatusResolved, last.PreviousStatus)
	assert.Equal(t, models.StatusNew, last.Status)
}

func TestUpdate_PriorityAndCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)
	own := f.category(t, f.appA, "Bug")
	foreign := f.category(t, f.appB, "Bug")

	var in feedback.UpdateInput
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{"priority":"urgent","category_id":%d}`, own)), &in))
	got, err := f.svc.Update(ctx, operator, fb.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, got.Priority)
	assert.Equal(t, own, *got.CategoryID)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Nil(t, got.ReviewedAt)

	var bad feedback.UpdateInput
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{"category_id":%d}`, foreign)), &bad))
	_, err = f.svc.Update(ctx, operator, fb.ID, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalidReference)

	stored, err := f.svc.Get(ctx, operator, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, own, *stored.CategoryID)

	var clear feedback.UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"category_id":null}`), &clear))
	got, err = f.svc.Update(ctx, operator, fb.ID, clear)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)

	_, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("under_review")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Priority: strPtr("critical")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Update(ctx, operator, uuid.New(), feedback.UpdateInput{Status: strPtr("closed")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Update(ctx, auth.ForApplication(f.appA), fb.ID, feedback.UpdateInput{Status: strPtr("closed")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdate_VersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)

	_, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("in_progress"), Version: intPtr(1)})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: strPtr("closed"), Version: intPtr(1)})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := f.svc.Get(ctx, operator, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestUpdate_ConcurrentUnconditionalUpdatesAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)
	statuses := []string{"in_progress", "resolved", "closed", "new"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(st string) {
			defer wg.Done()
			_, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: &st})
			assert.NoError(t, err)
		}(statuses[i%len(statuses)])
	}
	wg.Wait()

	stored, err := f.svc.Get(ctx, operator, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, stored.Version)
	assert.Contains(t, []models.Status{models.StatusNew, models.StatusInProgress, models.StatusResolved, models.StatusClosed}, stored.Status)
	assert.NotNil(t, stored.ReviewedAt)
}

func TestUpdate_ConcurrentConditionalUpdatesHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for _, st := range []string{"in_progress", "resolved", "closed", "in_progress", "resolved"} {
		wg.Add(1)
		go func(st string) {
			defer wg.Done()
			_, err := f.svc.Update(ctx, operator, fb.ID, feedback.UpdateInput{Status: &st, Version: intPtr(fb.Version)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, st)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrConflict)
			conflicts++
		}(st)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, 4, conflicts)
	stored, err := f.svc.Get(ctx, operator, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Status(winners[0]), stored.Status)
}

func TestDelete_CascadesComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fb := f.create(t, f.appA)
	keep := f.create(t, f.appA)
	for _, target := range []uuid.UUID{fb.ID, fb.ID, keep.ID} {
		require.NoError(t, f.mem.CreateComment(ctx, &models.Comment{FeedbackID: target, UserID: operator.OperatorID, Content: "note"}))
	}

	assert.ErrorIs(t, f.svc.Delete(ctx, auth.ForApplication(f.appA), fb.ID), apperr.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, operator, fb.ID))
	assert.Equal(t, 1, f.mem.CommentCount())
	assert.ErrorIs(t, f.svc.Delete(ctx, operator, fb.ID), apperr.ErrNotFound)

	_, err := f.svc.Get(ctx, operator, fb.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, f.events.types(), models.EventFeedbackDeleted)
}

func TestList_PagesAreConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Neighbouring items share a timestamp so the id tiebreak is exercised.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	f.svc.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n/3) * time.Minute)
	}
	for i := 0; i < 47; i++ {
		f.create(t, f.appA)
	}
	for i := 0; i < 5; i++ {
		f.create(t, f.appB)
	}

	for _, limit := range []int{1, 7, 20, 47, 100} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			seen := map[uuid.UUID]bool{}
			var all []models.Feedback
			var total int64 = -1
			for page := 1; ; page++ {
				res, err := f.svc.List(ctx, operator, feedback.Query{ApplicationID: &f.appA, Page: page, Limit: limit})
				require.NoError(t, err)
				if total >= 0 {
					assert.Equal(t, total, res.Total)
				}
				total = res.Total
				if len(res.Feedback) == 0 {
					break
				}
				for _, fb := range res.Feedback {
					assert.False(t, seen[fb.ID], "duplicate %s", fb.ID)
					seen[fb.ID] = true
				}
				all = append(all, res.Feedback...)
			}
			assert.EqualValues(t, 47, total)
			assert.Len(t, all, 47)
			for i := 1; i < len(all); i++ {
				prev, cur := all[i-1], all[i]
				ordered := prev.CreatedAt.After(cur.CreatedAt) ||
					(prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID.String() > cur.ID.String())
				assert.True(t, ordered, "items %d and %d out of order", i-1, i)
			}
		})
	}
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, f.appA, "Bug")

	a1 := f.create(t, f.appA)
	f.create(t, f.appA)
	f.create(t, f.appB)
	_, err := f.svc.Update(ctx, operator, a1.ID, feedback.UpdateInput{Status: strPtr("resolved"), Priority: strPtr("high"), CategoryID: feedback.NullableUint{Set: true, Value: &cat}})
	require.NoError(t, err)

	resolved := models.StatusResolved
	high := models.PriorityHigh
	res, err := f.svc.List(ctx, operator, feedback.Query{Status: &resolved, Priority: &high, CategoryID: &cat})
	require.NoError(t, err)
	require.Len(t, res.Feedback, 1)
	assert.Equal(t, a1.ID, res.Feedback[0].ID)
	assert.EqualValues(t, 1, res.Total)

	res, err = f.svc.List(ctx, operator, feedback.Query{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.Limit)

	none := models.StatusClosed
	res, err = f.svc.List(ctx, operator, feedback.Query{Status: &none})
	require.NoError(t, err)
	assert.NotNil(t, res.Feedback)
	assert.Empty(t, res.Feedback)
}

func TestList_PageBeyondEndIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.create(t, f.appA)
	}

	for _, page := range []int{2, math.MaxInt / 100, math.MaxInt} {
		res, err := f.svc.List(ctx, operator, feedback.Query{ApplicationID: &f.appA, Page: page, Limit: 100})
		require.NoError(t, err, "page %d", page)
		assert.Empty(t, res.Feedback, "page %d", page)
		assert.EqualValues(t, 3, res.Total)
		assert.LessOrEqual(t, res.Page, math.MaxInt/100)
	}
}

func TestList_ApplicationPrincipalIsConfined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.appA)
	f.create(t, f.appB)
	f.create(t, f.appB)

	res, err := f.svc.List(ctx, auth.ForApplication(f.appB), feedback.Query{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	for _, fb := range res.Feedback {
		assert.Equal(t, f.appB, fb.ApplicationID)
	}

	_, err = f.svc.List(ctx, auth.ForApplication(f.appB), feedback.Query{ApplicationID: &f.appA})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestParseQuery(t *testing.T) {
	q, err := feedback.ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Nil(t, q.ApplicationID)

	q, err = feedback.ParseQuery(url.Values{"page": {"0"}, "limit": {"500"}, "status": {"closed"}, "category_id": {"4"}})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 100, q.Limit)
	assert.Equal(t, models.StatusClosed, *q.Status)
	assert.Equal(t, uint(4), *q.CategoryID)

	q, err = feedback.ParseQuery(url.Values{"page": {"3"}, "limit": {"-5"}})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 40, q.Offset())

	// Pages past the last representable offset are capped, never wrapped.
	q, err = feedback.ParseQuery(url.Values{"page": {"9223372036854775807"}, "limit": {"100"}})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt/100, q.Page)
	assert.Positive(t, q.Offset())

	for _, bad := range []url.Values{
		{"page": {"two"}},
		{"limit": {"1.5"}},
		{"status": {"archived"}},
		{"priority": {"critical"}},
		{"app_id": {"not-a-uuid"}},
		{"category_id": {"x"}},
	} {
		_, err := feedback.ParseQuery(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%v", bad)
	}
}

func TestNullableUint(t *testing.T) {
	var absent feedback.UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"status":"new"}`), &absent))
	assert.False(t, absent.CategoryID.Set)

	var null feedback.UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"category_id":null}`), &null))
	assert.True(t, null.CategoryID.Set)
	assert.Nil(t, null.CategoryID.Value)

	var set feedback.UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"category_id":7}`), &set))
	assert.True(t, set.CategoryID.Set)
	assert.Equal(t, uint(7), *set.CategoryID.Value)

	var bad feedback.UpdateInput
	assert.Error(t, json.Unmarshal([]byte(`{"category_id":"seven"}`), &bad))
}
