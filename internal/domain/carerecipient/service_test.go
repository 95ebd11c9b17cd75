package carerecipient

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

type mockRepo struct {
	items   map[uuid.UUID]*CareRecipient
	failAll error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*CareRecipient)}
}

func (m *mockRepo) ListActive(_ context.Context, userID string) ([]*CareRecipient, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	var out []*CareRecipient
	for _, r := range m.items {
		if r.UserID == userID && r.IsActive {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, userID string, id uuid.UUID) (*CareRecipient, error) {
	r, ok := m.items[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *mockRepo) Create(_ context.Context, r *CareRecipient) error {
	if m.failAll != nil {
		return m.failAll
	}
	r.CreatedAt, r.UpdatedAt = time.Now(), time.Now()
	c := *r
	m.items[r.ID] = &c
	return nil
}

func (m *mockRepo) Update(_ context.Context, r *CareRecipient) error {
	if _, ok := m.items[r.ID]; !ok {
		return ErrNotFound
	}
	c := *r
	m.items[r.ID] = &c
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, userID string, id uuid.UUID) (int64, error) {
	r, ok := m.items[id]
	if !ok || r.UserID != userID || !r.IsActive {
		return 0, nil
	}
	r.IsActive = false
	return 1, nil
}

func (m *mockRepo) ActiveOwned(_ context.Context, userID string, id uuid.UUID) (bool, error) {
	r, ok := m.items[id]
	return ok && r.UserID == userID && r.IsActive, nil
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func fixedNow(t *testing.T, s string) {
	t.Helper()
	now, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func TestAgeOn(t *testing.T) {
	dob := time.Date(1960, 5, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		today string
		want  int
	}{
		{"2024-05-14", 63},
		{"2024-05-15", 64},
		{"2024-12-31", 64},
		{"1960-05-15", 0},
	}
	for _, tt := range tests {
		today, _ := time.Parse(dateLayout, tt.today)
		assert.Equal(t, tt.want, ageOn(dob, today), tt.today)
	}
}

func TestService_Create(t *testing.T) {
	fixedNow(t, "2024-06-01")
	svc := NewService(newMockRepo())

	r, err := svc.Create(context.Background(), "u1", &CreateRequest{
		Name:         "  Mom ",
		DateOfBirth:  strPtr("1960-05-15"),
		Relationship: strPtr("Mother"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Mom", r.Name)
	assert.True(t, r.IsActive)
	require.NotNil(t, r.Age)
	assert.Equal(t, 64, *r.Age)

	plain, err := svc.Create(context.Background(), "u1", &CreateRequest{Name: "Dad", Relationship: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, plain.Age)
	assert.Nil(t, plain.Relationship)
}

func TestService_Create_Validation(t *testing.T) {
	fixedNow(t, "2024-06-01")
	svc := NewService(newMockRepo())

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"empty name", CreateRequest{Name: "   "}},
		{"bad date", CreateRequest{Name: "Mom", DateOfBirth: strPtr("15/05/1960")}},
		{"future date", CreateRequest{Name: "Mom", DateOfBirth: strPtr("2030-01-01")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", &tt.req)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestService_ListAndOwnership(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	mom, err := svc.Create(ctx, "u1", &CreateRequest{Name: "Mom"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", &CreateRequest{Name: "Dad"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", &CreateRequest{Name: "Grandma"})
	require.NoError(t, err)

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Dad", items[0].Name)

	_, err = svc.Get(ctx, "u2", mom.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	ok, err := svc.ActiveOwned(ctx, "u1", mom.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = svc.ActiveOwned(ctx, "u2", mom.ID)
	assert.False(t, ok)

	empty, err := svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestService_Update(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", &CreateRequest{Name: "Mom", Relationship: strPtr("Mother")})
	require.NoError(t, err)

	got, err := svc.Update(ctx, "u1", r.ID, &UpdateRequest{DateOfBirth: strPtr("1960-05-15")})
	require.NoError(t, err)
	assert.Equal(t, "Mom", got.Name)
	assert.Equal(t, "Mother", *got.Relationship)
	assert.Equal(t, "1960-05-15", *got.DateOfBirth)
	assert.NotNil(t, got.Age)

	got, err = svc.Update(ctx, "u1", r.ID, &UpdateRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = svc.Update(ctx, "u1", r.ID, &UpdateRequest{Name: strPtr("")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Update(ctx, "u2", r.ID, &UpdateRequest{Name: strPtr("Mine")})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", &CreateRequest{Name: "Mom"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", r.ID), errs.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", r.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", r.ID), errs.ErrNotFound)

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_StorageFailure(t *testing.T) {
	repo := newMockRepo()
	repo.failAll = errors.New("connection refused")
	svc := NewService(repo)

	_, err := svc.List(context.Background(), "u1")
	assert.ErrorIs(t, err, errs.ErrInternal)

	_, err = svc.Create(context.Background(), "u1", &CreateRequest{Name: "Mom"})
	assert.ErrorIs(t, err, errs.ErrInternal)
	assert.Equal(t, "create care recipient", errs.Op(err))
}
