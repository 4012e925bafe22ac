package table

import (
	"context"
	"net/url"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/qr"
	"dineflow/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *models.Tenant) {
	db := storetest.New(t)
	s := NewService(db, qr.NewGenerator("secret", "https://menu.example.com", 128), logger.Discard())

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tenant := &models.Tenant{
		ID:               uuid.NewString(),
		Name:             "Joe's Diner",
		Slug:             "joes-diner",
		Email:            "joe@example.com",
		Currency:         "USD",
		IsActive:         true,
		IsVerified:       true,
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, db.CreateTenant(context.Background(), tenant))
	return s, tenant
}

func TestCreateDefaultsAndDuplicateNumber(t *testing.T) {
	s, tenant := newService(t)
	ctx := context.Background()

	tb, err := s.Create(ctx, tenant.ID, CreateInput{Number: 3})
	require.NoError(t, err)
	assert.Equal(t, "Table 3", tb.Name)
	assert.Equal(t, DefaultCapacity, tb.Capacity)
	assert.Contains(t, tb.QRPayload, "https://menu.example.com/m/joes-diner?t=")

	_, err = s.Create(ctx, tenant.ID, CreateInput{Number: 3, Name: "Patio"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = s.Create(ctx, tenant.ID, CreateInput{Number: 0})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestGenerateContinuesAfterMax(t *testing.T) {
	s, tenant := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, tenant.ID, CreateInput{Number: 5})
	require.NoError(t, err)

	created, err := s.Generate(ctx, tenant.ID, GenerateInput{Count: 3, Prefix: "Booth", Capacity: 6})
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, 6, created[0].Number)
	assert.Equal(t, "Booth 8", created[2].Name)
	assert.Equal(t, 6, created[2].Capacity)

	all, err := s.List(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = s.Generate(ctx, tenant.ID, GenerateInput{Count: MaxGenerate + 1})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestUpdateAndSoftDelete(t *testing.T) {
	s, tenant := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, tenant.ID, CreateInput{Number: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, tenant.ID, CreateInput{Number: 2})
	require.NoError(t, err)

	two := 2
	_, err = s.Update(ctx, tenant.ID, a.ID, UpdateInput{Number: &two})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	name := "Window"
	got, err := s.Update(ctx, tenant.ID, a.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Window", got.Name)
	assert.Equal(t, 1, got.Number)

	require.NoError(t, s.Delete(ctx, tenant.ID, a.ID))
	got, err = s.Get(ctx, tenant.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = s.Get(ctx, "other-tenant", a.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestResolveToken(t *testing.T) {
	s, tenant := newService(t)
	ctx := context.Background()

	tb, err := s.Create(ctx, tenant.ID, CreateInput{Number: 7})
	require.NoError(t, err)

	u, err := url.Parse(tb.QRPayload)
	require.NoError(t, err)
	token := u.Query().Get("t")

	res, err := s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, res.TenantID)
	assert.Equal(t, "joes-diner", res.Slug)
	assert.Equal(t, tb.ID, res.Table.ID)

	_, err = s.Resolve(ctx, "garbage")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	require.NoError(t, s.Delete(ctx, tenant.ID, tb.ID))
	_, err = s.Resolve(ctx, token)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestQRCodeRendersPNG(t *testing.T) {
	s, tenant := newService(t)
	ctx := context.Background()

	tb, err := s.Create(ctx, tenant.ID, CreateInput{Number: 1})
	require.NoError(t, err)

	img, got, err := s.QRCode(ctx, tenant.ID, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, tb.ID, got.ID)
	assert.Equal(t, []byte("\x89PNG"), img[:4])
}
