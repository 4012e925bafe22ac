package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/events"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/order"
	"dineflow/internal/sequence"
	"dineflow/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const secret = "whsec_test"

type fakeGateway struct {
	mu        sync.Mutex
	created   []IntentParams
	intents   map[string]*Intent
	updateErr error
	canceled  []string
}

func (g *fakeGateway) CreateIntent(_ context.Context, p IntentParams) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, p)
	in := &Intent{
		ID:           fmt.Sprintf("pi_%d", len(g.created)),
		ClientSecret: "secret",
		AmountCents:  p.AmountCents,
		Currency:     p.Currency,
		Status:       "requires_payment_method",
	}
	if g.intents == nil {
		g.intents = map[string]*Intent{}
	}
	g.intents[in.ID] = in
	return in, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, id string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", id)
	}
	return in, nil
}

func (g *fakeGateway) UpdateIntentAmount(_ context.Context, id string, amountCents int64) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	in, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", id)
	}
	in.AmountCents = amountCents
	return in, nil
}

func (g *fakeGateway) CancelIntent(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok {
		return fmt.Errorf("no such intent %s", id)
	}
	in.Status = "canceled"
	g.canceled = append(g.canceled, id)
	return nil
}

func setup(t *testing.T) (*Service, *fakeGateway, *models.Order) {
	t.Helper()
	db := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	tenant := storetest.SeedTenant(t, db, "joes-diner")

	cat := &models.Category{ID: uuid.NewString(), TenantID: tenant.ID, Name: "Mains", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.CreateCategory(ctx, cat))
	item := &models.MenuItem{ID: uuid.NewString(), TenantID: tenant.ID, CategoryID: cat.ID, Name: "Pasta", Price: 12.35, IsAvailable: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.CreateMenuItem(ctx, item))

	orders := order.NewService(db, sequence.DB{}, events.Nop{}, logger.Discard())
	o, err := orders.Create(ctx, order.CreateInput{
		TenantID: tenant.ID,
		Items:    []order.ItemInput{{MenuItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	gw := &fakeGateway{}
	return &Service{DB: db, Orders: orders, Gateway: gw, WebhookSecret: secret, Logger: logger.Discard()}, gw, o
}

func signed(t *testing.T, eventType, intentID string, metadata map[string]string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + intentID,
		"object":      "event",
		"api_version": "2020-08-27",
		"type":        eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       intentID,
				"object":   "payment_intent",
				"metadata": metadata,
			},
		},
	})
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: secret})
	return sp.Payload, sp.Header
}

func TestCreatePaymentIntent(t *testing.T) {
	s, gw, o := setup(t)
	ctx := context.Background()

	in, err := s.CreatePaymentIntent(ctx, o.TenantID, o.OrderNumber)
	require.NoError(t, err)
	require.Len(t, gw.created, 1)
	assert.Equal(t, int64(1235), gw.created[0].AmountCents)
	assert.Equal(t, "usd", gw.created[0].Currency)
	assert.Equal(t, o.ID, gw.created[0].Metadata["order_id"])
	assert.Equal(t, o.TenantID, gw.created[0].Metadata["tenant_id"])

	stored, err := s.Orders.Get(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ID, stored.PaymentReference)

	again, err := s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ID, again.ID)
	assert.Len(t, gw.created, 1)

	gw.intents[in.ID].Status = "canceled"
	fresh, err := s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.NotEqual(t, in.ID, fresh.ID)

	_, err = s.CreatePaymentIntent(ctx, "other", o.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCreatePaymentIntentFollowsTotal(t *testing.T) {
	s, gw, o := setup(t)
	ctx := context.Background()

	first, err := s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1235), first.AmountCents)

	tip := 5.0
	tipped, err := s.Orders.UpdateStatus(ctx, o.TenantID, o.ID, order.UpdateInput{Tip: &tip})
	require.NoError(t, err)
	assert.InDelta(t, 17.35, tipped.Total, 0.001)

	second, err := s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1735), second.AmountCents)
	assert.Len(t, gw.created, 1)

	// When the provider refuses the change the stale intent is cancelled
	// and replaced.
	gw.updateErr = fmt.Errorf("intent is processing")
	tip = 2.0
	_, err = s.Orders.UpdateStatus(ctx, o.TenantID, o.ID, order.UpdateInput{Tip: &tip})
	require.NoError(t, err)

	third, err := s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, int64(1435), third.AmountCents)
	assert.Equal(t, []string{first.ID}, gw.canceled)

	stored, err := s.Orders.Get(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, third.ID, stored.PaymentReference)
}

func TestWebhookMarksOrderPaid(t *testing.T) {
	s, _, o := setup(t)
	ctx := context.Background()

	in, err := s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	require.NoError(t, err)

	payload, header := signed(t, "payment_intent.succeeded", in.ID, nil)
	require.NoError(t, s.HandleWebhook(ctx, payload, header))

	got, err := s.Orders.Get(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, MethodCard, got.PaymentMethod)

	_, err = s.CreatePaymentIntent(ctx, o.TenantID, o.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// A late failure for a paid order is accepted and ignored.
	payload, header = signed(t, "payment_intent.payment_failed", in.ID, nil)
	require.NoError(t, s.HandleWebhook(ctx, payload, header))
	got, err = s.Orders.Get(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

func TestWebhookFallsBackToMetadata(t *testing.T) {
	s, _, o := setup(t)
	ctx := context.Background()

	payload, header := signed(t, "payment_intent.payment_failed", "pi_unknown", map[string]string{
		"order_id":  o.ID,
		"tenant_id": o.TenantID,
	})
	require.NoError(t, s.HandleWebhook(ctx, payload, header))

	got, err := s.Orders.Get(ctx, o.TenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s, _, _ := setup(t)
	payload, _ := signed(t, "payment_intent.succeeded", "pi_1", nil)

	err := s.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	s, _, _ := setup(t)
	payload, header := signed(t, "charge.refunded", "ch_1", nil)
	assert.NoError(t, s.HandleWebhook(context.Background(), payload, header))
}
