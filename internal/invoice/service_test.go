package invoice

import (
	"bytes"
	"context"
	"os"
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
)

type fixture struct {
	svc    *Service
	orders *order.Service
	tenant *models.Tenant
	item   *models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.New(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 7, 18, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tenant := storetest.SeedTenant(t, db, "joes-diner")
	cat := &models.Category{ID: uuid.NewString(), TenantID: tenant.ID, Name: "Mains", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.CreateCategory(ctx, cat))
	item := &models.MenuItem{ID: uuid.NewString(), TenantID: tenant.ID, CategoryID: cat.ID, Name: "Steak", Price: 33.33, IsAvailable: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.CreateMenuItem(ctx, item))
	require.NoError(t, db.ReplaceTaxSettings(ctx, tenant.ID, []models.TaxSetting{
		{ID: uuid.NewString(), TenantID: tenant.ID, Name: "CGST", Rate: 2.5, IsActive: true, SortOrder: 1},
		{ID: uuid.NewString(), TenantID: tenant.ID, Name: "SGST", Rate: 2.5, IsActive: true, SortOrder: 2},
	}))

	orders := order.NewService(db, sequence.DB{}, events.Nop{}, logger.Discard())
	orders.Clock = clock
	svc := NewService(db, sequence.DB{}, os.Getenv("INVOICE_FONT_PATH"), logger.Discard())
	svc.Clock = clock
	return &fixture{svc: svc, orders: orders, tenant: tenant, item: item}
}

func (f *fixture) paidOrder(t *testing.T, tip float64) *models.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, order.CreateInput{
		TenantID: f.tenant.ID,
		Items:    []order.ItemInput{{MenuItemID: f.item.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	paid := models.PaymentPaid
	o, err = f.orders.UpdateStatus(ctx, f.tenant.ID, o.ID, order.UpdateInput{PaymentStatus: &paid, Tip: &tip})
	require.NoError(t, err)
	return o
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 4)

	inv, err := f.svc.Create(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-20250307-0001", inv.InvoiceNumber)
	assert.Equal(t, 33.33, inv.Subtotal)
	require.Len(t, inv.TaxBreakdown, 2)
	assert.Equal(t, models.TaxLine{Name: "CGST", Rate: 2.5, Amount: 0.83}, inv.TaxBreakdown[0])
	assert.Equal(t, 1.66, inv.TotalTax)
	assert.Equal(t, 4.0, inv.Tip)
	assert.Equal(t, 38.99, inv.Total)
	assert.Equal(t, "USD", inv.Currency)

	again, err := f.svc.Create(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID)
	assert.Equal(t, inv.InvoiceNumber, again.InvoiceNumber)

	second, err := f.svc.Create(ctx, f.tenant.ID, f.paidOrder(t, 0).ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-20250307-0002", second.InvoiceNumber)

	all, err := f.svc.List(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := f.svc.Get(ctx, f.tenant.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.TaxBreakdown, got.TaxBreakdown)

	_, err = f.svc.Get(ctx, "other", inv.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCreateInvoiceRequiresSettledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.orders.Create(ctx, order.CreateInput{
		TenantID: f.tenant.ID,
		Items:    []order.ItemInput{{MenuItemID: f.item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.tenant.ID, o.ID)
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.Create(ctx, f.tenant.ID, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	f.orders.Strict = false
	done := models.OrderCompleted
	_, err = f.orders.UpdateStatus(ctx, f.tenant.ID, o.ID, order.UpdateInput{Status: &done})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.tenant.ID, o.ID)
	assert.NoError(t, err)
}

func TestBreakdownRoundsEachLine(t *testing.T) {
	lines := Breakdown(10.05, []models.TaxSetting{{Name: "A", Rate: 5}, {Name: "B", Rate: 7.5}})
	require.Len(t, lines, 2)
	assert.Equal(t, 0.5, lines[0].Amount)
	assert.Equal(t, 0.75, lines[1].Amount)
}

func TestHexColor(t *testing.T) {
	r, g, b := hexColor("#ff8000", 1, 2, 3)
	assert.Equal(t, []uint8{255, 128, 0}, []uint8{r, g, b})
	r, g, b = hexColor("nope", 1, 2, 3)
	assert.Equal(t, []uint8{1, 2, 3}, []uint8{r, g, b})
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t)
	if f.svc.FontPath == "" {
		f.svc.FontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	}
	if _, err := os.Stat(f.svc.FontPath); err != nil {
		t.Skipf("font not available: %v", err)
	}
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, f.tenant.ID, f.paidOrder(t, 2).ID)
	require.NoError(t, err)

	pdf, err := f.svc.RenderPDF(ctx, f.tenant.ID, inv.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}
