package analytics

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)

type line struct {
	name string
	qty  int
}

func insertOrder(t *testing.T, db *store.DB, tenantID, status string, at time.Time, total float64, lines ...line) {
	t.Helper()
	o := &models.Order{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		OrderNumber:   fmt.Sprintf("ORD-%s", uuid.NewString()[:8]),
		Status:        status,
		PaymentStatus: models.PaymentPending,
		Subtotal:      total,
		Total:         total,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	for _, l := range lines {
		o.Items = append(o.Items, &models.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			MenuItemID: "item-" + l.name,
			Name:       l.name,
			Quantity:   l.qty,
			UnitPrice:  1,
			LineTotal:  float64(l.qty),
		})
	}
	require.NoError(t, db.InsertOrder(context.Background(), o))
}

func setup(t *testing.T) (*Service, *models.Tenant) {
	t.Helper()
	db := storetest.New(t)
	tenant := storetest.SeedTenant(t, db, "joes-diner")

	insertOrder(t, db, tenant.ID, models.OrderConfirmed, now.Add(-time.Hour), 20, line{"Burger", 2}, line{"Fries", 1})
	insertOrder(t, db, tenant.ID, models.OrderCompleted, now.Add(-2*time.Hour), 10, line{"Fries", 1}, line{"Cola", 2})
	insertOrder(t, db, tenant.ID, models.OrderCancelled, now.Add(-3*time.Hour), 99, line{"Steak", 9})
	insertOrder(t, db, tenant.ID, models.OrderServed, now.Add(-3*24*time.Hour), 30, line{"Apple Pie", 2})
	insertOrder(t, db, tenant.ID, models.OrderCompleted, now.Add(-20*24*time.Hour), 40, line{"Soup", 1})
	insertOrder(t, db, tenant.ID, models.OrderCompleted, now.Add(-90*24*time.Hour), 50, line{"Tea", 1})

	s := NewService(db, logger.Discard())
	s.Clock = func() time.Time { return now }
	return s, tenant
}

func TestStatsToday(t *testing.T) {
	s, tenant := setup(t)

	st, err := s.Stats(context.Background(), tenant.ID, "today")
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalOrders)
	assert.Equal(t, 3, st.TodayOrders)
	assert.Equal(t, 30.0, st.TotalRevenue)
	assert.Equal(t, 30.0, st.TodayRevenue)
	assert.Equal(t, 1, st.PendingOrders)
	assert.Equal(t, 1, st.CompletedOrders)
	assert.Equal(t, 1, st.CancelledOrders)
	assert.Equal(t, 15.0, st.AverageOrderValue)

	require.Len(t, st.TopItems, 3)
	assert.Equal(t, "Burger", st.TopItems[0].Name)
	assert.Equal(t, "Cola", st.TopItems[1].Name)
	assert.Equal(t, "Fries", st.TopItems[2].Name)
	assert.Equal(t, 2, st.TopItems[2].Quantity)

	require.Len(t, st.DailySales, 1)
	assert.Equal(t, DailySales{Date: "2025-03-07", Orders: 2, Revenue: 30}, st.DailySales[0])
}

func TestStatsRanges(t *testing.T) {
	s, tenant := setup(t)
	ctx := context.Background()

	week, err := s.Stats(ctx, tenant.ID, "week")
	require.NoError(t, err)
	assert.Equal(t, 4, week.TotalOrders)
	assert.Equal(t, 3, week.TodayOrders)
	assert.Equal(t, 60.0, week.TotalRevenue)
	assert.Equal(t, 2, week.CompletedOrders)

	month, err := s.Stats(ctx, tenant.ID, "MONTH")
	require.NoError(t, err)
	assert.Equal(t, 5, month.TotalOrders)

	all, err := s.Stats(ctx, tenant.ID, "all")
	require.NoError(t, err)
	assert.Equal(t, 6, all.TotalOrders)
	assert.Equal(t, 150.0, all.TotalRevenue)
	assert.Equal(t, 30.0, all.AverageOrderValue)
	assert.Len(t, all.TopItems, topItemsLimit)

	_, err = s.Stats(ctx, tenant.ID, "decade")
	assert.True(t, apperr.Is(err, apperr.Validation))

	other, err := s.Stats(ctx, "other", "all")
	require.NoError(t, err)
	assert.Zero(t, other.TotalOrders)
	assert.Zero(t, other.AverageOrderValue)
	assert.Empty(t, other.TopItems)
}

func TestTopItemsTieBreakByName(t *testing.T) {
	orders := []models.Order{{
		Status: models.OrderCompleted,
		Items: []*models.OrderItem{
			{MenuItemID: "b", Name: "Bagel", Quantity: 1},
			{MenuItemID: "a", Name: "Apple", Quantity: 1},
			{MenuItemID: "c", Name: "Chai", Quantity: 3},
		},
	}}
	top := topItems(orders, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Chai", top[0].Name)
	assert.Equal(t, "Apple", top[1].Name)
}

func TestExportXLSX(t *testing.T) {
	s, tenant := setup(t)

	var buf bytes.Buffer
	require.NoError(t, s.ExportXLSX(context.Background(), tenant.ID, "week", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{ordersSheet, itemsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Order", rows[0][0])

	items, err := f.GetRows(itemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, []string{"Apple Pie", "2", "2"}, items[1])
}
