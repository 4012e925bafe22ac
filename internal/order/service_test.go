package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/events"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/sequence"
	"dineflow/internal/store"
	"dineflow/internal/store/storetest"
	"dineflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisher struct {
	mu  sync.Mutex
	got []events.Event
}

func (p *publisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return nil
}

type fixture struct {
	svc    *Service
	pub    *publisher
	tenant *models.Tenant
	table  *models.Table
	burger *models.MenuItem
	cheese *models.Customization
	cola   *models.MenuItem
	now    time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.New(t)
	ctx := context.Background()
	f := &fixture{pub: &publisher{}, now: time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)}
	f.tenant = storetest.SeedTenant(t, db, "joes-diner")

	cat := &models.Category{ID: uuid.NewString(), TenantID: f.tenant.ID, Name: "Mains", IsActive: true, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, db.CreateCategory(ctx, cat))

	f.burger = &models.MenuItem{ID: uuid.NewString(), TenantID: f.tenant.ID, CategoryID: cat.ID, Name: "Burger", Price: 10, IsAvailable: true, PrepTimeMinutes: 15, CreatedAt: f.now, UpdatedAt: f.now}
	f.cola = &models.MenuItem{ID: uuid.NewString(), TenantID: f.tenant.ID, CategoryID: cat.ID, Name: "Cola", Price: 2.5, IsAvailable: true, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, db.CreateMenuItem(ctx, f.burger))
	require.NoError(t, db.CreateMenuItem(ctx, f.cola))

	f.cheese = &models.Customization{ID: uuid.NewString(), MenuItemID: f.burger.ID, Name: "Cheese", PriceDelta: 1.25, IsAvailable: true}
	require.NoError(t, db.CreateCustomization(ctx, f.cheese))

	f.table = &models.Table{ID: uuid.NewString(), TenantID: f.tenant.ID, Number: 1, Name: "T 1", Capacity: 4, IsActive: true, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, db.InsertTables(ctx, []*models.Table{f.table}))

	require.NoError(t, db.ReplaceTaxSettings(ctx, f.tenant.ID, []models.TaxSetting{
		{ID: uuid.NewString(), TenantID: f.tenant.ID, Name: "VAT", Rate: 10, IsActive: true},
		{ID: uuid.NewString(), TenantID: f.tenant.ID, Name: "Old", Rate: 50, IsActive: false},
	}))

	f.svc = NewService(db, sequence.DB{}, f.pub, logger.Discard())
	f.svc.Clock = func() time.Time { return f.now }
	return f
}

func (f *fixture) place(t *testing.T, items ...ItemInput) *models.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateInput{TenantID: f.tenant.ID, TableID: f.table.ID, Items: items})
	require.NoError(t, err)
	return o
}

func TestCreatePricesOrder(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		TableID:  f.table.ID,
		Customer: &CustomerInput{Name: "Ana", Phone: "+15550100"},
		Items: []ItemInput{
			{MenuItemID: f.burger.ID, Quantity: 2, CustomizationIDs: []string{f.cheese.ID}},
			{MenuItemID: f.cola.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-20250307-0001", o.OrderNumber)
	assert.Equal(t, models.OrderConfirmed, o.Status)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 11.25, o.Items[0].UnitPrice)
	assert.Equal(t, 22.5, o.Items[0].LineTotal)
	assert.Equal(t, 25.0, o.Subtotal)
	assert.Equal(t, 2.5, o.Tax)
	assert.Equal(t, 27.5, o.Total)
	assert.Equal(t, 19, o.EstimatedPrepMinutes)
	require.NotNil(t, o.CustomerID)

	c, err := f.svc.DB.GetCustomerByPhone(context.Background(), f.tenant.ID, "+15550100")
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalOrders)
	assert.Equal(t, 27.5, c.TotalSpent)

	require.Len(t, f.pub.got, 1)
	assert.Equal(t, events.OrderCreated, f.pub.got[0].Type)
	assert.Equal(t, f.tenant.ID, f.pub.got[0].TenantID)

	second := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	assert.Equal(t, "ORD-20250307-0002", second.OrderNumber)

	f.advance(24 * time.Hour)
	next := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	assert.Equal(t, "ORD-20250308-0001", next.OrderNumber)
}

func TestCreateSkipsTaxWhenInclusive(t *testing.T) {
	f := newFixture(t)
	f.tenant.TaxInclusive = true
	require.NoError(t, f.svc.DB.UpdateTenant(context.Background(), f.tenant, "tax_inclusive"))

	o := f.place(t, ItemInput{MenuItemID: f.burger.ID, Quantity: 1})
	assert.Equal(t, 0.0, o.Tax)
	assert.Equal(t, o.Subtotal, o.Total)
}

func TestCreateRejectsBadCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := storetest.SeedTenant(t, f.svc.DB, "other")

	cases := []struct {
		name string
		in   CreateInput
		kind apperr.Kind
	}{
		{"empty", CreateInput{TenantID: f.tenant.ID}, apperr.Validation},
		{"unknown tenant", CreateInput{TenantID: "nope", Items: []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1}}}, apperr.NotFound},
		{"zero quantity", CreateInput{TenantID: f.tenant.ID, Items: []ItemInput{{MenuItemID: f.cola.ID}}}, apperr.Validation},
		{"foreign item", CreateInput{TenantID: other.ID, Items: []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1}}}, apperr.NotFound},
		{"foreign table", CreateInput{TenantID: other.ID, TableID: f.table.ID, Items: []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1}}}, apperr.NotFound},
		{"foreign customization", CreateInput{TenantID: f.tenant.ID, Items: []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1, CustomizationIDs: []string{f.cheese.ID}}}}, apperr.Validation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	f.cola.IsAvailable = false
	require.NoError(t, f.svc.DB.UpdateMenuItem(ctx, f.cola, "is_available"))
	_, err := f.svc.Create(ctx, CreateInput{TenantID: f.tenant.ID, Items: []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.Validation))

	f.tenant.IsActive = false
	require.NoError(t, f.svc.DB.UpdateTenant(ctx, f.tenant, "is_active"))
	_, err = f.svc.Create(ctx, CreateInput{TenantID: f.tenant.ID, Items: []ItemInput{{MenuItemID: f.burger.ID, Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.Validation))

	orders, err := f.svc.List(ctx, f.tenant.ID, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestEstimatePrep(t *testing.T) {
	assert.Equal(t, 10, EstimatePrep(0, 1))
	assert.Equal(t, 14, EstimatePrep(10, 3))
	assert.Equal(t, MaxPrepMinutes, EstimatePrep(60, 40))
}

func TestGetByIDOrNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})

	byID, err := f.svc.Get(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	byNumber, err := f.svc.Get(ctx, f.tenant.ID, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byNumber.ID)
	require.NotNil(t, byNumber.Table)
	assert.Equal(t, "T 1", byNumber.Table.Name)

	_, err = f.svc.Get(ctx, "other-tenant", o.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestUpdateStatusStrictFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	str := func(s string) *string { return &s }

	_, err := f.svc.UpdateStatus(ctx, f.tenant.ID, o.ID, UpdateInput{Status: str(models.OrderServed)})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.UpdateStatus(ctx, f.tenant.ID, o.ID, UpdateInput{Status: str("BOGUS")})
	assert.True(t, apperr.Is(err, apperr.Validation))

	for _, st := range []string{models.OrderPreparing, models.OrderReady, models.OrderServed, models.OrderCompleted} {
		got, err := f.svc.UpdateStatus(ctx, f.tenant.ID, o.OrderNumber, UpdateInput{Status: str(st)})
		require.NoError(t, err, st)
		assert.Equal(t, st, got.Status)
	}

	_, err = f.svc.UpdateStatus(ctx, f.tenant.ID, o.ID, UpdateInput{Status: str(models.OrderCancelled)})
	assert.True(t, apperr.Is(err, apperr.Validation))

	same, err := f.svc.UpdateStatus(ctx, f.tenant.ID, o.ID, UpdateInput{Status: str(models.OrderCompleted)})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, same.Status)

	tip := 3.0
	paid, err := f.svc.UpdateStatus(ctx, f.tenant.ID, o.ID, UpdateInput{PaymentStatus: str(models.PaymentPaid), PaymentMethod: str("cash"), Tip: &tip})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "cash", paid.PaymentMethod)
	assert.Equal(t, utils.RoundMoney(o.Subtotal+o.Tax+3), paid.Total)

	_, err = f.svc.UpdateStatus(ctx, f.tenant.ID, o.ID, UpdateInput{PaymentStatus: str(models.PaymentPending)})
	assert.True(t, apperr.Is(err, apperr.Validation))

	assert.Equal(t, events.OrderUpdated, f.pub.got[len(f.pub.got)-1].Type)
}

func TestUpdateStatusPermissive(t *testing.T) {
	f := newFixture(t)
	f.svc.Strict = false
	o := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	done := models.OrderCompleted

	got, err := f.svc.UpdateStatus(context.Background(), f.tenant.ID, o.ID, UpdateInput{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Status)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	f.advance(time.Minute)
	f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})

	cancelled := models.OrderCancelled
	_, err := f.svc.UpdateStatus(ctx, f.tenant.ID, a.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.tenant.ID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ORD-20250307-0002", all[0].OrderNumber)

	open, err := f.svc.List(ctx, f.tenant.ID, ListFilter{Status: "confirmed, preparing"})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = f.svc.List(ctx, f.tenant.ID, ListFilter{Status: "LOST"})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestTrack(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, ItemInput{MenuItemID: f.burger.ID, Quantity: 2})

	tr, err := f.svc.Track(context.Background(), f.tenant.ID, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, tr.OrderNumber)
	assert.Equal(t, "T 1", tr.TableName)
	require.Len(t, tr.Items, 1)
	assert.Equal(t, TrackedItem{Name: "Burger", Quantity: 2}, tr.Items[0])

	_, err = f.svc.Track(context.Background(), f.tenant.ID, "ORD-00000000-0000")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestTrackForShowsContactOnlyToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{
		TenantID: f.tenant.ID,
		Customer: &CustomerInput{Name: "Ana", Phone: "+15550100"},
		Items:    []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, o.CustomerID)

	mine, err := f.svc.TrackFor(ctx, f.tenant.ID, o.OrderNumber, *o.CustomerID)
	require.NoError(t, err)
	require.NotNil(t, mine.Customer)
	assert.Equal(t, TrackedCustomer{Name: "Ana", Phone: "+15550100"}, *mine.Customer)

	theirs, err := f.svc.TrackFor(ctx, f.tenant.ID, o.OrderNumber, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, theirs.Customer)

	anon, err := f.svc.Track(ctx, f.tenant.ID, o.OrderNumber)
	require.NoError(t, err)
	assert.Nil(t, anon.Customer)
}

func TestKitchenQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	str := func(s string) *string { return &s }

	first := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	f.advance(time.Minute)
	second := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	f.advance(time.Minute)
	third := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})

	_, err := f.svc.UpdateStatus(ctx, f.tenant.ID, second.ID, UpdateInput{Status: str(models.OrderPreparing)})
	require.NoError(t, err)

	// first: placed 12:00, completed 12:12:30 -> 12 minutes.
	f.advance(10*time.Minute + 30*time.Second)
	for _, st := range []string{models.OrderPreparing, models.OrderReady, models.OrderServed, models.OrderCompleted} {
		_, err := f.svc.UpdateStatus(ctx, f.tenant.ID, first.ID, UpdateInput{Status: str(st)})
		require.NoError(t, err)
	}
	// third: placed 12:02, completed 12:17:30 -> 15 minutes.
	f.advance(5 * time.Minute)
	for _, st := range []string{models.OrderPreparing, models.OrderReady, models.OrderServed, models.OrderCompleted} {
		_, err := f.svc.UpdateStatus(ctx, f.tenant.ID, third.ID, UpdateInput{Status: str(st)})
		require.NoError(t, err)
	}
	fourth := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})

	view, err := f.svc.KitchenQueue(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, view.Orders, 2)
	assert.Equal(t, second.ID, view.Orders[0].ID)
	assert.Equal(t, fourth.ID, view.Orders[1].ID)
	assert.Equal(t, KitchenStats{Confirmed: 1, Preparing: 1, TotalActive: 2, AvgPrepMinutes: 14}, view.Stats)

	empty, err := f.svc.KitchenQueue(ctx, "other-tenant")
	require.NoError(t, err)
	assert.NotNil(t, empty.Orders)
	assert.Zero(t, empty.Stats.TotalActive)
}

func TestCreateRollsBackSequenceOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	failing := failingSequencer{}
	f.svc.Sequencer = failing
	_, err := f.svc.Create(ctx, CreateInput{TenantID: f.tenant.ID, Items: []ItemInput{{MenuItemID: f.cola.ID, Quantity: 1}}})
	require.Error(t, err)

	f.svc.Sequencer = sequence.DB{}
	o := f.place(t, ItemInput{MenuItemID: f.cola.ID, Quantity: 1})
	assert.Equal(t, "ORD-20250307-0001", o.OrderNumber)
}

type failingSequencer struct{}

func (failingSequencer) Next(ctx context.Context, tx *store.DB, tenantID, scope, day string) (int64, error) {
	if _, err := tx.NextSequence(ctx, tenantID, scope, day); err != nil {
		return 0, err
	}
	return 0, assert.AnError
}
