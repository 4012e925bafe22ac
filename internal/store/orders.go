package store

import (
	"context"
	"time"

	"dineflow/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- ORDERS ----------------

// InsertOrder writes the order row and its items.
func (d *DB) InsertOrder(ctx context.Context, o *models.Order) error {
	return d.RunInTx(ctx, func(ctx context.Context, tx *DB) error {
		if _, err := tx.Bun.NewInsert().Model(o).Exec(ctx); err != nil {
			return err
		}
		if len(o.Items) == 0 {
			return nil
		}
		_, err := tx.Bun.NewInsert().Model(&o.Items).Exec(ctx)
		return err
	})
}

func (d *DB) GetOrder(ctx context.Context, tenantID, id string) (*models.Order, error) {
	return d.getOrderWhere(ctx, tenantID, "o.id = ?", id)
}

func (d *DB) GetOrderByNumber(ctx context.Context, tenantID, number string) (*models.Order, error) {
	return d.getOrderWhere(ctx, tenantID, "o.order_number = ?", number)
}

func (d *DB) getOrderWhere(ctx context.Context, tenantID, where string, arg interface{}) (*models.Order, error) {
	var o models.Order
	err := d.Bun.NewSelect().
		Model(&o).
		Relation("Items").
		Relation("Table").
		Where(where, arg).
		Where("o.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type OrderFilter struct {
	Statuses      []string
	PaymentStatus string
	TableID       string
	Since         time.Time
	Limit         int
	OldestFirst   bool
}

func (d *DB) ListOrders(ctx context.Context, tenantID string, f OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	q := d.Bun.NewSelect().
		Model(&orders).
		Relation("Items").
		Relation("Table").
		Where("o.tenant_id = ?", tenantID)
	if len(f.Statuses) > 0 {
		q = q.Where("o.status IN (?)", bun.In(f.Statuses))
	}
	if f.PaymentStatus != "" {
		q = q.Where("o.payment_status = ?", f.PaymentStatus)
	}
	if f.TableID != "" {
		q = q.Where("o.table_id = ?", f.TableID)
	}
	if !f.Since.IsZero() {
		q = q.Where("o.created_at >= ?", f.Since)
	}
	if f.OldestFirst {
		q = q.Order("o.created_at ASC", "o.id ASC")
	} else {
		q = q.Order("o.created_at DESC", "o.id DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Scan(ctx)
	return orders, err
}

// CompletedOrdersSince returns orders completed on or after since.
func (d *DB) CompletedOrdersSince(ctx context.Context, tenantID string, since time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", models.OrderCompleted).
		Where("updated_at >= ?", since).
		Scan(ctx)
	return orders, err
}

func (d *DB) UpdateOrder(ctx context.Context, o *models.Order, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(o).Column(columns...).WherePK().Exec(ctx)
	return err
}

// FindOrderByPaymentReference is used by payment webhooks, which carry no tenant.
func (d *DB) FindOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	var o models.Order
	err := d.Bun.NewSelect().
		Model(&o).
		Where("payment_reference = ?", ref).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type PlatformOrderTotals struct {
	Orders  int     `bun:"orders" json:"orders"`
	Revenue float64 `bun:"revenue" json:"revenue"`
}

func (d *DB) PlatformOrderTotals(ctx context.Context) (PlatformOrderTotals, error) {
	var totals PlatformOrderTotals
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("COUNT(*) AS orders").
		ColumnExpr("COALESCE(SUM(CASE WHEN status <> ? THEN total ELSE 0 END), 0) AS revenue", models.OrderCancelled).
		Scan(ctx, &totals)
	return totals, err
}

// ---------------- INVOICES ----------------

func (d *DB) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	_, err := d.Bun.NewInsert().Model(inv).Exec(ctx)
	return err
}

func (d *DB) GetInvoiceByOrder(ctx context.Context, tenantID, orderID string) (*models.Invoice, error) {
	var inv models.Invoice
	err := d.Bun.NewSelect().
		Model(&inv).
		Where("order_id = ?", orderID).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (d *DB) GetInvoice(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := d.Bun.NewSelect().
		Model(&inv).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (d *DB) ListInvoices(ctx context.Context, tenantID string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := d.Bun.NewSelect().
		Model(&invoices).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Scan(ctx)
	return invoices, err
}

// ---------------- WAITER CALLS ----------------

func (d *DB) HasPendingWaiterCall(ctx context.Context, tenantID, tableID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.WaiterCall)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("table_id = ?", tableID).
		Where("status = ?", models.WaiterCallPending).
		Exists(ctx)
}

func (d *DB) InsertWaiterCall(ctx context.Context, c *models.WaiterCall) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) GetWaiterCall(ctx context.Context, tenantID, id string) (*models.WaiterCall, error) {
	var c models.WaiterCall
	err := d.Bun.NewSelect().
		Model(&c).
		Relation("Table").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) ListWaiterCalls(ctx context.Context, tenantID, status string) ([]models.WaiterCall, error) {
	var calls []models.WaiterCall
	q := d.Bun.NewSelect().
		Model(&calls).
		Relation("Table").
		Where("?TableAlias.tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("?TableAlias.status = ?", status)
	}
	err := q.Order("waiter_call.created_at ASC").Scan(ctx)
	return calls, err
}

func (d *DB) UpdateWaiterCall(ctx context.Context, c *models.WaiterCall, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(c).Column(columns...).WherePK().Exec(ctx)
	return err
}

// ---------------- SEQUENCES ----------------

// NextSequence increments and returns the (tenant, scope, day) counter.
// The row is created on first use; the UPDATE row lock serialises callers.
func (d *DB) NextSequence(ctx context.Context, tenantID, scope, day string) (int64, error) {
	var next int64
	err := d.RunInTx(ctx, func(ctx context.Context, tx *DB) error {
		seq := &models.Sequence{TenantID: tenantID, Scope: scope, Day: day}
		if _, err := tx.Bun.NewInsert().
			Model(seq).
			On("CONFLICT (tenant_id, scope, day) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.Bun.NewUpdate().
			Model((*models.Sequence)(nil)).
			Set("last_value = last_value + 1").
			Where("tenant_id = ?", tenantID).
			Where("scope = ?", scope).
			Where("day = ?", day).
			Exec(ctx); err != nil {
			return err
		}

		return tx.Bun.NewSelect().
			Model((*models.Sequence)(nil)).
			Column("last_value").
			Where("tenant_id = ?", tenantID).
			Where("scope = ?", scope).
			Where("day = ?", day).
			Scan(ctx, &next)
	})
	return next, err
}
