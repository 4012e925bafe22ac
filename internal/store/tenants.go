package store

import (
	"context"

	"dineflow/internal/models"
)

// ---------------- TENANTS ----------------

func (d *DB) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := d.Bun.NewInsert().Model(t).Exec(ctx)
	return err
}

// GetTenant loads a tenant with its brand settings.
func (d *DB) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := d.Bun.NewSelect().
		Model(&t).
		Relation("Brand").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t models.Tenant
	err := d.Bun.NewSelect().
		Model(&t).
		Relation("Brand").
		Where("?TableAlias.slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) SlugExists(ctx context.Context, slug string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Tenant)(nil)).
		Where("slug = ?", slug).
		Exists(ctx)
}

// UpdateTenant writes the named columns only.
func (d *DB) UpdateTenant(ctx context.Context, t *models.Tenant, columns ...string) error {
	_, err := d.Bun.NewUpdate().
		Model(t).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := d.Bun.NewSelect().
		Model(&tenants).
		Order("created_at DESC").
		Scan(ctx)
	return tenants, err
}

type TenantCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Verified int `json:"verified"`
}

func (d *DB) CountTenants(ctx context.Context) (TenantCounts, error) {
	var c TenantCounts
	var err error

	if c.Total, err = d.Bun.NewSelect().Model((*models.Tenant)(nil)).Count(ctx); err != nil {
		return c, err
	}
	if c.Active, err = d.Bun.NewSelect().Model((*models.Tenant)(nil)).Where("is_active = ?", true).Count(ctx); err != nil {
		return c, err
	}
	if c.Verified, err = d.Bun.NewSelect().Model((*models.Tenant)(nil)).Where("is_verified = ?", true).Count(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// DeleteTenant removes the tenant and every row scoped to it.
func (d *DB) DeleteTenant(ctx context.Context, id string) error {
	return d.RunInTx(ctx, func(ctx context.Context, tx *DB) error {
		orderIDs := tx.Bun.NewSelect().Model((*models.Order)(nil)).Column("id").Where("tenant_id = ?", id)
		if _, err := tx.Bun.NewDelete().Model((*models.OrderItem)(nil)).Where("order_id IN (?)", orderIDs).Exec(ctx); err != nil {
			return err
		}

		itemIDs := tx.Bun.NewSelect().Model((*models.MenuItem)(nil)).Column("id").Where("tenant_id = ?", id)
		if _, err := tx.Bun.NewDelete().Model((*models.Customization)(nil)).Where("menu_item_id IN (?)", itemIDs).Exec(ctx); err != nil {
			return err
		}

		scoped := []interface{}{
			(*models.Invoice)(nil),
			(*models.Order)(nil),
			(*models.WaiterCall)(nil),
			(*models.MenuItem)(nil),
			(*models.Category)(nil),
			(*models.Table)(nil),
			(*models.Customer)(nil),
			(*models.Staff)(nil),
			(*models.TaxSetting)(nil),
			(*models.BrandSettings)(nil),
			(*models.Sequence)(nil),
		}
		for _, m := range scoped {
			if _, err := tx.Bun.NewDelete().Model(m).Where("tenant_id = ?", id).Exec(ctx); err != nil {
				return err
			}
		}

		res, err := tx.Bun.NewDelete().Model((*models.Tenant)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return expectRows(res)
	})
}

// ---------------- BRAND ----------------

func (d *DB) CreateBrand(ctx context.Context, b *models.BrandSettings) error {
	_, err := d.Bun.NewInsert().Model(b).Exec(ctx)
	return err
}

func (d *DB) UpdateBrand(ctx context.Context, b *models.BrandSettings) error {
	_, err := d.Bun.NewUpdate().Model(b).WherePK().Exec(ctx)
	return err
}

func (d *DB) GetBrand(ctx context.Context, tenantID string) (*models.BrandSettings, error) {
	var b models.BrandSettings
	err := d.Bun.NewSelect().Model(&b).Where("tenant_id = ?", tenantID).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ---------------- TAX SETTINGS ----------------

func (d *DB) ListTaxSettings(ctx context.Context, tenantID string, activeOnly bool) ([]models.TaxSetting, error) {
	var taxes []models.TaxSetting
	q := d.Bun.NewSelect().
		Model(&taxes).
		Where("tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("sort_order ASC", "name ASC").Scan(ctx)
	return taxes, err
}

// ReplaceTaxSettings deletes the tenant's tax rows and inserts the given set.
func (d *DB) ReplaceTaxSettings(ctx context.Context, tenantID string, taxes []models.TaxSetting) error {
	return d.RunInTx(ctx, func(ctx context.Context, tx *DB) error {
		if _, err := tx.Bun.NewDelete().Model((*models.TaxSetting)(nil)).Where("tenant_id = ?", tenantID).Exec(ctx); err != nil {
			return err
		}
		if len(taxes) == 0 {
			return nil
		}
		_, err := tx.Bun.NewInsert().Model(&taxes).Exec(ctx)
		return err
	})
}
