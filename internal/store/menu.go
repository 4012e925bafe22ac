package store

import (
	"context"

	"dineflow/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- CATEGORIES ----------------

func (d *DB) ListCategories(ctx context.Context, tenantID string, activeOnly bool) ([]models.Category, error) {
	var categories []models.Category
	q := d.Bun.NewSelect().
		Model(&categories).
		Where("tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("sort_order ASC", "name ASC").Scan(ctx)
	return categories, err
}

func (d *DB) GetCategory(ctx context.Context, tenantID, id string) (*models.Category, error) {
	var c models.Category
	err := d.Bun.NewSelect().
		Model(&c).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) GetCategoryByName(ctx context.Context, tenantID, name string) (*models.Category, error) {
	var c models.Category
	err := d.Bun.NewSelect().
		Model(&c).
		Where("tenant_id = ?", tenantID).
		Where("LOWER(name) = LOWER(?)", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) UpdateCategory(ctx context.Context, c *models.Category, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(c).Column(columns...).WherePK().Exec(ctx)
	return err
}

// PublicCatalog loads active categories with their available items and customizations.
func (d *DB) PublicCatalog(ctx context.Context, tenantID string) ([]models.Category, error) {
	var categories []models.Category
	err := d.Bun.NewSelect().
		Model(&categories).
		Where("tenant_id = ?", tenantID).
		Where("is_active = ?", true).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("is_available = ?", true).Order("sort_order ASC", "name ASC")
		}).
		Relation("Items.Customizations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("is_available = ?", true).Order("sort_order ASC", "name ASC")
		}).
		Order("sort_order ASC", "name ASC").
		Scan(ctx)
	return categories, err
}

// ---------------- MENU ITEMS ----------------

type MenuItemFilter struct {
	CategoryID    string
	AvailableOnly bool
}

func (d *DB) ListMenuItems(ctx context.Context, tenantID string, f MenuItemFilter) ([]models.MenuItem, error) {
	var items []models.MenuItem
	q := d.Bun.NewSelect().
		Model(&items).
		Relation("Customizations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sort_order ASC", "name ASC")
		}).
		Where("tenant_id = ?", tenantID)
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	err := q.Order("sort_order ASC", "name ASC").Scan(ctx)
	return items, err
}

func (d *DB) GetMenuItem(ctx context.Context, tenantID, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.Bun.NewSelect().
		Model(&item).
		Relation("Customizations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sort_order ASC", "name ASC")
		}).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMenuItems fetches several items of one tenant keyed by id.
func (d *DB) GetMenuItems(ctx context.Context, tenantID string, ids []string) (map[string]*models.MenuItem, error) {
	out := make(map[string]*models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []*models.MenuItem
	err := d.Bun.NewSelect().
		Model(&items).
		Relation("Customizations").
		Where("tenant_id = ?", tenantID).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (d *DB) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	_, err := d.Bun.NewInsert().Model(item).Exec(ctx)
	return err
}

func (d *DB) UpdateMenuItem(ctx context.Context, item *models.MenuItem, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(item).Column(columns...).WherePK().Exec(ctx)
	return err
}

// DeleteMenuItem hard-deletes the item and its customizations.
func (d *DB) DeleteMenuItem(ctx context.Context, tenantID, id string) error {
	return d.RunInTx(ctx, func(ctx context.Context, tx *DB) error {
		res, err := tx.Bun.NewDelete().
			Model((*models.MenuItem)(nil)).
			Where("id = ?", id).
			Where("tenant_id = ?", tenantID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := expectRows(res); err != nil {
			return err
		}
		_, err = tx.Bun.NewDelete().Model((*models.Customization)(nil)).Where("menu_item_id = ?", id).Exec(ctx)
		return err
	})
}

func (d *DB) CountMenuItems(ctx context.Context, tenantID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.MenuItem)(nil)).Where("tenant_id = ?", tenantID).Count(ctx)
}

// ---------------- CUSTOMIZATIONS ----------------

func (d *DB) CreateCustomization(ctx context.Context, c *models.Customization) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) DeleteCustomization(ctx context.Context, menuItemID, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Customization)(nil)).
		Where("id = ?", id).
		Where("menu_item_id = ?", menuItemID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// ---------------- TABLES ----------------

func (d *DB) ListTables(ctx context.Context, tenantID string, activeOnly bool) ([]models.Table, error) {
	var tables []models.Table
	q := d.Bun.NewSelect().
		Model(&tables).
		Where("tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("number ASC").Scan(ctx)
	return tables, err
}

func (d *DB) GetTable(ctx context.Context, tenantID, id string) (*models.Table, error) {
	var t models.Table
	err := d.Bun.NewSelect().
		Model(&t).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) TableNumberExists(ctx context.Context, tenantID string, number int, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().
		Model((*models.Table)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("number = ?", number)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

// MaxTableNumber returns 0 when the tenant has no tables.
func (d *DB) MaxTableNumber(ctx context.Context, tenantID string) (int, error) {
	var max int
	err := d.Bun.NewSelect().
		Model((*models.Table)(nil)).
		ColumnExpr("COALESCE(MAX(number), 0)").
		Where("tenant_id = ?", tenantID).
		Scan(ctx, &max)
	return max, err
}

// InsertTables writes all rows in a single statement.
func (d *DB) InsertTables(ctx context.Context, tables []*models.Table) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&tables).Exec(ctx)
	return err
}

func (d *DB) UpdateTable(ctx context.Context, t *models.Table, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(t).Column(columns...).WherePK().Exec(ctx)
	return err
}

func (d *DB) CountActiveTables(ctx context.Context, tenantID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Table)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("is_active = ?", true).
		Count(ctx)
}
