package store

import (
	"context"
	"time"

	"dineflow/internal/models"
)

// ---------------- STAFF ----------------

func (d *DB) CreateStaff(ctx context.Context, s *models.Staff) error {
	_, err := d.Bun.NewInsert().Model(s).Exec(ctx)
	return err
}

func (d *DB) GetStaffByEmail(ctx context.Context, email string) (*models.Staff, error) {
	var s models.Staff
	err := d.Bun.NewSelect().Model(&s).Where("LOWER(email) = LOWER(?)", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStaff fetches a staff record scoped to its tenant.
func (d *DB) GetStaff(ctx context.Context, tenantID, id string) (*models.Staff, error) {
	var s models.Staff
	err := d.Bun.NewSelect().
		Model(&s).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) ListStaff(ctx context.Context, tenantID string) ([]models.Staff, error) {
	var staff []models.Staff
	err := d.Bun.NewSelect().
		Model(&staff).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Scan(ctx)
	return staff, err
}

func (d *DB) StaffEmailExists(ctx context.Context, email string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Staff)(nil)).
		Where("LOWER(email) = LOWER(?)", email).
		Exists(ctx)
}

func (d *DB) UpdateStaff(ctx context.Context, s *models.Staff, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(s).Column(columns...).WherePK().Exec(ctx)
	return err
}

func (d *DB) DeleteStaff(ctx context.Context, tenantID, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Staff)(nil)).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// ---------------- PLATFORM ADMINS ----------------

func (d *DB) CreatePlatformAdmin(ctx context.Context, a *models.PlatformAdmin) error {
	_, err := d.Bun.NewInsert().Model(a).Exec(ctx)
	return err
}

func (d *DB) GetPlatformAdmin(ctx context.Context, id string) (*models.PlatformAdmin, error) {
	var a models.PlatformAdmin
	err := d.Bun.NewSelect().Model(&a).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) GetPlatformAdminByEmail(ctx context.Context, email string) (*models.PlatformAdmin, error) {
	var a models.PlatformAdmin
	err := d.Bun.NewSelect().Model(&a).Where("LOWER(email) = LOWER(?)", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) ListPlatformAdmins(ctx context.Context) ([]models.PlatformAdmin, error) {
	var admins []models.PlatformAdmin
	err := d.Bun.NewSelect().Model(&admins).Order("created_at ASC").Scan(ctx)
	return admins, err
}

func (d *DB) UpdatePlatformAdmin(ctx context.Context, a *models.PlatformAdmin, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(a).Column(columns...).WherePK().Exec(ctx)
	return err
}

func (d *DB) DeletePlatformAdmin(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().Model((*models.PlatformAdmin)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// ---------------- CUSTOMERS ----------------

func (d *DB) GetCustomer(ctx context.Context, tenantID, id string) (*models.Customer, error) {
	c := models.Customer{ID: id}
	err := d.Bun.NewSelect().
		Model(&c).
		WherePK().
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) GetCustomerByPhone(ctx context.Context, tenantID, phone string) (*models.Customer, error) {
	var c models.Customer
	err := d.Bun.NewSelect().
		Model(&c).
		Where("tenant_id = ?", tenantID).
		Where("phone = ?", phone).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) UpdateCustomer(ctx context.Context, c *models.Customer, columns ...string) error {
	_, err := d.Bun.NewUpdate().Model(c).Column(columns...).WherePK().Exec(ctx)
	return err
}

func (d *DB) ListCustomers(ctx context.Context, tenantID string) ([]models.Customer, error) {
	var customers []models.Customer
	err := d.Bun.NewSelect().
		Model(&customers).
		Where("tenant_id = ?", tenantID).
		OrderExpr("last_order_at IS NULL, last_order_at DESC").
		Order("created_at DESC").
		Scan(ctx)
	return customers, err
}

// ---------------- OTP ----------------

func (d *DB) InsertOTP(ctx context.Context, o *models.OTP) error {
	_, err := d.Bun.NewInsert().Model(o).Exec(ctx)
	return err
}

// FindValidOTP returns the newest unverified, unexpired row matching exactly.
func (d *DB) FindValidOTP(ctx context.Context, identifier, code string, now time.Time) (*models.OTP, error) {
	var o models.OTP
	err := d.Bun.NewSelect().
		Model(&o).
		Where("identifier = ?", identifier).
		Where("code = ?", code).
		Where("verified = ?", false).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkOTPVerified flips verified once. A second caller gets sql.ErrNoRows.
func (d *DB) MarkOTPVerified(ctx context.Context, id string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.OTP)(nil)).
		Set("verified = ?", true).
		Where("id = ?", id).
		Where("verified = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRows(res)
}
