// Package table manages restaurant tables and their QR codes.
package table

import (
	"context"
	"fmt"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/qr"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

const (
	MaxGenerate     = 200
	DefaultPrefix   = "Table"
	DefaultCapacity = 4
)

type Service struct {
	DB     *store.DB
	QR     *qr.Generator
	Logger *logger.Logger
	Clock  utils.Clock
}

func NewService(db *store.DB, gen *qr.Generator, log *logger.Logger) *Service {
	return &Service{DB: db, QR: gen, Logger: log}
}

type CreateInput struct {
	Number   int    `json:"number" validate:"required,min=1"`
	Name     string `json:"name" validate:"max=80"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1,max=50"`
}

type UpdateInput struct {
	Number   *int    `json:"number" validate:"omitempty,min=1"`
	Name     *string `json:"name" validate:"omitempty,max=80"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1,max=50"`
	IsActive *bool   `json:"isActive"`
}

type GenerateInput struct {
	Count    int    `json:"count" validate:"required,min=1,max=200"`
	Prefix   string `json:"prefix" validate:"max=40"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1,max=50"`
}

func (s *Service) List(ctx context.Context, tenantID string) ([]models.Table, error) {
	tables, err := s.DB.ListTables(ctx, tenantID, false)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.Table, error) {
	t, err := s.DB.GetTable(ctx, tenantID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Table not found")
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (*models.Table, error) {
	if in.Number <= 0 {
		return nil, apperr.NewValidation("Table number must be positive")
	}

	tenant, err := s.DB.GetTenant(ctx, tenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	exists, err := s.DB.TableNumberExists(ctx, tenantID, in.Number, "")
	if err != nil {
		return nil, fmt.Errorf("check table number: %w", err)
	}
	if exists {
		return nil, apperr.NewConflict(fmt.Sprintf("Table %d already exists", in.Number))
	}

	now := s.Clock.Now().UTC()
	t := &models.Table{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Number:    in.Number,
		Name:      strings.TrimSpace(in.Name),
		Capacity:  in.Capacity,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Name == "" {
		t.Name = fmt.Sprintf("%s %d", DefaultPrefix, in.Number)
	}
	if t.Capacity <= 0 {
		t.Capacity = DefaultCapacity
	}
	if t.QRPayload, err = s.QR.PayloadFor(tenant.Slug, qr.TableToken{TenantID: tenantID, TableID: t.ID}); err != nil {
		return nil, fmt.Errorf("encode table token: %w", err)
	}

	if err := s.DB.InsertTables(ctx, []*models.Table{t}); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.NewConflict(fmt.Sprintf("Table %d already exists", in.Number))
		}
		return nil, fmt.Errorf("insert table: %w", err)
	}

	s.Logger.LogDatabase("INSERT", "restaurant_tables", fmt.Sprintf("tenant=%s number=%d", tenantID, t.Number))
	return t, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id string, in UpdateInput) (*models.Table, error) {
	t, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if in.Number != nil && *in.Number != t.Number {
		if *in.Number <= 0 {
			return nil, apperr.NewValidation("Table number must be positive")
		}
		exists, err := s.DB.TableNumberExists(ctx, tenantID, *in.Number, t.ID)
		if err != nil {
			return nil, fmt.Errorf("check table number: %w", err)
		}
		if exists {
			return nil, apperr.NewConflict(fmt.Sprintf("Table %d already exists", *in.Number))
		}
		t.Number = *in.Number
		columns = append(columns, "number")
	}
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
		columns = append(columns, "name")
	}
	if in.Capacity != nil {
		t.Capacity = *in.Capacity
		columns = append(columns, "capacity")
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
		columns = append(columns, "is_active")
	}
	t.UpdatedAt = s.Clock.Now().UTC()

	if err := s.DB.UpdateTable(ctx, t, columns...); err != nil {
		return nil, fmt.Errorf("update table: %w", err)
	}
	return t, nil
}

// Delete deactivates the table. Orders keep pointing at it.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	active := false
	_, err := s.Update(ctx, tenantID, id, UpdateInput{IsActive: &active})
	return err
}

// Generate appends count tables numbered after the tenant's current maximum.
func (s *Service) Generate(ctx context.Context, tenantID string, in GenerateInput) ([]*models.Table, error) {
	tenant, err := s.DB.GetTenant(ctx, tenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	var created []*models.Table
	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		created, err = s.GenerateTx(ctx, tx, tenant, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GenerateTx builds and bulk-inserts the tables on tx.
func (s *Service) GenerateTx(ctx context.Context, tx *store.DB, tenant *models.Tenant, in GenerateInput) ([]*models.Table, error) {
	if in.Count < 0 || in.Count > MaxGenerate {
		return nil, apperr.NewValidation(fmt.Sprintf("Table count must be between 0 and %d", MaxGenerate))
	}
	if in.Count == 0 {
		return nil, nil
	}
	prefix := strings.TrimSpace(in.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	capacity := in.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	start, err := tx.MaxTableNumber(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("read table numbers: %w", err)
	}

	now := s.Clock.Now().UTC()
	tables := make([]*models.Table, 0, in.Count)
	for i := 1; i <= in.Count; i++ {
		n := start + i
		t := &models.Table{
			ID:        uuid.NewString(),
			TenantID:  tenant.ID,
			Number:    n,
			Name:      fmt.Sprintf("%s %d", prefix, n),
			Capacity:  capacity,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if t.QRPayload, err = s.QR.PayloadFor(tenant.Slug, qr.TableToken{TenantID: tenant.ID, TableID: t.ID}); err != nil {
			return nil, fmt.Errorf("encode table token: %w", err)
		}
		tables = append(tables, t)
	}

	if err := tx.InsertTables(ctx, tables); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.NewConflict("Table numbers collided with a concurrent change, retry")
		}
		return nil, fmt.Errorf("insert tables: %w", err)
	}

	s.Logger.LogDatabase("BULK_INSERT", "restaurant_tables", fmt.Sprintf("tenant=%s count=%d from=%d", tenant.ID, in.Count, start+1))
	return tables, nil
}

// QRCode renders the table's QR image.
func (s *Service) QRCode(ctx context.Context, tenantID, id string) ([]byte, *models.Table, error) {
	t, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	payload := t.QRPayload
	if payload == "" {
		tenant, err := s.DB.GetTenant(ctx, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("load tenant: %w", err)
		}
		if payload, err = s.QR.PayloadFor(tenant.Slug, qr.TableToken{TenantID: tenantID, TableID: t.ID}); err != nil {
			return nil, nil, err
		}
		t.QRPayload = payload
		if err := s.DB.UpdateTable(ctx, t, "qr_payload"); err != nil {
			return nil, nil, fmt.Errorf("store qr payload: %w", err)
		}
	}
	png, err := s.QR.PNG(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("render qr: %w", err)
	}
	return png, t, nil
}

type Resolved struct {
	TenantID   string        `json:"tenantId"`
	TenantName string        `json:"tenantName"`
	Slug       string        `json:"slug"`
	Table      *models.Table `json:"table"`
}

// Resolve maps a scanned token to its active tenant and table.
func (s *Service) Resolve(ctx context.Context, token string) (*Resolved, error) {
	tok, err := s.QR.Decrypt(token)
	if err != nil {
		return nil, apperr.NewNotFound("Table not found")
	}

	tenant, err := s.DB.GetTenant(ctx, tok.TenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Table not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.IsActive {
		return nil, apperr.NewNotFound("Restaurant is not accepting orders")
	}

	t, err := s.Get(ctx, tok.TenantID, tok.TableID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, apperr.NewNotFound("Table not found")
	}

	return &Resolved{TenantID: tenant.ID, TenantName: tenant.Name, Slug: tenant.Slug, Table: t}, nil
}
