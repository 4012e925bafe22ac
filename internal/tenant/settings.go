package tenant

import (
	"context"
	"fmt"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/models"
	"dineflow/internal/store"
)

type Settings struct {
	Tenant *models.Tenant        `json:"tenant"`
	Brand  *models.BrandSettings `json:"brand"`
	Taxes  []models.TaxSetting   `json:"taxes"`
}

type SettingsInput struct {
	Name         *string     `json:"name" validate:"omitempty,min=1,max=120"`
	Phone        *string     `json:"phone" validate:"omitempty,max=32"`
	Address      *string     `json:"address" validate:"omitempty,max=300"`
	Currency     *string     `json:"currency" validate:"omitempty,len=3"`
	TaxInclusive *bool       `json:"taxInclusive"`
	Brand        *BrandInput `json:"brand"`
	Taxes        []TaxInput  `json:"taxes" validate:"omitempty,dive"`
}

func (s *Service) Settings(ctx context.Context, tenantID string) (*Settings, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	taxes, err := s.DB.ListTaxSettings(ctx, tenantID, false)
	if err != nil {
		return nil, fmt.Errorf("list taxes: %w", err)
	}
	return &Settings{Tenant: t, Brand: t.Brand, Taxes: taxes}, nil
}

// UpdateSettings applies the supplied profile, brand and tax changes. A
// non-nil Taxes slice replaces the tenant's tax set.
func (s *Service) UpdateSettings(ctx context.Context, tenantID string, in SettingsInput) (*Settings, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()

	columns := []string{"updated_at"}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.NewValidation("Restaurant name is required")
		}
		t.Name = name
		columns = append(columns, "name")
	}
	if in.Phone != nil {
		t.Phone = strings.TrimSpace(*in.Phone)
		columns = append(columns, "phone")
	}
	if in.Address != nil {
		t.Address = strings.TrimSpace(*in.Address)
		columns = append(columns, "address")
	}
	if in.Currency != nil {
		t.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		columns = append(columns, "currency")
	}
	if in.TaxInclusive != nil {
		t.TaxInclusive = *in.TaxInclusive
		columns = append(columns, "tax_inclusive")
	}
	t.UpdatedAt = now

	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		if err := tx.UpdateTenant(ctx, t, columns...); err != nil {
			return err
		}
		if in.Brand != nil {
			brand := t.Brand
			if brand == nil {
				brand = models.DefaultBrand(t.ID, t.Name, now)
				if err := tx.CreateBrand(ctx, brand); err != nil {
					return err
				}
			}
			applyBrand(brand, in.Brand)
			brand.UpdatedAt = now
			if err := tx.UpdateBrand(ctx, brand); err != nil {
				return err
			}
			t.Brand = brand
		}
		if in.Taxes != nil {
			return tx.ReplaceTaxSettings(ctx, t.ID, taxRows(t.ID, in.Taxes))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	s.invalidate(ctx, t.Slug)
	return s.Settings(ctx, tenantID)
}

// ---------------- PLATFORM ----------------

func (s *Service) List(ctx context.Context) ([]models.Tenant, error) {
	tenants, err := s.DB.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// SetActive suspends or reinstates a tenant. Suspended tenants cannot take
// orders and their staff cannot sign in.
func (s *Service) SetActive(ctx context.Context, tenantID string, active bool) (*models.Tenant, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	t.IsActive = active
	t.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateTenant(ctx, t, "is_active", "updated_at"); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	s.invalidate(ctx, t.Slug)
	s.Logger.LogSecurity("TENANT_ACTIVE_CHANGED", fmt.Sprintf("tenant=%s active=%t", t.ID, active))
	return t, nil
}

func (s *Service) Delete(ctx context.Context, tenantID string) error {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteTenant(ctx, tenantID); err != nil {
		if store.IsNotFound(err) {
			return apperr.NewNotFound("Restaurant not found")
		}
		return fmt.Errorf("delete tenant: %w", err)
	}
	s.invalidate(ctx, t.Slug)
	s.Logger.LogSecurity("TENANT_DELETED", fmt.Sprintf("tenant=%s slug=%s", t.ID, t.Slug))
	return nil
}
