package tenant

import (
	"context"
	"fmt"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/table"

	"github.com/google/uuid"
)

type BrandInput struct {
	PrimaryColor    *string `json:"primaryColor" validate:"omitempty,max=16"`
	SecondaryColor  *string `json:"secondaryColor" validate:"omitempty,max=16"`
	AccentColor     *string `json:"accentColor" validate:"omitempty,max=16"`
	BackgroundColor *string `json:"backgroundColor" validate:"omitempty,max=16"`
	TextColor       *string `json:"textColor" validate:"omitempty,max=16"`
	FontFamily      *string `json:"fontFamily" validate:"omitempty,max=64"`
	LogoURL         *string `json:"logoUrl" validate:"omitempty,max=512"`
	CoverImageURL   *string `json:"coverImageUrl" validate:"omitempty,max=512"`
	WelcomeTitle    *string `json:"welcomeTitle" validate:"omitempty,max=120"`
	WelcomeMessage  *string `json:"welcomeMessage" validate:"omitempty,max=500"`
}

type TaxInput struct {
	Name     string  `json:"name" validate:"required,max=60"`
	Rate     float64 `json:"rate" validate:"min=0,max=100"`
	IsActive *bool   `json:"isActive"`
}

type OnboardingInput struct {
	Brand        *BrandInput          `json:"brand"`
	Currency     string               `json:"currency" validate:"omitempty,len=3"`
	TaxInclusive *bool                `json:"taxInclusive"`
	Taxes        []TaxInput           `json:"taxes" validate:"dive"`
	Tables       *table.GenerateInput `json:"tables"`
}

type OnboardingResult struct {
	Tenant *models.Tenant      `json:"tenant"`
	Taxes  []models.TaxSetting `json:"taxes"`
	Tables []*models.Table     `json:"tables"`
}

// CompleteOnboarding applies the first-run setup in one transaction and opens
// the restaurant for orders.
func (s *Service) CompleteOnboarding(ctx context.Context, tenantID string, in OnboardingInput) (*OnboardingResult, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !t.IsVerified {
		return nil, apperr.NewForbidden("Verify your email before onboarding")
	}
	if in.Tables != nil && (in.Tables.Count < 0 || in.Tables.Count > table.MaxGenerate) {
		return nil, apperr.NewValidation(fmt.Sprintf("Table count must be between 0 and %d", table.MaxGenerate))
	}

	now := s.Clock.Now().UTC()
	result := &OnboardingResult{Tenant: t}

	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		brand := t.Brand
		if brand == nil {
			brand = models.DefaultBrand(t.ID, t.Name, now)
			if err := tx.CreateBrand(ctx, brand); err != nil {
				return err
			}
		}
		if in.Brand != nil {
			applyBrand(brand, in.Brand)
			brand.UpdatedAt = now
			if err := tx.UpdateBrand(ctx, brand); err != nil {
				return err
			}
		}
		t.Brand = brand

		if in.Taxes != nil {
			taxes := taxRows(t.ID, in.Taxes)
			if err := tx.ReplaceTaxSettings(ctx, t.ID, taxes); err != nil {
				return err
			}
			result.Taxes = taxes
		}

		if in.Tables != nil && in.Tables.Count > 0 {
			created, err := s.Tables.GenerateTx(ctx, tx, t, *in.Tables)
			if err != nil {
				return err
			}
			result.Tables = created
		}

		if c := strings.ToUpper(strings.TrimSpace(in.Currency)); c != "" {
			t.Currency = c
		}
		if in.TaxInclusive != nil {
			t.TaxInclusive = *in.TaxInclusive
		}
		t.IsActive = true
		t.OnboardingCompleted = true
		t.UpdatedAt = now
		return tx.UpdateTenant(ctx, t, "currency", "tax_inclusive", "is_active", "onboarding_completed", "updated_at")
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			return nil, err
		}
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}

	s.invalidate(ctx, t.Slug)
	s.Logger.Info("TENANT", fmt.Sprintf("Onboarding completed for %s with %d tables", t.Slug, len(result.Tables)))
	return result, nil
}

func applyBrand(b *models.BrandSettings, in *BrandInput) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&b.PrimaryColor, in.PrimaryColor)
	set(&b.SecondaryColor, in.SecondaryColor)
	set(&b.AccentColor, in.AccentColor)
	set(&b.BackgroundColor, in.BackgroundColor)
	set(&b.TextColor, in.TextColor)
	set(&b.FontFamily, in.FontFamily)
	set(&b.LogoURL, in.LogoURL)
	set(&b.CoverImageURL, in.CoverImageURL)
	set(&b.WelcomeTitle, in.WelcomeTitle)
	set(&b.WelcomeMessage, in.WelcomeMessage)
}

func taxRows(tenantID string, in []TaxInput) []models.TaxSetting {
	rows := make([]models.TaxSetting, 0, len(in))
	for i, tx := range in {
		active := true
		if tx.IsActive != nil {
			active = *tx.IsActive
		}
		rows = append(rows, models.TaxSetting{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			Name:      strings.TrimSpace(tx.Name),
			Rate:      tx.Rate,
			IsActive:  active,
			SortOrder: i,
		})
	}
	return rows
}
