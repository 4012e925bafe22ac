package menu

import (
	"context"
	"fmt"

	"dineflow/internal/apperr"
	"dineflow/internal/models"
	"dineflow/internal/store"
)

type TenantSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Currency     string `json:"currency"`
	TaxInclusive bool   `json:"taxInclusive"`
}

type PublicMenu struct {
	Tenant     TenantSummary         `json:"tenant"`
	Brand      *models.BrandSettings `json:"brand"`
	Categories []models.Category     `json:"categories"`
}

func cacheKey(slug string) string {
	return "menu:" + slug
}

// PublicMenu returns what diners see for an active restaurant.
func (s *Service) PublicMenu(ctx context.Context, slug string) (*PublicMenu, error) {
	key := cacheKey(slug)
	if s.Cache != nil {
		var cached PublicMenu
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.Logger.Warn("MENU", fmt.Sprintf("cache read failed for %s: %v", slug, err))
		} else if hit {
			return &cached, nil
		}
	}

	t, err := s.DB.GetTenantBySlug(ctx, slug)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if !t.IsActive {
		return nil, apperr.NewNotFound("Restaurant not found")
	}

	categories, err := s.DB.PublicCatalog(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}

	menu := &PublicMenu{
		Tenant: TenantSummary{
			ID:           t.ID,
			Name:         t.Name,
			Slug:         t.Slug,
			Currency:     t.Currency,
			TaxInclusive: t.TaxInclusive,
		},
		Brand:      t.Brand,
		Categories: categories,
	}

	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, key, menu, s.CacheTTL); err != nil {
			s.Logger.Warn("MENU", fmt.Sprintf("cache write failed for %s: %v", slug, err))
		}
	}
	return menu, nil
}

// InvalidateMenu drops the cached public menu of slug.
func (s *Service) InvalidateMenu(ctx context.Context, slug string) {
	if s.Cache == nil || slug == "" {
		return
	}
	if err := s.Cache.Delete(ctx, cacheKey(slug)); err != nil {
		s.Logger.Warn("MENU", fmt.Sprintf("cache invalidation failed for %s: %v", slug, err))
	}
}

func (s *Service) invalidateTenant(ctx context.Context, tenantID string) {
	if s.Cache == nil {
		return
	}
	t, err := s.DB.GetTenant(ctx, tenantID)
	if err != nil {
		s.Logger.Warn("MENU", fmt.Sprintf("cannot resolve tenant %s for invalidation: %v", tenantID, err))
		return
	}
	s.InvalidateMenu(ctx, t.Slug)
}
