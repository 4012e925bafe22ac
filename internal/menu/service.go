// Package menu manages categories, menu items and customizations, and serves
// the cached public menu.
package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

const DefaultPrepMinutes = 10

// Cache is the subset of the Redis wrapper used for public menus.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	DB       *store.DB
	Cache    Cache
	CacheTTL time.Duration
	Logger   *logger.Logger
	Clock    utils.Clock
}

func NewService(db *store.DB, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// WithCache enables public menu caching.
func (s *Service) WithCache(c Cache, ttl time.Duration) *Service {
	s.Cache = c
	s.CacheTTL = ttl
	return s
}

// ---------------- CATEGORIES ----------------

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=512"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

func (s *Service) ListCategories(ctx context.Context, tenantID string, activeOnly bool) ([]models.Category, error) {
	categories, err := s.DB.ListCategories(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, tenantID, id string) (*models.Category, error) {
	c, err := s.DB.GetCategory(ctx, tenantID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Category not found")
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	return c, nil
}

func (s *Service) CreateCategory(ctx context.Context, tenantID string, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.NewValidation("Category name is required")
	}
	now := s.Clock.Now().UTC()
	c := &models.Category{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    in.ImageURL,
		SortOrder:   in.SortOrder,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, tenantID, id string, in CategoryInput) (*models.Category, error) {
	c, err := s.GetCategory(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.NewValidation("Category name is required")
	}
	c.Name = name
	c.Description = strings.TrimSpace(in.Description)
	c.ImageURL = in.ImageURL
	c.SortOrder = in.SortOrder
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateCategory(ctx, c, "name", "description", "image_url", "sort_order", "is_active", "updated_at"); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return c, nil
}

// DeleteCategory hides the category. Its items stay in place.
func (s *Service) DeleteCategory(ctx context.Context, tenantID, id string) error {
	c, err := s.GetCategory(ctx, tenantID, id)
	if err != nil {
		return err
	}
	c.IsActive = false
	c.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateCategory(ctx, c, "is_active", "updated_at"); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return nil
}

// ---------------- MENU ITEMS ----------------

type ItemInput struct {
	CategoryID      string  `json:"categoryId" validate:"required"`
	Name            string  `json:"name" validate:"required,max=120"`
	Description     string  `json:"description" validate:"max=1000"`
	Price           float64 `json:"price" validate:"min=0"`
	ImageURL        string  `json:"imageUrl" validate:"omitempty,max=512"`
	IsAvailable     *bool   `json:"isAvailable"`
	IsVegetarian    bool    `json:"isVegetarian"`
	IsSpicy         bool    `json:"isSpicy"`
	PrepTimeMinutes int     `json:"prepTimeMinutes" validate:"min=0,max=240"`
	SortOrder       int     `json:"sortOrder"`
}

type ItemPatch struct {
	CategoryID      *string  `json:"categoryId"`
	Name            *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Description     *string  `json:"description" validate:"omitempty,max=1000"`
	Price           *float64 `json:"price" validate:"omitempty,min=0"`
	ImageURL        *string  `json:"imageUrl" validate:"omitempty,max=512"`
	IsAvailable     *bool    `json:"isAvailable"`
	IsVegetarian    *bool    `json:"isVegetarian"`
	IsSpicy         *bool    `json:"isSpicy"`
	PrepTimeMinutes *int     `json:"prepTimeMinutes" validate:"omitempty,min=0,max=240"`
	SortOrder       *int     `json:"sortOrder"`
}

func (s *Service) ListItems(ctx context.Context, tenantID string, f store.MenuItemFilter) ([]models.MenuItem, error) {
	items, err := s.DB.ListMenuItems(ctx, tenantID, f)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, tenantID, id string) (*models.MenuItem, error) {
	item, err := s.DB.GetMenuItem(ctx, tenantID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Menu item not found")
		}
		return nil, fmt.Errorf("load menu item: %w", err)
	}
	return item, nil
}

func (s *Service) CreateItem(ctx context.Context, tenantID string, in ItemInput) (*models.MenuItem, error) {
	if err := s.checkItem(ctx, tenantID, in.CategoryID, in.Name, in.Price); err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	item := &models.MenuItem{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		CategoryID:      in.CategoryID,
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Price:           utils.RoundMoney(in.Price),
		ImageURL:        in.ImageURL,
		IsAvailable:     in.IsAvailable == nil || *in.IsAvailable,
		IsVegetarian:    in.IsVegetarian,
		IsSpicy:         in.IsSpicy,
		PrepTimeMinutes: in.PrepTimeMinutes,
		SortOrder:       in.SortOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
		Customizations:  []*models.Customization{},
	}
	if item.PrepTimeMinutes == 0 {
		item.PrepTimeMinutes = DefaultPrepMinutes
	}
	if err := s.DB.CreateMenuItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return item, nil
}

// UpdateItem replaces every editable field.
func (s *Service) UpdateItem(ctx context.Context, tenantID, id string, in ItemInput) (*models.MenuItem, error) {
	item, err := s.GetItem(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkItem(ctx, tenantID, in.CategoryID, in.Name, in.Price); err != nil {
		return nil, err
	}
	item.CategoryID = in.CategoryID
	item.Name = strings.TrimSpace(in.Name)
	item.Description = strings.TrimSpace(in.Description)
	item.Price = utils.RoundMoney(in.Price)
	item.ImageURL = in.ImageURL
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	item.IsVegetarian = in.IsVegetarian
	item.IsSpicy = in.IsSpicy
	item.PrepTimeMinutes = in.PrepTimeMinutes
	if item.PrepTimeMinutes == 0 {
		item.PrepTimeMinutes = DefaultPrepMinutes
	}
	item.SortOrder = in.SortOrder
	item.UpdatedAt = s.Clock.Now().UTC()

	err = s.DB.UpdateMenuItem(ctx, item, "category_id", "name", "description", "price", "image_url",
		"is_available", "is_vegetarian", "is_spicy", "prep_time_minutes", "sort_order", "updated_at")
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return item, nil
}

// PatchItem applies only the supplied fields, e.g. an availability toggle.
func (s *Service) PatchItem(ctx context.Context, tenantID, id string, in ItemPatch) (*models.MenuItem, error) {
	item, err := s.GetItem(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if in.CategoryID != nil {
		if _, err := s.GetCategory(ctx, tenantID, *in.CategoryID); err != nil {
			return nil, err
		}
		item.CategoryID = *in.CategoryID
		columns = append(columns, "category_id")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.NewValidation("Item name is required")
		}
		item.Name = name
		columns = append(columns, "name")
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
		columns = append(columns, "description")
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, apperr.NewValidation("Price cannot be negative")
		}
		item.Price = utils.RoundMoney(*in.Price)
		columns = append(columns, "price")
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
		columns = append(columns, "image_url")
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
		columns = append(columns, "is_available")
	}
	if in.IsVegetarian != nil {
		item.IsVegetarian = *in.IsVegetarian
		columns = append(columns, "is_vegetarian")
	}
	if in.IsSpicy != nil {
		item.IsSpicy = *in.IsSpicy
		columns = append(columns, "is_spicy")
	}
	if in.PrepTimeMinutes != nil {
		item.PrepTimeMinutes = *in.PrepTimeMinutes
		columns = append(columns, "prep_time_minutes")
	}
	if in.SortOrder != nil {
		item.SortOrder = *in.SortOrder
		columns = append(columns, "sort_order")
	}
	item.UpdatedAt = s.Clock.Now().UTC()

	if err := s.DB.UpdateMenuItem(ctx, item, columns...); err != nil {
		return nil, fmt.Errorf("patch menu item: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, tenantID, id string) error {
	if err := s.DB.DeleteMenuItem(ctx, tenantID, id); err != nil {
		if store.IsNotFound(err) {
			return apperr.NewNotFound("Menu item not found")
		}
		return fmt.Errorf("delete menu item: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return nil
}

func (s *Service) checkItem(ctx context.Context, tenantID, categoryID, name string, price float64) error {
	if strings.TrimSpace(name) == "" {
		return apperr.NewValidation("Item name is required")
	}
	if price < 0 {
		return apperr.NewValidation("Price cannot be negative")
	}
	if categoryID == "" {
		return apperr.NewValidation("Category is required")
	}
	_, err := s.GetCategory(ctx, tenantID, categoryID)
	return err
}

// ---------------- CUSTOMIZATIONS ----------------

type CustomizationInput struct {
	Name        string  `json:"name" validate:"required,max=80"`
	PriceDelta  float64 `json:"priceDelta"`
	IsAvailable *bool   `json:"isAvailable"`
	SortOrder   int     `json:"sortOrder"`
}

func (s *Service) AddCustomization(ctx context.Context, tenantID, itemID string, in CustomizationInput) (*models.Customization, error) {
	if _, err := s.GetItem(ctx, tenantID, itemID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.NewValidation("Customization name is required")
	}
	c := &models.Customization{
		ID:          uuid.NewString(),
		MenuItemID:  itemID,
		Name:        name,
		PriceDelta:  utils.RoundMoney(in.PriceDelta),
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
		SortOrder:   in.SortOrder,
	}
	if err := s.DB.CreateCustomization(ctx, c); err != nil {
		return nil, fmt.Errorf("create customization: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return c, nil
}

func (s *Service) RemoveCustomization(ctx context.Context, tenantID, itemID, id string) error {
	if _, err := s.GetItem(ctx, tenantID, itemID); err != nil {
		return err
	}
	if err := s.DB.DeleteCustomization(ctx, itemID, id); err != nil {
		if store.IsNotFound(err) {
			return apperr.NewNotFound("Customization not found")
		}
		return fmt.Errorf("delete customization: %w", err)
	}
	s.invalidateTenant(ctx, tenantID)
	return nil
}
