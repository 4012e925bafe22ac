package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID          string    `bun:"id,pk" json:"id"`
	TenantID    string    `bun:"tenant_id,notnull" json:"tenantId"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	ImageURL    string    `bun:"image_url" json:"imageUrl"`
	SortOrder   int       `bun:"sort_order,notnull" json:"sortOrder"`
	IsActive    bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`

	Items []*MenuItem `bun:"rel:has-many,join:id=category_id" json:"items,omitempty"`
}

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID              string    `bun:"id,pk" json:"id"`
	TenantID        string    `bun:"tenant_id,notnull" json:"tenantId"`
	CategoryID      string    `bun:"category_id,notnull" json:"categoryId"`
	Name            string    `bun:"name,notnull" json:"name"`
	Description     string    `bun:"description" json:"description"`
	Price           float64   `bun:"price,notnull" json:"price"`
	ImageURL        string    `bun:"image_url" json:"imageUrl"`
	IsAvailable     bool      `bun:"is_available,notnull" json:"isAvailable"`
	IsVegetarian    bool      `bun:"is_vegetarian,notnull" json:"isVegetarian"`
	IsSpicy         bool      `bun:"is_spicy,notnull" json:"isSpicy"`
	PrepTimeMinutes int       `bun:"prep_time_minutes,notnull" json:"prepTimeMinutes"`
	SortOrder       int       `bun:"sort_order,notnull" json:"sortOrder"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updatedAt"`

	Customizations []*Customization `bun:"rel:has-many,join:id=menu_item_id" json:"customizations"`
}

type Customization struct {
	bun.BaseModel `bun:"table:customizations"`

	ID          string  `bun:"id,pk" json:"id"`
	MenuItemID  string  `bun:"menu_item_id,notnull" json:"menuItemId"`
	Name        string  `bun:"name,notnull" json:"name"`
	PriceDelta  float64 `bun:"price_delta,notnull" json:"priceDelta"`
	IsAvailable bool    `bun:"is_available,notnull" json:"isAvailable"`
	SortOrder   int     `bun:"sort_order,notnull" json:"sortOrder"`
}

type Table struct {
	bun.BaseModel `bun:"table:restaurant_tables,alias:rt"`

	ID        string    `bun:"id,pk" json:"id"`
	TenantID  string    `bun:"tenant_id,notnull,unique:tables_tenant_number" json:"tenantId"`
	Number    int       `bun:"number,notnull,unique:tables_tenant_number" json:"number"`
	Name      string    `bun:"name,notnull" json:"name"`
	Capacity  int       `bun:"capacity,notnull" json:"capacity"`
	QRPayload string    `bun:"qr_payload" json:"qrPayload"`
	IsActive  bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}
