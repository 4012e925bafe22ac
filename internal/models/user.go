package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleOwner   = "OWNER"
	RoleManager = "MANAGER"
	RoleChef    = "CHEF"
	RoleWaiter  = "WAITER"

	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

type Staff struct {
	bun.BaseModel `bun:"table:staff"`

	ID           string     `bun:"id,pk" json:"id"`
	TenantID     string     `bun:"tenant_id,notnull" json:"tenantId"`
	Name         string     `bun:"name,notnull" json:"name"`
	Email        string     `bun:"email,notnull,unique" json:"email"`
	Phone        string     `bun:"phone" json:"phone"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Role         string     `bun:"role,notnull" json:"role"`
	IsActive     bool       `bun:"is_active,notnull" json:"isActive"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

type PlatformAdmin struct {
	bun.BaseModel `bun:"table:platform_admins"`

	ID           string     `bun:"id,pk" json:"id"`
	Name         string     `bun:"name,notnull" json:"name"`
	Email        string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Role         string     `bun:"role,notnull" json:"role"`
	IsActive     bool       `bun:"is_active,notnull" json:"isActive"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID          string     `bun:"id,pk" json:"id"`
	TenantID    string     `bun:"tenant_id,notnull,unique:customers_tenant_phone" json:"tenantId"`
	Phone       string     `bun:"phone,notnull,unique:customers_tenant_phone" json:"phone"`
	Name        string     `bun:"name" json:"name"`
	Email       string     `bun:"email" json:"email"`
	IsVerified  bool       `bun:"is_verified,notnull" json:"isVerified"`
	TotalOrders int        `bun:"total_orders,notnull" json:"totalOrders"`
	TotalSpent  float64    `bun:"total_spent,notnull" json:"totalSpent"`
	LastOrderAt *time.Time `bun:"last_order_at" json:"lastOrderAt,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

type OTP struct {
	bun.BaseModel `bun:"table:otps"`

	ID         string    `bun:"id,pk"`
	Identifier string    `bun:"identifier,notnull"`
	Code       string    `bun:"code,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	Verified   bool      `bun:"verified,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}
