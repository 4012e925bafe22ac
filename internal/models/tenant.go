package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PlanFree  = "FREE"
	PlanBasic = "BASIC"
	PlanPro   = "PRO"
)

type Tenant struct {
	bun.BaseModel `bun:"table:tenants"`

	ID                    string     `bun:"id,pk" json:"id"`
	Name                  string     `bun:"name,notnull" json:"name"`
	Slug                  string     `bun:"slug,notnull,unique" json:"slug"`
	Email                 string     `bun:"email,notnull" json:"email"`
	Phone                 string     `bun:"phone" json:"phone"`
	Address               string     `bun:"address" json:"address"`
	Currency              string     `bun:"currency,notnull" json:"currency"`
	TaxInclusive          bool       `bun:"tax_inclusive,notnull" json:"taxInclusive"`
	IsActive              bool       `bun:"is_active,notnull" json:"isActive"`
	IsVerified            bool       `bun:"is_verified,notnull" json:"isVerified"`
	OnboardingCompleted   bool       `bun:"onboarding_completed,notnull" json:"onboardingCompleted"`
	SubscriptionPlan      string     `bun:"subscription_plan,notnull" json:"subscriptionPlan"`
	SubscriptionExpiresAt *time.Time `bun:"subscription_expires_at" json:"subscriptionExpiresAt,omitempty"`
	CreatedAt             time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt             time.Time  `bun:"updated_at,notnull" json:"updatedAt"`

	Brand *BrandSettings `bun:"rel:has-one,join:id=tenant_id" json:"brand,omitempty"`
}

type BrandSettings struct {
	bun.BaseModel `bun:"table:brand_settings"`

	TenantID        string    `bun:"tenant_id,pk" json:"tenantId"`
	PrimaryColor    string    `bun:"primary_color" json:"primaryColor"`
	SecondaryColor  string    `bun:"secondary_color" json:"secondaryColor"`
	AccentColor     string    `bun:"accent_color" json:"accentColor"`
	BackgroundColor string    `bun:"background_color" json:"backgroundColor"`
	TextColor       string    `bun:"text_color" json:"textColor"`
	FontFamily      string    `bun:"font_family" json:"fontFamily"`
	LogoURL         string    `bun:"logo_url" json:"logoUrl"`
	CoverImageURL   string    `bun:"cover_image_url" json:"coverImageUrl"`
	WelcomeTitle    string    `bun:"welcome_title" json:"welcomeTitle"`
	WelcomeMessage  string    `bun:"welcome_message" json:"welcomeMessage"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// DefaultBrand is the palette every new tenant starts with.
func DefaultBrand(tenantID, name string, now time.Time) *BrandSettings {
	return &BrandSettings{
		TenantID:        tenantID,
		PrimaryColor:    "#E85D04",
		SecondaryColor:  "#370617",
		AccentColor:     "#FFBA08",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#1F2937",
		FontFamily:      "Inter",
		WelcomeTitle:    "Welcome to " + name,
		WelcomeMessage:  "Scan, browse and order right from your table.",
		UpdatedAt:       now,
	}
}

type TaxSetting struct {
	bun.BaseModel `bun:"table:tax_settings"`

	ID        string  `bun:"id,pk" json:"id"`
	TenantID  string  `bun:"tenant_id,notnull" json:"tenantId"`
	Name      string  `bun:"name,notnull" json:"name"`
	Rate      float64 `bun:"rate,notnull" json:"rate"`
	IsActive  bool    `bun:"is_active,notnull" json:"isActive"`
	SortOrder int     `bun:"sort_order,notnull" json:"sortOrder"`
}
