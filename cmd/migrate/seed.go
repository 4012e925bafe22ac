package main

import (
	"context"
	"fmt"

	"dineflow/internal/config"
	"dineflow/internal/logger"
	"dineflow/internal/menu"
	"dineflow/internal/otp"
	"dineflow/internal/qr"
	"dineflow/internal/store"
	"dineflow/internal/table"
	"dineflow/internal/tenant"
)

const (
	demoEmail    = "owner@demo-bistro.local"
	demoPassword = "demo-bistro-2025"
)

var demoMenu = []struct {
	category string
	items    []menu.ItemInput
}{
	{"Starters", []menu.ItemInput{
		{Name: "Tomato Soup", Price: 5.50, PrepTimeMinutes: 5, IsVegetarian: true},
		{Name: "Chicken Wings", Price: 8.00, PrepTimeMinutes: 12, IsSpicy: true},
	}},
	{"Mains", []menu.ItemInput{
		{Name: "Margherita Pizza", Price: 11.00, PrepTimeMinutes: 15, IsVegetarian: true},
		{Name: "Grilled Salmon", Price: 18.50, PrepTimeMinutes: 20},
		{Name: "Beef Burger", Price: 13.00, PrepTimeMinutes: 15},
	}},
	{"Drinks", []menu.ItemInput{
		{Name: "Lemonade", Price: 3.00, PrepTimeMinutes: 1, IsVegetarian: true},
		{Name: "Espresso", Price: 2.50, PrepTimeMinutes: 2, IsVegetarian: true},
	}},
}

// seedDemo creates a ready-to-use restaurant for local development. It does
// nothing when the demo owner already exists.
func seedDemo(ctx context.Context, cfg *config.Config, db *store.DB, log *logger.Logger) error {
	if _, err := db.GetStaffByEmail(ctx, demoEmail); err == nil {
		log.Info("SEED", "Demo restaurant already present")
		return nil
	} else if !store.IsNotFound(err) {
		return err
	}

	menuSvc := menu.NewService(db, log)
	tables := table.NewService(db, qr.NewGenerator(cfg.QR.Secret, cfg.App.PublicBaseURL, cfg.QR.Size), log)
	tenants := &tenant.Service{
		DB:       db,
		OTP:      otp.NewService(db, log),
		Notifier: &otp.LogNotifier{Logger: log},
		Tables:   tables,
		Menu:     menuSvc,
		EmailTTL: cfg.OTP.EmailTTL,
		Logger:   log,
	}

	reg, err := tenants.Register(ctx, tenant.RegisterInput{
		RestaurantName: "Demo Bistro",
		OwnerName:      "Demo Owner",
		Email:          demoEmail,
		Password:       demoPassword,
	})
	if err != nil {
		return fmt.Errorf("register demo: %w", err)
	}
	t := reg.Tenant
	t.IsVerified = true
	if err := db.UpdateTenant(ctx, t, "is_verified"); err != nil {
		return fmt.Errorf("verify demo: %w", err)
	}

	if _, err := tenants.CompleteOnboarding(ctx, t.ID, tenant.OnboardingInput{
		Currency: "USD",
		Taxes:    []tenant.TaxInput{{Name: "Sales Tax", Rate: 8}},
		Tables:   &table.GenerateInput{Count: 8, Capacity: 4},
	}); err != nil {
		return fmt.Errorf("onboard demo: %w", err)
	}

	for i, section := range demoMenu {
		c, err := menuSvc.CreateCategory(ctx, t.ID, menu.CategoryInput{Name: section.category, SortOrder: i})
		if err != nil {
			return fmt.Errorf("seed category %s: %w", section.category, err)
		}
		for j, item := range section.items {
			item.CategoryID = c.ID
			item.SortOrder = j
			if _, err := menuSvc.CreateItem(ctx, t.ID, item); err != nil {
				return fmt.Errorf("seed item %s: %w", item.Name, err)
			}
		}
	}

	log.Info("SEED", fmt.Sprintf("Demo restaurant %q ready, sign in as %s / %s", t.Slug, demoEmail, demoPassword))
	return nil
}
