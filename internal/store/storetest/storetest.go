// Package storetest opens throwaway SQLite databases for package tests.
package storetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"dineflow/internal/models"
	"dineflow/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns a migrated in-memory store closed at test cleanup.
func New(t testing.TB) *store.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// A second pooled connection would see a different empty database.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	db := store.New(bunDB)
	require.NoError(t, db.CreateSchema(context.Background()))
	return db
}

// SeedTenant inserts an active, verified and onboarded tenant with default
// brand settings.
func SeedTenant(t testing.TB, db *store.DB, slug string) *models.Tenant {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	tenant := &models.Tenant{
		ID:                  uuid.NewString(),
		Name:                slug,
		Slug:                slug,
		Email:               slug + "@example.com",
		Currency:            "USD",
		IsActive:            true,
		IsVerified:          true,
		OnboardingCompleted: true,
		SubscriptionPlan:    models.PlanFree,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, db.CreateTenant(ctx, tenant))
	tenant.Brand = models.DefaultBrand(tenant.ID, tenant.Name, now)
	require.NoError(t, db.CreateBrand(ctx, tenant.Brand))
	return tenant
}
