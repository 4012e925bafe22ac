// Package store is the bun data layer shared by every domain service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dineflow/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// ErrNoRows is returned by lookups and guarded writes that match nothing.
var ErrNoRows = sql.ErrNoRows

type DB struct {
	Bun bun.IDB
}

func New(db bun.IDB) *DB {
	return &DB{Bun: db}
}

// RunInTx runs fn inside one transaction. Calls made on an already
// transactional DB join the outer transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	db, ok := d.Bun.(*bun.DB)
	if !ok {
		return fn(ctx, d)
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation recognises duplicate-key errors from Postgres and SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AllModels lists every table in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		(*models.Tenant)(nil),
		(*models.BrandSettings)(nil),
		(*models.TaxSetting)(nil),
		(*models.Staff)(nil),
		(*models.PlatformAdmin)(nil),
		(*models.Customer)(nil),
		(*models.OTP)(nil),
		(*models.Category)(nil),
		(*models.MenuItem)(nil),
		(*models.Customization)(nil),
		(*models.Table)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.Invoice)(nil),
		(*models.WaiterCall)(nil),
		(*models.Sequence)(nil),
	}
}

// CreateSchema builds tables straight from the models. Production uses the
// SQL migrations; this is for tests and local SQLite runs.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, m := range AllModels() {
		if _, err := d.Bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

// expectRows turns a zero-row write into sql.ErrNoRows.
func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
