// Package sequence hands out per-tenant, per-day numbers for orders and
// invoices.
package sequence

import (
	"context"
	"fmt"
	"time"

	"dineflow/internal/store"
)

const (
	ScopeOrder   = "order"
	ScopeInvoice = "invoice"
)

// Sequencer returns the next value of the (tenant, scope, day) counter.
// tx is the caller's transaction; implementations that keep the counter
// elsewhere ignore it.
type Sequencer interface {
	Next(ctx context.Context, tx *store.DB, tenantID, scope, day string) (int64, error)
}

// DB keeps counters in the sequences table, inside the caller's transaction,
// so a rolled back order or invoice also rolls back its number.
type DB struct{}

func (DB) Next(ctx context.Context, tx *store.DB, tenantID, scope, day string) (int64, error) {
	n, err := tx.NextSequence(ctx, tenantID, scope, day)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", scope, err)
	}
	return n, nil
}

// Counter is an atomic increment-and-expire primitive, such as cache.Redis.
type Counter interface {
	Next(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Redis keeps counters as INCR keys that expire two days after last use.
type Redis struct {
	Counter Counter
}

func (r Redis) Next(ctx context.Context, _ *store.DB, tenantID, scope, day string) (int64, error) {
	n, err := r.Counter.Next(ctx, Key(tenantID, scope, day), 48*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", scope, err)
	}
	return n, nil
}

func Key(tenantID, scope, day string) string {
	return fmt.Sprintf("seq:%s:%s:%s", scope, tenantID, day)
}
