// Package database opens the Postgres pool behind the bun store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dineflow/internal/config"
	"dineflow/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Connect opens and pings the database, retrying while it starts up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	const attempts = 5
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = sqldb.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if i == attempts {
			sqldb.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		log.Warn("DATABASE", fmt.Sprintf("Database not ready (attempt %d/%d): %v", i, attempts, err))
		select {
		case <-ctx.Done():
			sqldb.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}

	log.LogDatabase("CONNECT", cfg.Database, fmt.Sprintf("Connected to %s:%s", cfg.Host, cfg.Port))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
