// Package database opens the Postgres pool backing semantic recall and
// applies its schema migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindforge-ai/mindforge/internal/config"
)

// NewPostgresPool connects to the recall database and verifies the
// connection before returning.
func NewPostgresPool(ctx context.Context, cfg config.RecallConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	slog.Info("connected to PostgreSQL", "db", poolCfg.ConnConfig.Database, "host", poolCfg.ConnConfig.Host)
	return pool, nil
}
