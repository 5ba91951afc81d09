package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/appconfig"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

func openPool(ctx context.Context, cfg appconfig.Config, migrate bool, logger *slog.Logger) (*db.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}
	if migrate || cfg.AutoMigrate {
		if err := storage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database schema applied")
	}
	return pool, nil
}
