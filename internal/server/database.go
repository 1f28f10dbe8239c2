package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/cardscan/internal/common"
	repo "github.com/joseph-ayodele/cardscan/internal/repository"
)

// ConnectDB opens the configured database, retrying while it comes up, and
// creates missing tables.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	logger.Info("connecting to database", "driver", cfg.Driver)
	db, err := repo.OpenWithRetry(ctx, repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
		ConnectRetry:     cfg.ConnectRetry,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := repo.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		db.Close(logger)
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	if err := repo.HealthCheck(ctx, db, timeout, logger); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	return nil
}
