package storage

import (
	"context"
	"fmt"

	"webappauth/identity"
	"webappauth/logger"
	"webappauth/storage/memory"
	"webappauth/storage/postgres"
	"webappauth/storage/redis"
	"webappauth/storage/s3"
	"webappauth/storage/sqlite"
)

// New создает хранилище выбранного драйвера
func New(ctx context.Context, cfg *Config) (identity.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config not provided")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		store identity.Store
		err   error
	)

	switch cfg.Driver {
	case DriverMemory:
		logger.Warn("Using in-memory identity store: records are lost on restart")
		store = memory.New()
	case DriverPostgres:
		store, err = postgres.New(ctx, cfg.Postgres)
	case DriverSQLite:
		store, err = sqlite.New(ctx, cfg.SQLite)
	case DriverRedis:
		store, err = redis.New(ctx, cfg.Redis)
	case DriverS3:
		store, err = s3.New(ctx, cfg.S3)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Driver, err)
	}

	logger.Info("Identity store initialized with driver %s", cfg.Driver)
	return store, nil
}
