package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"webappauth/identity"
	"webappauth/logger"
)

// Config содержит настройки PostgreSQL драйвера
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MaxConnLifetime: time.Hour,
		Migrate:         true,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max_conns must be positive")
	}
	return nil
}

const schema = `CREATE TABLE IF NOT EXISTS identities (
	local_id TEXT PRIMARY KEY,
	platform_user_id BIGINT NOT NULL UNIQUE,
	username TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertQuery = `INSERT INTO identities (local_id, platform_user_id, username, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (platform_user_id) DO UPDATE SET username = EXCLUDED.username
WHERE identities.username IS DISTINCT FROM EXCLUDED.username
RETURNING local_id, platform_user_id, username, created_at`

const selectQuery = `SELECT local_id, platform_user_id, username, created_at
FROM identities WHERE platform_user_id = $1`

// Store хранит записи в PostgreSQL. Уникальность platform_user_id обеспечивает индекс.
type Store struct {
	pool *pgxpool.Pool
}

// New создает пул соединений и, если включено, применяет схему
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{pool: pool}
	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("PostgreSQL identity store connected (max_conns=%d)", cfg.MaxConns)
	return store, nil
}

// Migrate создает таблицу identities, если ее нет
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// UpsertByPlatformID реализует identity.Store
func (s *Store) UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*identity.Record, identity.Outcome, error) {
	localID := uuid.NewString()

	rec, err := scanRecord(s.pool.QueryRow(ctx, upsertQuery, localID, platformUserID, username, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		rec, err = scanRecord(s.pool.QueryRow(ctx, selectQuery, platformUserID))
		if err != nil {
			return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to read identity: %w", err)
		}
		return rec, identity.OutcomeUnchanged, nil
	}
	if err != nil {
		return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to upsert identity: %w", err)
	}

	// Сгенерированный id проигравшей вставки отбрасывается
	if rec.LocalID == localID {
		return rec, identity.OutcomeCreated, nil
	}
	return rec, identity.OutcomeUpdated, nil
}

// Ping реализует identity.Store
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close реализует identity.Store
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (*identity.Record, error) {
	var rec identity.Record
	if err := row.Scan(&rec.LocalID, &rec.PlatformUserID, &rec.Username, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
