package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"webappauth/identity"
	"webappauth/logger"
)

// Config содержит настройки SQLite драйвера
type Config struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Path:        "./webappauth.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must not be negative")
	}
	return nil
}

func (c *Config) dsn() string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", c.Path, c.BusyTimeout.Milliseconds())
}

const schema = `CREATE TABLE IF NOT EXISTS identities (
	local_id TEXT PRIMARY KEY,
	platform_user_id INTEGER NOT NULL UNIQUE,
	username TEXT,
	created_at INTEGER NOT NULL
)`

// Запись создается или обновляется одним выражением; при совпадающем username
// строка не возвращается.
const upsertQuery = `INSERT INTO identities (local_id, platform_user_id, username, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (platform_user_id) DO UPDATE SET username = excluded.username
WHERE identities.username IS NOT excluded.username
RETURNING local_id, platform_user_id, username, created_at`

const selectQuery = `SELECT local_id, platform_user_id, username, created_at
FROM identities WHERE platform_user_id = ?`

// Store хранит записи в файле SQLite
type Store struct {
	db *sql.DB
}

// New открывает базу и применяет схему
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sqlite config: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite допускает одного писателя; одно соединение сериализует upsert внутри процесса
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite identity store opened at %s", cfg.Path)
	return &Store{db: db}, nil
}

// UpsertByPlatformID реализует identity.Store
func (s *Store) UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*identity.Record, identity.Outcome, error) {
	localID := uuid.NewString()
	now := time.Now().UTC()

	rec, err := scanRecord(s.db.QueryRowContext(ctx, upsertQuery, localID, platformUserID, username, now.UnixMicro()))
	if errors.Is(err, sql.ErrNoRows) {
		rec, err = scanRecord(s.db.QueryRowContext(ctx, selectQuery, platformUserID))
		if err != nil {
			return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to read identity: %w", err)
		}
		return rec, identity.OutcomeUnchanged, nil
	}
	if err != nil {
		return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to upsert identity: %w", err)
	}

	if rec.LocalID == localID {
		return rec, identity.OutcomeCreated, nil
	}
	return rec, identity.OutcomeUpdated, nil
}

// Ping реализует identity.Store
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close реализует identity.Store
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRecord(row *sql.Row) (*identity.Record, error) {
	var (
		rec       identity.Record
		username  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&rec.LocalID, &rec.PlatformUserID, &username, &createdAt); err != nil {
		return nil, err
	}
	if username.Valid {
		rec.Username = &username.String
	}
	rec.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &rec, nil
}
