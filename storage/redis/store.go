package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"webappauth/identity"
	"webappauth/logger"
)

// ErrTooManyConflicts - оптимистичная транзакция не прошла за отведенное число попыток.
var ErrTooManyConflicts = errors.New("too many concurrent updates")

// Config содержит настройки Redis драйвера
type Config struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	KeyPrefix  string `yaml:"key_prefix"`
	MaxRetries int    `yaml:"max_retries"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Address:    "localhost:6379",
		PoolSize:   10,
		KeyPrefix:  "webappauth:identity:",
		MaxRetries: 10,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive")
	}
	if c.DB < 0 {
		return fmt.Errorf("db must not be negative")
	}
	return nil
}

// Store хранит каждую запись JSON-значением под ключом prefix+platformUserID.
// Upsert выполняется оптимистичной транзакцией WATCH/MULTI/EXEC.
type Store struct {
	client     *goredis.Client
	prefix     string
	maxRetries int
}

// New подключается к Redis и проверяет соединение
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis identity store connected to %s (db %d)", cfg.Address, cfg.DB)
	return NewWithClient(client, cfg.KeyPrefix, cfg.MaxRetries), nil
}

// NewWithClient создает хранилище поверх готового клиента
func NewWithClient(client *goredis.Client, prefix string, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = DefaultConfig().MaxRetries
	}
	return &Store{client: client, prefix: prefix, maxRetries: maxRetries}
}

func (s *Store) key(platformUserID int64) string {
	return s.prefix + strconv.FormatInt(platformUserID, 10)
}

// UpsertByPlatformID реализует identity.Store
func (s *Store) UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*identity.Record, identity.Outcome, error) {
	key := s.key(platformUserID)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		var (
			result  *identity.Record
			outcome identity.Outcome
		)

		err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
			current, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}

			switch {
			case current == nil:
				result = &identity.Record{
					LocalID:        uuid.NewString(),
					PlatformUserID: platformUserID,
					Username:       identity.CloneUsername(username),
					CreatedAt:      time.Now().UTC(),
				}
				outcome = identity.OutcomeCreated
			case identity.SameUsername(current.Username, username):
				result, outcome = current, identity.OutcomeUnchanged
				return nil
			default:
				current.Username = identity.CloneUsername(username)
				result, outcome = current, identity.OutcomeUpdated
			}

			data, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("failed to encode identity: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, goredis.TxFailedErr) {
			logger.Debug("Redis transaction conflict on %s, attempt %d", key, attempt)
			continue
		}
		if err != nil {
			return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to upsert identity: %w", err)
		}
		return result, outcome, nil
	}

	return nil, identity.OutcomeUnchanged, fmt.Errorf("%w on %s after %d attempts", ErrTooManyConflicts, key, s.maxRetries)
}

func (s *Store) load(ctx context.Context, tx *goredis.Tx, key string) (*identity.Record, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var rec identity.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode identity %s: %w", key, err)
	}
	return &rec, nil
}

// Ping реализует identity.Store
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close реализует identity.Store
func (s *Store) Close() error {
	return s.client.Close()
}
