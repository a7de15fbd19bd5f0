package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"webappauth/storage/memory"
	"webappauth/storage/sqlite"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Driver != DriverMemory {
		t.Errorf("Expected default driver memory, got %q", config.Driver)
	}
	if config.Health.CheckInterval <= 0 {
		t.Error("Expected positive health check interval")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid default config", func(c *Config) {}, false},
		{"Unknown driver", func(c *Config) { c.Driver = "mongo" }, true},
		{"Postgres without dsn", func(c *Config) { c.Driver = DriverPostgres }, true},
		{"Postgres with dsn", func(c *Config) {
			c.Driver = DriverPostgres
			c.Postgres.DSN = "postgres://localhost/webappauth"
		}, false},
		{"SQLite without path", func(c *Config) {
			c.Driver = DriverSQLite
			c.SQLite.Path = ""
		}, true},
		{"Redis without address", func(c *Config) {
			c.Driver = DriverRedis
			c.Redis.Address = ""
		}, true},
		{"S3 without bucket", func(c *Config) { c.Driver = DriverS3 }, true},
		{"Invalid driver config is ignored for other drivers", func(c *Config) { c.Redis.Address = "" }, false},
		{"Zero check interval", func(c *Config) { c.Health.CheckInterval = 0 }, true},
		{"Timeout not less than interval", func(c *Config) { c.Health.CheckTimeout = c.Health.CheckInterval }, true},
		{"Zero failure threshold", func(c *Config) { c.Health.FailureThreshold = 0 }, true},
		{"Zero success threshold", func(c *Config) { c.Health.SuccessThreshold = 0 }, true},
		{"Zero breaker window", func(c *Config) { c.Health.CircuitBreakerWindow = 0 }, true},
		{"Zero breaker threshold", func(c *Config) { c.Health.CircuitBreakerThreshold = 0 }, true},
		{"Unknown initial state", func(c *Config) { c.Health.InitialState = "MAYBE" }, true},
		{"Negative busy timeout", func(c *Config) {
			c.Driver = DriverSQLite
			c.SQLite.BusyTimeout = -time.Second
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(&config)
			err := config.Validate()
			if tc.expectError && err == nil {
				t.Error("Expected validation error, but got none")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no validation error, but got: %v", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		config := DefaultConfig()
		store, err := New(ctx, &config)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		defer store.Close()
		if _, ok := store.(*memory.Store); !ok {
			t.Errorf("Expected *memory.Store, got %T", store)
		}
	})

	t.Run("SQLite", func(t *testing.T) {
		config := DefaultConfig()
		config.Driver = DriverSQLite
		config.SQLite.Path = filepath.Join(t.TempDir(), "identities.db")

		store, err := New(ctx, &config)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		defer store.Close()
		if _, ok := store.(*sqlite.Store); !ok {
			t.Errorf("Expected *sqlite.Store, got %T", store)
		}
	})

	t.Run("NilConfig", func(t *testing.T) {
		if _, err := New(ctx, nil); err == nil {
			t.Error("Expected error for nil config")
		}
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		config := DefaultConfig()
		config.Driver = "unknown"
		store, err := New(ctx, &config)
		if err == nil {
			t.Error("Expected error for unknown driver")
		}
		if store != nil {
			t.Error("Expected nil store for invalid config")
		}
	})
}
