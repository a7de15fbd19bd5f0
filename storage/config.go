package storage

import (
	"fmt"
	"time"

	"webappauth/storage/postgres"
	"webappauth/storage/redis"
	"webappauth/storage/s3"
	"webappauth/storage/sqlite"
)

// HealthConfig содержит конфигурацию монитора здоровья хранилища
type HealthConfig struct {
	// CheckInterval - интервал между активными проверками
	CheckInterval time.Duration `yaml:"check_interval"`

	// CheckTimeout - таймаут для одной проверки
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// FailureThreshold - количество последовательных неудач для перехода в DOWN
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold - количество последовательных успехов для перехода из PROBING в UP
	SuccessThreshold int `yaml:"success_threshold"`

	// CircuitBreakerWindow - размер окна для подсчета ошибок запросов
	CircuitBreakerWindow time.Duration `yaml:"circuit_breaker_window"`

	// CircuitBreakerThreshold - количество ошибок запросов в окне для перехода в DOWN
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`

	// InitialState - начальное состояние при запуске
	InitialState State `yaml:"initial_state"`
}

// Config содержит полную конфигурацию хранилища
type Config struct {
	Driver   string          `yaml:"driver"`
	Postgres postgres.Config `yaml:"postgres"`
	SQLite   sqlite.Config   `yaml:"sqlite"`
	Redis    redis.Config    `yaml:"redis"`
	S3       s3.Config       `yaml:"s3"`
	Health   HealthConfig    `yaml:"health"`
}

// DefaultHealthConfig возвращает конфигурацию монитора по умолчанию
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		CheckInterval:           10 * time.Second,
		CheckTimeout:            2 * time.Second,
		FailureThreshold:        3,
		SuccessThreshold:        2,
		CircuitBreakerWindow:    60 * time.Second,
		CircuitBreakerThreshold: 5,
		InitialState:            StateProbing, // Начинаем с проверки
	}
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Driver:   DriverMemory,
		Postgres: postgres.DefaultConfig(),
		SQLite:   sqlite.DefaultConfig(),
		Redis:    redis.DefaultConfig(),
		S3:       s3.DefaultConfig(),
		Health:   DefaultHealthConfig(),
	}
}

// Validate проверяет корректность конфигурации. Проверяется только выбранный драйвер.
func (c *Config) Validate() error {
	var err error
	switch c.Driver {
	case DriverMemory:
	case DriverPostgres:
		err = c.Postgres.Validate()
	case DriverSQLite:
		err = c.SQLite.Validate()
	case DriverRedis:
		err = c.Redis.Validate()
	case DriverS3:
		err = c.S3.Validate()
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Driver)
	}
	if err != nil {
		return fmt.Errorf("storage.%s: %w", c.Driver, err)
	}

	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("storage.health: %w", err)
	}
	return nil
}

// Validate проверяет корректность конфигурации монитора
func (hc *HealthConfig) Validate() error {
	if hc.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}

	if hc.CheckTimeout <= 0 {
		return fmt.Errorf("check_timeout must be positive")
	}

	if hc.CheckTimeout >= hc.CheckInterval {
		return fmt.Errorf("check_timeout must be less than check_interval")
	}

	if hc.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive")
	}

	if hc.SuccessThreshold <= 0 {
		return fmt.Errorf("success_threshold must be positive")
	}

	if hc.CircuitBreakerWindow <= 0 {
		return fmt.Errorf("circuit_breaker_window must be positive")
	}

	if hc.CircuitBreakerThreshold <= 0 {
		return fmt.Errorf("circuit_breaker_threshold must be positive")
	}

	if hc.InitialState != StateUp && hc.InitialState != StateDown && hc.InitialState != StateProbing {
		return fmt.Errorf("initial_state must be one of: UP, DOWN, PROBING")
	}

	return nil
}
