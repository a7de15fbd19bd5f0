package routing

import (
	"fmt"
	"time"

	"webappauth/identity"
	"webappauth/session"
)

// SessionIssuer - интерфейс модуля сессионных токенов
type SessionIssuer interface {
	// Issue подписывает токен для записи личности
	Issue(rec *identity.Record) (string, time.Time, error)

	// Validate проверяет токен и возвращает его содержимое
	Validate(token string) (*session.Claims, error)
}

// InitResponse - тело успешного ответа POST /auth/init
type InitResponse struct {
	Identity  *identity.Record `json:"identity"`
	Token     string           `json:"token,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// MeResponse - тело успешного ответа GET /auth/me
type MeResponse struct {
	LocalID        string    `json:"local_id"`
	PlatformUserID int64     `json:"platform_user_id"`
	Username       *string   `json:"username"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Config содержит конфигурацию для Routing Engine
type Config struct {
	// RetryAfter - значение заголовка Retry-After при недоступном хранилище
	RetryAfter time.Duration `yaml:"retry_after"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		RetryAfter: 5 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.RetryAfter < time.Second {
		return fmt.Errorf("routing.retry_after must be at least 1s")
	}
	return nil
}
