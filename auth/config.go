package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"
)

// Config содержит конфигурацию проверки init payload
type Config struct {
	// Environment определяет, каким публичным ключом платформы проверяется подпись ("production", "test")
	Environment string `yaml:"environment" json:"environment"`

	// AppSecret - секрет приложения для legacy-схемы. Пустое значение отключает схему.
	AppSecret string `yaml:"app_secret" json:"-"`

	// AppID - идентификатор приложения, входит в сообщение текущей схемы
	AppID string `yaml:"app_id" json:"app_id"`

	// PublicKeys - hex-представление публичных ключей платформы по окружениям
	PublicKeys map[string]string `yaml:"public_keys" json:"public_keys"`

	// MaxAge - максимальный возраст payload
	MaxAge time.Duration `yaml:"max_age" json:"max_age"`

	// ClockSkew - допустимое расхождение часов для auth_date из будущего
	ClockSkew time.Duration `yaml:"clock_skew" json:"clock_skew"`

	DevMode DevModeConfig `yaml:"dev_mode" json:"dev_mode"`
}

// DevModeConfig включает обход проверки подписи для локальной разработки
type DevModeConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Environment: string(EnvProduction),
		PublicKeys:  map[string]string{},
		MaxAge:      24 * time.Hour,
		ClockSkew:   30 * time.Second,
	}
}

// Validate проверяет корректность конфигурации аутентификации
func (c *Config) Validate() error {
	env, err := ParseEnvironment(c.Environment)
	if err != nil {
		return fmt.Errorf("%w: auth.environment: %v", ErrInvalidConfig, err)
	}

	for name, value := range c.PublicKeys {
		if _, err := ParseEnvironment(name); err != nil {
			return fmt.Errorf("%w: auth.public_keys.%s: %v", ErrInvalidConfig, name, err)
		}
		if _, err := ParsePublicKey(value); err != nil {
			return fmt.Errorf("%w: auth.public_keys.%s: %v", ErrInvalidConfig, name, err)
		}
	}

	_, hasPublicKey := c.PublicKeys[string(env)]
	if c.AppSecret == "" && !hasPublicKey {
		return fmt.Errorf("%w: auth: either app_secret or public_keys.%s must be set", ErrInvalidConfig, env)
	}
	if hasPublicKey && c.AppID == "" {
		return fmt.Errorf("%w: auth.app_id is required when public_keys.%s is set", ErrInvalidConfig, env)
	}

	if c.MaxAge <= 0 {
		return fmt.Errorf("%w: auth.max_age must be positive", ErrInvalidConfig)
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("%w: auth.clock_skew must not be negative", ErrInvalidConfig)
	}

	if c.DevMode.Enabled && env == EnvProduction {
		return fmt.Errorf("%w: auth.dev_mode cannot be enabled in production", ErrInvalidConfig)
	}

	return nil
}

// KeyMaterial строит ключи проверки из конфигурации
func (c *Config) KeyMaterial() (*KeyMaterial, error) {
	publicKeys := make(map[Environment]ed25519.PublicKey, len(c.PublicKeys))
	for name, value := range c.PublicKeys {
		env, err := ParseEnvironment(name)
		if err != nil {
			return nil, fmt.Errorf("%w: auth.public_keys.%s: %v", ErrInvalidConfig, name, err)
		}
		key, err := ParsePublicKey(value)
		if err != nil {
			return nil, fmt.Errorf("%w: auth.public_keys.%s: %v", ErrInvalidConfig, name, err)
		}
		publicKeys[env] = key
	}
	return NewKeyMaterial(c.AppSecret, c.AppID, publicKeys), nil
}

// NewFromConfig создает проверку подписи и свежести на основе конфигурации
func NewFromConfig(c *Config, metrics *Metrics) (*SchemeVerifier, *FreshnessGuard, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	keys, err := c.KeyMaterial()
	if err != nil {
		return nil, nil, err
	}
	env, _ := ParseEnvironment(c.Environment)

	guard, err := NewFreshnessGuard(c.MaxAge, c.ClockSkew, metrics)
	if err != nil {
		return nil, nil, err
	}

	return NewSchemeVerifier(keys, env, metrics), guard, nil
}
