package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"webappauth/apigw"
	"webappauth/auth"
	"webappauth/logger"
	"webappauth/monitoring"
	"webappauth/routing"
	"webappauth/session"
	"webappauth/storage"
)

// AppConfig содержит полную конфигурацию приложения
type AppConfig struct {
	// Конфигурация API Gateway
	Server apigw.Config `yaml:"server"`

	// Конфигурация логирования
	Logging LoggingConfig `yaml:"logging"`

	// Конфигурация проверки init payload
	Auth auth.Config `yaml:"auth"`

	// Конфигурация хранилища личностей
	Storage storage.Config `yaml:"storage"`

	// Конфигурация сессионных токенов
	Session session.Config `yaml:"session"`

	// Конфигурация ответов Routing Engine
	Routing routing.Config `yaml:"routing"`

	// Конфигурация мониторинга
	Monitoring monitoring.Config `yaml:"monitoring"`

	// Конфигурация трассировки
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig содержит конфигурацию логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultAppConfig возвращает конфигурацию по умолчанию
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: apigw.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: logger.FormatConsole,
		},
		Auth:       auth.DefaultConfig(),
		Storage:    storage.DefaultConfig(),
		Session:    session.DefaultConfig(),
		Routing:    *routing.DefaultConfig(),
		Monitoring: *monitoring.DefaultConfig(),
		Tracing:    DefaultTracingConfig(),
	}
}

// LoadConfig загружает конфигурацию из файла.
// Ссылки вида ${VAR} подставляются из окружения до разбора YAML.
func LoadConfig(filename string) (*AppConfig, error) {
	// Читаем файл
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	// Начинаем с конфигурации по умолчанию
	config := DefaultAppConfig()

	// Парсим YAML
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *AppConfig) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}

	// Валидируем логирование
	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: invalid level %q", c.Logging.Level)
	}
	if c.Logging.Format != logger.FormatConsole && c.Logging.Format != logger.FormatJSON {
		return fmt.Errorf("logging.format: must be %q or %q", logger.FormatConsole, logger.FormatJSON)
	}

	// Валидируем конфигурации модулей
	if err := c.Auth.Validate(); err != nil {
		return err
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if err := c.Session.Validate(); err != nil {
		return err
	}

	if err := c.Routing.Validate(); err != nil {
		return err
	}

	if err := c.Monitoring.Validate(); err != nil {
		return err
	}

	if err := c.Tracing.Validate(); err != nil {
		return err
	}

	return nil
}

// isValidLogLevel проверяет корректность уровня логирования
func isValidLogLevel(level string) bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return true
		}
	}
	return false
}

// SaveConfig сохраняет конфигурацию в файл (для генерации примера).
// Секреты помечены json:"-", но в YAML попадают, поэтому файл создается с правами 0600.
func (c *AppConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
