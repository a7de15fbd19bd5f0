package apigw

import (
	"fmt"
	"time"
)

// Config содержит конфигурацию для API Gateway
type Config struct {
	// ListenAddress - адрес и порт для прослушивания (например, ":8080")
	ListenAddress string `yaml:"listen_address"`

	// TLSCertFile - путь к файлу SSL-сертификата (опционально, для включения HTTPS)
	TLSCertFile string `yaml:"tls_cert_file"`

	// TLSKeyFile - путь к файлу приватного ключа SSL (опционально)
	TLSKeyFile string `yaml:"tls_key_file"`

	// ReadTimeout - таймаут на чтение всего запроса, включая тело
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout - таймаут на запись всего ответа
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RequestTimeout - дедлайн обработки одного запроса, включая обращение к хранилищу
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ListenAddress:  ":8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	return nil
}
