package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappauth/storage"
)

const sampleConfig = `
server:
  listen_address: ":8081"
  request_timeout: 3s
logging:
  level: debug
  format: json
auth:
  environment: test
  app_secret: ${WEBAPPAUTH_TEST_APP_SECRET}
  max_age: 1h
storage:
  driver: sqlite
  sqlite:
    path: ${WEBAPPAUTH_TEST_DB}
session:
  secret: ""
monitoring:
  enabled: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("WEBAPPAUTH_TEST_APP_SECRET", "123:ABC")
	t.Setenv("WEBAPPAUTH_TEST_DB", "/tmp/identities.db")

	config, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, ":8081", config.Server.ListenAddress)
	assert.Equal(t, 3*time.Second, config.Server.RequestTimeout)
	// Не заданные в файле поля берутся из значений по умолчанию
	assert.Equal(t, 10*time.Second, config.Server.ReadTimeout)

	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "123:ABC", config.Auth.AppSecret)
	assert.Equal(t, time.Hour, config.Auth.MaxAge)
	assert.Equal(t, 30*time.Second, config.Auth.ClockSkew)

	assert.Equal(t, storage.DriverSQLite, config.Storage.Driver)
	assert.Equal(t, "/tmp/identities.db", config.Storage.SQLite.Path)
	assert.False(t, config.Session.Enabled())
	assert.False(t, config.Monitoring.Enabled)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestAppConfigValidate(t *testing.T) {
	valid := func() *AppConfig {
		c := DefaultAppConfig()
		c.Auth.AppSecret = "123:ABC"
		return c
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"no verification keys", func(c *AppConfig) { c.Auth.AppSecret = "" }},
		{"bad log level", func(c *AppConfig) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *AppConfig) { c.Logging.Format = "xml" }},
		{"dev mode in production", func(c *AppConfig) { c.Auth.DevMode.Enabled = true }},
		{"unknown storage driver", func(c *AppConfig) { c.Storage.Driver = "cassandra" }},
		{"short session secret", func(c *AppConfig) { c.Session.Secret = "short" }},
		{"zero request timeout", func(c *AppConfig) { c.Server.RequestTimeout = 0 }},
		{"bad retry after", func(c *AppConfig) { c.Routing.RetryAfter = 0 }},
		{"bad sample ratio", func(c *AppConfig) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRatio = 2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	config := DefaultAppConfig()
	config.Auth.AppSecret = "123:ABC"
	config.Storage.Driver = storage.DriverRedis

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, config.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.Storage.Driver, loaded.Storage.Driver)
	assert.Equal(t, config.Auth.MaxAge, loaded.Auth.MaxAge)
	assert.NoError(t, loaded.Validate())
}
