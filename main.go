package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"webappauth/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := cli.App{
		Name:  "webappauth",
		Usage: "verifies mini-app init payloads and resolves local identities",
		Flags: serveFlags(),
		// Без подкоманды запускается сервис
		Action: runServe,
	}
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the authentication service",
			Flags:  serveFlags(),
			Action: runServe,
		},
		{
			Name:   "sign",
			Usage:  "produce a signed init payload for local testing",
			Flags:  signFlags(),
			Action: runSign,
		},
		{
			Name:   "keygen",
			Usage:  "print a fresh Ed25519 key pair for test environments",
			Action: runKeygen,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "configuration file path (YAML)",
			EnvVars: []string{"WEBAPPAUTH_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file loaded before the configuration is expanded",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "listen address (overrides config)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn, error (overrides config)",
		},
		&cli.StringFlag{
			Name:  "storage-driver",
			Usage: "identity store driver (overrides config)",
		},
		&cli.StringFlag{
			Name:  "metrics-listen",
			Usage: "metrics server listen address (overrides config)",
		},
		&cli.BoolFlag{
			Name:  "disable-metrics",
			Usage: "disable the metrics server (overrides config)",
		},
	}
}

func runServe(cctx *cli.Context) error {
	if err := loadEnvFile(cctx.String("env-file")); err != nil {
		return err
	}

	// Загружаем конфигурацию
	configFile := cctx.String("config")
	if configFile == "" {
		return fmt.Errorf("config file not provided, use --config or WEBAPPAUTH_CONFIG")
	}

	logger.Info("Loading configuration from file: %s", configFile)
	config, err := LoadConfig(configFile)
	if err != nil {
		return err
	}

	// Применяем переопределения из командной строки
	applyCommandLineOverrides(cctx, config)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Устанавливаем уровень и формат логирования
	level := logger.ParseLogLevel(config.Logging.Level)
	logger.Configure(level, config.Logging.Format)
	defer logger.Sync()

	logger.Info("webappauth starting...")
	logger.Info("Log level: %s", level.String())

	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()

	shutdownTracing, err := setupTracing(ctx, config.Tracing, config.Auth.Environment)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("Failed to shutdown tracing: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApplication(ctx, config, registry, registry)
	if err != nil {
		return err
	}

	if err := app.start(); err != nil {
		app.stop(shutdownTimeout)
		return err
	}

	logger.Info("Configuration:")
	logger.Info("  Listen Address: %s", config.Server.ListenAddress)
	logger.Info("  Request Timeout: %v", config.Server.RequestTimeout)
	logger.Info("  Storage Driver: %s", config.Storage.Driver)
	if config.Server.TLSCertFile != "" {
		logger.Info("  TLS Enabled: Yes")
	} else {
		logger.Info("  TLS Enabled: No")
	}

	// Настраиваем graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.gateway.Start()
	}()

	logger.Info("webappauth started successfully")
	if app.monitor.IsEnabled() {
		logger.Info("Metrics available at: %s%s", config.Monitoring.ListenAddress, config.Monitoring.MetricsPath)
	}

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down...", sig)
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stop(shutdownTimeout)
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	app.stop(shutdownTimeout)
	logger.Info("webappauth stopped")
	return nil
}

// loadEnvFile загружает .env, если он есть. Отсутствие файла не ошибка.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	logger.Debug("Loaded environment from %s", path)
	return nil
}

// applyCommandLineOverrides применяет переопределения из командной строки
func applyCommandLineOverrides(cctx *cli.Context, config *AppConfig) {
	if v := cctx.String("listen"); v != "" {
		config.Server.ListenAddress = v
		logger.Debug("Override: server.listen_address = %s", v)
	}

	if v := cctx.String("log-level"); v != "" {
		config.Logging.Level = v
		logger.Debug("Override: logging.level = %s", v)
	}

	if v := cctx.String("storage-driver"); v != "" {
		config.Storage.Driver = v
		logger.Debug("Override: storage.driver = %s", v)
	}

	if v := cctx.String("metrics-listen"); v != "" {
		config.Monitoring.ListenAddress = v
		logger.Debug("Override: monitoring.listen_address = %s", v)
	}

	if cctx.Bool("disable-metrics") {
		config.Monitoring.Enabled = false
		logger.Debug("Override: monitoring.enabled = false")
	}
}
