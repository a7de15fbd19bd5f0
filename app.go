package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"webappauth/apigw"
	"webappauth/auth"
	"webappauth/identity"
	"webappauth/logger"
	"webappauth/monitoring"
	"webappauth/pipeline"
	"webappauth/routing"
	"webappauth/session"
	"webappauth/storage"
)

// application связывает модули сервиса
type application struct {
	config  *AppConfig
	gateway *apigw.Gateway
	monitor *monitoring.Monitor
	health  *storage.HealthMonitor
	store   identity.Store
}

// newApplication собирает все модули по конфигурации. Метрики регистрируются в reg,
// /metrics отдает gatherer.
func newApplication(ctx context.Context, config *AppConfig, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*application, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Хранилище и монитор его здоровья
	store, err := storage.New(ctx, &config.Storage)
	if err != nil {
		return nil, err
	}

	health, err := storage.NewHealthMonitor(config.Storage.Driver, store, config.Storage.Health, storage.NewMetrics(reg))
	if err != nil {
		store.Close()
		return nil, err
	}

	resolver := identity.NewResolver(storage.NewMonitoredStore(health), identity.NewMetrics(reg))
	pipelineMetrics := pipeline.NewMetrics(reg)

	// Конвейер аутентификации
	var authenticator pipeline.Authenticator
	if config.Auth.DevMode.Enabled {
		authenticator = pipeline.NewDevPipeline(resolver, pipelineMetrics)
	} else {
		verifier, freshness, err := auth.NewFromConfig(&config.Auth, auth.NewMetrics(reg))
		if err != nil {
			store.Close()
			return nil, err
		}
		authenticator = pipeline.New(verifier, freshness, resolver, pipelineMetrics)
		logger.Info("Init payload verification configured for %s environment, max age %v",
			config.Auth.Environment, config.Auth.MaxAge)
	}

	// Сессионные токены опциональны. Интерфейс получает nil только явно.
	var sessions routing.SessionIssuer
	if config.Session.Enabled() {
		manager, err := session.NewManager(config.Session)
		if err != nil {
			store.Close()
			return nil, err
		}
		sessions = manager
		logger.Info("Session tokens enabled, ttl %v", config.Session.TTL)
	} else {
		logger.Info("Session tokens disabled")
	}

	engine := routing.NewEngine(authenticator, sessions, &config.Routing)
	gateway := apigw.New(config.Server, engine, apigw.NewMetrics(reg))

	monitor, err := monitoring.New(&config.Monitoring, reg, gatherer, health)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &application{
		config:  config,
		gateway: gateway,
		monitor: monitor,
		health:  health,
		store:   store,
	}, nil
}

// start запускает фоновые модули. Сам шлюз запускается отдельно, так как блокирует.
func (a *application) start() error {
	if err := a.health.Start(); err != nil {
		return fmt.Errorf("failed to start storage health monitor: %w", err)
	}
	if err := a.monitor.Start(); err != nil {
		return err
	}
	return nil
}

// stop останавливает модули в обратном порядке
func (a *application) stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.monitor.SetShuttingDown()

	if err := a.gateway.Stop(ctx); err != nil {
		logger.Error("Error stopping API Gateway: %v", err)
	}

	if err := a.health.Stop(); err != nil {
		logger.Error("Error stopping storage health monitor: %v", err)
	}

	if err := a.store.Close(); err != nil {
		logger.Error("Error closing identity store: %v", err)
	}

	if err := a.monitor.Stop(ctx); err != nil {
		logger.Error("Error stopping monitoring: %v", err)
	}
}
