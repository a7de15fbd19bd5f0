package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"webappauth/identity"
	"webappauth/logger"
)

// HealthMonitor следит за доступностью хранилища: активные проверки Ping по таймеру
// и пассивные отчеты о результатах запросов через MonitoredStore.
type HealthMonitor struct {
	driver  string
	store   identity.Store
	config  HealthConfig
	metrics *Metrics

	// Состояние, защищенное мьютексом
	stateMu              sync.RWMutex
	state                State
	lastError            error
	lastCheckTime        time.Time
	consecutiveFailures  int
	consecutiveSuccesses int
	recentFailures       int
	windowStart          time.Time

	// Управление жизненным циклом
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewHealthMonitor создает монитор для хранилища
func NewHealthMonitor(driver string, store identity.Store, cfg HealthConfig, metrics *Metrics) (*HealthMonitor, error) {
	if store == nil {
		return nil, fmt.Errorf("store not provided")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid health config: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	m := &HealthMonitor{
		driver:      driver,
		store:       store,
		config:      cfg,
		metrics:     metrics,
		windowStart: time.Now(),
		stopChan:    make(chan struct{}),
	}
	m.setState(cfg.InitialState)

	logger.Info("Storage health monitor created for driver %s with initial state %s", driver, cfg.InitialState)
	return m, nil
}

// Start запускает активные проверки
func (m *HealthMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("storage health monitor is already running")
	}

	m.wg.Add(1)
	go m.runHealthChecks()

	m.running = true
	logger.Info("Storage health monitor started")
	return nil
}

// Stop останавливает активные проверки
func (m *HealthMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	close(m.stopChan)
	m.wg.Wait()

	// Новый канал для возможного повторного запуска
	m.stopChan = make(chan struct{})
	m.running = false
	logger.Info("Storage health monitor stopped")
	return nil
}

// IsRunning возвращает true, если монитор запущен
func (m *HealthMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// State возвращает текущее состояние (потокобезопасно)
func (m *HealthMonitor) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// LastError возвращает последнюю ошибку (потокобезопасно)
func (m *HealthMonitor) LastError() error {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.lastError
}

// LastCheckTime возвращает время последней активной проверки (потокобезопасно)
func (m *HealthMonitor) LastCheckTime() time.Time {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.lastCheckTime
}

// IsReady сообщает, можно ли принимать трафик. Готовность есть только в состоянии UP.
func (m *HealthMonitor) IsReady() bool {
	return m.State() == StateUp
}

// Driver возвращает имя драйвера хранилища
func (m *HealthMonitor) Driver() string {
	return m.driver
}

// isBenignError классифицирует ошибку как не указывающую на проблему хранилища.
// Отмена запроса клиентом или истечение его дедлайна хранилище не наказывают.
func isBenignError(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ReportSuccess сообщает об успешном запросе.
// Если хранилище было в DOWN, успешный запрос возвращает его в строй.
func (m *HealthMonitor) ReportSuccess(duration time.Duration) {
	m.metrics.StoreRequestsTotal.WithLabelValues(m.driver, "success").Inc()
	m.metrics.StoreLatency.WithLabelValues(m.driver).Observe(duration.Seconds())

	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.consecutiveFailures = 0
	m.consecutiveSuccesses++
	m.recentFailures = 0

	if m.state == StateDown {
		logger.Info("Identity store is back online after a successful request")
		m.setStateLocked(StateUp)
	}
}

// ReportFailure сообщает о неудачном запросе, учитывая тип ошибки.
func (m *HealthMonitor) ReportFailure(err error, duration time.Duration) {
	m.metrics.StoreLatency.WithLabelValues(m.driver).Observe(duration.Seconds())

	if isBenignError(err) {
		m.metrics.StoreRequestsTotal.WithLabelValues(m.driver, "canceled").Inc()
		logger.Debug("ReportFailure: benign error on identity store, not affecting circuit breaker: %v", err)
		return
	}
	m.metrics.StoreRequestsTotal.WithLabelValues(m.driver, "error").Inc()

	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.consecutiveSuccesses = 0
	m.consecutiveFailures++
	m.lastError = err

	now := time.Now()
	if now.Sub(m.windowStart) > m.config.CircuitBreakerWindow {
		m.recentFailures = 1
		m.windowStart = now
	} else {
		m.recentFailures++
	}

	logger.Warn("ReportFailure: identity store failure, consecutive: %d, recent: %d. Error: %v",
		m.consecutiveFailures, m.recentFailures, err)

	if m.state != StateDown && m.recentFailures >= m.config.CircuitBreakerThreshold {
		logger.Error("Circuit breaker triggered for identity store: %d failures in %v. Setting state to DOWN.",
			m.recentFailures, now.Sub(m.windowStart))
		m.setStateLocked(StateDown)
	}
}

// runHealthChecks выполняет активные проверки в фоновом режиме
func (m *HealthMonitor) runHealthChecks() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.CheckNow()

	for {
		select {
		case <-ticker.C:
			m.CheckNow()
		case <-m.stopChan:
			logger.Debug("Storage health check routine stopped")
			return
		}
	}
}

// CheckNow выполняет одну активную проверку и применяет переходы состояний
func (m *HealthMonitor) CheckNow() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.CheckTimeout)
	defer cancel()

	err := m.store.Ping(ctx)

	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.lastCheckTime = time.Now()
	oldState := m.state

	if err != nil {
		m.metrics.HealthChecksTotal.WithLabelValues(m.driver, "failure").Inc()
		m.lastError = err
		m.consecutiveSuccesses = 0
		m.consecutiveFailures++

		logger.Debug("Identity store health check failed: %v (consecutive failures: %d)", err, m.consecutiveFailures)

		switch m.state {
		case StateUp:
			if m.consecutiveFailures >= m.config.FailureThreshold {
				m.setStateLocked(StateDown)
			}
		case StateProbing:
			// Из PROBING сразу в DOWN при любой неудаче
			m.setStateLocked(StateDown)
		}
	} else {
		m.metrics.HealthChecksTotal.WithLabelValues(m.driver, "success").Inc()
		m.lastError = nil
		m.consecutiveFailures = 0
		m.consecutiveSuccesses++

		switch m.state {
		case StateDown:
			m.setStateLocked(StateProbing)
		case StateProbing:
			if m.consecutiveSuccesses >= m.config.SuccessThreshold {
				m.setStateLocked(StateUp)
			}
		}
	}

	if oldState != m.state {
		logger.Info("Identity store state changed: %s -> %s", oldState, m.state)
	}
}

func (m *HealthMonitor) setState(state State) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.setStateLocked(state)
}

func (m *HealthMonitor) setStateLocked(state State) {
	m.state = state
	m.metrics.StoreState.WithLabelValues(m.driver).Set(state.ToFloat64())
}

// MonitoredStore оборачивает хранилище и сообщает монитору о результатах запросов
type MonitoredStore struct {
	identity.Store
	monitor *HealthMonitor
}

// NewMonitoredStore создает обертку над хранилищем монитора
func NewMonitoredStore(monitor *HealthMonitor) *MonitoredStore {
	return &MonitoredStore{Store: monitor.store, monitor: monitor}
}

// UpsertByPlatformID реализует identity.Store
func (s *MonitoredStore) UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*identity.Record, identity.Outcome, error) {
	start := time.Now()
	rec, outcome, err := s.Store.UpsertByPlatformID(ctx, platformUserID, username)
	if err != nil {
		s.monitor.ReportFailure(err, time.Since(start))
	} else {
		s.monitor.ReportSuccess(time.Since(start))
	}
	return rec, outcome, err
}
