package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webappauth/logger"
)

// ReadinessChecker сообщает, готов ли сервис принимать запросы.
// Реализуется монитором здоровья хранилища.
type ReadinessChecker interface {
	IsReady() bool
}

// Server представляет HTTP сервер для экспорта метрик Prometheus
type Server struct {
	config       *Config
	server       *http.Server
	gatherer     prometheus.Gatherer
	readiness    ReadinessChecker
	metrics      *Metrics
	shuttingDown atomic.Bool
	addr         string

	// Канал для остановки сбора системных метрик
	stopSystemMetrics chan struct{}
	wg                sync.WaitGroup
}

// NewServer создает новый сервер метрик. readiness может быть nil.
func NewServer(config *Config, gatherer prometheus.Gatherer, readiness ReadinessChecker, metrics *Metrics) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Server{
		config:            config,
		gatherer:          gatherer,
		readiness:         readiness,
		metrics:           metrics,
		stopSystemMetrics: make(chan struct{}),
	}
}

// Handler возвращает мультиплексор с эндпоинтами метрик и health check
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health/live", s.liveHealthHandler)
	mux.HandleFunc("/health/ready", s.readyHealthHandler)
	return mux
}

// Start запускает HTTP сервер для метрик
func (s *Server) Start() error {
	if !s.config.Enabled {
		logger.Info("Monitoring is disabled, skipping metrics server start")
		return nil
	}

	// Слушаем синхронно, чтобы ошибка адреса вернулась вызывающему
	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		logger.Info("Metrics server listening on %s%s", s.addr, s.config.MetricsPath)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	if s.config.EnableSystemMetrics {
		s.wg.Add(1)
		go s.collectSystemMetrics()
	}

	return nil
}

// Addr возвращает фактический адрес сервера после Start
func (s *Server) Addr() string {
	return s.addr
}

// SetShuttingDown переводит /health/ready в состояние 503 до остановки
func (s *Server) SetShuttingDown() {
	s.shuttingDown.Store(true)
}

// Stop останавливает HTTP сервер метрик
func (s *Server) Stop(ctx context.Context) error {
	if !s.config.Enabled || s.server == nil {
		return nil
	}

	logger.Info("Stopping metrics server...")
	s.SetShuttingDown()

	// Останавливаем сбор системных метрик
	close(s.stopSystemMetrics)
	s.wg.Wait()

	return s.server.Shutdown(ctx)
}

func (s *Server) collectSystemMetrics() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SystemMetricsInterval)
	defer ticker.Stop()

	s.metrics.Collect()
	for {
		select {
		case <-ticker.C:
			s.metrics.Collect()
		case <-s.stopSystemMetrics:
			return
		}
	}
}

// liveHealthHandler обрабатывает запросы /health/live
func (s *Server) liveHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// readyHealthHandler обрабатывает запросы /health/ready
func (s *Server) readyHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Проверяем, не находимся ли мы в состоянии graceful shutdown
	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"shutting down"}`)
		return
	}

	// Готовы только при доступном хранилище
	if s.readiness != nil && !s.readiness.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"storage not ready"}`)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}
