package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AuthRequestsTotal *prometheus.CounterVec   // Количество аутентификаций по результату
	AuthLatency       *prometheus.HistogramVec // Полная латентность конвейера
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_auth_requests_total",
				Help: "Total number of init payload authentications",
			},
			[]string{"mode", "result"}, // result: success или этап ошибки
		),
		AuthLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webappauth_auth_latency_seconds",
				Help:    "Latency of init payload authentication in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"mode"},
		),
	}
}

func (m *Metrics) observe(mode string, err error, seconds float64) {
	result := "success"
	if err != nil {
		result = KindOf(err).String()
	}
	m.AuthRequestsTotal.WithLabelValues(mode, result).Inc()
	m.AuthLatency.WithLabelValues(mode).Observe(seconds)
}
