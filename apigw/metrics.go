package apigw

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal  *prometheus.CounterVec   // Количество обработанных запросов по маршруту и коду
	RequestLatency *prometheus.HistogramVec // Латентность запросов
}

// NewMetrics регистрирует метрики шлюза в reg. nil - без регистрации.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_apigw_requests_total",
				Help: "Total number of processed gateway requests",
			},
			[]string{"route", "code"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webappauth_apigw_request_latency_seconds",
				Help:    "Latency of gateway requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}
