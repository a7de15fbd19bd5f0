package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StoreState         *prometheus.GaugeVec     // Текущее состояние хранилища (1=UP, 0.5=PROBING, 0=DOWN)
	StoreRequestsTotal *prometheus.CounterVec   // Количество обращений к хранилищу
	StoreLatency       *prometheus.HistogramVec // Латентность обращений к хранилищу
	HealthChecksTotal  *prometheus.CounterVec   // Результаты активных проверок
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StoreState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webappauth_storage_state",
				Help: "Current state of the identity store (1=UP, 0.5=PROBING, 0=DOWN)",
			},
			[]string{"driver"},
		),
		StoreRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_storage_requests_total",
				Help: "Total number of requests sent to the identity store",
			},
			[]string{"driver", "result"},
		),
		StoreLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webappauth_storage_latency_seconds",
				Help:    "Latency of identity store requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"driver"},
		),
		HealthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_storage_health_checks_total",
				Help: "Total number of active identity store health checks",
			},
			[]string{"driver", "result"},
		),
	}
}
