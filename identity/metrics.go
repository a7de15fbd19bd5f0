package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResolutionsTotal  *prometheus.CounterVec   // Исходы разрешения личности: created/updated/unchanged/error
	ResolutionLatency *prometheus.HistogramVec // Латентность обращения к хранилищу
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_identity_resolutions_total",
				Help: "Total number of identity resolutions by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webappauth_identity_resolution_latency_seconds",
				Help:    "Latency of identity store upserts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}
