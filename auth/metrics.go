package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Проверка подписи
	VerificationsTotal  *prometheus.CounterVec   // Количество проверок по схеме и результату
	VerificationLatency *prometheus.HistogramVec // Латентность проверки подписи

	// Свежесть
	FreshnessRejections *prometheus.CounterVec // Отклонения по причине expired/future

	// Ошибки конфигурации ключей (ErrUnknownKey)
	ConfigFaults prometheus.Counter
}

// NewMetrics регистрирует метрики в reg. При nil метрики не регистрируются (удобно для тестов).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_verifications_total",
				Help: "Total number of init payload signature verifications",
			},
			[]string{"scheme", "result"}, // success/mismatch/unknown_key
		),
		VerificationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webappauth_verification_latency_seconds",
				Help:    "Latency of init payload signature verification in seconds",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01}, // проверка чисто вычислительная
			},
			[]string{"scheme"},
		),
		FreshnessRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webappauth_freshness_rejections_total",
				Help: "Total number of init payloads rejected as stale",
			},
			[]string{"reason"},
		),
		ConfigFaults: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webappauth_config_faults_total",
				Help: "Total number of verifications that failed because no key is configured",
			},
		),
	}
}
