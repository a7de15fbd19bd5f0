package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - системные метрики процесса.
// Метрики предметных модулей живут в самих модулях.
type Metrics struct {
	MemoryUsage   prometheus.Gauge // Использование памяти кучей
	Goroutines    prometheus.Gauge // Количество горутин
	UptimeSeconds prometheus.Gauge // Время работы процесса

	startedAt time.Time
}

// NewMetrics создает системные метрики и регистрирует их в reg. nil - без регистрации.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webappauth_memory_usage_bytes",
				Help: "Current heap memory usage in bytes",
			},
		),
		Goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webappauth_goroutines",
				Help: "Current number of goroutines",
			},
		),
		UptimeSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webappauth_uptime_seconds",
				Help: "Time since the process started in seconds",
			},
		),
		startedAt: time.Now(),
	}
}

// Collect обновляет системные метрики текущими значениями
func (m *Metrics) Collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.MemoryUsage.Set(float64(mem.HeapAlloc))
	m.Goroutines.Set(float64(runtime.NumGoroutine()))
	m.UptimeSeconds.Set(time.Since(m.startedAt).Seconds())
}
