package storage

// State представляет состояние хранилища
type State string

const (
	StateUp      State = "UP"      // Хранилище полностью работоспособно
	StateDown    State = "DOWN"    // Хранилище недоступно
	StateProbing State = "PROBING" // Промежуточное состояние - проверка восстановления
)

// String возвращает строковое представление состояния
func (s State) String() string {
	return string(s)
}

// ToFloat64 возвращает числовое представление состояния для метрик Prometheus
func (s State) ToFloat64() float64 {
	switch s {
	case StateUp:
		return 1.0
	case StateProbing:
		return 0.5
	default:
		return 0.0
	}
}

// Драйверы хранилища
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverS3       = "s3"
)
