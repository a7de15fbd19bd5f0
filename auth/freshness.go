package auth

import (
	"errors"
	"fmt"
	"time"
)

// CheckFreshness проверяет, что payload не устарел и не выписан заметно в будущем.
// Payload ровно на границе maxAge еще считается свежим.
func CheckFreshness(authDate, now time.Time, maxAge, skew time.Duration) error {
	if age := now.Sub(authDate); age > maxAge {
		return fmt.Errorf("%w: age %s exceeds %s", ErrExpired, age.Truncate(time.Second), maxAge)
	}
	if authDate.After(now.Add(skew)) {
		return fmt.Errorf("%w: auth_date is %s ahead", ErrFutureDated, authDate.Sub(now).Truncate(time.Second))
	}
	return nil
}

// FreshnessGuard хранит настроенные пределы свежести.
type FreshnessGuard struct {
	maxAge  time.Duration
	skew    time.Duration
	metrics *Metrics
}

// NewFreshnessGuard создает проверку свежести. Значения по умолчанию здесь не подставляются:
// maxAge должен быть задан явно.
func NewFreshnessGuard(maxAge, skew time.Duration, metrics *Metrics) (*FreshnessGuard, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("%w: max age must be positive, got %s", ErrInvalidConfig, maxAge)
	}
	if skew < 0 {
		return nil, fmt.Errorf("%w: clock skew must not be negative, got %s", ErrInvalidConfig, skew)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &FreshnessGuard{maxAge: maxAge, skew: skew, metrics: metrics}, nil
}

// Check проверяет auth_date относительно now.
func (g *FreshnessGuard) Check(authDate, now time.Time) error {
	err := CheckFreshness(authDate, now, g.maxAge, g.skew)
	switch {
	case errors.Is(err, ErrExpired):
		g.metrics.FreshnessRejections.WithLabelValues("expired").Inc()
	case errors.Is(err, ErrFutureDated):
		g.metrics.FreshnessRejections.WithLabelValues("future").Inc()
	}
	return err
}

// MaxAge возвращает максимальный возраст payload.
func (g *FreshnessGuard) MaxAge() time.Duration {
	return g.maxAge
}
