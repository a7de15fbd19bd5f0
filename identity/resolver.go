package identity

import (
	"context"
	"fmt"
	"time"

	"webappauth/logger"
)

// Resolver связывает подтвержденного пользователя платформы с локальной записью.
// Тонкая обертка над атомарным upsert хранилища: без повторов, блокировок и кэша.
type Resolver struct {
	store   Store
	metrics *Metrics
}

// NewResolver создает Resolver поверх хранилища.
func NewResolver(store Store, metrics *Metrics) *Resolver {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Resolver{store: store, metrics: metrics}
}

// Resolve возвращает запись для platformUserID, создавая ее или синхронизируя username.
func (r *Resolver) Resolve(ctx context.Context, platformUserID int64, username *string) (*Record, error) {
	start := time.Now()

	record, outcome, err := r.store.UpsertByPlatformID(ctx, platformUserID, username)
	if err != nil {
		r.metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		r.metrics.ResolutionLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		logger.Warn("Identity store failed for platform user %d: %v", platformUserID, err)
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	r.metrics.ResolutionsTotal.WithLabelValues(outcome.String()).Inc()
	r.metrics.ResolutionLatency.WithLabelValues(outcome.String()).Observe(time.Since(start).Seconds())

	switch outcome {
	case OutcomeCreated:
		logger.Info("Created identity %s for platform user %d", record.LocalID, platformUserID)
	case OutcomeUpdated:
		logger.Info("Updated username of identity %s", record.LocalID)
	default:
		logger.Debug("Identity %s unchanged", record.LocalID)
	}

	return record, nil
}

// Ping проверяет доступность хранилища.
func (r *Resolver) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
