package auth

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFreshness(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	maxAge := 24 * time.Hour
	skew := 30 * time.Second

	tests := []struct {
		name     string
		authDate time.Time
		want     error
	}{
		{"just issued", now, nil},
		{"exactly max age", now.Add(-maxAge), nil},
		{"one second past max age", now.Add(-maxAge - time.Second), ErrExpired},
		{"within skew", now.Add(skew), nil},
		{"beyond skew", now.Add(skew + time.Second), ErrFutureDated},
		{"far past", time.Unix(0, 0), ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFreshness(tt.authDate, now, maxAge, skew)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestFreshnessGuard(t *testing.T) {
	t.Run("rejects non positive max age", func(t *testing.T) {
		_, err := NewFreshnessGuard(0, time.Second, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		_, err = NewFreshnessGuard(-time.Hour, time.Second, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects negative skew", func(t *testing.T) {
		_, err := NewFreshnessGuard(time.Hour, -time.Second, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("counts rejections", func(t *testing.T) {
		metrics := NewMetrics(nil)
		guard, err := NewFreshnessGuard(time.Hour, 0, metrics)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, guard.MaxAge())

		now := time.Now()
		assert.NoError(t, guard.Check(now.Add(-time.Minute), now))
		assert.ErrorIs(t, guard.Check(now.Add(-2*time.Hour), now), ErrExpired)
		assert.ErrorIs(t, guard.Check(now.Add(time.Minute), now), ErrFutureDated)

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FreshnessRejections.WithLabelValues("expired")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FreshnessRejections.WithLabelValues("future")))
	})
}
