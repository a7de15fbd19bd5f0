package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore записывает вызовы и отдает заранее заданный результат
type fakeStore struct {
	record  *Record
	outcome Outcome
	err     error
	calls   int
}

func (f *fakeStore) UpsertByPlatformID(_ context.Context, id int64, username *string) (*Record, Outcome, error) {
	f.calls++
	if f.err != nil {
		return nil, OutcomeUnchanged, f.err
	}
	rec := *f.record
	rec.PlatformUserID = id
	rec.Username = CloneUsername(username)
	return &rec, f.outcome, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err }
func (f *fakeStore) Close() error               { return nil }

func strPtr(s string) *string { return &s }

func TestResolver(t *testing.T) {
	t.Run("returns store record", func(t *testing.T) {
		store := &fakeStore{record: &Record{LocalID: "abc", CreatedAt: time.Now()}, outcome: OutcomeCreated}
		metrics := NewMetrics(nil)
		r := NewResolver(store, metrics)

		rec, err := r.Resolve(context.Background(), 42, strPtr("ann"))
		require.NoError(t, err)
		assert.Equal(t, "abc", rec.LocalID)
		assert.Equal(t, int64(42), rec.PlatformUserID)
		assert.Equal(t, "ann", *rec.Username)
		assert.Equal(t, 1, store.calls)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("created")))
	})

	t.Run("wraps store errors without retry", func(t *testing.T) {
		cause := errors.New("connection refused")
		store := &fakeStore{err: cause}
		metrics := NewMetrics(nil)
		r := NewResolver(store, metrics)

		rec, err := r.Resolve(context.Background(), 42, nil)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, ErrStore)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, store.calls)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("error")))
	})

	t.Run("context errors stay visible", func(t *testing.T) {
		store := &fakeStore{err: context.DeadlineExceeded}
		r := NewResolver(store, nil)

		_, err := r.Resolve(context.Background(), 42, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("ping delegates to store", func(t *testing.T) {
		store := &fakeStore{err: errors.New("down")}
		assert.Error(t, NewResolver(store, nil).Ping(context.Background()))
	})
}

func TestSameUsername(t *testing.T) {
	tests := []struct {
		name string
		a, b *string
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and value", nil, strPtr("a"), false},
		{"value and nil", strPtr("a"), nil, false},
		{"equal", strPtr("a"), strPtr("a"), true},
		{"different", strPtr("a"), strPtr("b"), false},
		{"empty and nil", strPtr(""), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameUsername(tt.a, tt.b))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "created", OutcomeCreated.String())
	assert.Equal(t, "updated", OutcomeUpdated.String())
	assert.Equal(t, "unchanged", OutcomeUnchanged.String())
}
