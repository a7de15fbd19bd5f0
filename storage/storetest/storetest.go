// Package storetest содержит общий набор проверок для драйверов identity.Store.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappauth/identity"
)

// Run прогоняет проверки контракта UpsertByPlatformID. newStore должен
// возвращать пустое хранилище; закрывать его должен вызывающий через t.Cleanup.
func Run(t *testing.T, newStore func(t *testing.T) identity.Store) {
	t.Run("creates on first resolution", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		rec, outcome, err := store.UpsertByPlatformID(ctx, 1001, strPtr("ann"))
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeCreated, outcome)
		assert.NotEmpty(t, rec.LocalID)
		assert.Equal(t, int64(1001), rec.PlatformUserID)
		require.NotNil(t, rec.Username)
		assert.Equal(t, "ann", *rec.Username)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("idempotent resolution", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first, _, err := store.UpsertByPlatformID(ctx, 1002, strPtr("bob"))
		require.NoError(t, err)

		second, outcome, err := store.UpsertByPlatformID(ctx, 1002, strPtr("bob"))
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeUnchanged, outcome)
		assert.Equal(t, first.LocalID, second.LocalID)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	})

	t.Run("username sync", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first, _, err := store.UpsertByPlatformID(ctx, 1003, strPtr("old"))
		require.NoError(t, err)

		updated, outcome, err := store.UpsertByPlatformID(ctx, 1003, strPtr("new"))
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeUpdated, outcome)
		assert.Equal(t, first.LocalID, updated.LocalID)
		require.NotNil(t, updated.Username)
		assert.Equal(t, "new", *updated.Username)

		cleared, outcome, err := store.UpsertByPlatformID(ctx, 1003, nil)
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeUpdated, outcome)
		assert.Nil(t, cleared.Username)

		again, outcome, err := store.UpsertByPlatformID(ctx, 1003, nil)
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeUnchanged, outcome)
		assert.Equal(t, first.LocalID, again.LocalID)
	})

	t.Run("distinct users get distinct records", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		a, _, err := store.UpsertByPlatformID(ctx, 1004, nil)
		require.NoError(t, err)
		b, _, err := store.UpsertByPlatformID(ctx, 1005, nil)
		require.NoError(t, err)
		assert.NotEqual(t, a.LocalID, b.LocalID)
	})

	t.Run("concurrent resolution creates one record", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const workers = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ids      = make(map[string]struct{})
			created  int
			failures []error
		)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, outcome, err := store.UpsertByPlatformID(ctx, 1006, strPtr("race"))

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, err)
					return
				}
				ids[rec.LocalID] = struct{}{}
				if outcome == identity.OutcomeCreated {
					created++
				}
			}()
		}
		wg.Wait()

		require.Empty(t, failures)
		assert.Len(t, ids, 1)
		assert.Equal(t, 1, created)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func strPtr(s string) *string { return &s }
