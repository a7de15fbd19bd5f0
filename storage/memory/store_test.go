package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"webappauth/identity"
	"webappauth/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) identity.Store {
		return New()
	})
}

func TestStoreReturnsCopies(t *testing.T) {
	store := New()
	name := "ann"

	rec, _, err := store.UpsertByPlatformID(context.Background(), 1, &name)
	assert.NoError(t, err)

	// Изменения у вызывающего не должны попадать в хранилище
	name = "changed"
	*rec.Username = "mutated"

	again, outcome, err := store.UpsertByPlatformID(context.Background(), 1, strPtr("ann"))
	assert.NoError(t, err)
	assert.Equal(t, identity.OutcomeUnchanged, outcome)
	assert.Equal(t, "ann", *again.Username)
	assert.Equal(t, 1, store.Len())
}

func TestStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New().UpsertByPlatformID(ctx, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, New().Ping(ctx), context.Canceled)
}

func strPtr(s string) *string { return &s }
