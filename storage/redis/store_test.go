package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappauth/identity"
	"webappauth/storage/storetest"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Address = mr.Addr()

	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) identity.Store {
		store, _ := setupTestRedis(t)
		return store
	})
}

func TestStoreLayout(t *testing.T) {
	store, mr := setupTestRedis(t)

	rec, _, err := store.UpsertByPlatformID(context.Background(), 42, nil)
	require.NoError(t, err)

	raw, err := mr.Get("webappauth:identity:42")
	require.NoError(t, err)
	assert.Contains(t, raw, rec.LocalID)
	assert.Contains(t, raw, `"username":null`)
}

func TestStoreCorruptValue(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("webappauth:identity:7", "{not json"))

	_, _, err := store.UpsertByPlatformID(context.Background(), 7, nil)
	assert.Error(t, err)
}

func TestStoreUnavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := store.UpsertByPlatformID(context.Background(), 1, nil)
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestNewWithClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := NewWithClient(client, "custom:", 0)
	defer store.Close()
	assert.Equal(t, DefaultConfig().MaxRetries, store.maxRetries)

	_, outcome, err := store.UpsertByPlatformID(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, identity.OutcomeCreated, outcome)
	assert.True(t, mr.Exists("custom:5"))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Address = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxRetries = 0
	assert.Error(t, cfg.Validate())
}
