package storage_test

import (
	"context"
	"supportdesk/backend/internal/storage"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresence(t *testing.T) (*storage.PresenceService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storage.NewPresenceService(rdb, time.Minute), mr
}

func TestPresence_MarkOnlineAndExpire(t *testing.T) {
	p, mr := newPresence(t)
	ctx := context.Background()

	require.NoError(t, p.MarkOnline(ctx, "u1"))
	assert.True(t, mr.Exists("presence:u1"))

	online, err := p.Online(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, online["u1"])
	assert.False(t, online["u2"])

	mr.FastForward(2 * time.Minute)

	online, err = p.Online(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online["u1"], "presence lapses after the TTL")
}

func TestPresence_Disabled(t *testing.T) {
	p := storage.NewPresenceService(nil, 0)
	ctx := context.Background()

	assert.Equal(t, storage.DefaultPresenceTTL, p.TTL)
	assert.NoError(t, p.MarkOnline(ctx, "u1"))

	online, err := p.Online(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online["u1"])
}

func TestPresence_RedisDown(t *testing.T) {
	p, mr := newPresence(t)
	mr.Close()

	_, err := p.Online(context.Background(), "u1")
	assert.Error(t, err)
}
