package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/internal/models"
)

// Runs only against a live server named by REDIS_ADDR.
func TestLockoutCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	cache := NewLockoutCache(client)
	key := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _ = cache.Delete(ctx, key) })

	f, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, f)

	locked := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, cache.Put(ctx, key, &models.LoginFailures{Count: 3, FirstAt: locked.Add(-time.Minute), LockedUntil: &locked}, time.Minute))

	f, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 3, f.Count)
	assert.True(t, locked.Equal(*f.LockedUntil))

	ttl, err := client.TTL(ctx, lockoutKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Delete(ctx, key))
	f, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, f)
}
