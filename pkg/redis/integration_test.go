package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to TEST_REDIS_URL. Keys are namespaced per test
// under a random prefix and removed on cleanup.
func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis integration test")
	}

	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	rdb := goredis.NewClient(opts)
	require.NoError(t, rdb.Ping(context.Background()).Err())

	prefix := "test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
		_ = rdb.Close()
	})

	client := NewFromRedis(rdb)
	require.True(t, client.Enabled())
	return client, prefix
}

func TestCache_Enabled(t *testing.T) {
	client, prefix := newTestClient(t)
	cache := NewCache(client, prefix)
	ctx := context.Background()

	var missing decimal.Decimal
	found, err := cache.Get(ctx, CloseKey("AAPL"), &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, CloseKey("AAPL"), decimal.RequireFromString("189.25"), time.Minute))

	var cached decimal.Decimal
	found, err = cache.Get(ctx, CloseKey("AAPL"), &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "189.25", cached.String())

	ttl, err := client.Redis().TTL(ctx, cache.key(CloseKey("AAPL"))).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, cache.Delete(ctx, CloseKey("AAPL")))
	found, err = cache.Get(ctx, CloseKey("AAPL"), &cached)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLock_Enabled(t *testing.T) {
	client, prefix := newTestClient(t)
	ctx := context.Background()

	lock := NewLock(client, prefix, "strategy_run", time.Minute)
	other := NewLock(client, prefix, "strategy_run", time.Minute)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	_, err = other.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release(ctx))

	release2, err := other.Acquire(ctx)
	require.NoError(t, err)

	// a stale release must not drop the new owner's lock
	require.NoError(t, release(ctx))
	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release2(ctx))
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	client, prefix := newTestClient(t)
	ctx := context.Background()

	lock := NewLock(client, prefix, "short", 200*time.Millisecond)
	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		release, err := lock.Acquire(ctx)
		if err != nil {
			return false
		}
		_ = release(ctx)
		return true
	}, 2*time.Second, 50*time.Millisecond)
}

func TestRateLimiter_Enabled(t *testing.T) {
	client, prefix := newTestClient(t)
	limiter := NewRateLimiter(client, prefix)
	ctx := context.Background()

	cfg := RateLimitConfig{Key: "burst", Limit: 3, Window: time.Minute}

	for want := 2; want >= 0; want-- {
		allowed, remaining, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, want, remaining)
		// members are keyed by millisecond timestamp
		time.Sleep(2 * time.Millisecond)
	}

	allowed, remaining, err := limiter.Allow(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(waitCtx, cfg), context.DeadlineExceeded)
}
