package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("PAYHOLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAYHOLE_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestConfig_Enabled(t *testing.T) {
	assert.True(t, Config{Limit: 1, Window: time.Second}.Enabled())
	assert.False(t, Config{Limit: 0, Window: time.Second}.Enabled())
	assert.False(t, Config{Limit: 5}.Enabled())
}

func TestRedisRateLimiter_DisabledAllowsWithoutRedis(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, "pay", Config{})
	allowed, err := limiter.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_UnreachableRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "pay", Config{Limit: 1, Window: time.Minute})
	_, err := limiter.Allow(context.Background(), "1.2.3.4")
	assert.Error(t, err)
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, "test-"+t.Name(), Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()
	key := "10.0.0.1"
	t.Cleanup(func() { _ = limiter.Reset(ctx, key) })

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed, "6th request should be denied")

	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "other keys have their own window")
	_ = limiter.Reset(ctx, "10.0.0.2")

	require.NoError(t, limiter.Reset(ctx, key))
	allowed, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, "test-"+t.Name(), Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()
	key := "10.0.0.3"
	t.Cleanup(func() { _ = limiter.Reset(ctx, key) })

	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)

	now = now.Add(2 * time.Minute)
	allowed, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed)
}
