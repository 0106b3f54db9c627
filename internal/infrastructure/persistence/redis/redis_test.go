package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestClient 需要真实Redis：STOCKHUB_TEST_REDIS_ADDR=127.0.0.1:6379
func openTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("STOCKHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置STOCKHUB_TEST_REDIS_ADDR，跳过Redis集成测试")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProcessedEventCache(t *testing.T) {
	client := openTestClient(t)
	cache := NewProcessedEventCache(client, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	seen, err := cache.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Mark(ctx, id))
	require.NoError(t, cache.Mark(ctx, id), "重复标记不报错")

	seen, err = cache.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := client.TTL(ctx, processedKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRateLimiter(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	t.Run("窗口内超出配额被拒绝", func(t *testing.T) {
		limiter := NewRateLimiter(client, 3, time.Minute)
		fixed := time.Now()
		limiter.now = func() time.Time { return fixed }
		subject := uuid.NewString()

		for i := 0; i < 3; i++ {
			ok, remaining, err := limiter.Allow(ctx, subject)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 2-i, remaining)
		}

		ok, _, err := limiter.Allow(ctx, subject)
		require.NoError(t, err)
		assert.False(t, ok)

		// 下一个窗口重新计数
		limiter.now = func() time.Time { return fixed.Add(time.Minute) }
		ok, _, err = limiter.Allow(ctx, subject)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("limit为0不限流", func(t *testing.T) {
		limiter := NewRateLimiter(client, 0, time.Second)
		ok, _, err := limiter.Allow(ctx, "any")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestTokenBlacklist(t *testing.T) {
	client := openTestClient(t)
	bl := NewTokenBlacklist(client)
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := bl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, jti, time.Minute))
	revoked, err = bl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, bl.Revoke(ctx, uuid.NewString(), 0), "已过期的Token无需记录")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "central:processed:e1", processedKey("e1"))
	assert.Equal(t, "blacklist:abc", blacklistKey("abc"))
}
