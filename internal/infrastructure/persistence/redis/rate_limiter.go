package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// RateLimiter 固定窗口限流
// Key: ratelimit:{subject}:{窗口序号}，INCR+EXPIRE在一个pipeline里完成
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter 创建限流器，limit<=0表示不限流
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow subject在当前窗口内是否还有配额，返回剩余次数
func (l *RateLimiter) Allow(ctx context.Context, subject string) (bool, int, error) {
	if l.limit <= 0 {
		return true, -1, nil
	}

	slot := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("ratelimit:%s:%d", subject, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, apperrors.WithCode(apperrors.ErrCodeRedisError, err, "限流计数失败")
	}

	count := int(incr.Val())
	if count > l.limit {
		return false, 0, nil
	}
	return true, l.limit - count, nil
}
