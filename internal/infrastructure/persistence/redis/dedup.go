package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// ProcessedEventCache 中心节点已处理事件标记
// Key: central:processed:{event_id}，过期后由台账唯一索引兜底
type ProcessedEventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProcessedEventCache 创建判重缓存
func NewProcessedEventCache(client *redis.Client, ttl time.Duration) *ProcessedEventCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProcessedEventCache{client: client, ttl: ttl}
}

func processedKey(eventID string) string {
	return "central:processed:" + eventID
}

// Seen 事件是否已处理过
func (c *ProcessedEventCache) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, processedKey(eventID)).Result()
	if err != nil {
		return false, apperrors.WithCode(apperrors.ErrCodeRedisError, err, "查询判重缓存失败")
	}
	return n > 0, nil
}

// Mark 标记已处理，已存在时不刷新过期时间
func (c *ProcessedEventCache) Mark(ctx context.Context, eventID string) error {
	if err := c.client.SetNX(ctx, processedKey(eventID), 1, c.ttl).Err(); err != nil {
		return apperrors.WithCode(apperrors.ErrCodeRedisError, err, "写入判重缓存失败")
	}
	return nil
}
