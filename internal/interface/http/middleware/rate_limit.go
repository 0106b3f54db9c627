package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/metrics"
	"github.com/xiebiao/stockhub/pkg/response"
)

// Limiter 限流计数
type Limiter interface {
	Allow(ctx context.Context, subject string) (bool, int, error)
}

// RateLimit 按客户端IP限流
// Redis不可用时放行，只记录日志
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	metrics.InitMetrics()
	return func(c *gin.Context) {
		ok, remaining, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("限流计数失败，放行请求", zap.String("client_ip", c.ClientIP()), zap.Error(err))
			c.Next()
			return
		}

		if remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		if !ok {
			metrics.IncCounter(metrics.RateLimitedTotal)
			response.Error(c, apperrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
