package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sutra/backend/pkg/response"
)

// MsgTooManyRequests 超出限流阈值
const MsgTooManyRequests = "Too many requests. Please try again later."

// RateLimiter 限流计数器，由 pkg/redis.Client 实现
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 基于滑动窗口的速率限制中间件
// limiter 为 nil 或 limit <= 0 时直接放行；计数出错时降级放行
func RateLimit(limiter RateLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流计数失败，放行请求", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Fail(c, http.StatusTooManyRequests, MsgTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
