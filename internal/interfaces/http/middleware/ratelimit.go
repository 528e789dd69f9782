package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/internal/interfaces/http/dto"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
)

const defaultRequestsPerMinute = 60

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute 每个客户端每条路由每分钟请求数
	RequestsPerMinute int
}

// RateLimiter 返回是否放行与窗口内剩余次数
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// KeyFunc 由客户端标识与路由模板构建限流键
type KeyFunc func(client, endpoint string) string

// RateLimit 按客户端 IP 与路由模板计数。限流器故障时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, key KeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = defaultRequestsPerMinute
	}
	limitHeader := strconv.Itoa(limit)

	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		ctx := c.Request.Context()

		allowed, remaining, err := limiter.Allow(ctx, key(c.ClientIP(), endpoint), limit, time.Minute)
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable", "endpoint", endpoint, "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", "60")
			dto.Fail(c, http.StatusTooManyRequests, "rate limit exceeded",
				&dto.ErrorDetail{ErrorCode: string(errors.CodeTooManyRequests), Suggestions: []string{"retry later"}})
			return
		}
		c.Next()
	}
}
