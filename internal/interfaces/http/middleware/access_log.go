package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/pkg/logger"
)

// AccessLog 请求日志中间件；skipPaths 中的路径（探活、指标）不记录
func AccessLog(skipPaths ...string) gin.HandlerFunc {
	skip := newPathSet(skipPaths)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if skip.has(c.Request.URL.Path) {
			return
		}

		logger.Info(c.Request.Context(), "api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		)
	}
}
