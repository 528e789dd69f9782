package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/pkg/metrics"
)

// Metrics Prometheus 指标采集；按路由模板聚合，skipPaths 不计入
func Metrics(skipPaths ...string) gin.HandlerFunc {
	skip := newPathSet(skipPaths)
	return func(c *gin.Context) {
		if skip.has(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// 未匹配路由统一归类，避免标签基数膨胀
			route = "unmatched"
		}
		method := c.Request.Method
		if n := c.Request.ContentLength; n > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, route).Observe(float64(n))
		}
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, route).Observe(float64(n))
		}
	}
}
