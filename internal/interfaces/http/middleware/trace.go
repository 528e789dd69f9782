package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-engine/pkg/logger"
)

// TraceIDHeader 响应中返回的追踪 ID 头
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件；skipPaths（探活、指标）不创建 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := newPathSet(skipPaths)
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !skip.has(r.URL.Path)
	}))
}

// TraceContext 把 trace/span ID 写入日志上下文，并给 span 补充系列与集数
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		sc := span.SpanContext()
		if !sc.IsValid() {
			c.Next()
			return
		}

		traceID := sc.TraceID().String()
		c.Set(ctxKeyTraceID, traceID)
		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)

		if sid := c.Param("sid"); sid != "" {
			span.SetAttributes(attribute.String("installment.series_id", sid))
		}
		if num, err := strconv.Atoi(c.Param("num")); err == nil {
			span.SetAttributes(attribute.Int("installment.number", num))
		}

		c.Next()
	}
}
