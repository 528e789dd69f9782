package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"serial-novel-engine/internal/interfaces/http/dto"
	"serial-novel-engine/pkg/logger"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
	// CorrelationIDHeader 上游网关使用的关联 ID 头
	CorrelationIDHeader = "X-Correlation-ID"

	ctxKeyRequestID = "request_id"
	ctxKeyTraceID   = dto.TraceIDKey

	maxRequestIDLen = 128
)

// RequestID 注入请求 ID：沿用上游传入的 ID，缺失或过长时重新生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = c.GetHeader(CorrelationIDHeader)
		}
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set(ctxKeyRequestID, id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, id))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
