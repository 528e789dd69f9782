package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubLimiter struct {
	allowed bool
	err     error
	key     string
	limit   int
}

func (s *stubLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, int, error) {
	s.key, s.limit = key, limit
	return s.allowed, 2, s.err
}

func serveLimited(cfg RateLimitConfig, l RateLimiter) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(cfg, l, func(client, endpoint string) string { return client + "|" + endpoint }))
	r.POST("/v1/series/:sid/installments", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/series/murim/installments", nil)
	req.RemoteAddr = "10.0.0.9:5000"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Denied(t *testing.T) {
	l := &stubLimiter{}
	w := serveLimited(RateLimitConfig{Enabled: true}, l)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, defaultRequestsPerMinute, l.limit)
	assert.Equal(t, "10.0.0.9|/v1/series/:sid/installments", l.key)
}

func TestRateLimit_Allowed(t *testing.T) {
	w := serveLimited(RateLimitConfig{Enabled: true, RequestsPerMinute: 3}, &stubLimiter{allowed: true})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	w := serveLimited(RateLimitConfig{Enabled: true}, &stubLimiter{err: assert.AnError})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

	w = serveLimited(RateLimitConfig{}, &stubLimiter{})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
