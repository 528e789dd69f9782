package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow 在一次往返内完成清理、计数与登记。
// KEYS[1] 限流键；ARGV: now_ms window_ms limit member
// 返回 {allowed, remaining}
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {0, 0}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window * 2)
return {1, limit - count - 1}
`)

// RateLimiter 基于有序集合的滑动窗口限流
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 判断请求是否放行，并返回窗口内剩余配额
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := l.now().UnixMilli()
	// 成员带随机后缀，同一毫秒的请求互不覆盖
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	res, err := slidingWindow.Run(ctx, l.client.rdb, []string{key}, now, window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	return res[0] == 1, int(res[1]), nil
}

// BuildRateLimitKey 构建限流键（客户端 + 路由）
func BuildRateLimitKey(client, endpoint string) string {
	client = strings.TrimSpace(client)
	if client == "" {
		client = "anonymous"
	}
	return "ratelimit:" + client + ":" + endpoint
}
