package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/metrics"
)

// Cache JSON 读穿缓存。同一 key 的并发未命中只回源一次
type Cache struct {
	client *Client
	group  singleflight.Group
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// loadError 标记回源本身失败，与缓存故障区分
type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

// readThrough 先读缓存，未命中时回源并回填。
// 缓存故障或脏数据时直接回源，回源错误原样返回。name 为指标标签
func readThrough[T any](ctx context.Context, c *Cache, name, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "cache."+name,
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	var out T
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jerr := json.Unmarshal(raw, &out); jerr == nil {
			metrics.CacheRequestsTotal.WithLabelValues(name, "hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return out, nil
		}
		metrics.CacheRequestsTotal.WithLabelValues(name, "corrupt").Inc()
	case IsNil(err):
		metrics.CacheRequestsTotal.WithLabelValues(name, "miss").Inc()
	default:
		metrics.CacheRequestsTotal.WithLabelValues(name, "error").Inc()
		span.RecordError(err)
		logger.Warn(ctx, "cache unavailable, reading store", "cache", name, "error", err.Error())
		return load(ctx)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, &loadError{err: err}
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		if err := c.client.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
			span.RecordError(err)
		}
		return val, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		var le *loadError
		if errors.As(err, &le) {
			return out, le.err
		}
		return load(ctx)
	}
	return v.(T), nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.rdb.Del(ctx, keys...).Err()
}

// InvalidatePattern 按 SCAN 模式批量删除
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	iter := c.client.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.rdb.Del(ctx, keys...).Err()
}

// InvalidateSeries 使系列相关的设定与状态缓存失效
func (c *Cache) InvalidateSeries(ctx context.Context, seriesID string) error {
	for _, pattern := range []string{loreKeyPrefix(seriesID) + "*", stateKey(seriesID)} {
		if err := c.InvalidatePattern(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

func loreKeyPrefix(seriesID string) string {
	return "lore:" + seriesID + ":"
}

func loreTitlesKey(seriesID string) string {
	return loreKeyPrefix(seriesID) + "titles"
}

func loreSectionKey(seriesID, title string) string {
	return loreKeyPrefix(seriesID) + "section:" + title
}

func stateKey(seriesID string) string {
	return "state:" + seriesID
}
