package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/metrics"
)

// Handler 处理一条任务消息；返回错误时消息留在 pending 等待退避重投
type Handler func(ctx context.Context, msg *JobMessage) error

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	// RetryLimit 最大投递次数，超过后进入死信流
	RetryLimit int
	Backoff    Backoff
}

func (c *ConsumerConfig) applyDefaults() {
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.ClaimInterval <= 0 {
		c.ClaimInterval = 30 * time.Second
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = 3
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff = DefaultBackoff()
	}
}

// Consumer 消费者组成员。多个实例共用一个组，崩溃实例遗留的消息由其他实例接管
type Consumer struct {
	client  *redis.Client
	cfg     ConsumerConfig
	handler Handler
	// staleAfter 其他消费者的 pending 消息闲置超过该时长后接管
	staleAfter time.Duration
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, handler Handler) *Consumer {
	cfg.applyDefaults()
	stale := 2 * cfg.Backoff.Max
	if stale < 5*time.Minute {
		stale = 5 * time.Minute
	}
	return &Consumer{client: client, cfg: cfg, handler: handler, staleAfter: stale}
}

func (c *Consumer) stream() string { return string(c.cfg.Stream) }
func (c *Consumer) group() string  { return string(c.cfg.Group) }

// Run 阻塞消费直到 ctx 取消。正在处理的消息不受取消影响，处理完再返回
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream(), c.group(), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	logger.Info(ctx, "consumer started", "stream", c.stream(), "group", c.group(), "consumer", c.cfg.ConsumerName)

	work := context.WithoutCancel(ctx)
	nextSweep := time.Time{}
	for ctx.Err() == nil {
		if now := time.Now(); !now.Before(nextSweep) {
			c.sweepPending(work)
			nextSweep = now.Add(c.cfg.ClaimInterval)
		} else {
			c.retryOwn(work)
		}

		res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group(),
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{c.stream(), ">"},
			Count:    1,
			Block:    c.cfg.BlockTimeout,
		}).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
			continue
		default:
			logger.Error(ctx, "failed to read from stream", err, "stream", c.stream())
			sleep(ctx, time.Second)
			continue
		}
		for _, s := range res {
			for _, xm := range s.Messages {
				c.deliver(work, xm, 1)
			}
		}
	}
	logger.Info(ctx, "consumer stopped", "consumer", c.cfg.ConsumerName)
	return nil
}

// deliver 处理一次投递；attempt 为该消息的累计投递次数
func (c *Consumer) deliver(ctx context.Context, xm redis.XMessage, attempt int) {
	ctx, span := tracer.Start(ctx, "consumer.deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("stream", c.stream()),
			attribute.String("stream.message_id", xm.ID),
			attribute.Int("delivery.attempt", attempt),
		))
	defer span.End()

	msg, err := decodeJobMessage(xm.ID, xm.Values)
	if err != nil {
		logger.Warn(ctx, "dropping malformed message", "message_id", xm.ID, "error", err.Error())
		c.deadLetter(ctx, xm, err)
		c.count("malformed")
		return
	}
	ctx = messageContext(ctx, msg)
	span.SetAttributes(attribute.String("job.id", msg.JobID), attribute.String("series_id", msg.SeriesID))

	if err := c.handler(ctx, msg); err != nil {
		span.RecordError(err)
		if attempt >= c.cfg.RetryLimit {
			logger.Error(ctx, "job message exhausted retries", err, "attempts", attempt)
			c.deadLetter(ctx, xm, err)
			c.count("dlq")
			return
		}
		logger.Warn(ctx, "job message failed, will retry", "attempts", attempt, "error", err.Error())
		c.count("retry")
		return
	}
	c.ack(ctx, xm.ID)
	c.count("success")
}

// messageContext 恢复投递方的日志关联字段
func messageContext(ctx context.Context, msg *JobMessage) context.Context {
	ctx = logger.WithContext(ctx, logger.JobIDKey, msg.JobID)
	ctx = logger.WithContext(ctx, logger.SeriesIDKey, msg.SeriesID)
	ctx = logger.WithContext(ctx, logger.InstallmentKey, msg.Installment)
	if msg.RequestID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, msg.RequestID)
	}
	if msg.TraceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, msg.TraceID)
	}
	return ctx
}

// retryOwn 重投本消费者名下已过退避期的失败消息
func (c *Consumer) retryOwn(ctx context.Context) {
	for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
		c.redeliver(ctx, p, c.cfg.Backoff.Delay(int(p.RetryCount)-1))
	}
}

// sweepPending 处理整个组的 pending：本消费者的按退避重投，其他消费者的闲置过久才接管
func (c *Consumer) sweepPending(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		minIdle := c.staleAfter
		if p.Consumer == c.cfg.ConsumerName {
			minIdle = c.cfg.Backoff.Delay(int(p.RetryCount) - 1)
		}
		c.redeliver(ctx, p, minIdle)
	}
}

func (c *Consumer) redeliver(ctx context.Context, p redis.XPendingExt, minIdle time.Duration) {
	if p.Idle < minIdle {
		return
	}
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream(),
		Group:    c.group(),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{p.ID},
	}).Result()
	if err != nil {
		logger.Error(ctx, "failed to claim pending message", err, "message_id", p.ID)
		return
	}
	// XCLAIM 本身会使投递次数加一
	attempt := int(p.RetryCount) + 1
	for _, xm := range claimed {
		if int(p.RetryCount) >= c.cfg.RetryLimit {
			c.deadLetter(ctx, xm, errors.New("message exceeded max deliveries"))
			c.count("dlq")
			continue
		}
		c.deliver(ctx, xm, attempt)
	}
}

func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	res, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   c.stream(),
		Group:    c.group(),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error(ctx, "failed to query pending messages", err)
	}
	return res
}

// deadLetter 原样复制字段到死信流并确认原消息
func (c *Consumer) deadLetter(ctx context.Context, xm redis.XMessage, cause error) {
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DLQStream(),
		Values: dlqValues(c.stream(), xm, cause, time.Now()),
	}).Err()
	if err != nil {
		logger.Error(ctx, "failed to write DLQ", err, "message_id", xm.ID)
		return
	}
	c.ack(ctx, xm.ID)
}

func dlqValues(stream string, xm redis.XMessage, cause error, at time.Time) map[string]interface{} {
	v := make(map[string]interface{}, len(xm.Values)+4)
	for k, val := range xm.Values {
		v[k] = val
	}
	v["original_stream"] = stream
	v["original_id"] = xm.ID
	v["error"] = cause.Error()
	v["failed_at"] = at.Unix()
	return v
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream(), c.group(), id).Err(); err != nil {
		logger.Error(ctx, "failed to ack message", err, "message_id", id)
	}
}

func (c *Consumer) count(status string) {
	metrics.RedisStreamProcessed.WithLabelValues(c.stream(), status).Inc()
}

// Monitor 定期上报组积压，死信数超过阈值时告警
func (c *Consumer) Monitor(ctx context.Context, interval time.Duration, alertThreshold int64) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reportBacklog(ctx, alertThreshold)
		}
	}
}

func (c *Consumer) reportBacklog(ctx context.Context, alertThreshold int64) {
	if groups, err := c.client.XInfoGroups(ctx, c.stream()).Result(); err == nil {
		for _, g := range groups {
			if g.Name == c.group() {
				metrics.RedisStreamLag.WithLabelValues(c.stream(), g.Name).Set(float64(g.Lag))
			}
		}
	}
	dlq := c.cfg.Stream.DLQStream()
	n, err := c.client.XLen(ctx, dlq).Result()
	if err == nil && n > alertThreshold {
		logger.Warn(ctx, "DLQ has pending messages", "stream", dlq, "count", n)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
