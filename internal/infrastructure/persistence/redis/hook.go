package redis

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-engine/pkg/logger"
)

// commandHook 为每条命令或 pipeline 建 span，超过阈值的记慢日志。redis.Nil 不算错误
type commandHook struct {
	slow time.Duration
}

var _ redis.Hook = (*commandHook)(nil)

func newCommandHook(slow time.Duration) *commandHook {
	return &commandHook{slow: slow}
}

func (h *commandHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := tracer.Start(ctx, "redis."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("db.system", "redis")))
		start := time.Now()
		err := next(ctx, cmd)
		h.finish(ctx, span, cmd.Name(), 1, time.Since(start), err)
		return err
	}
}

func (h *commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "redis"),
				attribute.Int("redis.pipeline_length", len(cmds)),
			))
		start := time.Now()
		err := next(ctx, cmds)
		h.finish(ctx, span, "pipeline", len(cmds), time.Since(start), err)
		return err
	}
}

func (h *commandHook) finish(ctx context.Context, span trace.Span, name string, n int, elapsed time.Duration, err error) {
	defer span.End()
	if err != nil && !IsNil(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if h.slow > 0 && elapsed > h.slow {
		logger.Warn(ctx, "slow redis command", "command", name, "commands", n, "duration_ms", elapsed.Milliseconds())
	}
}
