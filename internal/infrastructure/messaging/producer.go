package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/pkg/logger"
)

var tracer = otel.Tracer("messaging")

const defaultMaxLen = 100000

// Producer 任务投递
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
	now    func() time.Time
}

func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{client: client, stream: StreamInstallmentGen, maxLen: maxLen, now: time.Now}
}

// EnqueueInstallment 投递分集生成任务，并携带请求 ID 与 trace ID 供消费端日志关联
func (p *Producer) EnqueueInstallment(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "producer.EnqueueInstallment",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("stream", string(p.stream)),
			attribute.String("job.id", job.ID),
		))
	defer span.End()

	msg := &JobMessage{
		JobID:       job.ID,
		SeriesID:    job.SeriesID,
		Installment: job.Installment,
		EnqueuedAt:  p.now(),
	}
	msg.RequestID, _ = logger.ValueFromContext(ctx, logger.RequestIDKey)
	msg.TraceID, _ = logger.ValueFromContext(ctx, logger.TraceIDKey)

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(p.stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: msg.values(),
	}).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	span.SetAttributes(attribute.String("stream.message_id", id))
	return nil
}
