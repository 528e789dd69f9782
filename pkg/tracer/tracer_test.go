package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := Start(context.Background(), "noop")
	Finish(span, nil)
	assert.Empty(t, TraceID(ctx))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestFinish_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer = tp.Tracer("test")
	t.Cleanup(func() { tracer = nil })

	ctx, span := Start(context.Background(), "installment.generate")
	assert.NotEmpty(t, TraceID(ctx))
	Finish(span, assert.AnError)
	Finish(nil, nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "installment.generate", ended[0].Name())
	assert.Len(t, ended[0].Events(), 1)
}

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(Config{ServiceName: "api", Version: "1.2.0", Environment: "prod"})
	assert.Len(t, attrs, 3)
	assert.Len(t, resourceAttributes(Config{ServiceName: "api"}), 1)
}
