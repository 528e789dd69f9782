package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestFromContext_AddsKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")

	ctx := WithContext(context.Background(), SeriesIDKey, "murim")
	ctx = WithContext(ctx, InstallmentKey, 12)
	ctx = WithContext(ctx, StrategyKey, "chunked")

	Error(ctx, "generation failed", errors.New("boom"), "phase", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "generation failed", rec["msg"])
	assert.Equal(t, "murim", rec["series_id"])
	assert.EqualValues(t, 12, rec["installment"])
	assert.Equal(t, "chunked", rec["strategy"])
	assert.Equal(t, "boom", rec["error"])
	assert.EqualValues(t, 2, rec["phase"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
	assert.Equal(t, "DEBUG", parseLevel("DEBUG").String())
}

func TestValueFromContext(t *testing.T) {
	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	v, ok := ValueFromContext(ctx, RequestIDKey)
	assert.True(t, ok)
	assert.Equal(t, "req-1", v)

	_, ok = ValueFromContext(ctx, TraceIDKey)
	assert.False(t, ok)

	_, ok = ValueFromContext(WithContext(ctx, InstallmentKey, 3), InstallmentKey)
	assert.False(t, ok)
}

func TestContextHandler_SpanIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "json")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x02},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	Info(ctx, "with span")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, sc.TraceID().String(), rec["trace_id"])
	assert.Equal(t, sc.SpanID().String(), rec["span_id"])

	buf.Reset()
	Info(WithContext(ctx, TraceIDKey, "upstream"), "explicit")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "upstream", rec["trace_id"])

	buf.Reset()
	Debug(ctx, "filtered")
	assert.Empty(t, buf.String())
}
