package redis

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"serial-novel-engine/pkg/logger"
)

func TestCommandHook_ProcessHook(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", "json")
	h := newCommandHook(5 * time.Millisecond)
	ctx := context.Background()

	fast := h.ProcessHook(func(context.Context, redis.Cmder) error { return redis.Nil })
	assert.ErrorIs(t, fast(ctx, redis.NewStringCmd(ctx, "get", "job:1")), redis.Nil)
	assert.Empty(t, buf.String())

	slow := h.ProcessHook(func(context.Context, redis.Cmder) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	assert.NoError(t, slow(ctx, redis.NewStatusCmd(ctx, "set", "job:1", "x")))
	assert.Contains(t, buf.String(), "slow redis command")
	assert.Contains(t, buf.String(), `"command":"set"`)
}

func TestCommandHook_Pipeline(t *testing.T) {
	h := newCommandHook(0)
	ctx := context.Background()
	var seen int
	run := h.ProcessPipelineHook(func(_ context.Context, cmds []redis.Cmder) error {
		seen = len(cmds)
		return assert.AnError
	})
	err := run(ctx, []redis.Cmder{redis.NewIntCmd(ctx, "incr", "a"), redis.NewIntCmd(ctx, "expire", "a", 60)})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, seen)
}
