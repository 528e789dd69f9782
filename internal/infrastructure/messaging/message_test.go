package messaging

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()
	assert.Equal(t, time.Second, b.Delay(-1))
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, time.Minute, b.Delay(20))
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "dlq:stream:installment:gen", StreamInstallmentGen.DLQStream())
	assert.Equal(t, ConsumerGroup("prod-cg-installment-worker"), ConsumerGroupInstallmentWorker.GroupName("prod-"))
	assert.Equal(t, ConsumerGroupInstallmentWorker, ConsumerGroupInstallmentWorker.GroupName(""))
}

// stream 读回的字段值都是字符串
func asStreamValues(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case string:
			out[k] = x
		case int:
			out[k] = strconv.Itoa(x)
		case int64:
			out[k] = strconv.FormatInt(x, 10)
		}
	}
	return out
}

func TestJobMessage_RoundTrip(t *testing.T) {
	at := time.UnixMilli(1_760_000_000_000)
	msg := &JobMessage{JobID: "job-1", SeriesID: "murim", Installment: 3, RequestID: "req-1", EnqueuedAt: at}

	values := msg.values()
	assert.NotContains(t, values, fieldTraceID)

	got, err := decodeJobMessage("1-0", asStreamValues(values))
	require.NoError(t, err)
	assert.Equal(t, "1-0", got.StreamID)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "murim", got.SeriesID)
	assert.Equal(t, 3, got.Installment)
	assert.Equal(t, "req-1", got.RequestID)
	assert.True(t, at.Equal(got.EnqueuedAt))
}

func TestDecodeJobMessage_Malformed(t *testing.T) {
	_, err := decodeJobMessage("2-0", map[string]interface{}{fieldInstallment: "3"})
	assert.Error(t, err)
	_, err = decodeJobMessage("3-0", map[string]interface{}{fieldJobID: "j", fieldInstallment: "0"})
	assert.Error(t, err)
	_, err = decodeJobMessage("4-0", map[string]interface{}{fieldJobID: "j", fieldInstallment: "x"})
	assert.Error(t, err)
}

func TestDLQValues(t *testing.T) {
	xm := redis.XMessage{ID: "5-0", Values: map[string]interface{}{fieldJobID: "job-9"}}
	v := dlqValues("stream:installment:gen", xm, errors.New("boom"), time.Unix(100, 0))
	assert.Equal(t, "job-9", v[fieldJobID])
	assert.Equal(t, "5-0", v["original_id"])
	assert.Equal(t, "boom", v["error"])
	assert.Equal(t, int64(100), v["failed_at"])
	assert.Len(t, xm.Values, 1)
}

func TestConsumerConfigDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Backoff: Backoff{Initial: time.Second, Max: 10 * time.Minute}}, nil)
	assert.Equal(t, 3, c.cfg.RetryLimit)
	assert.Equal(t, 5*time.Second, c.cfg.BlockTimeout)
	assert.Equal(t, 20*time.Minute, c.staleAfter)

	c = NewConsumer(nil, ConsumerConfig{}, nil)
	assert.Equal(t, 5*time.Minute, c.staleAfter)
}
