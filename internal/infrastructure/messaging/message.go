// Package messaging 提供基于 Redis Streams 的生成任务队列
package messaging

import (
	"fmt"
	"strconv"
	"time"
)

// Stream 流名称
type Stream string

const StreamInstallmentGen Stream = "stream:installment:gen"

// DLQStream 对应的死信流
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组
type ConsumerGroup string

const ConsumerGroupInstallmentWorker ConsumerGroup = "cg-installment-worker"

// GroupName 拼接配置中的消费者组前缀
func (g ConsumerGroup) GroupName(prefix string) ConsumerGroup {
	if prefix == "" {
		return g
	}
	return ConsumerGroup(prefix + string(g))
}

// stream 条目字段名
const (
	fieldJobID       = "job_id"
	fieldSeriesID    = "series_id"
	fieldInstallment = "installment"
	fieldRequestID   = "request_id"
	fieldTraceID     = "trace_id"
	fieldEnqueuedAt  = "enqueued_at"
)

// JobMessage 生成任务消息。请求参数保存在任务状态中，消息只携带定位信息
type JobMessage struct {
	StreamID    string
	JobID       string
	SeriesID    string
	Installment int
	RequestID   string
	TraceID     string
	EnqueuedAt  time.Time
}

// values 编码为 stream 字段，空值不写入
func (m *JobMessage) values() map[string]interface{} {
	v := map[string]interface{}{
		fieldJobID:       m.JobID,
		fieldSeriesID:    m.SeriesID,
		fieldInstallment: m.Installment,
		fieldEnqueuedAt:  m.EnqueuedAt.UnixMilli(),
	}
	if m.RequestID != "" {
		v[fieldRequestID] = m.RequestID
	}
	if m.TraceID != "" {
		v[fieldTraceID] = m.TraceID
	}
	return v
}

// decodeJobMessage 解析 stream 条目；缺少任务 ID 或集数非法视为坏消息
func decodeJobMessage(id string, values map[string]interface{}) (*JobMessage, error) {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}
	m := &JobMessage{
		StreamID:  id,
		JobID:     str(fieldJobID),
		SeriesID:  str(fieldSeriesID),
		RequestID: str(fieldRequestID),
		TraceID:   str(fieldTraceID),
	}
	if m.JobID == "" {
		return nil, fmt.Errorf("message %s: missing %s", id, fieldJobID)
	}
	n, err := strconv.Atoi(str(fieldInstallment))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("message %s: invalid %s %q", id, fieldInstallment, str(fieldInstallment))
	}
	m.Installment = n
	if ms, err := strconv.ParseInt(str(fieldEnqueuedAt), 10, 64); err == nil {
		m.EnqueuedAt = time.UnixMilli(ms)
	}
	return m, nil
}

// Backoff 失败重投的指数退避
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Max: time.Minute}
}

// Delay 第 attempt 次重投前应等待的时间
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	for i := 0; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		return b.Max
	}
	return d
}
