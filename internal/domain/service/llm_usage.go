package service

import (
	"context"
	"sync"
)

// LLMUsageInput 表示一次 LLM 调用的可观测数据。
// 位于 domain/service，作为基础设施层与应用层之间的稳定契约。
type LLMUsageInput struct {
	SeriesID    string
	Installment int

	Workflow string
	Provider string
	Model    string

	PromptTokens     int
	CompletionTokens int
	DurationMs       int
	Fallback         bool
}

// LLMUsageRecorder 负责记录 LLM 使用量（流水落库等）。
// 实现应尽量 best-effort，不阻塞主流程。
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}

// UsageMeter 单个请求内的用量累加器
type UsageMeter struct {
	mu     sync.Mutex
	calls  []LLMUsageInput
	prompt int
	output int
}

type usageMeterKey struct{}

// WithUsageMeter 在 context 中挂载新的累加器
func WithUsageMeter(ctx context.Context) (context.Context, *UsageMeter) {
	m := &UsageMeter{}
	return context.WithValue(ctx, usageMeterKey{}, m), m
}

// UsageMeterFromContext 取出累加器，未挂载时返回 nil
func UsageMeterFromContext(ctx context.Context) *UsageMeter {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(usageMeterKey{}).(*UsageMeter)
	return m
}

// Add 累加一次调用
func (m *UsageMeter) Add(in LLMUsageInput) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, in)
	m.prompt += in.PromptTokens
	m.output += in.CompletionTokens
}

// Totals 返回累计输入/输出 token 与调用次数
func (m *UsageMeter) Totals() (prompt, completion, calls int) {
	if m == nil {
		return 0, 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompt, m.output, len(m.calls)
}

// Calls 返回调用明细副本
func (m *UsageMeter) Calls() []LLMUsageInput {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LLMUsageInput, len(m.calls))
	copy(out, m.calls)
	return out
}
