package port

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// CompletionRequest 一次文本补全请求
type CompletionRequest struct {
	// Workflow 调用来源（用于指标与流水）
	Workflow string
	Messages []*schema.Message
	// MaxTokens 输出 token 硬上限
	MaxTokens   int
	Temperature float32
	// Tier 模型档位 1..3，0 表示默认档位
	Tier int
}

// Completion 补全结果
type Completion struct {
	Text             string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	// Fallback 是否由兜底提供商应答
	Fallback bool
}

// Completer 定义流水线对补全能力的唯一依赖（port）。
// 实现负责提供商选择与兜底，调用方不感知提供商名称。
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
