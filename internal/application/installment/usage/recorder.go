package usage

import (
	"context"
	"fmt"
	"strings"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/internal/domain/service"
)

// Recorder 将每次模型调用写入用量流水
type Recorder struct {
	usageRepo repository.LLMUsageEventRepository
}

var _ service.LLMUsageRecorder = (*Recorder)(nil)

// NewRecorder 创建流水记录器
func NewRecorder(usageRepo repository.LLMUsageEventRepository) *Recorder {
	return &Recorder{usageRepo: usageRepo}
}

func (r *Recorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.usageRepo == nil {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}

	evt := &entity.LLMUsageEvent{
		SeriesID:         strings.TrimSpace(in.SeriesID),
		Installment:      in.Installment,
		Provider:         strings.TrimSpace(in.Provider),
		Model:            strings.TrimSpace(in.Model),
		Workflow:         strings.TrimSpace(in.Workflow),
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
		Fallback:         in.Fallback,
	}
	return r.usageRepo.Create(ctx, evt)
}
