// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"serial-novel-engine/internal/domain/entity"
)

// LLMUsageEventRepository 模型调用流水
type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error

	// Summarize 聚合系列自 since 起的调用，按调用次数降序
	Summarize(ctx context.Context, seriesID string, since time.Time) ([]*entity.UsageSummary, error)
}
