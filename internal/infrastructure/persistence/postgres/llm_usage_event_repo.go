// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
)

// LLMUsageEventRepository 模型调用流水仓储
type LLMUsageEventRepository struct {
	client *Client
}

var _ repository.LLMUsageEventRepository = (*LLMUsageEventRepository)(nil)

// NewLLMUsageEventRepository 创建流水仓储
func NewLLMUsageEventRepository(client *Client) *LLMUsageEventRepository {
	return &LLMUsageEventRepository{client: client}
}

// Create 追加一条流水
func (r *LLMUsageEventRepository) Create(ctx context.Context, event *entity.LLMUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create llm usage event: %w", err)
	}
	return nil
}

// Summarize 按 workflow/provider/model 分组聚合
func (r *LLMUsageEventRepository) Summarize(ctx context.Context, seriesID string, since time.Time) ([]*entity.UsageSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.Summarize")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rows []*entity.UsageSummary
	err := db.Model(&entity.LLMUsageEvent{}).
		Select(`workflow, provider, model,
			COUNT(*) AS calls,
			COALESCE(SUM(tokens_prompt), 0) AS tokens_prompt,
			COALESCE(SUM(tokens_completion), 0) AS tokens_completion,
			COUNT(*) FILTER (WHERE fallback) AS fallbacks,
			COALESCE(SUM(duration_ms), 0) AS duration_ms`).
		Where("series_id = ? AND created_at >= ?", seriesID, since).
		Group("workflow, provider, model").
		Order("calls DESC, workflow ASC").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to summarize llm usage: %w", err)
	}
	return rows, nil
}
