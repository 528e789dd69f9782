// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"serial-novel-engine/internal/domain/entity"
)

// JobRepository 异步生成任务状态仓储
type JobRepository interface {
	// Save 保存任务状态（覆盖写）
	Save(ctx context.Context, job *entity.GenerationJob) error

	// Get 获取任务，不存在时返回 ErrNotFound
	Get(ctx context.Context, id string) (*entity.GenerationJob, error)
}
