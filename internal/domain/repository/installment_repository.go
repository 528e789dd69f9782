// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"serial-novel-engine/internal/domain/entity"
)

// InstallmentRepository 分集存档仓储接口
type InstallmentRepository interface {
	// Get 根据系列与集数获取分集，不存在时返回 ErrNotFound
	Get(ctx context.Context, seriesID string, number int) (*entity.Installment, error)

	// ListRecent 获取 before 之前最近的 limit 集（按集数倒序）
	ListRecent(ctx context.Context, seriesID string, before int, limit int) ([]*entity.Installment, error)

	// Save 写入分集（同一集重复写入时覆盖）
	Save(ctx context.Context, installment *entity.Installment) error
}
