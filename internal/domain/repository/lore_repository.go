// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"serial-novel-engine/internal/domain/entity"
)

// LoreRepository 设定集仓储接口
type LoreRepository interface {
	// ListTitles 列出系列全部条目标题
	ListTitles(ctx context.Context, seriesID string) ([]string, error)

	// GetByTitle 按标题读取条目：优先精确匹配，其次子串匹配
	GetByTitle(ctx context.Context, seriesID, title string) (*entity.LoreSection, error)
}

// StateRepository 世界线状态仓储接口
type StateRepository interface {
	// GetCurrent 获取系列当前状态快照
	GetCurrent(ctx context.Context, seriesID string) (*entity.StateSnapshot, error)

	// Save 保存状态快照（后写覆盖）
	Save(ctx context.Context, snapshot *entity.StateSnapshot) error
}

// LoreWriter 设定集批量写入（导入使用）
type LoreWriter interface {
	// ReplaceAll 用给定条目整体替换系列设定集
	ReplaceAll(ctx context.Context, seriesID string, sections []*entity.LoreSection) error
}
