// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
)

// LoreRepository 设定集仓储实现
type LoreRepository struct {
	client *Client
}

var (
	_ repository.LoreRepository = (*LoreRepository)(nil)
	_ repository.LoreWriter     = (*LoreRepository)(nil)
)

// NewLoreRepository 创建设定集仓储
func NewLoreRepository(client *Client) *LoreRepository {
	return &LoreRepository{client: client}
}

// ListTitles 按排序列出条目标题
func (r *LoreRepository) ListTitles(ctx context.Context, seriesID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.LoreRepository.ListTitles")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var titles []string
	if err := db.Model(&entity.LoreSection{}).
		Where("series_id = ?", seriesID).
		Order("sort_order ASC, title ASC").
		Pluck("title", &titles).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list lore titles: %w", err)
	}
	return titles, nil
}

// GetByTitle 精确匹配优先，其次子串匹配
func (r *LoreRepository) GetByTitle(ctx context.Context, seriesID, title string) (*entity.LoreSection, error) {
	ctx, span := tracer.Start(ctx, "postgres.LoreRepository.GetByTitle")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var sec entity.LoreSection
	err := db.Where("series_id = ? AND title = ?", seriesID, title).First(&sec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("series_id = ? AND title LIKE ?", seriesID, "%"+title+"%").
			Order("sort_order ASC").
			First(&sec).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get lore section: %w", err)
	}
	return &sec, nil
}

// ReplaceAll 删除系列旧条目后批量写入；需在事务中调用才具备原子性
func (r *LoreRepository) ReplaceAll(ctx context.Context, seriesID string, sections []*entity.LoreSection) error {
	ctx, span := tracer.Start(ctx, "postgres.LoreRepository.ReplaceAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("series_id = ?", seriesID).Delete(&entity.LoreSection{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear lore sections: %w", err)
	}
	if len(sections) == 0 {
		return nil
	}
	for _, sec := range sections {
		sec.SeriesID = seriesID
	}
	if err := db.CreateInBatches(sections, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert lore sections: %w", err)
	}
	return nil
}

// StateRepository 世界线状态仓储实现
type StateRepository struct {
	client *Client
}

var _ repository.StateRepository = (*StateRepository)(nil)

// NewStateRepository 创建状态仓储
func NewStateRepository(client *Client) *StateRepository {
	return &StateRepository{client: client}
}

// GetCurrent 获取系列当前状态
func (r *StateRepository) GetCurrent(ctx context.Context, seriesID string) (*entity.StateSnapshot, error) {
	ctx, span := tracer.Start(ctx, "postgres.StateRepository.GetCurrent")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var snap entity.StateSnapshot
	if err := db.First(&snap, "series_id = ?", seriesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get state snapshot: %w", err)
	}
	return &snap, nil
}

// Save 后写覆盖
func (r *StateRepository) Save(ctx context.Context, snap *entity.StateSnapshot) error {
	ctx, span := tracer.Start(ctx, "postgres.StateRepository.Save")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(snap).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save state snapshot: %w", err)
	}
	return nil
}
