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

// InstallmentRepository 分集存档仓储实现
type InstallmentRepository struct {
	client *Client
}

var _ repository.InstallmentRepository = (*InstallmentRepository)(nil)

// NewInstallmentRepository 创建分集仓储
func NewInstallmentRepository(client *Client) *InstallmentRepository {
	return &InstallmentRepository{client: client}
}

// Get 根据系列与集数获取分集
func (r *InstallmentRepository) Get(ctx context.Context, seriesID string, number int) (*entity.Installment, error) {
	ctx, span := tracer.Start(ctx, "postgres.InstallmentRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var inst entity.Installment
	if err := db.First(&inst, "series_id = ? AND number = ?", seriesID, number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return &inst, nil
}

// ListRecent 获取 before 之前最近的 limit 集
func (r *InstallmentRepository) ListRecent(ctx context.Context, seriesID string, before int, limit int) ([]*entity.Installment, error) {
	ctx, span := tracer.Start(ctx, "postgres.InstallmentRepository.ListRecent")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var list []*entity.Installment
	if err := db.Where("series_id = ? AND number < ?", seriesID, before).
		Order("number DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	return list, nil
}

// Save 按 (series_id, number) upsert
func (r *InstallmentRepository) Save(ctx context.Context, inst *entity.Installment) error {
	ctx, span := tracer.Start(ctx, "postgres.InstallmentRepository.Save")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "series_id"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "char_count", "warnings", "generation_metadata", "updated_at"}),
	}).Create(inst).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save installment: %w", err)
	}
	return nil
}
