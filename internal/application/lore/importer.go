// Package lore 将文件形式的设定集与状态导入数据库
package lore

import (
	"context"
	stderrors "errors"
	"fmt"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
)

// Invalidator 导入后清理系列缓存
type Invalidator interface {
	InvalidateSeries(ctx context.Context, seriesID string) error
}

// Source 导入来源
type Source interface {
	repository.LoreRepository
	repository.StateRepository
}

// Result 导入结果
type Result struct {
	SeriesID string `json:"series_id"`
	Sections int    `json:"sections"`
	State    bool   `json:"state"`
}

// Importer 设定集导入器
type Importer struct {
	tx     repository.Transactor
	src    Source
	lore   repository.LoreWriter
	states repository.StateRepository
	cache  Invalidator
}

// NewImporter 创建导入器；cache 可为 nil
func NewImporter(tx repository.Transactor, src Source, lore repository.LoreWriter, states repository.StateRepository, cache Invalidator) *Importer {
	return &Importer{tx: tx, src: src, lore: lore, states: states, cache: cache}
}

// Import 在一个事务内替换系列的设定集与状态
func (im *Importer) Import(ctx context.Context, seriesID string) (*Result, error) {
	if seriesID == "" {
		return nil, errors.New(errors.CodeInvalidParam, "series id is required")
	}
	ctx = logger.WithContext(ctx, logger.SeriesIDKey, seriesID)

	titles, err := im.src.ListTitles(ctx, seriesID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read lore source")
	}
	sections := make([]*entity.LoreSection, 0, len(titles))
	for i, title := range titles {
		sec, err := im.src.GetByTitle(ctx, seriesID, title)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStorageError, fmt.Sprintf("failed to read lore section %q", title))
		}
		sections = append(sections, &entity.LoreSection{
			SeriesID:  seriesID,
			Title:     sec.Title,
			Body:      sec.Body,
			SortOrder: i,
		})
	}

	snap, err := im.src.GetCurrent(ctx, seriesID)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read state source")
	}

	err = im.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := im.lore.ReplaceAll(txCtx, seriesID, sections); err != nil {
			return err
		}
		if snap != nil {
			snap.SeriesID = seriesID
			return im.states.Save(txCtx, snap)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to import lore")
	}

	if im.cache != nil {
		if err := im.cache.InvalidateSeries(ctx, seriesID); err != nil {
			logger.Warn(ctx, "failed to invalidate series cache", "error", err.Error())
		}
	}

	res := &Result{SeriesID: seriesID, Sections: len(sections), State: snap != nil}
	logger.Info(ctx, "lore imported", "sections", res.Sections, "state", res.State)
	return res, nil
}
