package redis

import (
	"context"
	"time"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/pkg/logger"
)

// CachedLoreRepository 设定集读穿缓存；Redis 不可用时直接读底层仓储
type CachedLoreRepository struct {
	inner repository.LoreRepository
	cache *Cache
	ttl   time.Duration
}

var _ repository.LoreRepository = (*CachedLoreRepository)(nil)

// NewCachedLoreRepository 包装设定集仓储
func NewCachedLoreRepository(inner repository.LoreRepository, cache *Cache, ttl time.Duration) *CachedLoreRepository {
	return &CachedLoreRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *CachedLoreRepository) ListTitles(ctx context.Context, seriesID string) ([]string, error) {
	return readThrough(ctx, r.cache, "lore", loreTitlesKey(seriesID), r.ttl, func(ctx context.Context) ([]string, error) {
		return r.inner.ListTitles(ctx, seriesID)
	})
}

func (r *CachedLoreRepository) GetByTitle(ctx context.Context, seriesID, title string) (*entity.LoreSection, error) {
	return readThrough(ctx, r.cache, "lore", loreSectionKey(seriesID, title), r.ttl, func(ctx context.Context) (*entity.LoreSection, error) {
		return r.inner.GetByTitle(ctx, seriesID, title)
	})
}

// CachedStateRepository 状态快照缓存，写入后失效
type CachedStateRepository struct {
	inner repository.StateRepository
	cache *Cache
	ttl   time.Duration
}

var _ repository.StateRepository = (*CachedStateRepository)(nil)

// NewCachedStateRepository 包装状态仓储
func NewCachedStateRepository(inner repository.StateRepository, cache *Cache, ttl time.Duration) *CachedStateRepository {
	return &CachedStateRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *CachedStateRepository) GetCurrent(ctx context.Context, seriesID string) (*entity.StateSnapshot, error) {
	return readThrough(ctx, r.cache, "state", stateKey(seriesID), r.ttl, func(ctx context.Context) (*entity.StateSnapshot, error) {
		return r.inner.GetCurrent(ctx, seriesID)
	})
}

func (r *CachedStateRepository) Save(ctx context.Context, snap *entity.StateSnapshot) error {
	if err := r.inner.Save(ctx, snap); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, stateKey(snap.SeriesID)); err != nil {
		logger.Warn(ctx, "failed to invalidate state cache", "series_id", snap.SeriesID, "error", err.Error())
	}
	return nil
}
