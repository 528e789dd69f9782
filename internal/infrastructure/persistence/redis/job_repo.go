package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
)

// JobRepository 基于 Redis 的任务状态仓储，过期后自动清理
type JobRepository struct {
	client *Client
	ttl    time.Duration
}

var _ repository.JobRepository = (*JobRepository)(nil)

// NewJobRepository 创建任务状态仓储
func NewJobRepository(client *Client, ttl time.Duration) *JobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobRepository{client: client, ttl: ttl}
}

// Save 覆盖写任务状态
func (r *JobRepository) Save(ctx context.Context, job *entity.GenerationJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return r.client.rdb.Set(ctx, jobKey(job.ID), b, r.ttl).Err()
}

// Get 读取任务状态
func (r *JobRepository) Get(ctx context.Context, id string) (*entity.GenerationJob, error) {
	raw, err := r.client.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var job entity.GenerationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func jobKey(id string) string {
	return "job:" + id
}
