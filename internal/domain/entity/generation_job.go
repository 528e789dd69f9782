// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"
)

// JobType 任务类型
type JobType string

const (
	JobTypeInstallmentGen JobType = "installment_gen"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// GenerationJob 异步生成任务（状态保存在 Redis）
type GenerationJob struct {
	ID           string          `json:"id"`
	SeriesID     string          `json:"series_id"`
	Installment  int             `json:"installment"`
	JobType      JobType         `json:"job_type"`
	Status       JobStatus       `json:"status"`
	InputParams  json.RawMessage `json:"input_params,omitempty"`
	OutputResult json.RawMessage `json:"output_result,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Retryable    bool            `json:"retryable,omitempty"`
	RetryCount   int             `json:"retry_count"`
	DurationMs   int             `json:"duration_ms,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewGenerationJob 创建新任务
func NewGenerationJob(id, seriesID string, installment int, inputParams json.RawMessage) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:          id,
		SeriesID:    seriesID,
		Installment: installment,
		JobType:     JobTypeInstallmentGen,
		Status:      JobStatusPending,
		InputParams: inputParams,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Start 进入运行态；重投时覆盖上次的开始时间
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete 记录结果并进入完成态
func (j *GenerationJob) Complete(result json.RawMessage) {
	j.OutputResult = result
	j.finish(JobStatusCompleted)
}

// Fail 记录错误码；retryable 表示调用方可重新提交
func (j *GenerationJob) Fail(code, message string, retryable bool) {
	j.ErrorCode = code
	j.ErrorMessage = message
	j.Retryable = retryable
	j.finish(JobStatusFailed)
}

func (j *GenerationJob) finish(status JobStatus) {
	now := time.Now()
	j.Status = status
	j.CompletedAt = &now
	j.UpdatedAt = now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// IsTerminal 是否处于终态
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
