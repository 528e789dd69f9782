package dto

import (
	"encoding/json"
	"time"

	"serial-novel-engine/internal/domain/entity"
)

// JobResponse 任务响应
type JobResponse struct {
	ID          string          `json:"id"`
	SeriesID    string          `json:"series_id"`
	Installment int             `json:"installment"`
	JobType     string          `json:"job_type"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	Retryable   bool            `json:"retryable,omitempty"`
	RetryCount  int             `json:"retry_count"`
	DurationMs  int             `json:"duration_ms,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SubmitJobResponse 异步提交响应
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.GenerationJob) *JobResponse {
	if j == nil {
		return nil
	}

	return &JobResponse{
		ID:          j.ID,
		SeriesID:    j.SeriesID,
		Installment: j.Installment,
		JobType:     string(j.JobType),
		Status:      string(j.Status),
		Result:      j.OutputResult,
		ErrorCode:   j.ErrorCode,
		ErrorMsg:    j.ErrorMessage,
		Retryable:   j.Retryable,
		RetryCount:  j.RetryCount,
		DurationMs:  j.DurationMs,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
