// Package entity 定义领域实体
package entity

import "time"

// LLMUsageEvent 单次模型调用的用量流水
type LLMUsageEvent struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeriesID         string    `json:"series_id,omitempty" gorm:"type:varchar(64);index"`
	Installment      int       `json:"installment,omitempty" gorm:"default:0"`
	Workflow         string    `json:"workflow" gorm:"type:varchar(64);not null"`
	Provider         string    `json:"provider" gorm:"type:varchar(32);not null"`
	Model            string    `json:"model" gorm:"type:varchar(64);not null"`
	TokensPrompt     int       `json:"tokens_prompt" gorm:"not null;default:0"`
	TokensCompletion int       `json:"tokens_completion" gorm:"not null;default:0"`
	DurationMs       int       `json:"duration_ms" gorm:"not null;default:0"`
	Fallback         bool      `json:"fallback" gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (LLMUsageEvent) TableName() string {
	return "llm_usage_events"
}

// UsageSummary 按工作流、提供商与模型聚合的用量
type UsageSummary struct {
	Workflow         string `json:"workflow"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Calls            int    `json:"calls"`
	TokensPrompt     int    `json:"tokens_prompt"`
	TokensCompletion int    `json:"tokens_completion"`
	Fallbacks        int    `json:"fallbacks"`
	DurationMs       int64  `json:"duration_ms"`
}
