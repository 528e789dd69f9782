// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
	"unicode"

	"github.com/lib/pq"
)

// GenerationMetadata 生成元数据
type GenerationMetadata struct {
	Strategy         string  `json:"strategy,omitempty"`
	Tier             int     `json:"tier,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	Calls            int     `json:"calls,omitempty"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
	Regenerated      bool    `json:"regenerated,omitempty"`
	Rewrites         int     `json:"rewrites,omitempty"`
	Corrections      int     `json:"corrections,omitempty"`
	GeneratedAt      string  `json:"generated_at,omitempty"`
}

// Installment 连载分集实体，(series_id, number) 唯一
type Installment struct {
	ID                 string              `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeriesID           string              `json:"series_id" gorm:"type:varchar(64);not null;uniqueIndex:uk_installment_series_number"`
	Number             int                 `json:"number" gorm:"not null;uniqueIndex:uk_installment_series_number"`
	Title              string              `json:"title" gorm:"type:varchar(255)"`
	Content            string              `json:"content" gorm:"type:text"`
	CharCount          int                 `json:"char_count" gorm:"default:0"`
	Warnings           pq.StringArray      `json:"warnings,omitempty" gorm:"type:text[]"`
	GenerationMetadata *GenerationMetadata `json:"generation_metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt          time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Installment) TableName() string {
	return "installments"
}

// NewInstallment 创建新分集
func NewInstallment(seriesID string, number int, title string) *Installment {
	now := time.Now()
	return &Installment{
		SeriesID:  seriesID,
		Number:    number,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetContent 设置正文并刷新字数
func (i *Installment) SetContent(content string) {
	i.Content = content
	i.CharCount = CountNonSpace(content)
	i.UpdatedAt = time.Now()
}

// CountNonSpace 统计非空白字符数（字数口径）
func CountNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// Tail 返回正文末尾不超过 maxRunes 的部分，尽量从行首截断
func (i *Installment) Tail(maxRunes int) string {
	if i == nil || maxRunes <= 0 {
		return ""
	}
	runes := []rune(strings.TrimSpace(i.Content))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	tail := string(runes[len(runes)-maxRunes:])
	if idx := strings.IndexByte(tail, '\n'); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
