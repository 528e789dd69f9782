// Package entity 定义领域实体
package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// LoreSection 设定集条目（按标题检索）
type LoreSection struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeriesID  string    `json:"series_id" gorm:"type:varchar(64);not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Body      string    `json:"body" gorm:"type:text"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (LoreSection) TableName() string {
	return "lore_sections"
}

// StateSnapshot 世界线当前状态
type StateSnapshot struct {
	SeriesID          string            `json:"series_id" yaml:"series_id" gorm:"type:varchar(64);primaryKey"`
	Location          string            `json:"location" yaml:"location" gorm:"type:varchar(255)"`
	ProtagonistStatus map[string]string `json:"protagonist_status" yaml:"protagonist_status" gorm:"type:jsonb;serializer:json"`
	ActiveThreads     pq.StringArray    `json:"active_threads" yaml:"active_threads" gorm:"type:text[]"`
	LastInstallment   int               `json:"last_installment" yaml:"last_installment" gorm:"default:0"`
	UpdatedAt         time.Time         `json:"updated_at" yaml:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (StateSnapshot) TableName() string {
	return "state_snapshots"
}

// Render 渲染为纯文本，供提示词直接使用
func (s *StateSnapshot) Render() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	if s.Location != "" {
		fmt.Fprintf(&b, "현재 위치: %s\n", s.Location)
	}
	if len(s.ProtagonistStatus) > 0 {
		keys := make([]string, 0, len(s.ProtagonistStatus))
		for k := range s.ProtagonistStatus {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("주인공 상태:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, s.ProtagonistStatus[k])
		}
	}
	if len(s.ActiveThreads) > 0 {
		b.WriteString("진행 중인 떡밥:\n")
		for _, t := range s.ActiveThreads {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return strings.TrimSpace(b.String())
}
