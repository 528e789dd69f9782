// Package model 定义分集生成流水线的数据模型
package model

import (
	"fmt"
	"strings"

	"serial-novel-engine/internal/domain/entity"
)

// Strategy 生成策略
type Strategy string

const (
	StrategySinglePass   Strategy = "single-pass"
	StrategyChunked      Strategy = "chunked"
	StrategyBeatDirected Strategy = "beat-directed"
)

// Request 单集生成请求
type Request struct {
	SeriesID          string     `json:"series_id" validate:"required,max=64"`
	InstallmentNumber int        `json:"installment_number" validate:"required,gt=0"`
	Title             string     `json:"title" validate:"max=255"`
	Outline           string     `json:"outline" validate:"required"`
	StructuralOutline string     `json:"structural_outline,omitempty"`
	Strategy          string     `json:"strategy,omitempty" validate:"omitempty,oneof=single-pass chunked beat-directed"`
	Tier              int        `json:"tier,omitempty" validate:"omitempty,min=1,max=3"`
	References        References `json:"references"`
}

// References 请求携带的可选参考资料
type References struct {
	Characters   []CharacterCard       `json:"characters,omitempty" validate:"dive"`
	PriorSummary string                `json:"prior_summary,omitempty"`
	WorldExcerpt string                `json:"world_excerpt,omitempty"`
	State        *entity.StateSnapshot `json:"state,omitempty"`
}

// EffectiveTier 未指定档位时使用 1 档
func (r *Request) EffectiveTier() int {
	if r.Tier <= 0 {
		return 1
	}
	return r.Tier
}

// DisplayTitle 标题为空时只显示集数
func (r *Request) DisplayTitle() string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return fmt.Sprintf("제%d화", r.InstallmentNumber)
}

// CharacterCard 人物卡
type CharacterCard struct {
	Name           string   `json:"name" validate:"required"`
	Title          string   `json:"title,omitempty"`
	Faction        string   `json:"faction,omitempty"`
	Rank           string   `json:"rank,omitempty"`
	Weapon         string   `json:"weapon,omitempty"`
	SpeechStyle    string   `json:"speech_style,omitempty"`
	SpeechExamples []string `json:"speech_examples,omitempty"`
	Catchphrase    string   `json:"catchphrase,omitempty"`
	Personality    string   `json:"personality,omitempty"`
}

// Render 渲染为提示词中的人物条目
func (c CharacterCard) Render() string {
	head := "- " + c.Name
	if c.Title != "" {
		head += " (" + c.Title + ")"
	}
	lines := []string{head}
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			lines = append(lines, "  "+label+": "+v)
		}
	}
	add("소속", c.Faction)
	add("무공", c.Rank)
	add("무기", c.Weapon)
	add("말투", c.SpeechStyle)
	if len(c.SpeechExamples) > 0 {
		add("대사 예시", "\""+c.SpeechExamples[0]+"\"")
	}
	if c.Catchphrase != "" {
		add("입버릇", "\""+c.Catchphrase+"\"")
	}
	add("성격", c.Personality)
	return strings.Join(lines, "\n")
}
