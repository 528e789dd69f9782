// Package quality 提供质量闸门：硬约束检查与一次有界重写
package quality

import (
	"fmt"
	"strings"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/workflow/node"
)

// 违规类型，同时作为指标标签
const (
	KindBannedTerm = "banned_term"
	KindTooShort   = "too_short"
	KindEmpty      = "empty"
)

// Violations 一次检查的结果
type Violations struct {
	BannedTerms []string
	TooShort    bool
	Empty       bool
	CharCount   int
	Floor       int
}

// Any 存在任一违规
func (v Violations) Any() bool {
	return v.Empty || v.TooShort || len(v.BannedTerms) > 0
}

// Kinds 违规类型列表
func (v Violations) Kinds() []string {
	var kinds []string
	if v.Empty {
		kinds = append(kinds, KindEmpty)
	}
	if v.TooShort {
		kinds = append(kinds, KindTooShort)
	}
	if len(v.BannedTerms) > 0 {
		kinds = append(kinds, KindBannedTerm)
	}
	return kinds
}

// Warnings 面向调用方的告警文本
func (v Violations) Warnings() []string {
	var out []string
	for _, term := range v.BannedTerms {
		out = append(out, "banned term: "+term)
	}
	if v.TooShort {
		out = append(out, fmt.Sprintf("below length floor: %d < %d non-whitespace chars", v.CharCount, v.Floor))
	}
	return out
}

// Instruction 重写时附加的纠正指令
func (v Violations) Instruction() string {
	var lines []string
	if len(v.BannedTerms) > 0 {
		lines = append(lines, "아래 금지 문구가 포함되었습니다. 절대 쓰지 마세요:")
		for _, term := range v.BannedTerms {
			lines = append(lines, "- "+term)
		}
	}
	if v.Empty {
		lines = append(lines, "이전 응답이 비어 있었습니다. 반드시 본문을 끝까지 작성하세요.")
	}
	if v.TooShort {
		lines = append(lines, fmt.Sprintf("분량이 부족합니다. 공백 제외 최소 %d자 이상 작성하세요.", v.Floor))
	}
	return strings.Join(lines, "\n")
}

// Inspector 只读检查器
type Inspector struct {
	banList        []string
	earlyBanList   []string
	earlyThreshold int
	floor          int
}

// NewInspector 创建检查器
func NewInspector(cfg *config.Config) *Inspector {
	return &Inspector{
		banList:        cfg.Quality.BanList,
		earlyBanList:   cfg.Quality.EarlyBanList,
		earlyThreshold: cfg.Pipeline.EarlyInstallmentThreshold,
		floor:          cfg.Pipeline.LengthFloor,
	}
}

// Inspect 检查禁用词与字数下限；字数下限只约束单次生成策略
func (i *Inspector) Inspect(text string, installmentNo int, strategy model.Strategy) Violations {
	v := Violations{
		CharCount: node.CountNonSpace(text),
		Floor:     i.floor,
	}
	if strings.TrimSpace(text) == "" {
		v.Empty = true
		return v
	}
	v.BannedTerms = i.bannedHits(text, installmentNo)
	if strategy == model.StrategySinglePass && v.CharCount < i.floor {
		v.TooShort = true
	}
	return v
}

// BanList 对指定集数生效的禁用词
func (i *Inspector) BanList(installmentNo int) []string {
	list := append([]string(nil), i.banList...)
	if installmentNo > 0 && installmentNo <= i.earlyThreshold {
		list = append(list, i.earlyBanList...)
	}
	return list
}

func (i *Inspector) bannedHits(text string, installmentNo int) []string {
	var hits []string
	seen := make(map[string]struct{})
	for _, term := range i.BanList(installmentNo) {
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		if strings.Contains(text, term) {
			seen[term] = struct{}{}
			hits = append(hits, term)
		}
	}
	return hits
}
