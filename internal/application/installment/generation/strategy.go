// Package generation 提供生成策略选择与编排
package generation

import (
	"fmt"
	"strings"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/pkg/errors"
)

// SelectStrategy 按调用方标记选择策略；空标记使用单次生成
func SelectStrategy(flag string) (model.Strategy, error) {
	switch s := model.Strategy(strings.ToLower(strings.TrimSpace(flag))); s {
	case "":
		return model.StrategySinglePass, nil
	case model.StrategySinglePass, model.StrategyChunked, model.StrategyBeatDirected:
		return s, nil
	default:
		return "", errors.New(errors.CodeInvalidParam, "unknown generation strategy").
			WithDetail(fmt.Sprintf("strategy %q, expected single-pass, chunked or beat-directed", flag))
	}
}

// act 五幕结构中的一幕
type act struct {
	name        string
	share       int
	description string
}

var fiveActs = []act{
	{"제1막: 도입", 15, "분위기 조성, 상황 설정, 전회 연결"},
	{"제2막: 전개", 25, "갈등 심화, 인물 간 충돌 시작"},
	{"제3막: 위기", 25, "결정적 위기, 선택의 기로"},
	{"제4막: 절정", 20, "최대 긴장, 액션과 반전"},
	{"제5막: 마무리", 15, "여운, 다음 화로 이어지는 극적인 끊김"},
}

// chunkPhases 三段式生成的幕划分：1~2 幕、3~4 幕、5 幕
var chunkPhases = [][]int{{0, 1}, {2, 3}, {4}}

func fiveActDirective() string {
	lines := []string{"### 5막 구조 (반드시 따르세요)"}
	for _, a := range fiveActs {
		lines = append(lines, fmt.Sprintf("- %s (전체의 %d%%): %s", a.name, a.share, a.description))
	}
	return strings.Join(lines, "\n")
}

func phaseLabel(phase []int) string {
	names := make([]string, 0, len(phase))
	for _, i := range phase {
		names = append(names, fiveActs[i].name)
	}
	return strings.Join(names, ", ")
}

func phaseDirective(phase []int, last bool) string {
	lines := make([]string, 0, len(phase)+1)
	for _, i := range phase {
		lines = append(lines, fmt.Sprintf("- %s: %s", fiveActs[i].name, fiveActs[i].description))
	}
	if last {
		lines = append(lines, "- 마지막 문장은 독자가 다음 화를 누르게 만드는 지점에서 끊으세요.")
	} else {
		lines = append(lines, "- 이 구간의 범위까지만 쓰고, 다음 막의 사건은 쓰지 마세요.")
	}
	return strings.Join(lines, "\n")
}
