package model

import (
	"fmt"
	"strings"
)

// Exemplar 从已发布分集中抽取的文体或口吻样例，按请求临时生成
type Exemplar struct {
	Character string
	Text      string
}

// RenderExemplars 渲染为列表；带人物名时前缀人物名
func RenderExemplars(list []Exemplar) string {
	lines := make([]string, 0, len(list))
	for _, e := range list {
		if e.Character != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", e.Character, e.Text))
			continue
		}
		lines = append(lines, "- "+e.Text)
	}
	return strings.Join(lines, "\n")
}
