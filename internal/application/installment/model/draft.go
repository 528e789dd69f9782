package model

import (
	"strings"

	"serial-novel-engine/internal/workflow/node"
)

// Draft 单次请求的正文累加器
type Draft struct {
	text string
}

// NewDraft 以给定正文创建草稿
func NewDraft(text string) *Draft {
	return &Draft{text: strings.TrimSpace(text)}
}

// Append 追加一段生成结果，段间以空行分隔
func (d *Draft) Append(part string) {
	part = strings.TrimSpace(part)
	if part == "" {
		return
	}
	if d.text == "" {
		d.text = part
		return
	}
	d.text += "\n\n" + part
}

// Replace 整体替换正文
func (d *Draft) Replace(text string) {
	d.text = strings.TrimSpace(text)
}

// Text 当前正文
func (d *Draft) Text() string {
	if d == nil {
		return ""
	}
	return d.text
}

// CharCount 非空白字符数
func (d *Draft) CharCount() int {
	return node.CountNonSpace(d.Text())
}

// Empty 正文为空
func (d *Draft) Empty() bool {
	return strings.TrimSpace(d.Text()) == ""
}

// Clamp 按非空白字符上限截断
func (d *Draft) Clamp(limit int) bool {
	clamped := node.ClampNonSpace(d.text, limit)
	if clamped == d.text {
		return false
	}
	d.text = clamped
	return true
}
