package node

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TailByRunes 返回末尾 maxRunes 个字符
func TailByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= maxRunes {
		return s
	}
	skip := total - maxRunes
	n := 0
	for i := range s {
		if n == skip {
			return s[i:]
		}
		n++
	}
	return ""
}

// CountNonSpace 统计非空白字符数
func CountNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// ClampNonSpace 将文本限制在 limit 个非空白字符以内，优先在句末或换行处截断
func ClampNonSpace(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if CountNonSpace(s) <= limit {
		return s
	}
	n := 0
	cut := len(s)
	lastBoundary := -1
	for i, r := range s {
		if !unicode.IsSpace(r) {
			if n == limit {
				cut = i
				break
			}
			n++
		}
		if isSentenceBoundary(r) {
			lastBoundary = i + utf8.RuneLen(r)
		}
	}
	if lastBoundary > 0 && lastBoundary <= cut {
		cut = lastBoundary
	}
	return strings.TrimRightFunc(s[:cut], unicode.IsSpace)
}

func isSentenceBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '…', '\n', '”', '’':
		return true
	}
	return false
}

// StripCodeFence 去掉模型输出外层的 markdown 代码块
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if idx := strings.IndexByte(t, '\n'); idx >= 0 {
		t = t[idx+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// EstimateTokens 按 3 字符约 1 token 粗估，提供商未返回用量时使用
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 2) / 3
}
