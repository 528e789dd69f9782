package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	paragraphSep = regexp.MustCompile(`\n[ \t]*\n`)
	blankRun     = regexp.MustCompile(`\n{3,}`)
	quotedSpan   = regexp.MustCompile(`"[^"\n]*"|“[^”\n]*”|「[^」\n]*」`)
)

// mapParagraphs 对空行分隔的每个段落执行 fn，分隔符原样保留
func mapParagraphs(text string, fn func(p string) string) string {
	seps := paragraphSep.FindAllStringIndex(text, -1)
	if len(seps) == 0 {
		return fn(text)
	}
	var b strings.Builder
	b.Grow(len(text))
	start := 0
	for _, sep := range seps {
		b.WriteString(fn(text[start:sep[0]]))
		b.WriteString(text[sep[0]:sep[1]])
		start = sep[1]
	}
	b.WriteString(fn(text[start:]))
	return b.String()
}

// splitSentences 将一行切成句子，片段按顺序拼接后与原行一致
func splitSentences(line string) []string {
	var out []string
	start, i := 0, 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		i += size
		if !isTerminal(r) {
			continue
		}
		for i < len(line) {
			r2, s2 := utf8.DecodeRuneInString(line[i:])
			if !isTerminal(r2) && !isClosing(r2) {
				break
			}
			i += s2
		}
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		out = append(out, line[start:i])
		start = i
	}
	if start < len(line) {
		out = append(out, line[start:])
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。':
		return true
	}
	return false
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', '」':
		return true
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lastSentence(line string) string {
	parts := splitSentences(line)
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}
