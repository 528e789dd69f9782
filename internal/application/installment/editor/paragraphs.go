package editor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/workflow/node"
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// document 空行分隔的段落与原始分隔符
type document struct {
	paragraphs []string
	seps       []string
}

func splitDocument(text string) *document {
	d := &document{}
	start := 0
	for _, loc := range blankLine.FindAllStringIndex(text, -1) {
		d.paragraphs = append(d.paragraphs, text[start:loc[0]])
		d.seps = append(d.seps, text[loc[0]:loc[1]])
		start = loc[1]
	}
	d.paragraphs = append(d.paragraphs, text[start:])
	return d
}

func (d *document) String() string {
	var b strings.Builder
	for i, p := range d.paragraphs {
		b.WriteString(p)
		if i < len(d.seps) {
			b.WriteString(d.seps[i])
		}
	}
	return b.String()
}

// editable 可编辑段落在文档中的下标
func (d *document) editable(minChars int) []int {
	var idx []int
	for i, p := range d.paragraphs {
		if utf8.RuneCountInString(strings.TrimSpace(p)) >= minChars {
			idx = append(idx, i)
		}
	}
	return idx
}

// neighbor 相邻的非空段落
func (d *document) neighbor(i, step int) string {
	for j := i + step; j >= 0 && j < len(d.paragraphs); j += step {
		if p := strings.TrimSpace(d.paragraphs[j]); p != "" {
			return p
		}
	}
	return ""
}

func renderNumbered(d *document, editable []int) string {
	var b strings.Builder
	for n, i := range editable {
		if n > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(n))
		b.WriteString("]\n")
		b.WriteString(strings.TrimSpace(d.paragraphs[i]))
	}
	return b.String()
}

// parseScores 严格解析 "번호|점수|피드백" 行；越界、重复或非法分值的行丢弃
func parseScores(text string, count int) []model.ParagraphScore {
	records, _ := node.SplitRecords(text, 3)
	seen := make(map[int]struct{}, len(records))
	scores := make([]model.ParagraphScore, 0, len(records))
	for _, rec := range records {
		idx, err := strconv.Atoi(strings.Trim(rec.Fields[0], "[]"))
		if err != nil || idx < 0 || idx >= count {
			continue
		}
		score, err := strconv.Atoi(rec.Fields[1])
		if err != nil || score < 1 || score > 5 {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		scores = append(scores, model.ParagraphScore{Index: idx, Score: score, Feedback: rec.Fields[2]})
	}
	return scores
}
