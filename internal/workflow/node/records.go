package node

import (
	"fmt"
	"strings"
)

// RecordLine 管道分隔记录中的一行
type RecordLine struct {
	LineNo int
	Fields []string
}

// RecordIssue 被跳过的行及原因
type RecordIssue struct {
	LineNo int
	Raw    string
	Reason string
}

func (i RecordIssue) String() string {
	return fmt.Sprintf("line %d: %s", i.LineNo, i.Reason)
}

// SplitRecords 将模型输出按行切分为 '|' 分隔的记录。
// 只接受字段数恰好为 fields 的行；空行、代码块标记、表头分隔行静默跳过，其余不合格行记入 issues。
func SplitRecords(text string, fields int) ([]RecordLine, []RecordIssue) {
	var (
		records []RecordLine
		issues  []RecordIssue
	)
	for i, raw := range strings.Split(StripCodeFence(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "#") {
			continue
		}
		// markdown 表格两侧的竖线
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|"))
		if isTableRule(line) {
			continue
		}
		if !strings.Contains(line, "|") {
			issues = append(issues, RecordIssue{LineNo: i + 1, Raw: raw, Reason: "no field separator"})
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != fields {
			issues = append(issues, RecordIssue{
				LineNo: i + 1,
				Raw:    raw,
				Reason: fmt.Sprintf("expected %d fields, got %d", fields, len(parts)),
			})
			continue
		}
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		records = append(records, RecordLine{LineNo: i + 1, Fields: parts})
	}
	return records, issues
}

func isTableRule(line string) bool {
	if line == "" {
		return false
	}
	for _, r := range line {
		switch r {
		case '-', ':', '|', ' ':
		default:
			return false
		}
	}
	return true
}
