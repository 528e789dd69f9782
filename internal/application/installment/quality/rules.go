package quality

import (
	"fmt"
	"regexp"
	"strings"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/workflow/node"
)

// 规则检查状态
const (
	RulePass = "pass"
	RuleWarn = "warn"
	RuleFail = "fail"
)

const (
	honorificWindowBefore = 1
	honorificWindowAfter  = 3
	monologueDetailRunes  = 30
)

var (
	honorificPattern   = regexp.MustCompile(`하시오|하시겠|보시오|드시오|가시오`)
	yearPattern        = regexp.MustCompile(`\d{3,4}\s*년`)
	installmentPattern = regexp.MustCompile(`\d+\s*화에서|\d+\s*화\s*전에|지난\s*화에서|제\s*\d+\s*화`)
	monologuePattern   = regexp.MustCompile(`'[^'\n]{15,}'|‘[^’\n]{15,}’`)

	// honorificSpeakers 出现这些标记的行附近视为天魔的台词
	honorificSpeakers = []string{"천마", "낮은 목소리"}
)

// textRule 不调用模型的连载规则
type textRule struct {
	id    string
	name  string
	level string
	find  func(lines []string) []string
}

var textRules = []textRule{
	{id: "EP-002", name: "천마 존칭", level: RuleFail, find: findHonorifics},
	{id: "EP-002", name: `"시끄러" 과다`, level: RuleWarn, find: overuse("시끄러", 1)},
	{id: "EP-002", name: `"나쁘지 않" 과다`, level: RuleWarn, find: overuse("나쁘지 않", 1)},
	{id: "EP-003", name: "서기 연도", level: RuleFail, find: matchLines(yearPattern, 0)},
	{id: "EP-005", name: "화수 언급", level: RuleFail, find: matchLines(installmentPattern, 0)},
	{id: "MONOLOGUE", name: "독백 표기", level: RuleWarn, find: matchLines(monologuePattern, monologueDetailRunes)},
	{id: "EXCLAMATION", name: "느낌표 남발", level: RuleWarn, find: overuse("!", 10)},
}

// CheckRules 逐条执行连载规则，每条规则恰好产出一条结果
func CheckRules(text string) []model.RuleFinding {
	lines := proseLines(text)
	out := make([]model.RuleFinding, 0, len(textRules))
	for _, r := range textRules {
		f := model.RuleFinding{Rule: r.id, Name: r.name, Status: RulePass}
		if details := r.find(lines); len(details) > 0 {
			f.Status = r.level
			f.Details = details
		}
		out = append(out, f)
	}
	return out
}

// proseLines 按行切分，标题行置空以保持行号
func proseLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			lines[i] = ""
		}
	}
	return lines
}

func matchLines(re *regexp.Regexp, maxRunes int) func([]string) []string {
	return func(lines []string) []string {
		var out []string
		for n, line := range lines {
			for _, m := range re.FindAllString(line, -1) {
				if maxRunes > 0 {
					m = node.TruncateByRunes(m, maxRunes)
				}
				out = append(out, fmt.Sprintf("L%d: %s", n+1, m))
			}
		}
		return out
	}
}

func overuse(word string, limit int) func([]string) []string {
	return func(lines []string) []string {
		n := 0
		for _, line := range lines {
			n += strings.Count(line, word)
		}
		if n <= limit {
			return nil
		}
		return []string{fmt.Sprintf("%d회 (%d회 이하 권장)", n, limit)}
	}
}

// findHonorifics 天魔台词行前一行到后三行内出现敬语词尾
func findHonorifics(lines []string) []string {
	var out []string
	for i, line := range lines {
		if !containsAny(line, honorificSpeakers) {
			continue
		}
		from := max(0, i-honorificWindowBefore)
		to := min(len(lines), i+honorificWindowAfter+1)
		window := strings.Join(lines[from:to], "\n")
		seen := make(map[string]struct{})
		for _, m := range honorificPattern.FindAllString(window, -1) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, fmt.Sprintf("L%d: %s", i+1, m))
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
