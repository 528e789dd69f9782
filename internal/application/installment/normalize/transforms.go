package normalize

import (
	"strings"

	"serial-novel-engine/internal/application/installment/model"
)

// terminology 规范用语替换，按表顺序执行
type terminology struct {
	pairs []Replacement
}

func newTerminology(pairs []Replacement) terminology {
	return terminology{pairs: pairs}
}

func (terminology) Name() string { return LabelTerminology }

func (t terminology) Apply(text string) (string, []model.Correction) {
	var cs []model.Correction
	for _, p := range t.pairs {
		if p.From == "" || p.From == p.To {
			continue
		}
		n := strings.Count(text, p.From)
		if n == 0 {
			continue
		}
		text = strings.ReplaceAll(text, p.From, p.To)
		for i := 0; i < n; i++ {
			cs = append(cs, model.Correction{Label: LabelTerminology, Before: p.From, After: p.To})
		}
	}
	return text, cs
}

// versionGate 删除包含失效设定词的整句
type versionGate struct {
	terms []string
}

func newVersionGate(terms []string) versionGate {
	return versionGate{terms: terms}
}

func (versionGate) Name() string { return LabelVersionGate }

func (g versionGate) Apply(text string) (string, []model.Correction) {
	if len(g.terms) == 0 || !containsAny(text, g.terms) {
		return text, nil
	}

	var cs []model.Correction
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if !containsAny(line, g.terms) {
			out = append(out, line)
			continue
		}
		var kept strings.Builder
		for _, s := range splitSentences(line) {
			if containsAny(s, g.terms) {
				cs = append(cs, model.Correction{Label: LabelVersionGate, Before: strings.TrimSpace(s)})
				continue
			}
			kept.WriteString(s)
		}
		rest := strings.TrimRight(kept.String(), " \t")
		if strings.TrimSpace(rest) == "" {
			continue
		}
		out = append(out, rest)
	}

	result := blankRun.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
	return strings.Trim(result, "\n"), cs
}

// voice 在提及人物的段落里校正其台词语体
type voice struct {
	rules []VoiceRule
}

func newVoice(rules []VoiceRule) voice {
	return voice{rules: rules}
}

func (voice) Name() string { return LabelVoice }

func (v voice) Apply(text string) (string, []model.Correction) {
	if len(v.rules) == 0 {
		return text, nil
	}
	var cs []model.Correction
	out := mapParagraphs(text, func(p string) string {
		for _, rule := range v.rules {
			if !strings.Contains(p, rule.Character) {
				continue
			}
			p = quotedSpan.ReplaceAllStringFunc(p, func(q string) string {
				for _, r := range rule.Replacements {
					n := strings.Count(q, r.From)
					if n == 0 {
						continue
					}
					q = strings.ReplaceAll(q, r.From, r.To)
					for i := 0; i < n; i++ {
						cs = append(cs, model.Correction{Label: LabelVoice, Before: r.From, After: r.To})
					}
				}
				return q
			})
		}
		return p
	})
	return out, cs
}
