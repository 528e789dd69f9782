package normalize

import (
	"strings"

	"serial-novel-engine/internal/application/installment/model"
)

// repeatedPhrase 同一短语出现两次以上时，从第三次起按轮换表替换
type repeatedPhrase struct {
	rules []PhraseRule
}

func newRepeatedPhrase(rules []PhraseRule) repeatedPhrase {
	return repeatedPhrase{rules: rules}
}

func (repeatedPhrase) Name() string { return LabelRepeatedPhrase }

func (t repeatedPhrase) Apply(text string) (string, []model.Correction) {
	var cs []model.Correction
	for _, rule := range t.rules {
		if strings.Count(text, rule.Phrase) <= 2 {
			continue
		}
		var b strings.Builder
		b.Grow(len(text))
		rest := text
		seen := 0
		for {
			idx := strings.Index(rest, rule.Phrase)
			if idx < 0 {
				b.WriteString(rest)
				break
			}
			seen++
			b.WriteString(rest[:idx])
			if seen >= 3 {
				alt := rule.Alternatives[(seen-3)%len(rule.Alternatives)]
				b.WriteString(alt)
				cs = append(cs, model.Correction{Label: LabelRepeatedPhrase, Before: rule.Phrase, After: alt})
			} else {
				b.WriteString(rule.Phrase)
			}
			rest = rest[idx+len(rule.Phrase):]
		}
		text = b.String()
	}
	return text, cs
}

// sentenceEnding 连续三行以同一过去时句尾结束时改写第三行句尾
type sentenceEnding struct {
	rules []EndingRule
}

func newSentenceEnding(rules []EndingRule) sentenceEnding {
	return sentenceEnding{rules: rules}
}

func (sentenceEnding) Name() string { return LabelSentenceEnding }

func (t sentenceEnding) Apply(text string) (string, []model.Correction) {
	if len(t.rules) == 0 {
		return text, nil
	}

	var cs []model.Correction
	lines := strings.Split(text, "\n")
	rotation := make([]int, len(t.rules))
	run, prev := 0, -1
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			continue
		}
		ri := t.match(trimmed)
		if ri < 0 {
			run, prev = 0, -1
			continue
		}
		if ri == prev {
			run++
		} else {
			run, prev = 1, ri
		}
		if run < 3 {
			continue
		}

		rule := t.rules[ri]
		alt := rule.Alternatives[rotation[ri]%len(rule.Alternatives)]
		rotation[ri]++
		rewritten := strings.TrimSuffix(trimmed, rule.Suffix) + alt
		lines[i] = rewritten + line[len(trimmed):]
		cs = append(cs, model.Correction{
			Label:  LabelSentenceEnding,
			Before: lastSentence(trimmed),
			After:  lastSentence(rewritten),
		})
		run, prev = 0, -1
	}
	if len(cs) == 0 {
		return text, nil
	}
	return strings.Join(lines, "\n"), cs
}

func (t sentenceEnding) match(line string) int {
	for i, r := range t.rules {
		if strings.HasSuffix(line, r.Suffix) {
			return i
		}
	}
	return -1
}
