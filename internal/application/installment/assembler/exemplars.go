package assembler

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/domain/entity"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?…\n]+[.!?…]+`)
	voicePattern    = regexp.MustCompile(`"[^"\n]+"|“[^”\n]+”|「[^」\n]+」|\([^)\n]+\)`)
)

// styleExemplars 抽取带感官词汇、长度适中的叙述句
func (a *Assembler) styleExemplars(recent []*entity.Installment, rng *rand.Rand) []model.Exemplar {
	if a.cfg.StyleSamples <= 0 {
		return nil
	}
	var candidates []string
	seen := make(map[string]struct{})
	for i, inst := range recent {
		if i >= a.cfg.StyleWindow {
			break
		}
		for _, line := range strings.Split(inst.Content, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || isDialogue(line) {
				continue
			}
			for _, s := range sentencePattern.FindAllString(line, -1) {
				s = strings.TrimSpace(s)
				n := utf8.RuneCountInString(s)
				if n < a.cfg.StyleMinChars || n > a.cfg.StyleMaxChars || !containsAny(s, a.cfg.SensoryWords) {
					continue
				}
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				candidates = append(candidates, s)
			}
		}
	}

	picked := pick(candidates, a.cfg.StyleSamples, rng)
	out := make([]model.Exemplar, 0, len(picked))
	for _, s := range picked {
		out = append(out, model.Exemplar{Text: s})
	}
	return out
}

// voiceExemplars 抽取提到人物名的台词或括号独白，每人至多 VoiceSamplesPerCharacter 条
func (a *Assembler) voiceExemplars(recent []*entity.Installment, names []string, rng *rand.Rand) []model.Exemplar {
	if len(names) == 0 || a.cfg.VoiceSamplesPerCharacter <= 0 {
		return nil
	}
	byName := make(map[string][]string, len(names))
	seen := make(map[string]struct{})
	for i, inst := range recent {
		if i >= a.cfg.VoiceWindow {
			break
		}
		for _, line := range strings.Split(inst.Content, "\n") {
			spans := voicePattern.FindAllString(line, -1)
			if len(spans) == 0 {
				continue
			}
			for _, name := range names {
				if name == "" || !strings.Contains(line, name) {
					continue
				}
				for _, span := range spans {
					key := name + "\x00" + span
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
					byName[name] = append(byName[name], span)
				}
			}
		}
	}

	var out []model.Exemplar
	for _, name := range names {
		for _, line := range pick(byName[name], a.cfg.VoiceSamplesPerCharacter, rng) {
			out = append(out, model.Exemplar{Character: name, Text: line})
		}
	}
	return out
}

// pick 随机取至多 n 个，保持候选原有相对顺序
func pick(candidates []string, n int, rng *rand.Rand) []string {
	if len(candidates) <= n {
		return candidates
	}
	idx := rng.Perm(len(candidates))[:n]
	keep := make([]bool, len(candidates))
	for _, i := range idx {
		keep[i] = true
	}
	out := make([]string, 0, n)
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func isDialogue(line string) bool {
	return strings.HasPrefix(line, "\"") || strings.HasPrefix(line, "“") || strings.HasPrefix(line, "「")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}
