package generation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/workflow/node"
)

const (
	beatFields        = 6
	minBeatChars      = 100
	defaultBeatTarget = 500
)

// BeatPlanError 节拍计划可用条目不足
type BeatPlanError struct {
	Valid  int
	Min    int
	Issues []node.RecordIssue
}

func (e *BeatPlanError) Error() string {
	return fmt.Sprintf("beat plan has %d valid beats, need at least %d", e.Valid, e.Min)
}

// ParseBeatPlan 严格解析 "번호|장면|목표 글자수|톤|핵심 사건|마지막 문장 방향" 记录。
// 字段不合格的行丢弃；按序号排序去重后最多保留 maxBeats 个；少于 minBeats 时返回 *BeatPlanError。
func ParseBeatPlan(text string, minBeats, maxBeats int) ([]model.Beat, error) {
	records, issues := node.SplitRecords(text, beatFields)

	beats := make([]model.Beat, 0, len(records))
	seen := make(map[int]struct{}, len(records))
	for _, rec := range records {
		beat, reason := parseBeat(rec.Fields)
		if reason != "" {
			issues = append(issues, node.RecordIssue{LineNo: rec.LineNo, Raw: strings.Join(rec.Fields, "|"), Reason: reason})
			continue
		}
		if _, dup := seen[beat.Seq]; dup {
			issues = append(issues, node.RecordIssue{LineNo: rec.LineNo, Reason: "duplicate seq"})
			continue
		}
		seen[beat.Seq] = struct{}{}
		beats = append(beats, beat)
	}

	sort.SliceStable(beats, func(i, j int) bool { return beats[i].Seq < beats[j].Seq })
	if maxBeats > 0 && len(beats) > maxBeats {
		beats = beats[:maxBeats]
	}
	if len(beats) < minBeats {
		return nil, &BeatPlanError{Valid: len(beats), Min: minBeats, Issues: issues}
	}
	return beats, nil
}

func parseBeat(f []string) (model.Beat, string) {
	seq, err := strconv.Atoi(strings.TrimSuffix(f[0], "."))
	if err != nil || seq <= 0 {
		return model.Beat{}, "invalid seq"
	}
	target, ok := parseChars(f[2])
	if !ok {
		return model.Beat{}, "invalid target chars"
	}
	if f[1] == "" || f[3] == "" || f[4] == "" {
		return model.Beat{}, "missing scene, tone or key events"
	}
	return model.Beat{
		Seq:         seq,
		Scene:       f[1],
		TargetChars: target,
		Tone:        f[3],
		KeyEvents:   f[4],
		ClosingLine: f[5],
	}, ""
}

// parseChars 接受 "600"、"600자"、"1,200"
func parseChars(s string) (int, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "자"))
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// scaleBeats 目标字数之和超过预算时按比例缩小
func scaleBeats(beats []model.Beat, budget int) []model.Beat {
	out := make([]model.Beat, len(beats))
	copy(out, beats)
	sum := 0
	for i := range out {
		if out[i].TargetChars <= 0 {
			out[i].TargetChars = defaultBeatTarget
		}
		sum += out[i].TargetChars
	}
	if sum <= budget || sum == 0 {
		return out
	}
	factor := float64(budget) / float64(sum)
	for i := range out {
		scaled := int(math.Floor(float64(out[i].TargetChars) * factor))
		if scaled < minBeatChars {
			scaled = minBeatChars
		}
		out[i].TargetChars = scaled
	}
	return out
}

// toneTemperatures 语气 -> 采样温度；战斗最高，平静与对话最低
var toneTemperatures = []struct {
	keywords    []string
	temperature float32
}{
	{[]string{"전투", "액션", "결투", "combat", "action", "battle", "fight"}, 0.95},
	{[]string{"긴장", "추격", "위기", "tension", "chase"}, 0.9},
	{[]string{"감정", "비장", "코믹", "유머", "emotion", "comic", "humor"}, 0.85},
	{[]string{"일상", "daily"}, 0.75},
	{[]string{"대화", "dialogue"}, 0.7},
	{[]string{"고요", "평온", "잔잔", "calm", "quiet"}, 0.65},
}

// ToneTemperature 按语气取采样温度；未知语气使用 fallback
func ToneTemperature(tone string, fallback float32) float32 {
	t := strings.ToLower(strings.TrimSpace(tone))
	if t == "" {
		return fallback
	}
	for _, entry := range toneTemperatures {
		for _, kw := range entry.keywords {
			if strings.Contains(t, kw) {
				return entry.temperature
			}
		}
	}
	return fallback
}
