package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/workflow/node"
)

const (
	reportMinChars      = 4000
	reportMinParagraphs = 20
	dialogueMinRatio    = 0.10
	dialogueMaxRatio    = 0.50
)

var dialoguePattern = regexp.MustCompile(`"[^"]*"|“[^”]*”`)

// keywordRule 关键词出现次数规则
type keywordRule struct {
	category string
	name     string
	words    []string
	min      int
	weight   int
}

var keywordRules = []keywordRule{
	{"style", "의성어 사용", []string{"콰", "쾅", "쿵", "펑", "쩌", "탁", "찰", "휘", "파", "드르"}, 3, 1},
	{"style", "임팩트 대사", []string{"시끄럽", "지루", "가증", "흥", "꺼져", "닥쳐", "어림없"}, 1, 2},
	{"style", "무협 용어", []string{"내공", "검기", "장풍", "기혈", "경맥", "단전", "초식", "무공", "진기", "살기", "혈도", "공력"}, 3, 1},
	{"style", "비유 표현", []string{"마치", "처럼", "듯", "같았다", "같은"}, 3, 1},
	{"style", "액션 묘사", []string{"제압", "날렸다", "부딪", "날아갔", "으스러", "부서", "터졌", "가격", "베었", "찔렀"}, 3, 1},
	{"style", "감정 묘사", []string{"공포", "경악", "분노", "냉정", "차가운", "얼어붙", "떨렸", "식은땀", "긴장"}, 3, 1},
	{"dramatic", "갈등 요소", []string{"적", "장로", "반대", "저항", "도전", "대립", "충돌", "거부"}, 3, 2},
	{"dramatic", "긴장감", []string{"긴장", "공포", "압박", "위기", "떨", "식은땀", "심장", "숨을"}, 2, 2},
	{"dramatic", "사이다 전개", []string{"일격", "단번", "순식간", "압도", "무력", "통쾌", "한 수"}, 1, 2},
	{"dramatic", "분위기 묘사", []string{"분위기", "공기", "기운", "살기", "압박감", "적막", "어둠", "바람"}, 2, 1},
}

var cliffhangerMarkers = []string{"시작", "순간", "이제", "그때", "하지만", "그러나", "과연", "?", "…", "..."}

// Report 规则化质量报告，只作参考，不影响交付
func (i *Inspector) Report(text string, installmentNo int) model.QualityReport {
	var checks []model.QualityCheck

	charCount := node.CountNonSpace(text)
	checks = append(checks, model.QualityCheck{
		Category: "style", Name: "글자 수", Weight: 2,
		Passed: charCount >= reportMinChars,
		Detail: fmt.Sprintf("%d자 (필요: %d자)", charCount, reportMinChars),
	})

	paragraphs := countParagraphs(text)
	checks = append(checks, model.QualityCheck{
		Category: "style", Name: "문단 구성", Weight: 1,
		Passed: paragraphs >= reportMinParagraphs,
		Detail: fmt.Sprintf("%d개 (필요: %d개)", paragraphs, reportMinParagraphs),
	})

	ratio := dialogueRatio(text)
	checks = append(checks, model.QualityCheck{
		Category: "style", Name: "대사 비율", Weight: 1,
		Passed: ratio >= dialogueMinRatio && ratio <= dialogueMaxRatio,
		Detail: fmt.Sprintf("%.1f%% (적정: 10~50%%)", ratio*100),
	})

	for _, r := range keywordRules {
		n := countAny(text, r.words)
		checks = append(checks, model.QualityCheck{
			Category: r.category, Name: r.name, Weight: r.weight,
			Passed: n >= r.min,
			Detail: fmt.Sprintf("%d회 (필요: %d회)", n, r.min),
		})
	}

	hits := i.bannedHits(text, installmentNo)
	banDetail := "이상 없음"
	if len(hits) > 0 {
		banDetail = "발견: " + strings.Join(hits, ", ")
	}
	checks = append(checks, model.QualityCheck{
		Category: "style", Name: "금지 문구 없음", Weight: 3,
		Passed: len(hits) == 0,
		Detail: banDetail,
	})

	cliff := hasCliffhanger(text)
	cliffDetail := "존재"
	if !cliff {
		cliffDetail = "약함 - 마지막 문장 강화 필요"
	}
	checks = append(checks, model.QualityCheck{
		Category: "dramatic", Name: "클리프행어", Weight: 3,
		Passed: cliff,
		Detail: cliffDetail,
	})

	report := model.QualityReport{Checks: checks, Rules: CheckRules(text)}
	for _, c := range checks {
		report.MaxScore += c.Weight
		if c.Passed {
			report.Score += c.Weight
		}
	}
	if report.MaxScore > 0 {
		report.Percentage = math.Round(float64(report.Score)/float64(report.MaxScore)*1000) / 10
	}
	report.Grade = grade(report.Percentage)
	return report
}

func grade(pct float64) string {
	switch {
	case pct >= 90:
		return "S"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	default:
		return "D"
	}
}

func countAny(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

func countParagraphs(text string) int {
	n := 0
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func dialogueRatio(text string) float64 {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return 0
	}
	dialogue := 0
	for _, m := range dialoguePattern.FindAllString(text, -1) {
		dialogue += utf8.RuneCountInString(m)
	}
	return float64(dialogue) / float64(total)
}

func hasCliffhanger(text string) bool {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	tail := strings.Join(lines, "\n")
	for _, m := range cliffhangerMarkers {
		if strings.Contains(tail, m) {
			return true
		}
	}
	return false
}
