package quality

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			LengthFloor:               3000,
			LengthCeiling:             5500,
			EarlyInstallmentThreshold: 30,
		},
		Quality: config.QualityConfig{
			BanList:          []string{"띠링", "상태창", "오케이"},
			EarlyBanList:     []string{"소흥주", "주점"},
			RetryAcceptRatio: 0.5,
		},
	}
}

type fakeRegenerator struct {
	texts        []string
	err          error
	calls        int
	instructions []string
}

func (f *fakeRegenerator) Regenerate(_ context.Context, _ *model.GenerationContext, _ *model.Request, instruction string) (string, error) {
	f.calls++
	f.instructions = append(f.instructions, instruction)
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	t := f.texts[0]
	f.texts = f.texts[1:]
	return t, nil
}

func longText(n int) string {
	return strings.Repeat("가", n)
}

func TestInspect(t *testing.T) {
	ins := NewInspector(testConfig())

	tests := []struct {
		name     string
		text     string
		number   int
		strategy model.Strategy
		banned   []string
		tooShort bool
		empty    bool
	}{
		{"clean", longText(3200), 50, model.StrategySinglePass, nil, false, false},
		{"banned base term", longText(3200) + "띠링", 50, model.StrategySinglePass, []string{"띠링"}, false, false},
		{"early list applies", longText(3200) + "소흥주", 30, model.StrategySinglePass, []string{"소흥주"}, false, false},
		{"early list expired", longText(3200) + "소흥주", 31, model.StrategySinglePass, nil, false, false},
		{"too short single-pass", longText(100), 50, model.StrategySinglePass, nil, true, false},
		{"floor ignored for chunked", longText(100), 50, model.StrategyChunked, nil, false, false},
		{"empty always violates", "  \n ", 50, model.StrategyChunked, nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ins.Inspect(tt.text, tt.number, tt.strategy)
			assert.Equal(t, tt.banned, v.BannedTerms)
			assert.Equal(t, tt.tooShort, v.TooShort)
			assert.Equal(t, tt.empty, v.Empty)
			assert.Equal(t, tt.tooShort || tt.empty || len(tt.banned) > 0, v.Any())
		})
	}
}

func TestGate_CleanDraftMakesNoCall(t *testing.T) {
	regen := &fakeRegenerator{}
	gate := NewGate(NewInspector(testConfig()), regen, 0.5)
	draft := model.NewDraft(longText(3500))

	out, err := gate.Enforce(context.Background(), draft, nil, &model.Request{InstallmentNumber: 40}, model.StrategySinglePass)
	require.NoError(t, err)
	assert.False(t, out.Regenerated)
	assert.Zero(t, regen.calls)
	assert.Empty(t, out.Warnings())
}

func TestGate_PersistentBannedTermRegeneratesExactlyOnce(t *testing.T) {
	regen := &fakeRegenerator{texts: []string{longText(3400) + " 상태창", longText(3400)}}
	gate := NewGate(NewInspector(testConfig()), regen, 0.5)
	draft := model.NewDraft(longText(3500) + " 상태창")

	out, err := gate.Enforce(context.Background(), draft, nil, &model.Request{InstallmentNumber: 40}, model.StrategySinglePass)
	require.NoError(t, err)
	assert.Equal(t, 1, regen.calls)
	assert.True(t, out.Regenerated)
	assert.True(t, out.Replaced)
	assert.Equal(t, []string{"banned term: 상태창"}, out.Warnings())
	assert.Contains(t, regen.instructions[0], "- 상태창")
}

func TestGate_ShortRegenerationRejected(t *testing.T) {
	regen := &fakeRegenerator{texts: []string{longText(1000)}}
	gate := NewGate(NewInspector(testConfig()), regen, 0.5)
	original := longText(3500) + " 오케이"
	draft := model.NewDraft(original)

	out, err := gate.Enforce(context.Background(), draft, nil, &model.Request{InstallmentNumber: 40}, model.StrategySinglePass)
	require.NoError(t, err)
	assert.True(t, out.Regenerated)
	assert.False(t, out.Replaced)
	assert.Equal(t, original, draft.Text())
	assert.Equal(t, []string{"banned term: 오케이"}, out.Warnings())
}

func TestGate_EmptyDraftReplacedByAnyText(t *testing.T) {
	regen := &fakeRegenerator{texts: []string{longText(3100)}}
	gate := NewGate(NewInspector(testConfig()), regen, 0.5)
	draft := model.NewDraft("")

	out, err := gate.Enforce(context.Background(), draft, nil, &model.Request{InstallmentNumber: 40}, model.StrategyChunked)
	require.NoError(t, err)
	assert.True(t, out.Replaced)
	assert.Equal(t, 3100, draft.CharCount())
	assert.False(t, out.Final.Any())
	assert.Contains(t, regen.instructions[0], "비어 있었습니다")
}

func TestGate_RegenerationErrorKeepsDraft(t *testing.T) {
	regen := &fakeRegenerator{err: stderrors.New("provider down")}
	gate := NewGate(NewInspector(testConfig()), regen, 0.5)
	draft := model.NewDraft(longText(200))

	out, err := gate.Enforce(context.Background(), draft, nil, &model.Request{InstallmentNumber: 40}, model.StrategySinglePass)
	require.NoError(t, err)
	assert.True(t, out.Regenerated)
	assert.Equal(t, 1, regen.calls)
	assert.True(t, out.Final.TooShort)
}

func TestGate_CancelledContextPropagates(t *testing.T) {
	regen := &fakeRegenerator{err: context.Canceled}
	gate := NewGate(NewInspector(testConfig()), regen, 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gate.Enforce(ctx, model.NewDraft(""), nil, &model.Request{InstallmentNumber: 1}, model.StrategySinglePass)
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	ins := NewInspector(testConfig())

	empty := ins.Report("", 40)
	assert.Equal(t, "D", empty.Grade)
	assert.Equal(t, 3, empty.Score, "only the ban-list check passes on empty text")

	var b strings.Builder
	for i := 0; i < 22; i++ {
		b.WriteString(longText(100))
		b.WriteString(" 쾅! 쿵! 펑! 내공과 검기, 살기가 마치 칼날처럼 번뜩였다. ")
		b.WriteString("\"닥쳐라. 네놈의 검은 너무 느리고 지루하다. 어림없는 소리는 그만두어라.\"")
		b.WriteString(" 적의 장로가 반대하며 저항했다. 긴장, 공포, 위기. 일격에 제압하고 날렸다, 부딪, 베었다. 경악과 분노, 식은땀. 어둠 속 바람.")
		b.WriteString("\n\n")
	}
	b.WriteString("그때였다. 문이 열렸다…")
	report := ins.Report(b.String(), 40)

	assert.Equal(t, report.MaxScore, report.Score, "%+v", report.Checks)
	assert.Equal(t, "S", report.Grade)

	banned := ins.Report(b.String()+" 띠링", 40)
	assert.Less(t, banned.Score, report.Score)

	require.Len(t, report.Rules, len(textRules))
	flagged := ins.Report("서기 1024년 겨울이었다.\n\n"+b.String(), 40)
	assert.Equal(t, report.MaxScore, flagged.MaxScore, "rule findings are not scored")
	assert.Equal(t, RuleFail, ruleStatus(flagged.Rules, "서기 연도"))
}

func ruleStatus(findings []model.RuleFinding, name string) string {
	for _, f := range findings {
		if f.Name == name {
			return f.Status
		}
	}
	return ""
}

func TestCheckRules(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		rule    string
		status  string
		details []string
	}{
		{
			name:    "honorific near the demon sovereign",
			text:    "천마가 입을 열었다.\n\"이리 오시오. 내 말을 들어 보시오.\"",
			rule:    "천마 존칭",
			status:  RuleFail,
			details: []string{"L1: 보시오"},
		},
		{
			name:    "honorific in a low voice line",
			text:    "낮은 목소리가 울렸다.\n\n\"이쯤에서 그만하시겠소?\"",
			rule:    "천마 존칭",
			status:  RuleFail,
			details: []string{"L1: 하시겠"},
		},
		{
			name:   "honorific far from the speaker",
			text:   "천마가 웃었다.\n1\n2\n3\n4\n\"어서 가시오.\"",
			rule:   "천마 존칭",
			status: RulePass,
		},
		{
			name:   "single noisy remark",
			text:   "\"시끄러워.\"",
			rule:   `"시끄러" 과다`,
			status: RulePass,
		},
		{
			name:    "repeated noisy remark",
			text:    "\"시끄러워.\"\n\"시끄러운 놈.\"",
			rule:    `"시끄러" 과다`,
			status:  RuleWarn,
			details: []string{"2회 (1회 이하 권장)"},
		},
		{
			name:    "repeated not bad",
			text:    "나쁘지 않군. 나쁘지 않아. 나쁘지 않다.",
			rule:    `"나쁘지 않" 과다`,
			status:  RuleWarn,
			details: []string{"3회 (1회 이하 권장)"},
		},
		{
			name:    "calendar year",
			text:    "평범한 밤.\n서기 1024 년의 겨울.",
			rule:    "서기 연도",
			status:  RuleFail,
			details: []string{"L2: 1024 년"},
		},
		{
			name:   "short number with year is fine",
			text:   "이십 년 만의 귀환. 3년이 흘렀다.",
			rule:   "서기 연도",
			status: RulePass,
		},
		{
			name:    "installment number in prose",
			text:    "지난 화에서 그는 쓰러졌다.\n제 12화의 일이었다.",
			rule:    "화수 언급",
			status:  RuleFail,
			details: []string{"L1: 지난 화에서", "L2: 제 12화"},
		},
		{
			name:   "installment heading is ignored",
			text:   "# 제 12화\n\n바람이 불었다.",
			rule:   "화수 언급",
			status: RulePass,
		},
		{
			name:    "long monologue in single quotes",
			text:    "'이대로 끝낼 수는 없다, 반드시 되갚아 주겠다.'",
			rule:    "독백 표기",
			status:  RuleWarn,
			details: []string{"L1: '이대로 끝낼 수는 없다, 반드시 되갚아 주겠다.'"},
		},
		{
			name:   "short quoted word",
			text:   "그는 '검'이라 불렸다.",
			rule:   "독백 표기",
			status: RulePass,
		},
		{
			name:    "exclamation flood",
			text:    strings.Repeat("쾅! ", 11),
			rule:    "느낌표 남발",
			status:  RuleWarn,
			details: []string{"11회 (10회 이하 권장)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := CheckRules(tt.text)
			require.Len(t, findings, len(textRules))

			var got *model.RuleFinding
			for i := range findings {
				if findings[i].Name == tt.rule {
					got = &findings[i]
				}
			}
			require.NotNil(t, got, tt.rule)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.details, got.Details)
		})
	}
}

func TestCheckRules_CleanTextPasses(t *testing.T) {
	for _, f := range CheckRules(longText(300)) {
		assert.Equal(t, RulePass, f.Status, f.Name)
		assert.Empty(t, f.Details, f.Name)
	}
}
