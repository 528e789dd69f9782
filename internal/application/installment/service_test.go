package installment

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/application/installment/normalize"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	llmctx "serial-novel-engine/internal/domain/service"
	"serial-novel-engine/internal/workflow/node"
	workflowport "serial-novel-engine/internal/workflow/port"
	"serial-novel-engine/pkg/errors"
)

type reply struct {
	text string
	err  error
}

type fakeLLM struct {
	available bool
	// 每个 workflow 按调用顺序取回复，最后一个重复使用
	script map[string][]reply
	calls  []string
}

func (f *fakeLLM) Available() bool { return f.available }

func (f *fakeLLM) Complete(ctx context.Context, req workflowport.CompletionRequest) (*workflowport.Completion, error) {
	n := 0
	for _, c := range f.calls {
		if c == req.Workflow {
			n++
		}
	}
	f.calls = append(f.calls, req.Workflow)

	replies := f.script[req.Workflow]
	if len(replies) == 0 {
		return nil, errors.New(errors.CodeLLMCallFailed, "unscripted workflow "+req.Workflow)
	}
	r := replies[min(n, len(replies)-1)]
	if r.err != nil {
		return nil, r.err
	}
	llmctx.UsageMeterFromContext(ctx).Add(llmctx.LLMUsageInput{
		Workflow:         req.Workflow,
		PromptTokens:     100,
		CompletionTokens: node.EstimateTokens(r.text),
	})
	return &workflowport.Completion{Text: r.text}, nil
}

func (f *fakeLLM) count(workflow string) int {
	n := 0
	for _, c := range f.calls {
		if c == workflow {
			n++
		}
	}
	return n
}

type memArchive struct {
	saved []*entity.Installment
}

func (m *memArchive) Get(_ context.Context, _ string, n int) (*entity.Installment, error) {
	for _, inst := range m.saved {
		if inst.Number == n {
			return inst, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memArchive) ListRecent(context.Context, string, int, int) ([]*entity.Installment, error) {
	return nil, nil
}

func (m *memArchive) Save(_ context.Context, inst *entity.Installment) error {
	m.saved = append(m.saved, inst)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)
	return cfg
}

// prose 40 个段落，每段 100 个非空白字符
func prose(extra string) string {
	return proseN(40, extra)
}

func proseN(n int, extra string) string {
	paragraphs := make([]string, n)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("검기가 허공을 갈랐다. ", 10)
	}
	paragraphs[0] = extra + paragraphs[0]
	return strings.Join(paragraphs, "\n\n")
}

func validRequest() *model.Request {
	return &model.Request{
		SeriesID:          "murim",
		InstallmentNumber: 12,
		Title:             "객잔의 밤",
		Outline:           strings.Repeat("청운이 객잔에서 천마신교의 밀사와 마주친다. ", 5),
	}
}

func newService(t *testing.T, llm *fakeLLM, archive *memArchive) *Service {
	return NewService(Deps{Config: testConfig(t), LLM: llm, Installments: archive})
}

func TestGenerate_ShortOutlineRejectedWithoutCalls(t *testing.T) {
	llm := &fakeLLM{available: true}
	svc := newService(t, llm, &memArchive{})

	req := validRequest()
	req.Outline = strings.Repeat("가", 40)
	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeOutlineTooShort))
	assert.Empty(t, llm.calls)
}

func TestGenerate_ConfigurationErrorsMakeNoCalls(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		mutate    func(r *model.Request)
		code      errors.ErrorCode
	}{
		{"unknown strategy", true, func(r *model.Request) { r.Strategy = "two-pass" }, errors.CodeInvalidParam},
		{"tier out of range", true, func(r *model.Request) { r.Tier = 4 }, errors.CodeInvalidParam},
		{"missing series", true, func(r *model.Request) { r.SeriesID = "" }, errors.CodeInvalidParam},
		{"no provider", false, func(*model.Request) {}, errors.CodeNoProviderConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{available: tt.available}
			req := validRequest()
			tt.mutate(req)
			_, err := newService(t, llm, &memArchive{}).Generate(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
			assert.Empty(t, llm.calls)
		})
	}
}

func TestValidate_MatchesGeneratePrecheck(t *testing.T) {
	llm := &fakeLLM{available: true}
	svc := newService(t, llm, &memArchive{})

	assert.NoError(t, svc.Validate(validRequest()))

	req := validRequest()
	req.Outline = "짧다"
	assert.True(t, errors.HasCode(svc.Validate(req), errors.CodeOutlineTooShort))
	assert.True(t, errors.HasCode(svc.Validate(nil), errors.CodeInvalidParam))
	assert.Empty(t, llm.calls)
}

func TestGenerate_SinglePassHappyPath(t *testing.T) {
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{text: prose("천마 신교의 밀사가 왔다. ")}},
		"paragraph_score":    {{text: "1|4|좋다\n2|5|좋다"}},
	}}
	archive := &memArchive{}
	svc := newService(t, llm, archive)

	res, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.StrategySinglePass, res.Strategy)
	assert.False(t, res.Regenerated)
	assert.Zero(t, res.Rewrites)
	assert.Contains(t, res.Text, "천마신교의 밀사가 왔다.")
	require.NotEmpty(t, res.Corrections)
	assert.Equal(t, "terminology", res.Corrections[0].Label)
	assert.Empty(t, res.Warnings)
	assert.LessOrEqual(t, res.CharCount, 5500)
	assert.Equal(t, 2, res.Usage.Calls)
	assert.Equal(t, 1, res.Usage.Tier)
	require.NotNil(t, res.Quality)

	assert.Equal(t, []string{"installment_single", "paragraph_score"}, llm.calls)
	require.Len(t, archive.saved, 1)
	assert.Equal(t, 12, archive.saved[0].Number)
	assert.Equal(t, res.Text, archive.saved[0].Content)
	assert.Equal(t, "single-pass", archive.saved[0].GenerationMetadata.Strategy)
}

func TestGenerate_PersistentBanRegeneratesOnceAndSkipsEditor(t *testing.T) {
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{text: prose("상태창이 떠올랐다. ")}},
		"quality_retry":      {{text: prose("다시 상태창이 떠올랐다. ")}},
		"paragraph_score":    {{text: "1|1|별로"}},
	}}
	svc := newService(t, llm, &memArchive{})

	res, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, llm.count("quality_retry"))
	assert.Zero(t, llm.count("paragraph_score"))
	assert.True(t, res.Regenerated)
	assert.Contains(t, res.Warnings, "banned term: 상태창")
	assert.Contains(t, res.Text, "다시 상태창")
}

func TestGenerate_TransientFailureRecoveredByGate(t *testing.T) {
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{err: errors.New(errors.CodeLLMCallFailed, "llm call failed")}},
		"quality_retry":      {{text: prose("")}},
	}}
	res, err := newService(t, llm, &memArchive{}).Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, res.Regenerated)
	assert.Greater(t, res.CharCount, 3000)
}

func TestGenerate_StillEmptyIsGenerationFailed(t *testing.T) {
	failed := errors.New(errors.CodeLLMCallFailed, "llm call failed")
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{err: failed}},
		"quality_retry":      {{err: failed}},
	}}
	archive := &memArchive{}
	_, err := newService(t, llm, archive).Generate(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeGenerationFailed))
	assert.Equal(t, 1, llm.count("quality_retry"))
	assert.Empty(t, archive.saved)
}

func TestGenerate_TimeoutIsRetryableAndReturnsNoText(t *testing.T) {
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{err: errors.Wrap(context.DeadlineExceeded, errors.CodeGenerationTimeout, "llm call timed out")}},
	}}
	archive := &memArchive{}
	res, err := newService(t, llm, archive).Generate(context.Background(), validRequest())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.HasCode(err, errors.CodeGenerationTimeout))
	assert.True(t, errors.IsRetryable(err))
	assert.Zero(t, llm.count("quality_retry"))
	assert.Empty(t, archive.saved)
}

func TestGenerate_BeatPlanFallbackReportsChunked(t *testing.T) {
	chunk := strings.Join(strings.Split(prose(""), "\n\n")[:14], "\n\n")
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"beat_plan":         {{text: "1|골목|600|긴장|미행|정적\n2|객잔|600|전투|격돌|피"}},
		"installment_chunk": {{text: chunk}},
		"paragraph_score":   {{text: ""}},
	}}
	req := validRequest()
	req.Strategy = "beat-directed"
	res, err := newService(t, llm, &memArchive{}).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyChunked, res.Strategy)
	assert.Equal(t, 3, llm.count("installment_chunk"))
	assert.NotEmpty(t, res.Text)
	assert.LessOrEqual(t, res.CharCount, 5500)
}

func TestGenerate_EditedTextStaysWithinCeiling(t *testing.T) {
	weakest := "0|1|약함\n1|1|약함\n2|1|약함\n3|1|약함\n4|1|약함"
	tests := []struct {
		name     string
		draft    string
		rewrite  string
		rewrites int
	}{
		// 2240 字的重写远超原段落，全部拒绝
		{"runaway rewrites rejected", prose(""), strings.Repeat("칼바람이 불었다. ", 280), 0},
		// 144 字的重写在增长上限内被采纳，累计超出上限后截断
		{"accepted growth clamped", proseN(54, ""), strings.Repeat("칼바람이 불었다. ", 18), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{available: true, script: map[string][]reply{
				"installment_single": {{text: tt.draft}},
				"paragraph_score":    {{text: weakest}},
				"paragraph_rewrite":  {{text: tt.rewrite}},
			}}
			res, err := newService(t, llm, &memArchive{}).Generate(context.Background(), validRequest())
			require.NoError(t, err)
			assert.False(t, res.Regenerated)
			assert.Equal(t, 5, llm.count("paragraph_rewrite"))
			assert.Equal(t, tt.rewrites, res.Rewrites)
			assert.LessOrEqual(t, res.CharCount, 5500)
			assert.LessOrEqual(t, node.CountNonSpace(res.Text), 5500)
		})
	}
}

func TestGenerate_EditorCannotIntroduceBannedTerm(t *testing.T) {
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{text: prose("")}},
		"paragraph_score":    {{text: "0|1|약함"}},
		"paragraph_rewrite":  {{text: "상태창이 떠올랐다. " + strings.Repeat("검기가 허공을 갈랐다. ", 9)}},
	}}
	res, err := newService(t, llm, &memArchive{}).Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, llm.count("paragraph_rewrite"))
	assert.Zero(t, res.Rewrites)
	assert.NotContains(t, res.Text, "상태창")
	assert.Empty(t, res.Warnings)
}

func TestGenerate_WarningsReflectDeliveredText(t *testing.T) {
	tables, err := normalize.ParseTables([]byte("terminology:\n  - from: 상태표\n    to: 상태창\n"))
	require.NoError(t, err)
	llm := &fakeLLM{available: true, script: map[string][]reply{
		"installment_single": {{text: prose("상태표가 떠올랐다. ")}},
		"paragraph_score":    {{text: ""}},
	}}
	svc := NewService(Deps{Config: testConfig(t), LLM: llm, Installments: &memArchive{}, Normalizer: normalize.New(tables)})

	res, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Zero(t, llm.count("quality_retry"))
	assert.Contains(t, res.Text, "상태창")
	assert.Equal(t, []string{"banned term: 상태창"}, res.Warnings)
}

func TestGet_MapsNotFound(t *testing.T) {
	svc := newService(t, &fakeLLM{}, &memArchive{})
	_, err := svc.Get(context.Background(), "murim", 99)
	assert.True(t, errors.HasCode(err, errors.CodeInstallmentNotFound))
}

func TestCheck(t *testing.T) {
	svc := newService(t, &fakeLLM{}, &memArchive{})
	v, report := svc.Check("상태창이 떴다.", 3, model.StrategySinglePass)
	assert.Equal(t, []string{"상태창"}, v.BannedTerms)
	assert.True(t, v.TooShort)
	assert.NotEmpty(t, report.Grade)
}
