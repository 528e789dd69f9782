package assembler

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
)

type memInstallments struct {
	byNumber map[int]*entity.Installment
	err      error
}

func (m *memInstallments) Get(_ context.Context, _ string, n int) (*entity.Installment, error) {
	if m.err != nil {
		return nil, m.err
	}
	inst, ok := m.byNumber[n]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return inst, nil
}

func (m *memInstallments) ListRecent(_ context.Context, _ string, before, limit int) ([]*entity.Installment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*entity.Installment
	for n := before - 1; n >= 1 && len(out) < limit; n-- {
		if inst, ok := m.byNumber[n]; ok {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *memInstallments) Save(context.Context, *entity.Installment) error { return nil }

type memLore struct {
	sections []*entity.LoreSection
	err      error
}

func (m *memLore) ListTitles(context.Context, string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	titles := make([]string, 0, len(m.sections))
	for _, s := range m.sections {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (m *memLore) GetByTitle(_ context.Context, _ string, title string) (*entity.LoreSection, error) {
	for _, s := range m.sections {
		if s.Title == title {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memState struct {
	snap *entity.StateSnapshot
	err  error
}

func (m *memState) GetCurrent(context.Context, string) (*entity.StateSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.snap == nil {
		return nil, repository.ErrNotFound
	}
	return m.snap, nil
}

func (m *memState) Save(context.Context, *entity.StateSnapshot) error { return nil }

func testConfig() config.AssemblerConfig {
	return config.AssemblerConfig{
		PrevTailChars:            40,
		LoreBudgetChars:          10,
		MaxLoreSections:          5,
		MaxCharacters:            8,
		StyleWindow:              5,
		StyleSamples:             2,
		StyleMinChars:            5,
		StyleMaxChars:            60,
		SensoryWords:             []string{"냄새", "바람", "서늘"},
		VoiceWindow:              10,
		VoiceSamplesPerCharacter: 1,
	}
}

func archive() *memInstallments {
	m := &memInstallments{byNumber: map[int]*entity.Installment{}}
	for n := 1; n <= 11; n++ {
		inst := entity.NewInstallment("murim", n, fmt.Sprintf("제%d화", n))
		inst.SetContent(fmt.Sprintf("제%d화 첫 줄이다.\n서늘한 바람이 %d번째 객잔을 훑었다.\n청운이 웃었다. \"%d번째 술은 내가 사지.\"\n피 냄새가 골목에 번졌다. 제%d화 마지막 줄이다.", n, n, n, n))
		m.byNumber[n] = inst
	}
	return m
}

func lore() *memLore {
	return &memLore{sections: []*entity.LoreSection{
		{Title: "천마신교", Body: "마교의 본산. 십만대산 깊은 곳에 있다."},
		{Title: "화산파 검술", Body: "매화검법을 중심으로 한다."},
		{Title: "소림사", Body: "무림의 태산북두."},
	}}
}

func request() *model.Request {
	return &model.Request{
		SeriesID:          "murim",
		InstallmentNumber: 12,
		Title:             "객잔의 밤",
		Outline:           "청운이 천마신교의 밀사를 쫓아 화산파 제자들과 객잔에서 마주친다.",
		References: model.References{
			Characters: []model.CharacterCard{
				{Name: "백리연", Faction: "화산파"},
				{Name: "청운", Faction: "무당파"},
			},
			PriorSummary: "청운은 밀서를 손에 넣었다.",
			WorldExcerpt: "정사대전 이후 십 년.",
		},
	}
}

func TestBuild_AssemblesSections(t *testing.T) {
	a := New(archive(), lore(), &memState{snap: &entity.StateSnapshot{Location: "낙양 객잔"}}, testConfig())

	gc, err := a.Build(context.Background(), request())
	require.NoError(t, err)

	tail := gc.Section(model.SectionPriorTail)
	assert.Contains(t, tail, "제11화 마지막 줄이다.")
	assert.NotContains(t, tail, "제10화")
	assert.NotContains(t, tail, "제11화 첫 줄이다.", "only the tail of the previous installment")

	lore := gc.Section(model.SectionLore)
	assert.Contains(t, lore, "### 천마신교")
	assert.Contains(t, lore, "### 화산파 검술", "matched by the 화산파 token")
	assert.NotContains(t, lore, "소림사")
	assert.Contains(t, lore, "### 세계관 참고\n정사대전 이후 십 년.")
	assert.Contains(t, lore, "### 천마신교\n마교의 본산. 십만\n", "body cut to the lore budget")
	assert.NotContains(t, lore, "십만대산")

	assert.Equal(t, "현재 위치: 낙양 객잔", gc.Section(model.SectionState))
	assert.Equal(t, "청운은 밀서를 손에 넣었다.", gc.Section(model.SectionPriorSummary))
	assert.Equal(t, []string{"청운"}, gc.CharacterNames())
	assert.NotContains(t, gc.Section(model.SectionCharacters), "백리연")

	style := strings.Split(gc.Section(model.SectionStyle), "\n")
	assert.Len(t, style, 2)
	voice := gc.Section(model.SectionVoice)
	assert.True(t, strings.HasPrefix(voice, "- 청운: \""), voice)
	assert.Len(t, strings.Split(voice, "\n"), 1)
}

func TestBuild_IsReproducible(t *testing.T) {
	a := New(archive(), lore(), nil, testConfig())
	first, err := a.Build(context.Background(), request())
	require.NoError(t, err)
	second, err := a.Build(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, first.Render(), second.Render())
}

func TestBuild_RequestStateWins(t *testing.T) {
	req := request()
	req.References.State = &entity.StateSnapshot{Location: "화산 정상"}
	a := New(nil, nil, &memState{snap: &entity.StateSnapshot{Location: "낙양 객잔"}}, testConfig())

	gc, err := a.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "현재 위치: 화산 정상", gc.Section(model.SectionState))
}

func TestBuild_StoreFailuresDegrade(t *testing.T) {
	boom := stderrors.New("connection refused")
	a := New(&memInstallments{err: boom}, &memLore{err: boom}, &memState{err: boom}, testConfig())

	gc, err := a.Build(context.Background(), request())
	require.NoError(t, err)
	assert.Empty(t, gc.Section(model.SectionPriorTail))
	assert.Empty(t, gc.Section(model.SectionState))
	assert.Empty(t, gc.Section(model.SectionStyle))
	assert.Equal(t, "### 세계관 참고\n정사대전 이후 십 년.", gc.Section(model.SectionLore))
	assert.NotEmpty(t, gc.Section(model.SectionOutline))
}

func TestBuild_FirstInstallmentHasNoPriorTail(t *testing.T) {
	req := request()
	req.InstallmentNumber = 1
	a := New(archive(), nil, nil, testConfig())

	gc, err := a.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, gc.Section(model.SectionPriorTail))
	assert.Empty(t, gc.Section(model.SectionStyle))
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(archive(), lore(), nil, testConfig()).Build(ctx, request())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectCharacters(t *testing.T) {
	cards := []model.CharacterCard{{Name: "갑"}, {Name: "을"}, {Name: "병"}}

	assert.Equal(t, []model.CharacterCard{{Name: "을"}}, selectCharacters(cards, "을이 나온다", 8))
	assert.Equal(t, cards[:2], selectCharacters(cards, "아무도 없다", 2))
}

func TestTitleMentioned(t *testing.T) {
	assert.True(t, titleMentioned("천마신교", "천마신교의 밀사"))
	assert.True(t, titleMentioned("화산파 (검술)", "화산파 제자"))
	assert.False(t, titleMentioned("무 당", "무림과 당가"), "single-rune tokens never match")
	assert.False(t, titleMentioned("", "anything"))
}

func TestPick_IsSeeded(t *testing.T) {
	c := []string{"a", "b", "c", "d", "e", "f"}
	assert.Equal(t, pick(c, 3, seededRand("s", 1)), pick(c, 3, seededRand("s", 1)))
	assert.Len(t, pick(c, 3, seededRand("s", 2)), 3)
	assert.Equal(t, c[:2], pick(c[:2], 3, seededRand("s", 1)))
}
