package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"serial-novel-engine/internal/application/installment/model"
)

func byLabel(cs []model.Correction, label string) []model.Correction {
	var out []model.Correction
	for _, c := range cs {
		if c.Label == label {
			out = append(out, c)
		}
	}
	return out
}

func TestRepeatedPhrase_FourOccurrences(t *testing.T) {
	in := "차가운 눈빛이 스쳤다. 그는 차가운 눈빛으로 보았다. 다시 차가운 눈빛. 또 차가운 눈빛."
	out, cs := New(nil).Normalize(in)

	assert.Equal(t, 2, strings.Count(out, "차가운 눈빛"))
	assert.Contains(t, out, "다시 서늘한 시선.")
	assert.Contains(t, out, "또 얼음 같은 눈길.")

	phrases := byLabel(cs, LabelRepeatedPhrase)
	require.Len(t, phrases, 2)
	assert.Equal(t, model.Correction{Label: LabelRepeatedPhrase, Before: "차가운 눈빛", After: "서늘한 시선"}, phrases[0])
	assert.Equal(t, "얼음 같은 눈길", phrases[1].After)
}

func TestRepeatedPhrase_TwiceIsUntouched(t *testing.T) {
	in := "차가운 눈빛. 차가운 눈빛."
	out, cs := New(nil).Normalize(in)
	assert.Equal(t, in, out)
	assert.Empty(t, byLabel(cs, LabelRepeatedPhrase))
}

func TestNormalize_Deterministic(t *testing.T) {
	in := strings.Join([]string{
		"천마 신교의 사자가 왔다. 차가운 눈빛이 번뜩였다.",
		"",
		"천마가 말했다. \"물러가십시오. 내가 합니다.\"",
		"",
		"차가운 눈빛. 차가운 눈빛. 차가운 눈빛.",
		"그는 걸었다.",
		"그는 웃었다.",
		"그는 먹었다.",
	}, "\n")

	n := New(nil)
	out1, log1 := n.Normalize(in)
	for i := 0; i < 5; i++ {
		out2, log2 := n.Normalize(in)
		assert.Equal(t, out1, out2)
		assert.Equal(t, log1, log2)
	}
	out3, log3 := New(DefaultTables()).Normalize(in)
	assert.Equal(t, out1, out3)
	assert.Equal(t, log1, log3)
	assert.NotEmpty(t, log1)
}

func TestTerminology(t *testing.T) {
	out, cs := New(nil).Normalize("화산 파의 매화 검법. 화산 파는 강했다")
	assert.Equal(t, "화산파의 매화검법. 화산파는 강했다", out)
	assert.Len(t, byLabel(cs, LabelTerminology), 3)
}

func TestNFC_MatchesDecomposedInput(t *testing.T) {
	in := norm.NFD.String("화산 파의 제자")
	require.NotEqual(t, "화산 파의 제자", in)

	out, cs := New(nil).Normalize(in)
	assert.Equal(t, "화산파의 제자", out)
	assert.Len(t, byLabel(cs, LabelTerminology), 1)
}

func TestVersionGate_DeletesWholeSentences(t *testing.T) {
	n := New(&Tables{VersionGate: []string{"흑룡방"}})
	in := "첫 문장. 흑룡방이 움직였다. 끝 문장.\n\n흑룡방 방주가 웃었다.\n\n다음 문단."

	out, cs := n.Normalize(in)
	assert.Equal(t, "첫 문장. 끝 문장.\n\n다음 문단.", out)
	require.Len(t, cs, 2)
	assert.Equal(t, "흑룡방이 움직였다.", cs[0].Before)
	assert.Equal(t, "흑룡방 방주가 웃었다.", cs[1].Before)
	assert.Equal(t, LabelVersionGate, cs[0].Label)
}

func TestVoice_OnlyQuotedSpeechInNamedParagraph(t *testing.T) {
	in := "천마가 코웃음을 쳤다. \"내가 합니다.\"\n\n이준혁이 말했다. \"제가 합니다.\""
	out, cs := New(nil).Normalize(in)

	assert.Equal(t, "천마가 코웃음을 쳤다. \"내가 한다.\"\n\n이준혁이 말했다. \"제가 합니다.\"", out)
	voice := byLabel(cs, LabelVoice)
	require.Len(t, voice, 1)
	assert.Equal(t, "합니다", voice[0].Before)
	assert.Equal(t, "한다", voice[0].After)
}

func TestSentenceEnding_ThirdConsecutiveRewritten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adjacent lines",
			in:   "그는 걸었다.\n그는 웃었다.\n그는 먹었다.\n그는 잤다.",
			want: "그는 걸었다.\n그는 웃었다.\n그는 먹었던 것이다.\n그는 잤다.",
		},
		{
			name: "blank lines between",
			in:   "그는 걸었다.\n\n그는 웃었다.\n\n그는 먹었다.",
			want: "그는 걸었다.\n\n그는 웃었다.\n\n그는 먹었던 것이다.",
		},
		{
			name: "run broken by dialogue",
			in:   "그는 걸었다.\n\"가자.\"\n그는 웃었다.\n그는 먹었다.",
			want: "그는 걸었다.\n\"가자.\"\n그는 웃었다.\n그는 먹었다.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(&Tables{SentenceEndings: DefaultTables().SentenceEndings})
			out, cs := n.Normalize(tt.in)
			assert.Equal(t, tt.want, out)
			if tt.in == tt.want {
				assert.Empty(t, cs)
				return
			}
			require.Len(t, cs, 1)
			assert.Equal(t, "그는 먹었다.", cs[0].Before)
			assert.Equal(t, "그는 먹었던 것이다.", cs[0].After)
		})
	}
}

func TestParseTables(t *testing.T) {
	tables, err := ParseTables([]byte(`
terminology:
  - from: "마 교"
    to: "마교"
repeated_phrases:
  - phrase: "검기"
    alternatives: ["검의 기운"]
`))
	require.NoError(t, err)
	out, cs := New(tables).Normalize("마 교의 검기, 검기, 검기")
	assert.Equal(t, "마교의 검기, 검기, 검의 기운", out)
	assert.Len(t, cs, 2)

	_, err = ParseTables([]byte("repeated_phrases:\n  - phrase: x\n"))
	assert.Error(t, err)
}

func TestLoadTables_ShippedConfig(t *testing.T) {
	tables, err := LoadTables("../../../../configs/normalizer.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, tables.Terminology)
	assert.NotEmpty(t, tables.RepeatedPhrases)

	def, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), def)
}

func TestSplitSentences_RoundTrip(t *testing.T) {
	line := "\"그래.\" 그가 말했다! 정말? 끝"
	parts := splitSentences(line)
	assert.Equal(t, line, strings.Join(parts, ""))
	assert.Equal(t, []string{"\"그래.\" ", "그가 말했다! ", "정말? ", "끝"}, parts)
}
