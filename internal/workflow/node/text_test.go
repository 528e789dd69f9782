package node

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"serial-novel-engine/pkg/errors"
)

func TestTruncateAndTail(t *testing.T) {
	s := "가나다라마바사"
	assert.Equal(t, "가나다", TruncateByRunes(s, 3))
	assert.Equal(t, "마바사", TailByRunes(s, 3))
	assert.Equal(t, s, TailByRunes(s, 20))
	assert.Equal(t, "", TailByRunes(s, 0))
}

func TestCountNonSpace(t *testing.T) {
	assert.Equal(t, 6, CountNonSpace("가 나\n다\t라 마바 "))
}

func TestClampNonSpace(t *testing.T) {
	text := "첫 문장이다. 둘째 문장이다. 셋째 문장은 길게 이어진다"
	out := ClampNonSpace(text, 12)

	assert.LessOrEqual(t, CountNonSpace(out), 12)
	assert.True(t, strings.HasSuffix(out, "."), "cut should land on a sentence boundary: %q", out)
	assert.Equal(t, text, ClampNonSpace(text, 1000))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "a|b", StripCodeFence("```text\na|b\n```"))
	assert.Equal(t, "plain", StripCodeFence("  plain "))
}

func TestSplitRecords(t *testing.T) {
	text := "```\n| seq | scene |\n|---|---|\n1|intro\n2|fight|extra\nnot a record\n\n3 | ending\n```"
	recs, issues := SplitRecords(text, 2)

	if assert.Len(t, recs, 3) {
		assert.Equal(t, []string{"seq", "scene"}, recs[0].Fields)
		assert.Equal(t, []string{"1", "intro"}, recs[1].Fields)
		assert.Equal(t, []string{"3", "ending"}, recs[2].Fields)
	}
	assert.Len(t, issues, 2)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("가"))
	assert.Equal(t, 1, EstimateTokens("가나다"))
	assert.Equal(t, 2, EstimateTokens("가나다라"))
}

func TestIsAbortError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, IsAbortError(ctx, nil))
	assert.True(t, IsAbortError(context.Background(), context.DeadlineExceeded))
	assert.True(t, IsAbortError(context.Background(),
		errors.Wrap(context.DeadlineExceeded, errors.CodeGenerationTimeout, "timeout")))
	assert.True(t, IsAbortError(context.Background(), errors.New(errors.CodeGenerationTimeout, "timeout")))
	assert.False(t, IsAbortError(context.Background(), errors.New(errors.CodeLLMCallFailed, "boom")))
	assert.False(t, IsAbortError(context.Background(), nil))

	assert.True(t, IsConfigError(errors.New(errors.CodeNoProviderConfigured, "none")))
	assert.False(t, IsConfigError(errors.New(errors.CodeEmptyCompletion, "empty")))
}
