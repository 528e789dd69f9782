package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllTemplatesLoad(t *testing.T) {
	r := NewRegistry()
	for _, id := range knownPrompts {
		tpl, err := r.ChatTemplate(id)
		require.NoError(t, err, id)
		require.NotNil(t, tpl, id)

		again, err := r.ChatTemplate(id)
		require.NoError(t, err)
		assert.Equal(t, tpl, again)
	}
}

func TestRegistry_UnknownID(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("missing_v9")
	assert.Error(t, err)
}

func TestRegistry_FormatBeatWrite(t *testing.T) {
	msgs, err := NewRegistry().Format(context.Background(), PromptBeatWriteV1, map[string]any{
		"installment_no": 12,
		"title":          "객잔의 밤",
		"context":        "설계도 {중괄호 포함 값}",
		"prev_tail":      "검이 울었다.",
		"beat_seq":       2,
		"beat_total":     8,
		"scene":          "객잔 지붕",
		"tone":           "전투",
		"key_events":     "자객과 조우",
		"closing_line":   "달빛 아래 피",
		"target_chars":   600,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "# 제12화: 객잔의 밤"))
	assert.Contains(t, msgs[1].Content, "{중괄호 포함 값}")
	assert.Contains(t, msgs[1].Content, "[이번 비트] 2 / 8")
}
