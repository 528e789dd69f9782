// Package prompt 管理内嵌的分集生成与编辑提示词模板
package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptInstallmentSingleV1 PromptID = "installment_single_v1"
	PromptInstallmentChunkV1  PromptID = "installment_chunk_v1"
	PromptBeatPlanV1          PromptID = "beat_plan_v1"
	PromptBeatWriteV1         PromptID = "beat_write_v1"
	PromptQualityRetryV1      PromptID = "quality_retry_v1"
	PromptParagraphScoreV1    PromptID = "paragraph_score_v1"
	PromptParagraphRewriteV1  PromptID = "paragraph_rewrite_v1"
)

// knownPrompts 每个模板对应 templates/<id>.system.txt 与 templates/<id>.user.txt
var knownPrompts = []PromptID{
	PromptInstallmentSingleV1,
	PromptInstallmentChunkV1,
	PromptBeatPlanV1,
	PromptBeatWriteV1,
	PromptQualityRetryV1,
	PromptParagraphScoreV1,
	PromptParagraphRewriteV1,
}

// 模板只读，进程内解析一次后共享
var loadTemplates = sync.OnceValues(func() (map[PromptID]einoprompt.ChatTemplate, error) {
	out := make(map[PromptID]einoprompt.ChatTemplate, len(knownPrompts))
	for _, id := range knownPrompts {
		system, err := readTemplate(id, "system")
		if err != nil {
			return nil, err
		}
		user, err := readTemplate(id, "user")
		if err != nil {
			return nil, err
		}
		out[id] = einoprompt.FromMessages(schema.FString,
			schema.SystemMessage(system),
			schema.UserMessage(user),
		)
	}
	return out, nil
})

func readTemplate(id PromptID, role string) (string, error) {
	b, err := templatesFS.ReadFile("templates/" + string(id) + "." + role + ".txt")
	if err != nil {
		return "", fmt.Errorf("load prompt %s (%s): %w", id, role, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Registry 按 ID 查找聊天模板
type Registry struct {
	templates map[PromptID]einoprompt.ChatTemplate
	err       error
}

func NewRegistry() *Registry {
	tpls, err := loadTemplates()
	return &Registry{templates: tpls, err: err}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}
	if r.err != nil {
		return nil, r.err
	}
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

// Format 渲染为 system + user 两条消息
func (r *Registry) Format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}
