// Package editor 提供选择性段落编辑：一次评分调用，只重写最弱的少数段落
package editor

import (
	"context"
	"sort"
	"strings"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/workflow/node"
	workflowport "serial-novel-engine/internal/workflow/port"
	workflowprompt "serial-novel-engine/internal/workflow/prompt"
	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/metrics"
	"serial-novel-engine/pkg/tracer"
)

const (
	workflowScore   = "paragraph_score"
	workflowRewrite = "paragraph_rewrite"

	defaultMaxGrowthRatio = 1.5
)

// Outcome 编辑结果
type Outcome struct {
	Text     string
	Scored   int
	Selected int
	Rewrites int
}

// Editor 选择性编辑器
type Editor struct {
	llm     workflowport.Completer
	prompts *workflowprompt.Registry
	cfg     config.EditorConfig
}

// New 创建编辑器
func New(llm workflowport.Completer, prompts *workflowprompt.Registry, cfg config.EditorConfig) *Editor {
	return &Editor{llm: llm, prompts: prompts, cfg: cfg}
}

// Edit 对正文评分并重写低分段落。无低分段落时原文逐字节返回。
// 评分或重写失败时保留原文；请求超时或取消时返回错误。
// banned 为本集生效的禁用词，引入原段落没有的禁用词的重写不采纳。
func (e *Editor) Edit(ctx context.Context, text string, banned ...string) (*Outcome, error) {
	out := &Outcome{Text: text}
	doc := splitDocument(text)
	editable := doc.editable(e.cfg.MinParagraphChars)
	if len(editable) < e.cfg.MinParagraphs {
		return out, nil
	}

	ctx, span := tracer.Start(ctx, "installment.editor")
	var spanErr error
	defer func() { tracer.Finish(span, spanErr) }()

	scores, err := e.score(ctx, doc, editable)
	if err != nil {
		if node.IsAbortError(ctx, err) {
			spanErr = err
			return nil, err
		}
		logger.Warn(ctx, "paragraph scoring failed, keeping draft", "error", err.Error())
		return out, nil
	}
	out.Scored = len(scores)

	selected := e.selectWeakest(scores)
	out.Selected = len(selected)
	if len(selected) == 0 {
		return out, nil
	}

	for _, s := range selected {
		i := editable[s.Index]
		original := doc.paragraphs[i]
		rewritten, err := e.rewrite(ctx, doc, i, s.Feedback)
		if err != nil {
			if node.IsAbortError(ctx, err) {
				spanErr = err
				return nil, err
			}
			metrics.EditorRewritesTotal.WithLabelValues("error").Inc()
			logger.Warn(ctx, "paragraph rewrite failed, keeping original", "paragraph", s.Index, "error", err.Error())
			continue
		}
		if reason := e.reject(original, rewritten, banned); reason != "" {
			metrics.EditorRewritesTotal.WithLabelValues("rejected").Inc()
			logger.Debug(ctx, "paragraph rewrite rejected", "paragraph", s.Index, "reason", reason)
			continue
		}
		doc.paragraphs[i] = rewritten
		out.Rewrites++
		metrics.EditorRewritesTotal.WithLabelValues("accepted").Inc()
	}

	if out.Rewrites > 0 {
		out.Text = doc.String()
	}
	logger.Info(ctx, "selective edit finished",
		"scored", out.Scored,
		"selected", out.Selected,
		"rewrites", out.Rewrites,
	)
	return out, nil
}

func (e *Editor) score(ctx context.Context, doc *document, editable []int) ([]model.ParagraphScore, error) {
	msgs, err := e.prompts.Format(ctx, workflowprompt.PromptParagraphScoreV1, map[string]any{
		"paragraphs": renderNumbered(doc, editable),
	})
	if err != nil {
		return nil, err
	}
	resp, err := e.llm.Complete(ctx, workflowport.CompletionRequest{
		Workflow:    workflowScore,
		Messages:    msgs,
		MaxTokens:   e.cfg.ScoreMaxTokens,
		Temperature: float32(e.cfg.ScoreTemperature),
		Tier:        e.cfg.Tier,
	})
	if err != nil {
		return nil, err
	}
	return parseScores(resp.Text, len(editable)), nil
}

// selectWeakest 选出不高于阈值的段落，分数升序、同分按位置，最多 MaxRewrites 个
func (e *Editor) selectWeakest(scores []model.ParagraphScore) []model.ParagraphScore {
	var weak []model.ParagraphScore
	for _, s := range scores {
		if s.Score <= e.cfg.ScoreThreshold {
			weak = append(weak, s)
		}
	}
	sort.SliceStable(weak, func(a, b int) bool {
		if weak[a].Score != weak[b].Score {
			return weak[a].Score < weak[b].Score
		}
		return weak[a].Index < weak[b].Index
	})
	if len(weak) > e.cfg.MaxRewrites {
		weak = weak[:e.cfg.MaxRewrites]
	}
	return weak
}

func (e *Editor) rewrite(ctx context.Context, doc *document, i int, feedback string) (string, error) {
	paragraph := doc.paragraphs[i]
	msgs, err := e.prompts.Format(ctx, workflowprompt.PromptParagraphRewriteV1, map[string]any{
		"before":       doc.neighbor(i, -1),
		"paragraph":    paragraph,
		"after":        doc.neighbor(i, 1),
		"feedback":     feedback,
		"target_chars": node.CountNonSpace(paragraph),
	})
	if err != nil {
		return "", err
	}
	resp, err := e.llm.Complete(ctx, workflowport.CompletionRequest{
		Workflow:    workflowRewrite,
		Messages:    msgs,
		MaxTokens:   e.cfg.RewriteMaxTokens,
		Temperature: float32(e.cfg.RewriteTemperature),
		Tier:        e.cfg.Tier,
	})
	if err != nil {
		return "", err
	}
	return node.StripCodeFence(resp.Text), nil
}

// reject 返回不采纳重写的原因，可采纳时为空。
// 长度须在原段落的 [AcceptRatio, MaxGrowthRatio] 倍之间。
func (e *Editor) reject(original, rewritten string, banned []string) string {
	newLen := float64(node.CountNonSpace(rewritten))
	if newLen == 0 {
		return "empty"
	}
	oldLen := float64(node.CountNonSpace(original))
	if newLen < oldLen*e.cfg.AcceptRatio {
		return "too_short"
	}
	growth := e.cfg.MaxGrowthRatio
	if growth <= 0 {
		growth = defaultMaxGrowthRatio
	}
	if newLen > oldLen*growth {
		return "too_long"
	}
	for _, term := range banned {
		if term != "" && strings.Contains(rewritten, term) && !strings.Contains(original, term) {
			return "banned_term"
		}
	}
	return ""
}
