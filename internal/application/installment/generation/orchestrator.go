package generation

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

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
	workflowSingle   = "installment_single"
	workflowChunk    = "installment_chunk"
	workflowBeatPlan = "beat_plan"
	workflowBeat     = "beat_write"
	workflowRetry    = "quality_retry"

	// 目标字数取上限的 85%，给模型留出超写余量
	targetPercent = 85

	firstChunkTail = "(첫 구간입니다.)"
	firstBeatTail  = "(첫 비트입니다.)"
)

// Generation 一次编排的产出
type Generation struct {
	Draft    *model.Draft
	Strategy model.Strategy
	Beats    []model.Beat
	Clamped  bool
}

// Orchestrator 按策略驱动模型调用并累加草稿
type Orchestrator struct {
	llm     workflowport.Completer
	prompts *workflowprompt.Registry
	cfg     config.PipelineConfig
}

// NewOrchestrator 创建编排器
func NewOrchestrator(llm workflowport.Completer, prompts *workflowprompt.Registry, cfg config.PipelineConfig) *Orchestrator {
	return &Orchestrator{llm: llm, prompts: prompts, cfg: cfg}
}

// Generate 执行所选策略。返回的草稿不超过长度上限。
// 出错时 Generation 仍携带已累加的部分草稿（可能为空）。
func (o *Orchestrator) Generate(ctx context.Context, strategy model.Strategy, gc *model.GenerationContext, req *model.Request) (*Generation, error) {
	ctx, span := tracer.Start(ctx, "installment.generate")
	span.SetAttributes(
		attribute.String("installment.strategy", string(strategy)),
		attribute.Int("installment.number", req.InstallmentNumber),
	)

	gen := &Generation{Draft: model.NewDraft(""), Strategy: strategy}
	var err error
	switch strategy {
	case model.StrategyChunked:
		err = o.chunked(ctx, gen, gc, req)
	case model.StrategyBeatDirected:
		err = o.beatDirected(ctx, gen, gc, req)
	default:
		gen.Strategy = model.StrategySinglePass
		err = o.singlePass(ctx, gen, gc, req)
	}

	gen.Clamped = gen.Draft.Clamp(o.cfg.LengthCeiling)
	span.SetAttributes(
		attribute.String("installment.strategy_used", string(gen.Strategy)),
		attribute.Int("installment.char_count", gen.Draft.CharCount()),
		attribute.Bool("installment.clamped", gen.Clamped),
	)
	tracer.Finish(span, err)
	return gen, err
}

// Regenerate 带修正指令的单次整集重写，结果按长度上限截断
func (o *Orchestrator) Regenerate(ctx context.Context, gc *model.GenerationContext, req *model.Request, instruction string) (string, error) {
	msgs, err := o.prompts.Format(ctx, workflowprompt.PromptQualityRetryV1, map[string]any{
		"installment_no": req.InstallmentNumber,
		"title":          req.DisplayTitle(),
		"context":        gc.Render(),
		"target_chars":   o.targetChars(),
		"ceiling":        o.cfg.LengthCeiling,
		"corrections":    instruction,
	})
	if err != nil {
		return "", err
	}
	text, err := o.complete(ctx, workflowRetry, msgs, o.cfg.SingleMaxTokens, float32(o.cfg.Temperature), req)
	if err != nil {
		return "", err
	}
	return node.ClampNonSpace(text, o.cfg.LengthCeiling), nil
}

func (o *Orchestrator) targetChars() int {
	return o.cfg.LengthCeiling * targetPercent / 100
}

func (o *Orchestrator) singlePass(ctx context.Context, gen *Generation, gc *model.GenerationContext, req *model.Request) error {
	msgs, err := o.prompts.Format(ctx, workflowprompt.PromptInstallmentSingleV1, map[string]any{
		"installment_no": req.InstallmentNumber,
		"title":          req.DisplayTitle(),
		"context":        gc.Render(),
		"structure":      fiveActDirective(),
		"target_chars":   o.targetChars(),
		"ceiling":        o.cfg.LengthCeiling,
	})
	if err != nil {
		return err
	}
	text, err := o.complete(ctx, workflowSingle, msgs, o.cfg.SingleMaxTokens, float32(o.cfg.Temperature), req)
	if err != nil {
		return err
	}
	gen.Draft.Append(text)
	return nil
}

// chunked 三段依次生成，每段看到已累加草稿的末尾
func (o *Orchestrator) chunked(ctx context.Context, gen *Generation, gc *model.GenerationContext, req *model.Request) error {
	gen.Strategy = model.StrategyChunked
	target := o.targetChars()
	rendered := gc.Render()

	for i, phase := range chunkPhases {
		chars := int(float64(target) * o.chunkRatio(i))
		tail := node.TailByRunes(gen.Draft.Text(), o.cfg.ChunkTailChars)
		if tail == "" {
			tail = firstChunkTail
		}
		msgs, err := o.prompts.Format(ctx, workflowprompt.PromptInstallmentChunkV1, map[string]any{
			"installment_no":  req.InstallmentNumber,
			"title":           req.DisplayTitle(),
			"context":         rendered,
			"draft_tail":      tail,
			"phase_label":     phaseLabel(phase),
			"phase_directive": phaseDirective(phase, i == len(chunkPhases)-1),
			"phase_chars":     chars,
		})
		if err != nil {
			return err
		}
		text, err := o.complete(ctx, workflowChunk, msgs, o.phaseMaxTokens(chars), float32(o.cfg.Temperature), req)
		if err != nil {
			return err
		}
		gen.Draft.Append(text)
		logger.Debug(ctx, "chunk phase generated",
			"phase", i+1,
			"chars", node.CountNonSpace(text),
			"draft_chars", gen.Draft.CharCount(),
		)
	}
	return nil
}

func (o *Orchestrator) chunkRatio(i int) float64 {
	if i < len(o.cfg.ChunkRatios) {
		return o.cfg.ChunkRatios[i]
	}
	return 1.0 / float64(len(chunkPhases))
}

func (o *Orchestrator) phaseMaxTokens(chars int) int {
	if n := chars * 2; n > o.cfg.MinPhaseMaxTokens {
		return n
	}
	return o.cfg.MinPhaseMaxTokens
}

// beatDirected 先规划节拍再逐个生成；计划不可用时降级为分段生成
func (o *Orchestrator) beatDirected(ctx context.Context, gen *Generation, gc *model.GenerationContext, req *model.Request) error {
	beats, err := o.plan(ctx, gc, req)
	if err != nil {
		if node.IsAbortError(ctx, err) {
			return err
		}
		attrs := []any{"error", err.Error()}
		var planErr *BeatPlanError
		if stderrors.As(err, &planErr) {
			attrs = append(attrs, "valid_beats", planErr.Valid, "skipped_lines", len(planErr.Issues))
		}
		logger.Warn(ctx, "beat plan unusable, falling back to chunked generation", attrs...)
		metrics.StrategyFallbackTotal.WithLabelValues(string(model.StrategyBeatDirected), string(model.StrategyChunked)).Inc()
		return o.chunked(ctx, gen, gc, req)
	}

	gen.Strategy = model.StrategyBeatDirected
	gen.Beats = scaleBeats(beats, o.targetChars())
	rendered := gc.Render()
	for _, beat := range gen.Beats {
		tail := node.TailByRunes(gen.Draft.Text(), o.cfg.BeatTailChars)
		if tail == "" {
			tail = firstBeatTail
		}
		closing := beat.ClosingLine
		if closing == "" {
			closing = "자유"
		}
		msgs, err := o.prompts.Format(ctx, workflowprompt.PromptBeatWriteV1, map[string]any{
			"installment_no": req.InstallmentNumber,
			"title":          req.DisplayTitle(),
			"context":        rendered,
			"prev_tail":      tail,
			"beat_seq":       beat.Seq,
			"beat_total":     len(gen.Beats),
			"scene":          beat.Scene,
			"tone":           beat.Tone,
			"key_events":     beat.KeyEvents,
			"closing_line":   closing,
			"target_chars":   beat.TargetChars,
		})
		if err != nil {
			return err
		}
		temp := ToneTemperature(beat.Tone, float32(o.cfg.Temperature))
		text, err := o.complete(ctx, workflowBeat, msgs, o.phaseMaxTokens(beat.TargetChars), temp, req)
		if err != nil {
			return err
		}
		gen.Draft.Append(text)
	}
	logger.Info(ctx, "beat-directed generation finished",
		"beats", len(gen.Beats),
		"draft_chars", gen.Draft.CharCount(),
	)
	return nil
}

func (o *Orchestrator) plan(ctx context.Context, gc *model.GenerationContext, req *model.Request) ([]model.Beat, error) {
	structure := gc.Section(model.SectionStructure)
	if structure == "" {
		structure = fiveActDirective()
	}
	msgs, err := o.prompts.Format(ctx, workflowprompt.PromptBeatPlanV1, map[string]any{
		"installment_no": req.InstallmentNumber,
		"title":          req.DisplayTitle(),
		"outline":        gc.Section(model.SectionOutline),
		"structure":      structure,
		"plan_min_beats": o.planMinBeats(),
		"max_beats":      o.cfg.MaxBeats,
		"total_chars":    strconv.Itoa(o.targetChars()),
	})
	if err != nil {
		return nil, err
	}
	text, err := o.complete(ctx, workflowBeatPlan, msgs, o.cfg.PlanMaxTokens, float32(o.cfg.PlanTemperature), req)
	if err != nil {
		return nil, err
	}
	return ParseBeatPlan(text, o.cfg.MinBeats, o.cfg.MaxBeats)
}

// planMinBeats 提示词里的节拍数下限；MinBeats 只用于判定计划是否可用
func (o *Orchestrator) planMinBeats() int {
	if o.cfg.PlanMinBeats >= o.cfg.MinBeats {
		return o.cfg.PlanMinBeats
	}
	return o.cfg.MinBeats
}

func (o *Orchestrator) complete(ctx context.Context, workflow string, msgs []*schema.Message, maxTokens int, temperature float32, req *model.Request) (string, error) {
	resp, err := o.llm.Complete(ctx, workflowport.CompletionRequest{
		Workflow:    workflow,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Tier:        req.EffectiveTier(),
	})
	if err != nil {
		return "", err
	}
	return node.StripCodeFence(resp.Text), nil
}
