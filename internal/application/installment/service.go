// Package installment 编排单集生成流水线：组装、策略、生成、闸门、编辑、规范化
package installment

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"serial-novel-engine/internal/application/installment/assembler"
	"serial-novel-engine/internal/application/installment/editor"
	"serial-novel-engine/internal/application/installment/generation"
	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/application/installment/normalize"
	"serial-novel-engine/internal/application/installment/quality"
	"serial-novel-engine/internal/application/installment/usage"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	llmctx "serial-novel-engine/internal/domain/service"
	"serial-novel-engine/internal/workflow/node"
	workflowport "serial-novel-engine/internal/workflow/port"
	workflowprompt "serial-novel-engine/internal/workflow/prompt"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/metrics"
	"serial-novel-engine/pkg/tracer"
)

// Completer 流水线依赖的补全能力，额外暴露是否有可用提供商
type Completer interface {
	workflowport.Completer
	Available() bool
}

var _ quality.Regenerator = (*generation.Orchestrator)(nil)

// Deps 服务依赖
type Deps struct {
	Config       *config.Config
	LLM          Completer
	Prompts      *workflowprompt.Registry
	Installments repository.InstallmentRepository
	Lore         repository.LoreRepository
	State        repository.StateRepository
	// Normalizer 为 nil 时使用内置规范化表
	Normalizer *normalize.Normalizer
}

// Service 单集生成服务
type Service struct {
	cfg          *config.Config
	llm          Completer
	archive      repository.InstallmentRepository
	assembler    *assembler.Assembler
	orchestrator *generation.Orchestrator
	inspector    *quality.Inspector
	gate         *quality.Gate
	editor       *editor.Editor
	normalizer   *normalize.Normalizer
	estimator    *usage.Estimator
}

// NewService 创建服务
func NewService(d Deps) *Service {
	prompts := d.Prompts
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	norm := d.Normalizer
	if norm == nil {
		norm = normalize.New(nil)
	}
	orch := generation.NewOrchestrator(d.LLM, prompts, d.Config.Pipeline)
	inspector := quality.NewInspector(d.Config)
	return &Service{
		cfg:          d.Config,
		llm:          d.LLM,
		archive:      d.Installments,
		assembler:    assembler.New(d.Installments, d.Lore, d.State, d.Config.Assembler),
		orchestrator: orch,
		inspector:    inspector,
		gate:         quality.NewGate(inspector, orch, d.Config.Quality.RetryAcceptRatio),
		editor:       editor.New(d.LLM, prompts, d.Config.Editor),
		normalizer:   norm,
		estimator:    usage.NewEstimator(d.Config.LLM),
	}
}

// Generate 生成一集正文。配置类错误在任何模型调用之前返回；
// 超时返回 CodeGenerationTimeout，且不返回部分正文。
func (s *Service) Generate(ctx context.Context, req *model.Request) (*model.Result, error) {
	strategy, err := s.precheck(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()

	if s.cfg.Pipeline.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Pipeline.Timeout)
		defer cancel()
	}
	ctx, meter := llmctx.WithUsageMeter(ctx)
	ctx = llmctx.WithInstallment(ctx, req.SeriesID, req.InstallmentNumber)
	ctx = logger.WithContext(ctx, logger.SeriesIDKey, req.SeriesID)
	ctx = logger.WithContext(ctx, logger.InstallmentKey, req.InstallmentNumber)
	ctx = logger.WithContext(ctx, logger.StrategyKey, string(strategy))

	ctx, span := tracer.Start(ctx, "installment.pipeline")
	span.SetAttributes(
		attribute.String("installment.series_id", req.SeriesID),
		attribute.Int("installment.number", req.InstallmentNumber),
		attribute.String("installment.strategy", string(strategy)),
		attribute.Int("installment.tier", req.EffectiveTier()),
	)

	res, err := s.run(ctx, req, strategy, meter)
	tracer.Finish(span, err)

	used := strategy
	if res != nil {
		used = res.Strategy
	}
	metrics.InstallmentGenerationDuration.WithLabelValues(string(used)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InstallmentGenerationTotal.WithLabelValues(string(used), statusOf(err)).Inc()
		logger.Error(ctx, "installment generation failed", err)
		return nil, err
	}
	metrics.InstallmentGenerationTotal.WithLabelValues(string(used), "success").Inc()
	metrics.InstallmentCharCount.WithLabelValues(string(used)).Observe(float64(res.CharCount))
	logger.Info(ctx, "installment generated",
		"strategy_used", string(used),
		"char_count", res.CharCount,
		"regenerated", res.Regenerated,
		"rewrites", res.Rewrites,
		"corrections", len(res.Corrections),
		"warnings", len(res.Warnings),
		"calls", res.Usage.Calls,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, req *model.Request, strategy model.Strategy, meter *llmctx.UsageMeter) (*model.Result, error) {
	gc, err := s.assembler.Build(ctx, req)
	if err != nil {
		return nil, abortError(ctx, err)
	}

	gen, err := s.orchestrator.Generate(ctx, strategy, gc, req)
	if err != nil {
		if node.IsAbortError(ctx, err) {
			return nil, abortError(ctx, err)
		}
		if node.IsConfigError(err) {
			return nil, err
		}
		// 瞬时失败：以空草稿进入闸门，由闸门的唯一一次重写兜底
		logger.Warn(ctx, "generation failed, handing empty draft to quality gate", "error", err.Error())
		gen.Draft = model.NewDraft("")
	}
	draft := gen.Draft

	outcome, err := s.gate.Enforce(ctx, draft, gc, req, gen.Strategy)
	if err != nil {
		return nil, abortError(ctx, err)
	}
	if draft.Empty() {
		return nil, errors.New(errors.CodeGenerationFailed, "installment generation produced no text")
	}

	ceiling := s.cfg.Pipeline.LengthCeiling
	rewrites := 0
	if s.cfg.Editor.Enabled && !outcome.Regenerated {
		edited, err := s.editor.Edit(ctx, draft.Text(), s.inspector.BanList(req.InstallmentNumber)...)
		if err != nil {
			return nil, abortError(ctx, err)
		}
		draft.Replace(edited.Text)
		rewrites = edited.Rewrites
		if draft.Clamp(ceiling) {
			logger.Warn(ctx, "edited draft exceeded length ceiling, clamped", "ceiling", ceiling)
		}
	}

	text, corrections := s.normalizer.Normalize(draft.Text())
	for _, c := range corrections {
		metrics.NormalizerCorrectionsTotal.WithLabelValues(c.Label).Inc()
	}
	text = node.ClampNonSpace(text, ceiling)

	// 告警以最终交付正文为准，覆盖编辑与规范化阶段的改动
	final := s.inspector.Inspect(text, req.InstallmentNumber, gen.Strategy)
	warnings := final.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	if len(final.BannedTerms) > len(outcome.Final.BannedTerms) {
		logger.Warn(ctx, "banned terms present after editing", "banned_terms", final.BannedTerms)
	}
	report := s.inspector.Report(text, req.InstallmentNumber)
	res := &model.Result{
		SeriesID:          req.SeriesID,
		InstallmentNumber: req.InstallmentNumber,
		Title:             req.DisplayTitle(),
		Text:              text,
		CharCount:         node.CountNonSpace(text),
		Strategy:          gen.Strategy,
		Corrections:       corrections,
		Warnings:          warnings,
		Usage:             s.estimator.Estimate(req.EffectiveTier(), meter),
		Quality:           &report,
		Regenerated:       outcome.Regenerated,
		Rewrites:          rewrites,
	}

	if err := s.save(ctx, req, res); err != nil {
		logger.Warn(ctx, "failed to archive installment", "error", err.Error())
		res.Warnings = append(res.Warnings, "archive save failed")
	}
	return res, nil
}

func (s *Service) save(ctx context.Context, req *model.Request, res *model.Result) error {
	if s.archive == nil {
		return nil
	}
	inst := entity.NewInstallment(req.SeriesID, req.InstallmentNumber, res.Title)
	inst.SetContent(res.Text)
	inst.Warnings = res.Warnings
	inst.GenerationMetadata = &entity.GenerationMetadata{
		Strategy:         string(res.Strategy),
		Tier:             res.Usage.Tier,
		PromptTokens:     res.Usage.InputTokens,
		CompletionTokens: res.Usage.OutputTokens,
		Calls:            res.Usage.Calls,
		EstimatedCostUSD: res.Usage.EstimatedCostUSD,
		Regenerated:      res.Regenerated,
		Rewrites:         res.Rewrites,
		Corrections:      len(res.Corrections),
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	// 归档不受生成超时约束
	return s.archive.Save(context.WithoutCancel(ctx), inst)
}

// Get 读取已归档的分集
func (s *Service) Get(ctx context.Context, seriesID string, number int) (*entity.Installment, error) {
	if s.archive == nil {
		return nil, errors.ErrInstallmentNotFound
	}
	inst, err := s.archive.Get(ctx, seriesID, number)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrInstallmentNotFound
		}
		return nil, err
	}
	return inst, nil
}

// Normalize 只运行规范化器
func (s *Service) Normalize(text string) (string, []model.Correction) {
	return s.normalizer.Normalize(text)
}

// Check 对给定正文执行闸门检查与规则报告，不调用模型
func (s *Service) Check(text string, installmentNo int, strategy model.Strategy) (quality.Violations, model.QualityReport) {
	return s.inspector.Inspect(text, installmentNo, strategy), s.inspector.Report(text, installmentNo)
}

// abortError 超时与取消统一为可重试的超时错误
func abortError(ctx context.Context, err error) error {
	if errors.HasCode(err, errors.CodeGenerationTimeout) {
		return err
	}
	if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.CodeGenerationTimeout, "installment generation timed out")
	}
	return err
}

func statusOf(err error) string {
	switch {
	case errors.HasCode(err, errors.CodeGenerationTimeout):
		return "timeout"
	case errors.HasCode(err, errors.CodeGenerationFailed):
		return "failed"
	default:
		return "error"
	}
}
