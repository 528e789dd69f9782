package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"serial-novel-engine/internal/config"
	llmctx "serial-novel-engine/internal/domain/service"
	"serial-novel-engine/internal/workflow/node"
	workflowport "serial-novel-engine/internal/workflow/port"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/metrics"
	"serial-novel-engine/pkg/tracer"
)

// target 一次调用的提供商与模型
type target struct {
	provider string
	model    string
}

// Router 按档位选择提供商的补全实现，负责兜底、指标与用量记录
type Router struct {
	cfg      config.LLMConfig
	clients  map[string]providerClient
	recorder llmctx.LLMUsageRecorder
}

var _ workflowport.Completer = (*Router)(nil)

// NewRouter 根据配置创建路由器；只为带 API Key 的提供商创建客户端
func NewRouter(cfg *config.Config, recorder llmctx.LLMUsageRecorder) *Router {
	llmCfg := cfg.LLM
	pool := newChatModelPool(llmCfg.Providers)
	clients := make(map[string]providerClient)
	for name, p := range llmCfg.Providers {
		if !llmCfg.ProviderUsable(name) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(p.Kind)) {
		case "gemini":
			clients[name] = &geminiClient{name: name, apiKey: p.APIKey}
		default:
			clients[name] = &einoClient{name: name, factory: pool}
		}
	}
	return newRouter(llmCfg, clients, recorder)
}

func newRouter(cfg config.LLMConfig, clients map[string]providerClient, recorder llmctx.LLMUsageRecorder) *Router {
	return &Router{cfg: cfg, clients: clients, recorder: recorder}
}

// Available 至少一个提供商可用
func (r *Router) Available() bool {
	return r != nil && len(r.clients) > 0
}

// HealthCheck 供就绪检查使用：没有可用提供商时报错
func (r *Router) HealthCheck(_ context.Context) error {
	if !r.Available() {
		return errors.New(errors.CodeNoProviderConfigured, "no LLM provider configured")
	}
	return nil
}

// Providers 返回可用提供商名称（排序后）
func (r *Router) Providers() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close 释放提供商客户端
func (r *Router) Close() error {
	var firstErr error
	for _, c := range r.clients {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// resolve 档位 -> 目标；档位对应的提供商不可用时落到固定兜底
func (r *Router) resolve(tier int) (target, bool, error) {
	primary, ok := r.tierTarget(tier)
	if ok {
		if _, usable := r.clients[primary.provider]; usable {
			return primary, false, nil
		}
	}
	fb := r.fallbackTarget()
	if _, usable := r.clients[fb.provider]; usable {
		return fb, true, nil
	}
	return target{}, false, errors.New(errors.CodeNoProviderConfigured, "no LLM provider configured").
		WithDetail(fmt.Sprintf("tier %d and fallback %q unavailable", tier, fb.provider))
}

func (r *Router) tierTarget(tier int) (target, bool) {
	if tier > 0 {
		if t, ok := r.cfg.Tier(tier); ok {
			return target{provider: t.Provider, model: t.Model}, true
		}
		return target{}, false
	}
	name := r.cfg.DefaultProvider
	p, ok := r.cfg.Providers[name]
	if !ok {
		return target{}, false
	}
	return target{provider: name, model: p.Model}, true
}

func (r *Router) fallbackTarget() target {
	fb := target{provider: r.cfg.Fallback.Provider, model: r.cfg.Fallback.Model}
	if fb.model == "" {
		if p, ok := r.cfg.Providers[fb.provider]; ok {
			fb.model = p.Model
		}
	}
	return fb
}

// Complete 执行一次补全：主目标失败时切换到兜底提供商重试一次
func (r *Router) Complete(ctx context.Context, req workflowport.CompletionRequest) (*workflowport.Completion, error) {
	if r == nil {
		return nil, errors.New(errors.CodeNoProviderConfigured, "llm router not configured")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "completion request has no messages")
	}

	primary, fellBack, err := r.resolve(req.Tier)
	if err != nil {
		return nil, err
	}
	if fellBack {
		metrics.LLMProviderFallbackTotal.WithLabelValues(fmt.Sprintf("tier%d", req.Tier), primary.provider, "unavailable").Inc()
		logger.Warn(ctx, "tier provider unavailable, using fallback",
			"tier", req.Tier,
			"fallback_provider", primary.provider,
		)
	}

	out, err := r.call(ctx, primary, fellBack, req)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil || fellBack || errors.HasCode(err, errors.CodeEmptyCompletion) {
		return nil, err
	}

	fb := r.fallbackTarget()
	if fb == primary {
		return nil, err
	}
	if _, usable := r.clients[fb.provider]; !usable {
		return nil, err
	}

	metrics.LLMProviderFallbackTotal.WithLabelValues(primary.provider, fb.provider, "error").Inc()
	logger.Warn(ctx, "llm call failed, retrying on fallback provider",
		"provider", primary.provider,
		"fallback_provider", fb.provider,
		"error", err.Error(),
	)
	return r.call(ctx, fb, true, req)
}

// call 单次调用并完成埋点
func (r *Router) call(ctx context.Context, t target, fallback bool, req workflowport.CompletionRequest) (*workflowport.Completion, error) {
	workflow := strings.TrimSpace(req.Workflow)
	if workflow == "" {
		workflow = "unknown"
	}
	ctx = llmctx.WithWorkflowProvider(ctx, workflow, t.provider)

	ctx, span := tracer.Start(ctx, "llm.complete")
	span.SetAttributes(
		attribute.String("llm.workflow", workflow),
		attribute.String("llm.provider", t.provider),
		attribute.String("llm.model", t.model),
		attribute.Int("llm.tier", req.Tier),
		attribute.Bool("llm.fallback", fallback),
	)

	start := time.Now()
	out, err := r.clients[t.provider].generate(ctx, t.model, req)
	elapsed := time.Since(start)
	metrics.LLMCallDuration.WithLabelValues(workflow, t.provider, t.model).Observe(elapsed.Seconds())

	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(workflow, t.provider, t.model, "error").Inc()
		err = classifyCallError(ctx, err, t.provider)
		tracer.Finish(span, err)
		return nil, err
	}

	if strings.TrimSpace(out.Text) == "" {
		metrics.LLMCallTotal.WithLabelValues(workflow, t.provider, t.model, "empty").Inc()
		err = errors.New(errors.CodeEmptyCompletion, "empty completion").WithDetail(t.provider + "/" + t.model)
		tracer.Finish(span, err)
		return nil, err
	}

	out.Fallback = fallback
	if out.Model == "" {
		out.Model = t.model
	}
	if out.PromptTokens == 0 {
		out.PromptTokens = estimateMessagesTokens(req)
	}
	if out.CompletionTokens == 0 {
		out.CompletionTokens = node.EstimateTokens(out.Text)
	}

	metrics.LLMCallTotal.WithLabelValues(workflow, t.provider, t.model, "success").Inc()
	metrics.LLMTokensUsed.WithLabelValues(workflow, t.provider, t.model, "prompt").Add(float64(out.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(workflow, t.provider, t.model, "completion").Add(float64(out.CompletionTokens))
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", out.PromptTokens),
		attribute.Int("llm.completion_tokens", out.CompletionTokens),
	)
	tracer.Finish(span, nil)

	seriesID, installment := llmctx.InstallmentFromContext(ctx)
	usage := llmctx.LLMUsageInput{
		SeriesID:         seriesID,
		Installment:      installment,
		Workflow:         workflow,
		Provider:         t.provider,
		Model:            out.Model,
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
		DurationMs:       int(elapsed.Milliseconds()),
		Fallback:         fallback,
	}
	llmctx.UsageMeterFromContext(ctx).Add(usage)
	if r.recorder != nil {
		if recErr := r.recorder.Record(ctx, usage); recErr != nil {
			logger.Warn(ctx, "failed to record llm usage", "error", recErr.Error())
		}
	}
	return out, nil
}

func classifyCallError(ctx context.Context, err error, provider string) error {
	if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeGenerationTimeout, "llm call timed out").WithDetail(provider)
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.Wrap(err, errors.CodeLLMCallFailed, "llm call failed").WithDetail(provider)
}

func estimateMessagesTokens(req workflowport.CompletionRequest) int {
	total := 0
	for _, m := range req.Messages {
		if m != nil {
			total += node.EstimateTokens(m.Content)
		}
	}
	return total
}
