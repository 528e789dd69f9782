package service

import (
	"context"
	"strings"
)

const unknownLabel = "unknown"

type callScopeKey struct{}

// callScope 一次模型调用的归属信息，沿 context 传递到用量记录
type callScope struct {
	workflow    string
	provider    string
	seriesID    string
	installment int
}

func scopeFrom(ctx context.Context) callScope {
	if ctx == nil {
		return callScope{}
	}
	s, _ := ctx.Value(callScopeKey{}).(callScope)
	return s
}

func withScope(ctx context.Context, update func(*callScope)) context.Context {
	if ctx == nil {
		return nil
	}
	s := scopeFrom(ctx)
	update(&s)
	return context.WithValue(ctx, callScopeKey{}, s)
}

// WithWorkflow 空白值不覆盖已有标记
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return withScope(ctx, func(s *callScope) { s.workflow = w })
}

func WithProvider(ctx context.Context, provider string) context.Context {
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return withScope(ctx, func(s *callScope) { s.provider = p })
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

// WithInstallment 标记当前调用所属的系列与集数
func WithInstallment(ctx context.Context, seriesID string, number int) context.Context {
	return withScope(ctx, func(s *callScope) {
		s.seriesID = strings.TrimSpace(seriesID)
		s.installment = number
	})
}

func WorkflowFromContext(ctx context.Context) string {
	return orUnknown(scopeFrom(ctx).workflow)
}

func ProviderFromContext(ctx context.Context) string {
	return orUnknown(scopeFrom(ctx).provider)
}

// InstallmentFromContext 未设置时返回零值
func InstallmentFromContext(ctx context.Context) (string, int) {
	s := scopeFrom(ctx)
	return s.seriesID, s.installment
}

func orUnknown(v string) string {
	if v == "" {
		return unknownLabel
	}
	return v
}
