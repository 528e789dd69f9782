package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageMeter_AccumulatesThroughContext(t *testing.T) {
	ctx, meter := WithUsageMeter(context.Background())
	require.Same(t, meter, UsageMeterFromContext(ctx))

	UsageMeterFromContext(ctx).Add(LLMUsageInput{Workflow: "plan", PromptTokens: 100, CompletionTokens: 40})
	UsageMeterFromContext(ctx).Add(LLMUsageInput{Workflow: "beat", PromptTokens: 300, CompletionTokens: 900})

	prompt, completion, calls := meter.Totals()
	assert.Equal(t, 400, prompt)
	assert.Equal(t, 940, completion)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "beat", meter.Calls()[1].Workflow)
}

func TestUsageMeter_NilSafe(t *testing.T) {
	var m *UsageMeter
	m.Add(LLMUsageInput{PromptTokens: 1})
	p, c, n := m.Totals()
	assert.Zero(t, p+c+n)
	assert.Nil(t, UsageMeterFromContext(context.Background()))
}

func TestContextAccessors(t *testing.T) {
	ctx := WithWorkflowProvider(context.Background(), "installment_single", "gemini")
	ctx = WithInstallment(ctx, "murim", 31)

	assert.Equal(t, "installment_single", WorkflowFromContext(ctx))
	assert.Equal(t, "gemini", ProviderFromContext(ctx))
	series, n := InstallmentFromContext(ctx)
	assert.Equal(t, "murim", series)
	assert.Equal(t, 31, n)
	assert.Equal(t, "unknown", WorkflowFromContext(context.Background()))

	kept := WithWorkflow(ctx, "  ")
	assert.Equal(t, "installment_single", WorkflowFromContext(kept))
	assert.Equal(t, "gemini", ProviderFromContext(WithInstallment(kept, "other", 2)))
}
