package llm

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-novel-engine/internal/config"
	llmctx "serial-novel-engine/internal/domain/service"
	workflowport "serial-novel-engine/internal/workflow/port"
	"serial-novel-engine/pkg/errors"
)

type fakeProvider struct {
	name   string
	text   string
	err    error
	calls  int
	models []string
}

func (f *fakeProvider) generate(_ context.Context, modelName string, _ workflowport.CompletionRequest) (*workflowport.Completion, error) {
	f.calls++
	f.models = append(f.models, modelName)
	if f.err != nil {
		return nil, f.err
	}
	return &workflowport.Completion{Text: f.text, Provider: f.name, PromptTokens: 10, CompletionTokens: 20}, nil
}

func (f *fakeProvider) close() error { return nil }

type recordingRecorder struct {
	inputs []llmctx.LLMUsageInput
}

func (r *recordingRecorder) Record(_ context.Context, in llmctx.LLMUsageInput) error {
	r.inputs = append(r.inputs, in)
	return nil
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		DefaultProvider: "gemini",
		Providers: map[string]config.ProviderConfig{
			"gemini": {Kind: "gemini", APIKey: "g", Model: "gemini-2.0-flash"},
			"claude": {Kind: "openai", APIKey: "c", Model: "claude-3-5-sonnet-latest"},
		},
		Tiers: []config.TierConfig{
			{Level: 1, Provider: "gemini", Model: "gemini-2.0-flash"},
			{Level: 2, Provider: "claude", Model: "claude-3-5-sonnet-latest"},
			{Level: 3, Provider: "claude", Model: "claude-3-opus-latest"},
		},
		Fallback: config.FallbackConfig{Provider: "gemini", Model: "gemini-2.0-flash"},
	}
}

func userMsg(s string) []*schema.Message {
	return []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage(s)}
}

func TestRouter_UsesTierProvider(t *testing.T) {
	gemini := &fakeProvider{name: "gemini", text: "gemini text"}
	claude := &fakeProvider{name: "claude", text: "claude text"}
	rec := &recordingRecorder{}
	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": gemini, "claude": claude}, rec)

	ctx, meter := llmctx.WithUsageMeter(context.Background())
	ctx = llmctx.WithInstallment(ctx, "murim", 7)
	out, err := r.Complete(ctx, workflowport.CompletionRequest{Workflow: "installment_single", Messages: userMsg("go"), Tier: 3})
	require.NoError(t, err)

	assert.Equal(t, "claude text", out.Text)
	assert.False(t, out.Fallback)
	assert.Equal(t, []string{"claude-3-opus-latest"}, claude.models)
	assert.Zero(t, gemini.calls)

	_, _, calls := meter.Totals()
	assert.Equal(t, 1, calls)
	require.Len(t, rec.inputs, 1)
	assert.Equal(t, "murim", rec.inputs[0].SeriesID)
	assert.Equal(t, 7, rec.inputs[0].Installment)
}

func TestRouter_UnavailableTierFallsBack(t *testing.T) {
	gemini := &fakeProvider{name: "gemini", text: "fallback text"}
	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": gemini}, nil)

	out, err := r.Complete(context.Background(), workflowport.CompletionRequest{Messages: userMsg("go"), Tier: 2})
	require.NoError(t, err)
	assert.Equal(t, "fallback text", out.Text)
	assert.True(t, out.Fallback)
	assert.Equal(t, []string{"gemini-2.0-flash"}, gemini.models)
}

func TestRouter_ProviderErrorRetriesOnFallbackOnce(t *testing.T) {
	gemini := &fakeProvider{name: "gemini", text: "rescued"}
	claude := &fakeProvider{name: "claude", err: stderrors.New("503 overloaded")}
	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": gemini, "claude": claude}, nil)

	out, err := r.Complete(context.Background(), workflowport.CompletionRequest{Messages: userMsg("go"), Tier: 2})
	require.NoError(t, err)
	assert.Equal(t, "rescued", out.Text)
	assert.Equal(t, 1, claude.calls)
	assert.Equal(t, 1, gemini.calls)
}

func TestRouter_FallbackFailureSurfaces(t *testing.T) {
	gemini := &fakeProvider{name: "gemini", err: stderrors.New("boom")}
	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": gemini}, nil)

	_, err := r.Complete(context.Background(), workflowport.CompletionRequest{Messages: userMsg("go"), Tier: 1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLLMCallFailed))
	assert.Equal(t, 1, gemini.calls, "primary equals fallback, so no second attempt")
}

func TestRouter_EmptyCompletionIsTypedError(t *testing.T) {
	gemini := &fakeProvider{name: "gemini", text: "   "}
	claude := &fakeProvider{name: "claude", text: "  "}
	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": gemini, "claude": claude}, nil)

	_, err := r.Complete(context.Background(), workflowport.CompletionRequest{Messages: userMsg("go"), Tier: 2})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEmptyCompletion))
	assert.Zero(t, gemini.calls, "empty output is left to the quality gate, not provider fallback")
}

func TestRouter_NoProviders(t *testing.T) {
	r := newRouter(testLLMConfig(), map[string]providerClient{}, nil)
	assert.False(t, r.Available())

	_, err := r.Complete(context.Background(), workflowport.CompletionRequest{Messages: userMsg("go"), Tier: 1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNoProviderConfigured))
}

func TestRouter_CancelledContextIsTimeout(t *testing.T) {
	claude := &fakeProvider{name: "claude", err: context.DeadlineExceeded}
	gemini := &fakeProvider{name: "gemini", text: "never"}
	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": gemini, "claude": claude}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Complete(ctx, workflowport.CompletionRequest{Messages: userMsg("go"), Tier: 2})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeGenerationTimeout))
	assert.Zero(t, gemini.calls)
}

func TestGeminiClient_CloseIsSafe(t *testing.T) {
	tests := []struct {
		name    string
		closers int
	}{
		{"single close", 1},
		{"concurrent closes", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &geminiClient{name: "gemini", apiKey: "g"}

			var wg sync.WaitGroup
			errs := make([]error, tt.closers)
			for i := 0; i < tt.closers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = c.close()
				}(i)
			}
			wg.Wait()
			for _, err := range errs {
				assert.NoError(t, err)
			}

			_, err := c.generate(context.Background(), "gemini-2.0-flash", workflowport.CompletionRequest{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "closed")
		})
	}
}

func TestSplitMessages(t *testing.T) {
	system, parts := splitMessages([]*schema.Message{
		schema.SystemMessage("rules"),
		schema.UserMessage("write"),
		nil,
		schema.UserMessage(" "),
	})
	assert.Equal(t, "rules", system)
	assert.Len(t, parts, 1)
}

func TestRouter_HealthCheck(t *testing.T) {
	empty := newRouter(testLLMConfig(), map[string]providerClient{}, nil)
	err := empty.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNoProviderConfigured))

	r := newRouter(testLLMConfig(), map[string]providerClient{"gemini": &fakeProvider{name: "gemini"}}, nil)
	assert.NoError(t, r.HealthCheck(context.Background()))
}

func TestChatModelConfig(t *testing.T) {
	cfg := chatModelConfig(config.ProviderConfig{APIKey: "k", Model: "m", MaxTokens: 4096})
	assert.Equal(t, defaultProviderTimeout, cfg.Timeout)
	require.NotNil(t, cfg.MaxTokens)
	assert.Equal(t, 4096, *cfg.MaxTokens)

	_, err := newChatModelPool(nil).Get(context.Background(), "missing")
	assert.Error(t, err)
}
