package usage

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/service"
	"serial-novel-engine/pkg/errors"
)

func tiers() config.LLMConfig {
	return config.LLMConfig{Tiers: []config.TierConfig{
		{Level: 1, InputPricePerM: 0.10, OutputPricePerM: 0.40},
		{Level: 2, InputPricePerM: 3.00, OutputPricePerM: 15.00},
		{Level: 3, InputPricePerM: 15.00, OutputPricePerM: 75.00},
	}}
}

func TestEstimate(t *testing.T) {
	_, meter := service.WithUsageMeter(context.Background())
	meter.Add(service.LLMUsageInput{PromptTokens: 600_000, CompletionTokens: 100_000})
	meter.Add(service.LLMUsageInput{PromptTokens: 400_000, CompletionTokens: 100_000})

	e := NewEstimator(tiers())
	got := e.Estimate(2, meter)
	assert.Equal(t, 2, got.Calls)
	assert.Equal(t, 1_000_000, got.InputTokens)
	assert.Equal(t, 200_000, got.OutputTokens)
	assert.InDelta(t, 3.0+3.0, got.EstimatedCostUSD, 1e-9)

	assert.InDelta(t, 0.18, e.Price(1, 1, 1_000_000, 200_000).EstimatedCostUSD, 1e-9)
	assert.InDelta(t, 30.0, e.Price(3, 1, 1_000_000, 200_000).EstimatedCostUSD, 1e-9)
}

func TestEstimate_UnknownTierAndNilMeter(t *testing.T) {
	e := NewEstimator(tiers())
	got := e.Estimate(9, nil)
	assert.Zero(t, got.Calls)
	assert.Zero(t, got.EstimatedCostUSD)
}

type memUsageRepo struct {
	events  []*entity.LLMUsageEvent
	summary []*entity.UsageSummary
	since   time.Time
	err     error
}

func (m *memUsageRepo) Create(_ context.Context, e *entity.LLMUsageEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memUsageRepo) Summarize(_ context.Context, _ string, since time.Time) ([]*entity.UsageSummary, error) {
	m.since = since
	return m.summary, m.err
}

func TestRecorder(t *testing.T) {
	repo := &memUsageRepo{}
	r := NewRecorder(repo)
	require.NoError(t, r.Record(context.Background(), service.LLMUsageInput{
		SeriesID: " murim ", Installment: 3, Workflow: "beat_write", Provider: "gemini",
		Model: "gemini-2.0-flash", PromptTokens: 10, CompletionTokens: 20, Fallback: true,
	}))
	require.Len(t, repo.events, 1)
	assert.Equal(t, "murim", repo.events[0].SeriesID)
	assert.Equal(t, 3, repo.events[0].Installment)
	assert.True(t, repo.events[0].Fallback)

	assert.Error(t, r.Record(context.Background(), service.LLMUsageInput{PromptTokens: -1}))
	assert.NoError(t, NewRecorder(nil).Record(context.Background(), service.LLMUsageInput{}))
}

func TestReporter_SeriesUsage(t *testing.T) {
	cfg := tiers()
	repo := &memUsageRepo{summary: []*entity.UsageSummary{
		{Workflow: "installment_single", Provider: cfg.Tiers[0].Provider, Model: cfg.Tiers[0].Model, Calls: 2, TokensPrompt: 1_000_000, TokensCompletion: 0},
		{Workflow: "beat_write", Provider: "other", Model: "unpriced-model", Calls: 1, TokensPrompt: 500, TokensCompletion: 500},
	}}
	r := NewReporter(repo, cfg)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	rep, err := r.SeriesUsage(context.Background(), "murim", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now.Add(-DefaultReportWindow), repo.since)
	assert.Equal(t, 3, rep.Calls)
	assert.Equal(t, 1_000_500, rep.TokensPrompt)
	assert.InDelta(t, cfg.Tiers[0].InputPricePerM, rep.EstimatedCostUSD, 1e-9)
}

func TestReporter_Errors(t *testing.T) {
	r := NewReporter(&memUsageRepo{err: stderrors.New("db down")}, tiers())
	_, err := r.SeriesUsage(context.Background(), "murim", time.Now())
	assert.True(t, errors.HasCode(err, errors.CodeDatabaseError))

	_, err = r.SeriesUsage(context.Background(), " ", time.Now())
	assert.True(t, errors.HasCode(err, errors.CodeInvalidParam))

	rep, err := NewReporter(&memUsageRepo{}, tiers()).SeriesUsage(context.Background(), "murim", time.Now())
	require.NoError(t, err)
	assert.NotNil(t, rep.Breakdown)
}
