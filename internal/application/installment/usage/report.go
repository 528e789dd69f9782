package usage

import (
	"context"
	"math"
	"strings"
	"time"

	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/pkg/errors"
)

// DefaultReportWindow 未指定起点时的统计窗口
const DefaultReportWindow = 30 * 24 * time.Hour

// SeriesReport 系列用量汇总
type SeriesReport struct {
	SeriesID         string                 `json:"series_id"`
	Since            time.Time              `json:"since"`
	Calls            int                    `json:"calls"`
	TokensPrompt     int                    `json:"tokens_prompt"`
	TokensCompletion int                    `json:"tokens_completion"`
	EstimatedCostUSD float64                `json:"estimated_cost_usd"`
	Breakdown        []*entity.UsageSummary `json:"breakdown"`
}

// Reporter 读取用量流水并按档位单价估算费用
type Reporter struct {
	repo repository.LLMUsageEventRepository
	cfg  config.LLMConfig
	now  func() time.Time
}

// NewReporter 创建用量报表
func NewReporter(repo repository.LLMUsageEventRepository, cfg config.LLMConfig) *Reporter {
	return &Reporter{repo: repo, cfg: cfg, now: time.Now}
}

// SeriesUsage 汇总系列自 since 起的用量；since 为零值时取最近 30 天
func (r *Reporter) SeriesUsage(ctx context.Context, seriesID string, since time.Time) (*SeriesReport, error) {
	if strings.TrimSpace(seriesID) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "series id is required")
	}
	if since.IsZero() {
		since = r.now().Add(-DefaultReportWindow)
	}

	rows, err := r.repo.Summarize(ctx, seriesID, since)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load usage")
	}

	out := &SeriesReport{SeriesID: seriesID, Since: since.UTC(), Breakdown: rows}
	if out.Breakdown == nil {
		out.Breakdown = []*entity.UsageSummary{}
	}
	var cost float64
	for _, row := range rows {
		out.Calls += row.Calls
		out.TokensPrompt += row.TokensPrompt
		out.TokensCompletion += row.TokensCompletion
		cost += r.price(row)
	}
	out.EstimatedCostUSD = math.Round(cost*1e6) / 1e6
	return out, nil
}

// price 按模型匹配档位单价；同一模型出现在多个档位时取第一个
func (r *Reporter) price(row *entity.UsageSummary) float64 {
	for _, t := range r.cfg.Tiers {
		if t.Model != row.Model {
			continue
		}
		if t.Provider != "" && row.Provider != "" && t.Provider != row.Provider {
			continue
		}
		return float64(row.TokensPrompt)/1e6*t.InputPricePerM + float64(row.TokensCompletion)/1e6*t.OutputPricePerM
	}
	return 0
}
