// Package usage 提供模型用量估算与用量流水落库
package usage

import (
	"math"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/service"
)

// Estimator 按档位价格（美元 / 百万 token）估算费用，仅供参考
type Estimator struct {
	cfg config.LLMConfig
}

// NewEstimator 创建估算器
func NewEstimator(cfg config.LLMConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate 汇总一次请求的调用用量
func (e *Estimator) Estimate(tier int, meter *service.UsageMeter) model.UsageEstimate {
	prompt, completion, calls := meter.Totals()
	return e.Price(tier, calls, prompt, completion)
}

// Price 按档位单价计算费用，保留 6 位小数
func (e *Estimator) Price(tier, calls, promptTokens, completionTokens int) model.UsageEstimate {
	out := model.UsageEstimate{
		Tier:         tier,
		Calls:        calls,
		InputTokens:  promptTokens,
		OutputTokens: completionTokens,
	}
	t, ok := e.cfg.Tier(tier)
	if !ok {
		return out
	}
	cost := float64(promptTokens)/1e6*t.InputPricePerM + float64(completionTokens)/1e6*t.OutputPricePerM
	out.EstimatedCostUSD = math.Round(cost*1e6) / 1e6
	return out
}
