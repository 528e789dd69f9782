package quality

import (
	"context"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/workflow/node"
	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/metrics"
)

// Regenerator 单次调用的整集重写
type Regenerator interface {
	Regenerate(ctx context.Context, gc *model.GenerationContext, req *model.Request, instruction string) (string, error)
}

// Outcome 闸门结果
type Outcome struct {
	// Regenerated 已发起过重写调用，编辑阶段需跳过
	Regenerated bool
	// Replaced 重写结果替换了草稿
	Replaced bool
	Initial  Violations
	Final    Violations
}

// Warnings 重写后仍未解决的问题
func (o *Outcome) Warnings() []string {
	if o == nil {
		return nil
	}
	return o.Final.Warnings()
}

// Gate 质量闸门：发现违规时最多重写一次
type Gate struct {
	inspector   *Inspector
	regen       Regenerator
	acceptRatio float64
}

// NewGate 创建闸门
func NewGate(inspector *Inspector, regen Regenerator, acceptRatio float64) *Gate {
	if acceptRatio <= 0 {
		acceptRatio = 0.5
	}
	return &Gate{inspector: inspector, regen: regen, acceptRatio: acceptRatio}
}

// Enforce 检查草稿，违规时发起恰好一次重写；仍违规的部分作为告警返回
func (g *Gate) Enforce(ctx context.Context, draft *model.Draft, gc *model.GenerationContext, req *model.Request, strategy model.Strategy) (*Outcome, error) {
	initial := g.inspector.Inspect(draft.Text(), req.InstallmentNumber, strategy)
	out := &Outcome{Initial: initial, Final: initial}
	if !initial.Any() {
		return out, nil
	}

	for _, kind := range initial.Kinds() {
		metrics.QualityGateViolationsTotal.WithLabelValues(kind).Inc()
	}
	logger.Warn(ctx, "quality gate violation, regenerating once",
		"kinds", initial.Kinds(),
		"banned_terms", initial.BannedTerms,
		"char_count", initial.CharCount,
	)

	out.Regenerated = true
	text, err := g.regen.Regenerate(ctx, gc, req, initial.Instruction())
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		metrics.QualityGateRegenerationsTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "quality gate regeneration failed, keeping draft", "error", err.Error())
		return out, nil
	}

	if g.accept(draft.Text(), text) {
		draft.Replace(text)
		out.Replaced = true
		metrics.QualityGateRegenerationsTotal.WithLabelValues("accepted").Inc()
	} else {
		metrics.QualityGateRegenerationsTotal.WithLabelValues("rejected").Inc()
		logger.Warn(ctx, "regenerated text too short, keeping draft",
			"original_chars", node.CountNonSpace(draft.Text()),
			"regenerated_chars", node.CountNonSpace(text),
		)
	}

	out.Final = g.inspector.Inspect(draft.Text(), req.InstallmentNumber, strategy)
	return out, nil
}

// accept 新结果不少于原稿的 acceptRatio 时替换；原稿为空时任何非空结果都替换
func (g *Gate) accept(original, regenerated string) bool {
	newLen := node.CountNonSpace(regenerated)
	if newLen == 0 {
		return false
	}
	oldLen := node.CountNonSpace(original)
	if oldLen == 0 {
		return true
	}
	return float64(newLen) >= float64(oldLen)*g.acceptRatio
}
