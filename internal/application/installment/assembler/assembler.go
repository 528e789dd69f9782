// Package assembler 为单集生成组装上下文：前集末尾、设定条目、状态快照、文体与口吻样例、人物卡
package assembler

import (
	"context"
	stderrors "errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/tracer"
)

// Assembler 上下文组装器，只读访问存储
type Assembler struct {
	installments repository.InstallmentRepository
	lore         repository.LoreRepository
	state        repository.StateRepository
	cfg          config.AssemblerConfig
}

// New 创建组装器；任一仓储可为 nil，对应段落留空
func New(installments repository.InstallmentRepository, lore repository.LoreRepository, state repository.StateRepository, cfg config.AssemblerConfig) *Assembler {
	return &Assembler{installments: installments, lore: lore, state: state, cfg: cfg}
}

// Build 组装生成上下文。存储缺失或出错只降级为空段落；仅在请求被取消时返回错误。
func (a *Assembler) Build(ctx context.Context, req *model.Request) (*model.GenerationContext, error) {
	ctx, span := tracer.Start(ctx, "installment.assemble")
	span.SetAttributes(
		attribute.String("installment.series_id", req.SeriesID),
		attribute.Int("installment.number", req.InstallmentNumber),
	)

	rng := seededRand(req.SeriesID, req.InstallmentNumber)
	cards := selectCharacters(req.References.Characters, req.Outline, a.cfg.MaxCharacters)
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.Name)
	}

	sections := []model.Section{
		{Kind: model.SectionOutline, Body: req.Outline},
		{Kind: model.SectionStructure, Body: req.StructuralOutline},
		{Kind: model.SectionPriorTail, Body: a.priorTail(ctx, req)},
		{Kind: model.SectionPriorSummary, Body: req.References.PriorSummary},
		{Kind: model.SectionState, Body: a.stateSnapshot(ctx, req)},
	}
	sections = append(sections, a.loreSections(ctx, req)...)

	recent := a.recentInstallments(ctx, req)
	sections = append(sections,
		model.Section{Kind: model.SectionStyle, Body: model.RenderExemplars(a.styleExemplars(recent, rng))},
		model.Section{Kind: model.SectionVoice, Body: model.RenderExemplars(a.voiceExemplars(recent, names, rng))},
		model.Section{Kind: model.SectionCharacters, Body: renderCards(cards)},
	)

	if err := ctx.Err(); err != nil {
		tracer.Finish(span, err)
		return nil, err
	}

	gc := model.NewGenerationContext(sections, names)
	span.SetAttributes(attribute.Int("installment.context_sections", len(gc.Sections())))
	tracer.Finish(span, nil)
	return gc, nil
}

// seededRand 以 (系列, 集数) 为种子，同一请求的样例抽取可复现
func seededRand(seriesID string, number int) *rand.Rand {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s:%d", seriesID, number)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func (a *Assembler) priorTail(ctx context.Context, req *model.Request) string {
	if a.installments == nil || req.InstallmentNumber <= 1 {
		return ""
	}
	prev, err := a.installments.Get(ctx, req.SeriesID, req.InstallmentNumber-1)
	if err != nil {
		a.degrade(ctx, "prior installment", err)
		return ""
	}
	return prev.Tail(a.cfg.PrevTailChars)
}

func (a *Assembler) stateSnapshot(ctx context.Context, req *model.Request) string {
	if req.References.State != nil {
		return req.References.State.Render()
	}
	if a.state == nil {
		return ""
	}
	snap, err := a.state.GetCurrent(ctx, req.SeriesID)
	if err != nil {
		a.degrade(ctx, "state snapshot", err)
		return ""
	}
	return snap.Render()
}

func (a *Assembler) recentInstallments(ctx context.Context, req *model.Request) []*entity.Installment {
	window := max(a.cfg.StyleWindow, a.cfg.VoiceWindow)
	if a.installments == nil || window <= 0 || req.InstallmentNumber <= 1 {
		return nil
	}
	list, err := a.installments.ListRecent(ctx, req.SeriesID, req.InstallmentNumber, window)
	if err != nil {
		a.degrade(ctx, "recent installments", err)
		return nil
	}
	return list
}

func (a *Assembler) degrade(ctx context.Context, what string, err error) {
	if stderrors.Is(err, repository.ErrNotFound) {
		logger.Debug(ctx, "context resource not found", "resource", what)
		return
	}
	if ctx.Err() != nil {
		return
	}
	logger.Warn(ctx, "context resource unavailable, continuing without it",
		"resource", what,
		"error", err.Error(),
	)
}

// selectCharacters 大纲中点名的人物优先；无人点名时取前 limit 个
func selectCharacters(cards []model.CharacterCard, outline string, limit int) []model.CharacterCard {
	var named []model.CharacterCard
	for _, c := range cards {
		if name := strings.TrimSpace(c.Name); name != "" && strings.Contains(outline, name) {
			named = append(named, c)
		}
	}
	if len(named) == 0 {
		named = cards
	}
	if limit > 0 && len(named) > limit {
		named = named[:limit]
	}
	return named
}

func renderCards(cards []model.CharacterCard) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, c.Render())
	}
	return strings.Join(parts, "\n\n")
}
