// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/application/installment/quality"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/interfaces/http/dto"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
)

// InstallmentService 分集流水线
type InstallmentService interface {
	Generate(ctx context.Context, req *model.Request) (*model.Result, error)
	Get(ctx context.Context, seriesID string, number int) (*entity.Installment, error)
	Normalize(text string) (string, []model.Correction)
	Check(text string, installmentNo int, strategy model.Strategy) (quality.Violations, model.QualityReport)
}

// InstallmentHandler 分集处理器
type InstallmentHandler struct {
	svc InstallmentService
}

// NewInstallmentHandler 创建分集处理器
func NewInstallmentHandler(svc InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{svc: svc}
}

// Generate 同步生成一集
// @Summary 生成分集
// @Tags Installments
// @Accept json
// @Produce json
// @Param sid path string true "系列 ID"
// @Success 200 {object} dto.Response[model.Result]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse "生成超时，可重试"
// @Router /v1/series/{sid}/installments/generate [post]
func (h *InstallmentHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var uri dto.SeriesIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		dto.BadRequest(c, "invalid series id")
		return
	}
	var req dto.GenerateInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Generate(ctx, req.ToModel(uri.SeriesID))
	if err != nil {
		if !errors.IsAppError(err) {
			logger.Error(ctx, "installment generation failed", err)
		}
		dto.AppError(c, err)
		return
	}
	dto.Success(c, res)
}

// Get 读取已存档分集
// @Summary 获取分集
// @Tags Installments
// @Produce json
// @Param sid path string true "系列 ID"
// @Param num path int true "集数"
// @Success 200 {object} dto.Response[dto.InstallmentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/series/{sid}/installments/{num} [get]
func (h *InstallmentHandler) Get(c *gin.Context) {
	var uri dto.InstallmentURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		dto.BadRequest(c, "invalid installment path")
		return
	}

	inst, err := h.svc.Get(c.Request.Context(), uri.SeriesID, uri.Number)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToInstallmentResponse(inst))
}

// Normalize 仅执行确定性规范化
// @Summary 规范化文本
// @Tags Tools
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[dto.NormalizeResponse]
// @Router /v1/normalize [post]
func (h *InstallmentHandler) Normalize(c *gin.Context) {
	var req dto.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	text, log := h.svc.Normalize(req.Text)
	if log == nil {
		log = []model.Correction{}
	}
	dto.Success(c, &dto.NormalizeResponse{Text: text, Corrections: log})
}

// Check 质量闸门检查与规则化报告（不触发重写）
// @Summary 质量检查
// @Tags Tools
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[dto.QualityCheckResponse]
// @Router /v1/quality/check [post]
func (h *InstallmentHandler) Check(c *gin.Context) {
	var req dto.QualityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	strategy := model.Strategy(req.Strategy)
	if strategy == "" {
		strategy = model.StrategySinglePass
	}
	v, report := h.svc.Check(req.Text, req.InstallmentNumber, strategy)

	resp := &dto.QualityCheckResponse{
		CharCount:   v.CharCount,
		BannedTerms: v.BannedTerms,
		TooShort:    v.TooShort,
		Warnings:    v.Warnings(),
		Report:      report,
	}
	if resp.BannedTerms == nil {
		resp.BannedTerms = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	dto.Success(c, resp)
}
