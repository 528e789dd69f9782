package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/internal/application/installment/usage"
	"serial-novel-engine/internal/interfaces/http/dto"
)

// UsageService 用量汇总
type UsageService interface {
	SeriesUsage(ctx context.Context, seriesID string, since time.Time) (*usage.SeriesReport, error)
}

// UsageHandler 用量处理器
type UsageHandler struct {
	svc UsageService
}

// NewUsageHandler 创建用量处理器
func NewUsageHandler(svc UsageService) *UsageHandler {
	return &UsageHandler{svc: svc}
}

// SeriesUsage 系列模型用量汇总
// @Summary 系列模型用量
// @Tags Usage
// @Produce json
// @Param sid path string true "系列 ID"
// @Param since query string false "起始时间 (RFC3339)，默认最近 30 天"
// @Success 200 {object} dto.Response[usage.SeriesReport]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/series/{sid}/usage [get]
func (h *UsageHandler) SeriesUsage(c *gin.Context) {
	var uri dto.SeriesIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		dto.BadRequest(c, "invalid series id")
		return
	}
	var q dto.UsageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	var since time.Time
	if q.Since != "" {
		t, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			dto.BadRequest(c, "since must be RFC3339")
			return
		}
		since = t
	}

	rep, err := h.svc.SeriesUsage(c.Request.Context(), uri.SeriesID, since)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, rep)
}
