package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/interfaces/http/dto"
)

// JobService 异步任务
type JobService interface {
	Submit(ctx context.Context, req *model.Request) (*entity.GenerationJob, error)
	Get(ctx context.Context, id string) (*entity.GenerationJob, error)
}

// JobHandler 任务处理器
type JobHandler struct {
	jobs JobService
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Submit 异步提交分集生成
// @Summary 异步生成分集
// @Tags Installments
// @Accept json
// @Produce json
// @Param sid path string true "系列 ID"
// @Success 202 {object} dto.Response[dto.SubmitJobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/series/{sid}/installments/generate-async [post]
func (h *JobHandler) Submit(c *gin.Context) {
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

	job, err := h.jobs.Submit(c.Request.Context(), req.ToModel(uri.SeriesID))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Accepted(c, &dto.SubmitJobResponse{JobID: job.ID, Status: string(job.Status)})
}

// GetJob 获取任务详情
// @Summary 获取任务详情
// @Tags Jobs
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	var uri dto.JobIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		dto.BadRequest(c, "invalid job id")
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), uri.JobID)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}
