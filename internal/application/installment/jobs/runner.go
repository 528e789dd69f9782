// Package jobs 异步分集生成：提交任务、消费执行、记录状态
package jobs

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/google/uuid"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
)

// Generator 同步生成流水线
type Generator interface {
	Validate(req *model.Request) error
	Generate(ctx context.Context, req *model.Request) (*model.Result, error)
}

// Enqueuer 投递任务到队列
type Enqueuer interface {
	EnqueueInstallment(ctx context.Context, job *entity.GenerationJob) error
}

// Runner 任务提交与执行
type Runner struct {
	gen        Generator
	jobs       repository.JobRepository
	queue      Enqueuer
	maxRetries int
}

// NewRunner 创建任务执行器；maxRetries 为可重试错误的最大重投次数
func NewRunner(gen Generator, jobs repository.JobRepository, queue Enqueuer, maxRetries int) *Runner {
	return &Runner{gen: gen, jobs: jobs, queue: queue, maxRetries: maxRetries}
}

// Submit 校验请求后保存待执行任务并投递
func (r *Runner) Submit(ctx context.Context, req *model.Request) (*entity.GenerationJob, error) {
	if err := r.gen.Validate(req); err != nil {
		return nil, err
	}
	params, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "failed to encode request")
	}

	job := entity.NewGenerationJob(uuid.NewString(), req.SeriesID, req.InstallmentNumber, params)
	if err := r.jobs.Save(ctx, job); err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to save job")
	}
	if err := r.queue.EnqueueInstallment(ctx, job); err != nil {
		job.Fail(string(errors.CodeQueueError), "failed to enqueue job", true)
		if serr := r.jobs.Save(ctx, job); serr != nil {
			logger.Error(ctx, "failed to mark job failed", serr, "job_id", job.ID)
		}
		return nil, errors.Wrap(err, errors.CodeQueueError, "failed to enqueue job")
	}

	logger.Info(ctx, "installment job submitted", "job_id", job.ID)
	return job, nil
}

// Get 查询任务状态
func (r *Runner) Get(ctx context.Context, id string) (*entity.GenerationJob, error) {
	job, err := r.jobs.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrJobNotFound
		}
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to load job")
	}
	return job, nil
}

// Handle 执行一个任务。返回错误表示消息应留在队列中等待重投
func (r *Runner) Handle(ctx context.Context, jobID string) error {
	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			// 状态已过期，无需处理
			logger.Warn(ctx, "job status missing, skipping", "job_id", jobID)
			return nil
		}
		return err
	}
	if job.IsTerminal() {
		return nil
	}

	var req model.Request
	if err := json.Unmarshal(job.InputParams, &req); err != nil {
		job.Fail(string(errors.CodeInvalidParam), "invalid job parameters", false)
		return r.jobs.Save(ctx, job)
	}

	job.Start()
	if err := r.jobs.Save(ctx, job); err != nil {
		return err
	}

	res, genErr := r.gen.Generate(ctx, &req)
	if genErr != nil {
		retryable := errors.IsRetryable(genErr)
		if retryable && job.RetryCount < r.maxRetries {
			job.RetryCount++
			job.Status = entity.JobStatusPending
			if err := r.jobs.Save(ctx, job); err != nil {
				logger.Error(ctx, "failed to save job retry state", err, "job_id", job.ID)
			}
			return genErr
		}

		appErr := errors.AsAppError(genErr)
		code := string(appErr.Code)
		job.Fail(code, appErr.Message, retryable)
		logger.Warn(ctx, "installment job failed", "job_id", job.ID, "code", code)
		return r.jobs.Save(ctx, job)
	}

	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	job.Complete(out)
	logger.Info(ctx, "installment job completed", "job_id", job.ID, "duration_ms", job.DurationMs)
	return r.jobs.Save(ctx, job)
}
