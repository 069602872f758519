package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// runExportBatch drains an export batch in passes. Each pass processes the
// pending jobs at the worker width; jobs that fail retryably with attempts
// remaining are returned to pending and picked up by the next pass.
func (r *Runner) runExportBatch(ctx context.Context, batchID string) {
	logger := r.logger.With(logging.String(logging.FieldBatchID, batchID))

	if err := r.store.UpdateBatchStatus(ctx, batchID, queue.BatchProcessing); err != nil {
		logger.Error("failed to mark batch processing", logging.Error(err))
		return
	}

	for ctx.Err() == nil {
		jobs, err := r.store.JobsForBatch(ctx, batchID, queue.StatusPending)
		if err != nil {
			logger.Error("failed to load export jobs", logging.Error(err))
			break
		}
		if len(jobs) == 0 {
			break
		}

		for start := 0; start < len(jobs); start += r.cfg.WorkerWidth {
			if ctx.Err() != nil {
				break
			}
			end := start + r.cfg.WorkerWidth
			if end > len(jobs) {
				end = len(jobs)
			}
			r.runExportChunk(ctx, logger, jobs[start:end])
		}
	}

	r.settle(ctx, logger, batchID)
}

func (r *Runner) runExportChunk(ctx context.Context, logger *slog.Logger, chunk []*queue.Job) {
	var wg sync.WaitGroup
	for _, job := range chunk {
		wg.Add(1)
		go func(job *queue.Job) {
			defer wg.Done()
			r.runExportJob(ctx, logger, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) runExportJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if job.Export == nil {
		r.failExportJob(ctx, logger, job,
			services.Wrap(services.ErrValidation, "export", "reencode", "job has no export spec", nil))
		return
	}

	job.Status = queue.StatusProcessing
	job.Attempts++
	now := time.Now().UTC()
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	if err := r.store.UpdateJob(ctx, job); err != nil {
		logger.Error("failed to persist export job start", logging.Error(err))
		return
	}

	artifact, err := r.exporter.Reencode(ctx, *job.Export)
	switch {
	case err == nil:
		job.AddResult("export", artifact)
		job.SetCompleted(time.Now().UTC())
		if uerr := r.store.UpdateJob(ctx, job); uerr != nil {
			logger.Error("failed to persist export job completion", logging.Error(uerr))
			return
		}
		if ierr := r.store.IncrementBatchCompleted(ctx, job.BatchID); ierr != nil {
			logger.Error("failed to record export completion", logging.Error(ierr))
		}
	case ctx.Err() != nil:
		job.Status = queue.StatusCancelled
		completed := time.Now().UTC()
		job.CompletedAt = &completed
		if uerr := r.store.UpdateJob(context.WithoutCancel(ctx), job); uerr != nil {
			logger.Error("failed to record export cancellation", logging.Error(uerr))
		}
	case services.Retryable(err) && job.Attempts < r.cfg.ExportMaxAttempts:
		logger.Warn("export attempt failed, requeueing",
			logging.String(logging.FieldEventType, "export_retry"),
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("attempt", job.Attempts),
			logging.Error(err))
		job.Status = queue.StatusPending
		job.ErrorMessage = services.Message(err)
		if uerr := r.store.UpdateJob(ctx, job); uerr != nil {
			logger.Error("failed to requeue export job", logging.Error(uerr))
		}
	default:
		r.failExportJob(ctx, logger, job, err)
	}
}

func (r *Runner) failExportJob(ctx context.Context, logger *slog.Logger, job *queue.Job, cause error) {
	logger.Error("export job failed",
		logging.String(logging.FieldEventType, "export_failed"),
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("attempts", job.Attempts),
		logging.Error(cause))

	job.SetFailed(services.Message(cause), time.Now().UTC())
	if err := r.store.UpdateJob(ctx, job); err != nil {
		logger.Error("failed to persist export failure", logging.Error(err))
		return
	}
	if err := r.store.IncrementBatchFailed(ctx, job.BatchID); err != nil {
		logger.Error("failed to record export failure", logging.Error(err))
	}
}
