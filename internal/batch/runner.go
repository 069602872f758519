package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// JobRunner executes one pipeline job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, job *queue.Job) error
}

// Exporter re-encodes one finished video for an export batch item.
type Exporter interface {
	Reencode(ctx context.Context, spec queue.ExportSpec) (queue.Artifact, error)
}

// Runner owns batch scheduling. It tracks a cancel function per in-flight
// batch so individual batches can be stopped without affecting the rest.
type Runner struct {
	store    *queue.Store
	engine   JobRunner
	exporter Exporter
	cfg      config.Workflow
	logger   *slog.Logger

	baseCtx context.Context
	wg      sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRunner constructs a runner. baseCtx bounds every batch; cancelling it
// stops all batch execution.
func NewRunner(baseCtx context.Context, store *queue.Store, engine JobRunner, exporter Exporter, cfg config.Workflow, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.WorkerWidth < 1 {
		cfg.WorkerWidth = 1
	}
	return &Runner{
		store:    store,
		engine:   engine,
		exporter: exporter,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "batch"),
		baseCtx:  baseCtx,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Wait blocks until every in-flight batch goroutine has settled. Intended for
// daemon shutdown after the base context is cancelled.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// SubmitJob validates a single request, persists a standalone job, and runs
// it in the background.
func (r *Runner) SubmitJob(ctx context.Context, req queue.Request) (*queue.Job, error) {
	if err := pipeline.ValidateRequest(req); err != nil {
		return nil, err
	}
	job, err := r.store.NewJob(ctx, req)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.engine.Run(r.baseCtx, job); err != nil {
			r.logger.Error("standalone job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
		}
	}()
	return job, nil
}

// CreateBatch validates the requests, persists a new batch with one pending
// job per request, and starts execution in the background. The returned batch
// reflects the queued state; callers poll for progress.
func (r *Runner) CreateBatch(ctx context.Context, requests []queue.Request) (*queue.Batch, error) {
	if len(requests) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "create", "at least one request is required", nil)
	}
	for i, req := range requests {
		if err := pipeline.ValidateRequest(req); err != nil {
			return nil, services.Wrap(services.ErrValidation, "batch", "create",
				fmt.Sprintf("request %d: %s", i, services.Message(err)), nil)
		}
	}

	batch, err := r.store.NewBatch(ctx, requests)
	if err != nil {
		return nil, err
	}
	r.start(batch.ID, r.runBatch)
	return batch, nil
}

// CreateExportBatch persists an export batch and starts it in the background.
func (r *Runner) CreateExportBatch(ctx context.Context, specs []queue.ExportSpec) (*queue.Batch, error) {
	if len(specs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "export", "at least one export spec is required", nil)
	}
	for i, spec := range specs {
		if spec.VideoID == "" {
			return nil, services.Wrap(services.ErrValidation, "batch", "export",
				fmt.Sprintf("spec %d: videoId is required", i), nil)
		}
	}

	batch, err := r.store.NewExportBatch(ctx, specs)
	if err != nil {
		return nil, err
	}
	r.start(batch.ID, r.runExportBatch)
	return batch, nil
}

// Cancel stops a batch. Jobs that have not started are marked cancelled;
// in-flight jobs have their context cancelled and settle as cancelled.
// Cancelling a batch that already reached a terminal state is a conflict.
func (r *Runner) Cancel(ctx context.Context, batchID string) (*queue.Batch, error) {
	batch, err := r.requireBatch(ctx, batchID, "cancel")
	if err != nil {
		return nil, err
	}
	if batch.Status.IsTerminal() {
		return nil, services.Wrap(services.ErrConflict, "batch", "cancel",
			fmt.Sprintf("batch %s already %s", batchID, batch.Status), nil)
	}

	r.mu.Lock()
	if cancel, ok := r.cancels[batchID]; ok {
		cancel()
	}
	r.mu.Unlock()

	if _, err := r.store.CancelOpenJobs(ctx, batchID); err != nil {
		return nil, err
	}
	if err := r.store.UpdateBatchStatus(ctx, batchID, queue.BatchCancelled); err != nil {
		return nil, err
	}
	r.logger.Info("batch cancelled",
		logging.String(logging.FieldEventType, "batch_cancelled"),
		logging.String(logging.FieldBatchID, batchID))
	return r.store.GetBatch(ctx, batchID)
}

// RetryFailed requeues a terminal batch's failed jobs and restarts execution.
// A batch with no failed jobs is a conflict.
func (r *Runner) RetryFailed(ctx context.Context, batchID string) (*queue.Batch, error) {
	batch, err := r.requireBatch(ctx, batchID, "retry")
	if err != nil {
		return nil, err
	}
	if !batch.Status.IsTerminal() {
		return nil, services.Wrap(services.ErrConflict, "batch", "retry",
			fmt.Sprintf("batch %s is still %s", batchID, batch.Status), nil)
	}

	reset, err := r.store.ResetFailedJobs(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if reset == 0 {
		return nil, services.Wrap(services.ErrConflict, "batch", "retry",
			fmt.Sprintf("batch %s has no failed jobs", batchID), nil)
	}
	if err := r.store.UpdateBatchStatus(ctx, batchID, queue.BatchQueued); err != nil {
		return nil, err
	}

	r.logger.Info("retrying failed batch jobs",
		logging.String(logging.FieldEventType, "batch_retry"),
		logging.String(logging.FieldBatchID, batchID),
		logging.Int64("jobs", reset))

	if batch.Kind == queue.KindExport {
		r.start(batchID, r.runExportBatch)
	} else {
		r.start(batchID, r.runBatch)
	}
	return r.store.GetBatch(ctx, batchID)
}

// Delete removes a terminal batch and its jobs. Deleting a batch that is
// still running is a conflict.
func (r *Runner) Delete(ctx context.Context, batchID string) error {
	batch, err := r.requireBatch(ctx, batchID, "delete")
	if err != nil {
		return err
	}
	if !batch.Status.IsTerminal() {
		return services.Wrap(services.ErrConflict, "batch", "delete",
			fmt.Sprintf("batch %s is still %s", batchID, batch.Status), nil)
	}
	deleted, err := r.store.DeleteBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if !deleted {
		return services.Wrap(services.ErrNotFound, "batch", "delete",
			fmt.Sprintf("batch %s not found", batchID), nil)
	}
	return nil
}

func (r *Runner) requireBatch(ctx context.Context, batchID, operation string) (*queue.Batch, error) {
	batch, err := r.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, services.Wrap(services.ErrNotFound, "batch", operation,
			fmt.Sprintf("batch %s not found", batchID), nil)
	}
	return batch, nil
}

// start registers a cancelable context for the batch and launches its run
// function.
func (r *Runner) start(batchID string, run func(ctx context.Context, batchID string)) {
	ctx, cancel := context.WithCancel(r.baseCtx)

	r.mu.Lock()
	r.cancels[batchID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.cancels, batchID)
			r.mu.Unlock()
		}()
		run(ctx, batchID)
	}()
}

// runBatch drains a pipeline batch chunk by chunk at the configured worker
// width.
func (r *Runner) runBatch(ctx context.Context, batchID string) {
	logger := r.logger.With(logging.String(logging.FieldBatchID, batchID))

	if err := r.store.UpdateBatchStatus(ctx, batchID, queue.BatchProcessing); err != nil {
		logger.Error("failed to mark batch processing", logging.Error(err))
		return
	}

	jobs, err := r.store.JobsForBatch(ctx, batchID, queue.StatusPending)
	if err != nil {
		logger.Error("failed to load batch jobs", logging.Error(err))
		return
	}

	for start := 0; start < len(jobs); start += r.cfg.WorkerWidth {
		if ctx.Err() != nil {
			break
		}
		end := start + r.cfg.WorkerWidth
		if end > len(jobs) {
			end = len(jobs)
		}
		r.runChunk(ctx, logger, jobs[start:end])
	}

	r.settle(ctx, logger, batchID)
}

// runChunk executes one chunk of jobs concurrently and waits for all of them
// to settle.
func (r *Runner) runChunk(ctx context.Context, logger *slog.Logger, chunk []*queue.Job) {
	var wg sync.WaitGroup
	for _, job := range chunk {
		wg.Add(1)
		go func(job *queue.Job) {
			defer wg.Done()
			r.runJob(ctx, logger, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) runJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	err := r.engine.Run(ctx, job)
	switch {
	case err == nil:
		if ierr := r.store.IncrementBatchCompleted(ctx, job.BatchID); ierr != nil {
			logger.Error("failed to record job completion", logging.Error(ierr))
		}
	case ctx.Err() != nil:
		// The batch was cancelled mid-flight; record the job as cancelled
		// rather than failed.
		job.Status = queue.StatusCancelled
		job.ErrorMessage = ""
		now := time.Now().UTC()
		job.CompletedAt = &now
		if uerr := r.store.UpdateJob(context.WithoutCancel(ctx), job); uerr != nil {
			logger.Error("failed to record job cancellation", logging.Error(uerr))
		}
	default:
		if ierr := r.store.IncrementBatchFailed(ctx, job.BatchID); ierr != nil {
			logger.Error("failed to record job failure", logging.Error(ierr))
		}
	}
}

// settle rolls the batch up to a terminal status once no jobs remain
// runnable.
func (r *Runner) settle(ctx context.Context, logger *slog.Logger, batchID string) {
	// Persist the terminal state even when the batch context was cancelled.
	ctx = context.WithoutCancel(ctx)

	batch, err := r.store.GetBatch(ctx, batchID)
	if err != nil || batch == nil {
		logger.Error("failed to reload batch for settlement", logging.Error(err))
		return
	}
	if batch.Status.IsTerminal() {
		return
	}

	status := queue.BatchCompleted
	if batch.FailedJobs > 0 {
		status = queue.BatchCompletedWithErrors
	}
	if err := r.store.UpdateBatchStatus(ctx, batchID, status); err != nil {
		logger.Error("failed to finalize batch", logging.Error(err))
		return
	}
	logger.Info("batch settled",
		logging.String(logging.FieldEventType, "batch_settled"),
		logging.String("status", string(status)),
		logging.Int("completed", batch.CompletedJobs),
		logging.Int("failed", batch.FailedJobs))
}
