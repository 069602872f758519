package batch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipforge/internal/batch"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

// scriptedRunner stands in for the pipeline engine. It persists terminal job
// state the way the engine does and tracks concurrency.
type scriptedRunner struct {
	store *queue.Store
	delay time.Duration

	mu         sync.Mutex
	running    int
	maxRunning int

	failScripts map[string]bool
	blockCtx    bool
}

func (r *scriptedRunner) Run(ctx context.Context, job *queue.Job) error {
	r.mu.Lock()
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()

	if r.blockCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	now := time.Now().UTC()
	if r.failScripts[job.Request.Script] {
		job.SetFailed("scripted failure", now)
		if err := r.store.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
			return err
		}
		return errors.New("scripted failure")
	}
	job.SetCompleted(now)
	return r.store.UpdateJob(ctx, job)
}

type scriptedExporter struct {
	mu       sync.Mutex
	failures map[string]int // remaining failures per video id
	calls    map[string]int
}

func (e *scriptedExporter) Reencode(ctx context.Context, spec queue.ExportSpec) (queue.Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[spec.VideoID]++
	if remaining := e.failures[spec.VideoID]; remaining > 0 {
		e.failures[spec.VideoID] = remaining - 1
		return queue.Artifact{}, services.Wrap(services.ErrExternalTool, "export", "reencode", "ffmpeg exited 1", nil)
	}
	return queue.Artifact{ID: "export-" + spec.VideoID, Path: "/tmp/export-" + spec.VideoID + ".mp4"}, nil
}

func waitForBatch(t *testing.T, store *queue.Store, id string, pred func(*queue.Batch) bool) *queue.Batch {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b, err := store.GetBatch(context.Background(), id)
		if err != nil {
			t.Fatalf("GetBatch failed: %v", err)
		}
		if b != nil && pred(b) {
			return b
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for batch condition")
	return nil
}

func newRunner(t *testing.T, width int, jr batch.JobRunner, exp batch.Exporter) (*batch.Runner, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerWidth(width))
	store := testsupport.MustOpenStore(t, cfg)
	if sr, ok := jr.(*scriptedRunner); ok && sr.store == nil {
		sr.store = store
	}
	runner := batch.NewRunner(context.Background(), store, jr, exp, cfg.Workflow, nil)
	return runner, store
}

func requests(scripts ...string) []queue.Request {
	out := make([]queue.Request, 0, len(scripts))
	for _, script := range scripts {
		out = append(out, testsupport.Request(script))
	}
	return out
}

func TestCreateBatchReturnsImmediately(t *testing.T) {
	runner, store := newRunner(t, 2, &scriptedRunner{delay: 50 * time.Millisecond}, nil)

	start := time.Now()
	created, err := runner.CreateBatch(context.Background(), requests("one", "two", "three"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Fatalf("creation should not wait for execution, took %s", elapsed)
	}
	if created.Status != queue.BatchQueued || created.TotalJobs != 3 {
		t.Fatalf("unexpected created batch: %#v", created)
	}

	final := waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })
	if final.Status != queue.BatchCompleted || final.CompletedJobs != 3 {
		t.Fatalf("unexpected settled batch: %#v", final)
	}
}

func TestBatchBoundedConcurrency(t *testing.T) {
	sr := &scriptedRunner{delay: 30 * time.Millisecond}
	runner, store := newRunner(t, 2, sr, nil)

	created, err := runner.CreateBatch(context.Background(), requests("a", "b", "c", "d", "e"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })

	sr.mu.Lock()
	max := sr.maxRunning
	sr.mu.Unlock()
	if max > 2 {
		t.Fatalf("worker width exceeded: %d concurrent jobs", max)
	}
	if max < 2 {
		t.Fatalf("expected chunks to run concurrently, saw max %d", max)
	}
}

func TestBatchPartialFailureIsolation(t *testing.T) {
	sr := &scriptedRunner{failScripts: map[string]bool{"bad": true}}
	runner, store := newRunner(t, 2, sr, nil)

	created, err := runner.CreateBatch(context.Background(), requests("good", "bad", "also good"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	final := waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })
	if final.Status != queue.BatchCompletedWithErrors {
		t.Fatalf("expected completed_with_errors, got %s", final.Status)
	}
	if final.CompletedJobs != 2 || final.FailedJobs != 1 {
		t.Fatalf("unexpected counters: %#v", final)
	}

	for _, job := range final.Jobs {
		switch job.Request.Script {
		case "bad":
			if job.Status != queue.StatusFailed || job.ErrorMessage == "" {
				t.Fatalf("failed job not recorded: %#v", job)
			}
		default:
			if job.Status != queue.StatusCompleted {
				t.Fatalf("sibling jobs must not be affected: %#v", job)
			}
		}
	}
}

func TestCreateBatchRejectsInvalidRequest(t *testing.T) {
	runner, _ := newRunner(t, 2, &scriptedRunner{}, nil)

	bad := testsupport.Request("fine")
	bad.BackgroundID = ""
	_, err := runner.CreateBatch(context.Background(), []queue.Request{testsupport.Request("ok"), bad})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := runner.CreateBatch(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty batch should be rejected, got %v", err)
	}
}

func TestCancelRunningBatch(t *testing.T) {
	sr := &scriptedRunner{blockCtx: true}
	runner, store := newRunner(t, 1, sr, nil)

	created, err := runner.CreateBatch(context.Background(), requests("a", "b", "c"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status == queue.BatchProcessing })

	cancelled, err := runner.Cancel(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != queue.BatchCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	final := waitForBatch(t, store, created.ID, func(b *queue.Batch) bool {
		for _, job := range b.Jobs {
			if !job.Status.IsTerminal() {
				return false
			}
		}
		return true
	})
	for _, job := range final.Jobs {
		if job.Status != queue.StatusCancelled {
			t.Fatalf("expected every job cancelled, got %s", job.Status)
		}
	}
}

func TestCancelTerminalBatchConflicts(t *testing.T) {
	runner, store := newRunner(t, 2, &scriptedRunner{}, nil)

	created, err := runner.CreateBatch(context.Background(), requests("one"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })

	if _, err := runner.Cancel(context.Background(), created.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCancelUnknownBatch(t *testing.T) {
	runner, _ := newRunner(t, 2, &scriptedRunner{}, nil)
	if _, err := runner.Cancel(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRetryFailedReprocessesOnlyFailures(t *testing.T) {
	sr := &scriptedRunner{failScripts: map[string]bool{"flaky": true}}
	runner, store := newRunner(t, 2, sr, nil)

	created, err := runner.CreateBatch(context.Background(), requests("solid", "flaky"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })

	// The flaky job succeeds on the retry pass.
	sr.mu.Lock()
	sr.failScripts = nil
	sr.mu.Unlock()

	if _, err := runner.RetryFailed(context.Background(), created.ID); err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}

	final := waitForBatch(t, store, created.ID, func(b *queue.Batch) bool {
		return b.Status == queue.BatchCompleted
	})
	if final.FailedJobs != 0 || final.CompletedJobs != 2 {
		t.Fatalf("unexpected counters after retry: %#v", final)
	}
}

func TestRetryWithoutFailuresConflicts(t *testing.T) {
	runner, store := newRunner(t, 2, &scriptedRunner{}, nil)

	created, err := runner.CreateBatch(context.Background(), requests("one"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })

	if _, err := runner.RetryFailed(context.Background(), created.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteBatchRequiresTerminalState(t *testing.T) {
	sr := &scriptedRunner{blockCtx: true}
	runner, store := newRunner(t, 1, sr, nil)

	created, err := runner.CreateBatch(context.Background(), requests("one"))
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status == queue.BatchProcessing })

	if err := runner.Delete(context.Background(), created.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict deleting a running batch, got %v", err)
	}

	if _, err := runner.Cancel(context.Background(), created.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })

	if err := runner.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if b, err := store.GetBatch(context.Background(), created.ID); err != nil || b != nil {
		t.Fatalf("batch should be gone, got %#v err=%v", b, err)
	}
}

func TestExportBatchRetriesTransientFailures(t *testing.T) {
	exporter := &scriptedExporter{failures: map[string]int{"vid-1": 1}}
	runner, store := newRunner(t, 2, &scriptedRunner{}, exporter)

	created, err := runner.CreateExportBatch(context.Background(), []queue.ExportSpec{
		{VideoID: "vid-1", Format: "mp4", Preset: "1080p"},
		{VideoID: "vid-2", Format: "mp4", Preset: "1080p"},
	})
	if err != nil {
		t.Fatalf("CreateExportBatch failed: %v", err)
	}

	final := waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })
	if final.Status != queue.BatchCompleted || final.CompletedJobs != 2 {
		t.Fatalf("unexpected settled batch: %#v", final)
	}

	exporter.mu.Lock()
	retried := exporter.calls["vid-1"]
	exporter.mu.Unlock()
	if retried != 2 {
		t.Fatalf("expected 2 attempts for the flaky video, got %d", retried)
	}

	for _, job := range final.Jobs {
		if job.Export != nil && job.Export.VideoID == "vid-1" && job.Attempts != 2 {
			t.Fatalf("expected 2 recorded attempts, got %d", job.Attempts)
		}
	}
}

func TestExportBatchExhaustsAttempts(t *testing.T) {
	exporter := &scriptedExporter{failures: map[string]int{"vid-dead": 99}}
	runner, store := newRunner(t, 2, &scriptedRunner{}, exporter)

	created, err := runner.CreateExportBatch(context.Background(), []queue.ExportSpec{
		{VideoID: "vid-dead"},
	})
	if err != nil {
		t.Fatalf("CreateExportBatch failed: %v", err)
	}

	final := waitForBatch(t, store, created.ID, func(b *queue.Batch) bool { return b.Status.IsTerminal() })
	if final.Status != queue.BatchCompletedWithErrors || final.FailedJobs != 1 {
		t.Fatalf("unexpected settled batch: %#v", final)
	}

	exporter.mu.Lock()
	attempts := exporter.calls["vid-dead"]
	exporter.mu.Unlock()
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}

	job := final.Jobs[0]
	if job.Status != queue.StatusFailed || job.Attempts != 3 {
		t.Fatalf("unexpected job state: status=%s attempts=%d", job.Status, job.Attempts)
	}
}

func TestExportBatchRejectsMissingVideoID(t *testing.T) {
	runner, _ := newRunner(t, 2, &scriptedRunner{}, &scriptedExporter{})
	_, err := runner.CreateExportBatch(context.Background(), []queue.ExportSpec{{Format: "mp4"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitJobRunsStandalone(t *testing.T) {
	sr := &scriptedRunner{}
	runner, store := newRunner(t, 2, sr, nil)

	job, err := runner.SubmitJob(context.Background(), testsupport.Request("solo"))
	if err != nil {
		t.Fatalf("SubmitJob failed: %v", err)
	}
	if job.BatchID != "" {
		t.Fatalf("standalone job should have no batch, got %q", job.BatchID)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		current, err := store.GetJob(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if current.Status == queue.StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("standalone job never completed")
}
