package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/rendercache"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func newEngine(t *testing.T, stubs *testsupport.StubExecutors, cache *rendercache.Cache) (*pipeline.Engine, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := pipeline.NewEngine(store, cache, stubs.Executors(), config.StageTimeouts{}, nil)
	return engine, store
}

func TestRunCompletesThroughAllStages(t *testing.T) {
	stubs := testsupport.NewStubExecutors()
	engine, store := newEngine(t, stubs, nil)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, testsupport.Request("tell me a story"))
	if err := engine.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if final.Status != queue.StatusCompleted || final.Stage != queue.StageCompleted {
		t.Fatalf("unexpected terminal state: %s/%s", final.Status, final.Stage)
	}
	if final.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", final.Progress)
	}
	for _, key := range []string{pipeline.ResultVideo, pipeline.ResultAudio, pipeline.ResultSubtitles, pipeline.ResultFinal} {
		if _, ok := final.Results[key]; !ok {
			t.Fatalf("missing result %q: %#v", key, final.Results)
		}
	}
	if final.CompletedAt == nil || final.StartedAt == nil {
		t.Fatal("expected start and completion timestamps")
	}

	if stubs.CropCalls.Load() != 1 || stubs.RampCalls.Load() != 1 ||
		stubs.TTSCalls.Load() != 1 || stubs.SubsCalls.Load() != 1 ||
		stubs.CompileCalls.Load() != 1 {
		t.Fatalf("each stage should run once: %+v", stubs)
	}
	if stubs.ScriptCalls.Load() != 0 {
		t.Fatal("script generation must not run when a script is provided")
	}
}

func TestRunGeneratesScriptFromTopic(t *testing.T) {
	stubs := testsupport.NewStubExecutors()
	stubs.ScriptText = "the generated tale"
	engine, store := newEngine(t, stubs, nil)

	ctx := context.Background()
	req := testsupport.Request("")
	req.Topic = "abandoned mineshafts"
	req.Genre = "horror"
	job := testsupport.NewJob(t, store, req)

	if err := engine.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stubs.ScriptCalls.Load() != 1 {
		t.Fatalf("expected one script call, got %d", stubs.ScriptCalls.Load())
	}

	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if final.Request.Script != "the generated tale" {
		t.Fatalf("generated script not persisted: %q", final.Request.Script)
	}
}

func TestRunSkipsSubtitlesWhenDisabled(t *testing.T) {
	stubs := testsupport.NewStubExecutors()
	engine, store := newEngine(t, stubs, nil)

	ctx := context.Background()
	req := testsupport.Request("short script")
	disabled := false
	req.Options.GenerateSubtitles = &disabled
	job := testsupport.NewJob(t, store, req)

	if err := engine.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stubs.SubsCalls.Load() != 0 {
		t.Fatal("subtitle stage should be skipped")
	}

	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if _, ok := final.Results[pipeline.ResultSubtitles]; ok {
		t.Fatal("no subtitle artifact should be recorded when disabled")
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("job should still complete, got %s", final.Status)
	}
}

func TestRunSkipsSpeedRampWhenDisabled(t *testing.T) {
	stubs := testsupport.NewStubExecutors()
	engine, store := newEngine(t, stubs, nil)

	req := testsupport.Request("short script")
	disabled := false
	req.Options.SpeedRamp = &disabled
	job := testsupport.NewJob(t, store, req)

	if err := engine.Run(context.Background(), job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stubs.RampCalls.Load() != 0 {
		t.Fatal("speed ramp should be skipped")
	}
	if stubs.CropCalls.Load() != 1 {
		t.Fatal("crop still runs when the ramp is disabled")
	}
}

func TestRunFailureStopsPipeline(t *testing.T) {
	stubs := testsupport.NewStubExecutors()
	stubs.TTSErr = services.Wrap(services.ErrExternalTool, "tts", "generate", "piper exited 1", nil)
	engine, store := newEngine(t, stubs, nil)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, testsupport.Request("short script"))
	if err := engine.Run(ctx, job); err == nil {
		t.Fatal("expected stage failure to propagate")
	}

	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if final.Status != queue.StatusFailed || final.Stage != queue.StageFailed {
		t.Fatalf("unexpected terminal state: %s/%s", final.Status, final.Stage)
	}
	if final.ErrorMessage == "" {
		t.Fatal("failure message should be recorded")
	}
	if stubs.SubsCalls.Load() != 0 || stubs.CompileCalls.Load() != 0 {
		t.Fatal("stages after the failure must not run")
	}
	if _, ok := final.Results[pipeline.ResultVideo]; !ok {
		t.Fatal("artifacts from completed stages should be preserved")
	}
}

func TestRunCacheHitShortCircuits(t *testing.T) {
	cache := rendercache.New("", 10, time.Hour, nil)

	first := testsupport.NewStubExecutors()
	engine, store := newEngine(t, first, cache)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, testsupport.Request("identical script"))
	if err := engine.Run(ctx, job); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	second := testsupport.NewStubExecutors()
	engine2 := pipeline.NewEngine(store, cache, second.Executors(), config.StageTimeouts{}, nil)
	duplicate := testsupport.NewJob(t, store, testsupport.Request("identical script"))
	if err := engine2.Run(ctx, duplicate); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if second.TotalCalls() != 0 {
		t.Fatalf("cache hit must not invoke executors, saw %d calls", second.TotalCalls())
	}

	final, err := store.GetJob(ctx, duplicate.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if final.Status != queue.StatusCompleted || final.Progress != 100 {
		t.Fatalf("cache hit should complete the job: %s/%d", final.Status, final.Progress)
	}
	if final.Results[pipeline.ResultFinal].ID == "" {
		t.Fatal("cached results should be copied onto the job")
	}
}

func TestRunFailureDoesNotPopulateCache(t *testing.T) {
	cache := rendercache.New("", 10, time.Hour, nil)

	failing := testsupport.NewStubExecutors()
	failing.CompileErr = errors.New("mux failed")
	engine, store := newEngine(t, failing, cache)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, testsupport.Request("cursed script"))
	if err := engine.Run(ctx, job); err == nil {
		t.Fatal("expected failure")
	}

	retry := testsupport.NewStubExecutors()
	engine2 := pipeline.NewEngine(store, cache, retry.Executors(), config.StageTimeouts{}, nil)
	again := testsupport.NewJob(t, store, testsupport.Request("cursed script"))
	if err := engine2.Run(ctx, again); err != nil {
		t.Fatalf("retry Run failed: %v", err)
	}
	if retry.TotalCalls() == 0 {
		t.Fatal("failed runs must not be served from cache")
	}
}

func TestValidateRequest(t *testing.T) {
	if err := pipeline.ValidateRequest(testsupport.Request("a script")); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	missingBackground := testsupport.Request("a script")
	missingBackground.BackgroundID = ""
	err := pipeline.ValidateRequest(missingBackground)
	if err == nil || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	topicOnly := queue.Request{Topic: "caves", BackgroundID: "minecraft", Voice: "v", Preset: "1080p"}
	if err := pipeline.ValidateRequest(topicOnly); err != nil {
		t.Fatalf("topic-driven request should validate: %v", err)
	}

	empty := queue.Request{BackgroundID: "minecraft"}
	if err := pipeline.ValidateRequest(empty); err == nil {
		t.Fatal("request without script or topic should fail validation")
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	stubs := testsupport.NewStubExecutors()
	engine, store := newEngine(t, stubs, nil)

	job := testsupport.NewJob(t, store, testsupport.Request("a script"))
	snapshot, err := engine.Status(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if snapshot.ID != job.ID || snapshot.Status != queue.StatusPending {
		t.Fatalf("unexpected snapshot: %#v", snapshot)
	}

	if _, err := engine.Status(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
