package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
	"clipforge/internal/rendercache"
	"clipforge/internal/services"
	"clipforge/internal/services/export"
)

// Result keys under which stage outputs are recorded on a job.
const (
	ResultVideo     = "video"
	ResultAudio     = "audio"
	ResultSubtitles = "subtitles"
	ResultFinal     = "final"
)

// Engine runs render jobs end to end. It is safe for concurrent use; each
// Run call operates on its own job.
type Engine struct {
	store     *queue.Store
	cache     *rendercache.Cache
	executors Executors
	timeouts  config.StageTimeouts
	logger    *slog.Logger
}

// NewEngine constructs an engine. cache may be nil when result caching is
// disabled.
func NewEngine(store *queue.Store, cache *rendercache.Cache, executors Executors, timeouts config.StageTimeouts, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:     store,
		cache:     cache,
		executors: executors,
		timeouts:  timeouts,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// ValidateRequest checks a render request's declared inputs before any job is
// created for it. Topic-driven requests pass the text requirement because the
// script is generated in-flight.
func ValidateRequest(req queue.Request) error {
	text := req.Script
	if text == "" && strings.TrimSpace(req.Topic) != "" {
		text = req.Topic
	}
	valid, errs := preflight.Validate("pipeline", "buildVideo", preflight.Inputs{
		Text:         text,
		Script:       text,
		BackgroundID: req.BackgroundID,
	})
	if valid {
		return nil
	}
	return services.Wrap(services.ErrValidation, "pipeline", "buildVideo",
		strings.Join(errs, "; "), nil)
}

// Status returns a point-in-time snapshot of a job.
func (e *Engine) Status(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "status",
			fmt.Sprintf("job %s not found", jobID), nil)
	}
	return job, nil
}

// Run executes the full pipeline for one job. The job is persisted after
// every checkpoint; on failure it is marked failed with the stage error and
// a non-nil error is returned so callers can roll counters up.
func (e *Engine) Run(ctx context.Context, job *queue.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithBatchID(ctx, job.BatchID)
	logger := logging.WithContext(ctx, e.logger)

	job.Status = queue.StatusProcessing
	now := time.Now().UTC()
	job.StartedAt = &now
	job.SetStage(queue.StageStarted, 0)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return e.fail(ctx, job, logger, err)
	}

	if err := e.ensureScript(ctx, job, logger); err != nil {
		return e.fail(ctx, job, logger, err)
	}

	fingerprint := rendercache.Fingerprint(job.Request)
	if e.cache != nil {
		if results, ok := e.cache.Get(fingerprint); ok {
			logger.Info("result cache hit",
				logging.String(logging.FieldEventType, "cache_hit"),
				logging.String(logging.FieldFingerprint, fingerprint))
			for key, artifact := range results {
				job.AddResult(key, artifact)
			}
			job.SetCompleted(time.Now().UTC())
			return e.store.UpdateJob(ctx, job)
		}
	}

	if err := e.processVideo(ctx, job, logger); err != nil {
		return e.fail(ctx, job, logger, err)
	}
	if err := e.generateTTS(ctx, job, logger); err != nil {
		return e.fail(ctx, job, logger, err)
	}
	if err := e.generateSubtitles(ctx, job, logger); err != nil {
		return e.fail(ctx, job, logger, err)
	}
	if err := e.compile(ctx, job, logger); err != nil {
		return e.fail(ctx, job, logger, err)
	}

	job.SetCompleted(time.Now().UTC())
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	if e.cache != nil {
		if err := e.cache.Set(fingerprint, job.Results); err != nil {
			// Cache writes are best effort; the job already succeeded.
			logger.Warn("failed to store results in cache",
				logging.String(logging.FieldEventType, "cache_store_failed"),
				logging.String(logging.FieldFingerprint, fingerprint),
				logging.Error(err))
		}
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"))
	return nil
}

// ensureScript generates narration text for topic-driven requests. Jobs that
// arrive with a script skip this step.
func (e *Engine) ensureScript(ctx context.Context, job *queue.Job, logger *slog.Logger) error {
	if strings.TrimSpace(job.Request.Script) != "" {
		return nil
	}
	if strings.TrimSpace(job.Request.Topic) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "buildVideo",
			"either script or topic is required", nil)
	}
	if e.executors.Script == nil {
		return services.Wrap(services.ErrConfiguration, "script", "generate",
			"script generation is not configured", nil)
	}

	job.SetProgress(5)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	stageCtx, cancel := stageContext(ctx, job.Stage, e.timeouts.Script)
	defer cancel()

	scriptText, err := e.executors.Script.Generate(stageCtx, job.Request.Topic, job.Request.Genre)
	if err != nil {
		return err
	}
	job.Request.Script = scriptText
	logger.Info("script generated",
		logging.String(logging.FieldEventType, "script_generated"),
		logging.Int("script_chars", len(scriptText)))
	return e.store.UpdateJob(ctx, job)
}

func (e *Engine) processVideo(ctx context.Context, job *queue.Job, logger *slog.Logger) error {
	job.SetStage(queue.StageProcessingVideo, 10)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	stageCtx, cancel := stageContext(ctx, job.Stage, e.timeouts.Video)
	defer cancel()

	cropped, err := e.executors.Video.Crop(stageCtx, job.Request.BackgroundID, job.ID)
	if err != nil {
		return err
	}
	job.AddResult(ResultVideo, cropped)
	job.SetProgress(25)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	if job.Request.Options.SpeedRampEnabled() {
		ramped, err := e.executors.Video.SpeedRamp(stageCtx, cropped, job.ID)
		if err != nil {
			return err
		}
		job.AddResult(ResultVideo, ramped)
	}
	job.SetProgress(40)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	logger.Info("video processed",
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String(logging.FieldStage, string(queue.StageProcessingVideo)))
	return nil
}

func (e *Engine) generateTTS(ctx context.Context, job *queue.Job, logger *slog.Logger) error {
	job.SetStage(queue.StageGeneratingTTS, 45)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	stageCtx, cancel := stageContext(ctx, job.Stage, e.timeouts.TTS)
	defer cancel()

	audio, err := e.executors.TTS.Synthesize(stageCtx, job.Request.Script, job.Request.Voice, job.ID)
	if err != nil {
		return err
	}
	job.AddResult(ResultAudio, audio)
	job.SetProgress(60)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	logger.Info("narration synthesized",
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String(logging.FieldStage, string(queue.StageGeneratingTTS)))
	return nil
}

// generateSubtitles is skipped entirely when the request disables subtitles;
// no placeholder artifact is recorded in that case.
func (e *Engine) generateSubtitles(ctx context.Context, job *queue.Job, logger *slog.Logger) error {
	if !job.Request.Options.SubtitlesEnabled() {
		return nil
	}

	job.SetStage(queue.StageGeneratingSubtitles, 65)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	stageCtx, cancel := stageContext(ctx, job.Stage, e.timeouts.Subtitles)
	defer cancel()

	audio := job.Results[ResultAudio]
	subs, err := e.executors.Subs.Transcribe(stageCtx, audio, job.ID)
	if err != nil {
		return err
	}
	job.AddResult(ResultSubtitles, subs)
	job.SetProgress(80)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	logger.Info("subtitles generated",
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String(logging.FieldStage, string(queue.StageGeneratingSubtitles)))
	return nil
}

func (e *Engine) compile(ctx context.Context, job *queue.Job, logger *slog.Logger) error {
	job.SetStage(queue.StageCompiling, 85)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	stageCtx, cancel := stageContext(ctx, job.Stage, e.timeouts.Compile)
	defer cancel()

	input := export.CompileInput{
		Video:              job.Results[ResultVideo],
		Audio:              job.Results[ResultAudio],
		Preset:             job.Request.Preset,
		AddProgressBar:     job.Request.Options.AddProgressBar,
		PartBadge:          job.Request.Options.PartBadge,
		AudioNormalization: job.Request.Options.AudioNormalization,
	}
	if subs, ok := job.Results[ResultSubtitles]; ok {
		input.Subtitles = &subs
	}

	final, err := e.executors.Export.Compile(stageCtx, input, job.ID)
	if err != nil {
		return err
	}
	job.AddResult(ResultFinal, final)
	job.SetProgress(100)

	logger.Info("final video compiled",
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String(logging.FieldStage, string(queue.StageCompiling)))
	return e.store.UpdateJob(ctx, job)
}

// fail marks the job failed and persists it. The originating error is always
// returned so batch bookkeeping sees the failure even if the persist also
// fails.
func (e *Engine) fail(ctx context.Context, job *queue.Job, logger *slog.Logger, cause error) error {
	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldStage, string(job.Stage)),
		logging.Error(cause))

	job.SetFailed(services.Message(cause), time.Now().UTC())
	if err := e.store.UpdateJob(ctx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	return cause
}

// stageContext annotates the context with the stage name and applies a
// per-stage deadline; zero seconds means no deadline.
func stageContext(ctx context.Context, stage queue.Stage, seconds int) (context.Context, context.CancelFunc) {
	ctx = services.WithStage(ctx, string(stage))
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
