package queue

import (
	"strings"
	"time"
)

// Status represents the batch-level lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions occur for the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Stage identifies a job's position in the render pipeline.
type Stage string

const (
	StageStarted             Stage = "started"
	StageProcessingVideo     Stage = "processing_video"
	StageGeneratingTTS       Stage = "generating_tts"
	StageGeneratingSubtitles Stage = "generating_subtitles"
	StageCompiling           Stage = "compiling"
	StageCompleted           Stage = "completed"
	StageFailed              Stage = "failed"
)

// IsTerminal reports whether the stage is COMPLETED or FAILED.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// BatchKind distinguishes full-pipeline batches from export-only batches.
type BatchKind string

const (
	KindPipeline BatchKind = "pipeline"
	KindExport   BatchKind = "export"
)

// BatchStatus represents the lifecycle of a batch.
type BatchStatus string

const (
	BatchQueued              BatchStatus = "queued"
	BatchProcessing          BatchStatus = "processing"
	BatchCompleted           BatchStatus = "completed"
	BatchCompletedWithErrors BatchStatus = "completed_with_errors"
	BatchCancelled           BatchStatus = "cancelled"
)

// IsTerminal reports whether no further transitions occur for the batch status.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchCompleted, BatchCompletedWithErrors, BatchCancelled:
		return true
	default:
		return false
	}
}

// Artifact is an opaque reference to a stage output. The orchestration core
// never inspects it beyond passing it to the next stage.
type Artifact struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Options carries the per-request feature flags. GenerateSubtitles and
// SpeedRamp default to enabled when unset; the pointer distinguishes "unset"
// from an explicit false.
type Options struct {
	GenerateSubtitles  *bool `json:"generateSubtitles,omitempty"`
	SpeedRamp          *bool `json:"speedRamp,omitempty"`
	AddProgressBar     bool  `json:"addProgressBar,omitempty"`
	PartBadge          bool  `json:"partBadge,omitempty"`
	AudioNormalization bool  `json:"audioNormalization,omitempty"`
}

// SubtitlesEnabled reports the effective subtitle flag (default true).
func (o Options) SubtitlesEnabled() bool {
	return o.GenerateSubtitles == nil || *o.GenerateSubtitles
}

// SpeedRampEnabled reports the effective speed ramp flag (default true).
func (o Options) SpeedRampEnabled() bool {
	return o.SpeedRamp == nil || *o.SpeedRamp
}

// Request is the immutable snapshot of a render job's inputs. Script holds
// the narration text; when empty, Topic and Genre drive script generation
// before video processing starts.
type Request struct {
	Script       string  `json:"script,omitempty"`
	Topic        string  `json:"topic,omitempty"`
	Genre        string  `json:"genre,omitempty"`
	BackgroundID string  `json:"backgroundId"`
	Voice        string  `json:"voice"`
	Preset       string  `json:"preset"`
	Options      Options `json:"options"`
}

// ExportSpec describes one item of an export-only batch: an already-produced
// video re-encoded to a target format and preset.
type ExportSpec struct {
	VideoID string `json:"videoId"`
	Format  string `json:"format,omitempty"`
	Preset  string `json:"preset,omitempty"`
}

// Job represents one request's end-to-end run through the pipeline.
type Job struct {
	ID           string
	BatchID      string
	Status       Status
	Stage        Stage
	Progress     int
	Attempts     int
	Request      Request
	Export       *ExportSpec
	Results      map[string]Artifact
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// SetStage records entry into a pipeline stage at the given progress
// checkpoint. Progress never decreases within a job's lifetime.
func (j *Job) SetStage(stage Stage, progress int) {
	j.Stage = stage
	j.SetProgress(progress)
}

// SetProgress advances progress, ignoring regressions.
func (j *Job) SetProgress(progress int) {
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
}

// AddResult records a stage output under its result key. Results are never
// removed once set.
func (j *Job) AddResult(key string, artifact Artifact) {
	if j.Results == nil {
		j.Results = make(map[string]Artifact)
	}
	j.Results[key] = artifact
}

// SetCompleted marks the job terminally successful.
func (j *Job) SetCompleted(now time.Time) {
	j.Status = StatusCompleted
	j.Stage = StageCompleted
	j.Progress = 100
	j.ErrorMessage = ""
	j.CompletedAt = &now
}

// SetFailed marks the job terminally failed with the given error message.
func (j *Job) SetFailed(message string, now time.Time) {
	j.Status = StatusFailed
	j.Stage = StageFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
}

// IsTerminal reports whether the job reached COMPLETED, FAILED, or was cancelled.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Batch is a set of jobs submitted and tracked together.
type Batch struct {
	ID            string
	Kind          BatchKind
	Status        BatchStatus
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time

	// Jobs is populated by GetBatch; ordered by creation.
	Jobs []*Job
}
