package api

import (
	"time"

	"clipforge/internal/queue"
)

// FromJob converts a job record to its API representation.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}

	view := JobView{
		ID:           job.ID,
		BatchID:      job.BatchID,
		Status:       string(job.Status),
		Stage:        string(job.Stage),
		Progress:     job.Progress,
		Attempts:     job.Attempts,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    formatTimestamp(job.CreatedAt),
		UpdatedAt:    formatTimestamp(job.UpdatedAt),
		StartedAt:    formatTimestampPtr(job.StartedAt),
		CompletedAt:  formatTimestampPtr(job.CompletedAt),
	}
	if len(job.Results) > 0 {
		view.Results = make(map[string]ArtifactView, len(job.Results))
		for key, artifact := range job.Results {
			view.Results[key] = ArtifactView{ID: artifact.ID, Path: artifact.Path}
		}
	}
	if job.Status.IsTerminal() {
		meta := &JobMetadataView{
			Voice:        job.Request.Voice,
			Preset:       job.Request.Preset,
			HasSubtitles: job.Request.Options.SubtitlesEnabled(),
		}
		if job.StartedAt != nil && job.CompletedAt != nil {
			meta.DurationSeconds = job.CompletedAt.Sub(*job.StartedAt).Seconds()
		}
		view.Metadata = meta
	}
	return view
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(jobs []*queue.Job) []JobView {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromBatch converts a batch record, including any loaded jobs.
func FromBatch(batch *queue.Batch) BatchView {
	if batch == nil {
		return BatchView{}
	}
	return BatchView{
		ID:            batch.ID,
		Kind:          string(batch.Kind),
		Status:        string(batch.Status),
		TotalJobs:     batch.TotalJobs,
		CompletedJobs: batch.CompletedJobs,
		FailedJobs:    batch.FailedJobs,
		CreatedAt:     formatTimestamp(batch.CreatedAt),
		UpdatedAt:     formatTimestamp(batch.UpdatedAt),
		StartedAt:     formatTimestampPtr(batch.StartedAt),
		CompletedAt:   formatTimestampPtr(batch.CompletedAt),
		Jobs:          FromJobs(batch.Jobs),
	}
}

// FromBatches converts a slice of batch records.
func FromBatches(batches []*queue.Batch) []BatchView {
	if len(batches) == 0 {
		return nil
	}
	out := make([]BatchView, 0, len(batches))
	for _, batch := range batches {
		out = append(out, FromBatch(batch))
	}
	return out
}

// MergeJobStats normalizes store counters to a string-keyed map covering
// every known status.
func MergeJobStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

func formatTimestampPtr(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return formatTimestamp(*ts)
}
