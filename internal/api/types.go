package api

import "clipforge/internal/deps"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ArtifactView describes a stage output in a transport-friendly format.
type ArtifactView struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// JobMetadataView summarizes a finished job's inputs and runtime.
type JobMetadataView struct {
	Voice           string  `json:"voice,omitempty"`
	Preset          string  `json:"preset,omitempty"`
	HasSubtitles    bool    `json:"hasSubtitles"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// JobView describes one render or export job.
type JobView struct {
	ID           string                  `json:"id"`
	BatchID      string                  `json:"batchId,omitempty"`
	Status       string                  `json:"status"`
	Stage        string                  `json:"stage"`
	Progress     int                     `json:"progress"`
	Attempts     int                     `json:"attempts,omitempty"`
	Results      map[string]ArtifactView `json:"results,omitempty"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
	CreatedAt    string                  `json:"createdAt,omitempty"`
	UpdatedAt    string                  `json:"updatedAt,omitempty"`
	StartedAt    string                  `json:"startedAt,omitempty"`
	CompletedAt  string                  `json:"completedAt,omitempty"`
	Metadata     *JobMetadataView        `json:"metadata,omitempty"`
}

// BatchView describes a batch and optionally its jobs.
type BatchView struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	TotalJobs     int       `json:"totalJobs"`
	CompletedJobs int       `json:"completedJobs"`
	FailedJobs    int       `json:"failedJobs"`
	CreatedAt     string    `json:"createdAt,omitempty"`
	UpdatedAt     string    `json:"updatedAt,omitempty"`
	StartedAt     string    `json:"startedAt,omitempty"`
	CompletedAt   string    `json:"completedAt,omitempty"`
	Jobs          []JobView `json:"jobs,omitempty"`
}

// CacheStatsView reports result cache effectiveness.
type CacheStatsView struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	JobStats     map[string]int `json:"jobStats"`
	Cache        CacheStatsView `json:"cache"`
	Dependencies []deps.Status  `json:"dependencies,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// BatchListResponse wraps a page of batches.
type BatchListResponse struct {
	Batches []BatchView `json:"batches"`
	Total   int         `json:"total"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
}

// BatchResponse wraps a single batch.
type BatchResponse struct {
	Batch BatchView `json:"batch"`
}
