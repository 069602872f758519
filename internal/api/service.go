package api

import (
	"context"

	"clipforge/internal/queue"
	"clipforge/internal/rendercache"
	"clipforge/internal/services"
)

// Scheduler abstracts the batch runner operations the API exposes.
type Scheduler interface {
	SubmitJob(ctx context.Context, req queue.Request) (*queue.Job, error)
	CreateBatch(ctx context.Context, requests []queue.Request) (*queue.Batch, error)
	CreateExportBatch(ctx context.Context, specs []queue.ExportSpec) (*queue.Batch, error)
	Cancel(ctx context.Context, batchID string) (*queue.Batch, error)
	RetryFailed(ctx context.Context, batchID string) (*queue.Batch, error)
	Delete(ctx context.Context, batchID string) error
}

// Reader abstracts queue persistence interactions needed for API queries.
type Reader interface {
	GetJob(ctx context.Context, id string) (*queue.Job, error)
	ListJobs(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	GetBatch(ctx context.Context, id string) (*queue.Batch, error)
	ListBatches(ctx context.Context, offset, limit int) ([]*queue.Batch, int, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// ResultCache abstracts the cache introspection operations.
type ResultCache interface {
	Stats() rendercache.Stats
	Clear() error
}

// Service exposes scheduler and store operations returning API DTOs.
type Service struct {
	scheduler Scheduler
	reader    Reader
	cache     ResultCache
}

// NewService constructs a Service around the provided dependencies. cache may
// be nil when result caching is disabled.
func NewService(scheduler Scheduler, reader Reader, cache ResultCache) *Service {
	return &Service{scheduler: scheduler, reader: reader, cache: cache}
}

// SubmitJob queues a single render job.
func (s *Service) SubmitJob(ctx context.Context, req queue.Request) (JobView, error) {
	job, err := s.scheduler.SubmitJob(ctx, req)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// DescribeJob fetches one job.
func (s *Service) DescribeJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.reader.GetJob(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	if job == nil {
		return JobView{}, services.Wrap(services.ErrNotFound, "api", "job", "job "+id+" not found", nil)
	}
	return FromJob(job), nil
}

// ListJobs returns jobs filtered by status.
func (s *Service) ListJobs(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	jobs, err := s.reader.ListJobs(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// CreateBatch queues a render batch.
func (s *Service) CreateBatch(ctx context.Context, requests []queue.Request) (BatchView, error) {
	batch, err := s.scheduler.CreateBatch(ctx, requests)
	if err != nil {
		return BatchView{}, err
	}
	return FromBatch(batch), nil
}

// CreateExportBatch queues an export batch.
func (s *Service) CreateExportBatch(ctx context.Context, specs []queue.ExportSpec) (BatchView, error) {
	batch, err := s.scheduler.CreateExportBatch(ctx, specs)
	if err != nil {
		return BatchView{}, err
	}
	return FromBatch(batch), nil
}

// DescribeBatch fetches one batch with its jobs.
func (s *Service) DescribeBatch(ctx context.Context, id string) (BatchView, error) {
	batch, err := s.reader.GetBatch(ctx, id)
	if err != nil {
		return BatchView{}, err
	}
	if batch == nil {
		return BatchView{}, services.Wrap(services.ErrNotFound, "api", "batch", "batch "+id+" not found", nil)
	}
	return FromBatch(batch), nil
}

// ListBatches returns a page of batches with the overall total.
func (s *Service) ListBatches(ctx context.Context, offset, limit int) ([]BatchView, int, error) {
	batches, total, err := s.reader.ListBatches(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return FromBatches(batches), total, nil
}

// CancelBatch stops a batch.
func (s *Service) CancelBatch(ctx context.Context, id string) (BatchView, error) {
	batch, err := s.scheduler.Cancel(ctx, id)
	if err != nil {
		return BatchView{}, err
	}
	return FromBatch(batch), nil
}

// RetryBatch requeues a batch's failed jobs.
func (s *Service) RetryBatch(ctx context.Context, id string) (BatchView, error) {
	batch, err := s.scheduler.RetryFailed(ctx, id)
	if err != nil {
		return BatchView{}, err
	}
	return FromBatch(batch), nil
}

// DeleteBatch removes a terminal batch.
func (s *Service) DeleteBatch(ctx context.Context, id string) error {
	return s.scheduler.Delete(ctx, id)
}

// JobStats returns status counters for all jobs.
func (s *Service) JobStats(ctx context.Context) (map[string]int, error) {
	stats, err := s.reader.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeJobStats(stats), nil
}

// CacheStats reports result cache counters. Returns zeroes when caching is
// disabled.
func (s *Service) CacheStats() CacheStatsView {
	if s.cache == nil {
		return CacheStatsView{}
	}
	stats := s.cache.Stats()
	return CacheStatsView{Entries: stats.Entries, Hits: stats.Hits, Misses: stats.Misses}
}

// ClearCache drops every cache entry.
func (s *Service) ClearCache() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear()
}
