package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const batchColumns = `id, kind, status, total_jobs, completed_jobs, failed_jobs,
	created_at, updated_at, started_at, completed_at`

// NewBatch transactionally inserts a pipeline batch wrapping each request as
// a pending job.
func (s *Store) NewBatch(ctx context.Context, requests []Request) (*Batch, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("batch requires at least one request")
	}
	jobs := make([]*Job, 0, len(requests))
	for _, req := range requests {
		jobs = append(jobs, &Job{Request: req})
	}
	return s.insertBatch(ctx, KindPipeline, jobs)
}

// NewExportBatch transactionally inserts an export batch wrapping each spec
// as a pending job.
func (s *Store) NewExportBatch(ctx context.Context, specs []ExportSpec) (*Batch, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("export batch requires at least one item")
	}
	jobs := make([]*Job, 0, len(specs))
	for i := range specs {
		spec := specs[i]
		jobs = append(jobs, &Job{Export: &spec})
	}
	return s.insertBatch(ctx, KindExport, jobs)
}

func (s *Store) insertBatch(ctx context.Context, kind BatchKind, jobs []*Job) (*Batch, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	batch := &Batch{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    BatchQueued,
		TotalJobs: len(jobs),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO batches (id, kind, status, total_jobs, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Kind,
		batch.Status,
		batch.TotalJobs,
		formatTime(batch.CreatedAt),
		formatTime(batch.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	for _, job := range jobs {
		job.ID = uuid.NewString()
		job.BatchID = batch.ID
		job.Status = StatusPending
		job.Stage = StageStarted
		job.CreatedAt = now
		job.UpdatedAt = now
		if err := s.insertJob(ctx, tx, job); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return s.GetBatch(ctx, batch.ID)
}

// GetBatch fetches a batch with its jobs. Returns nil when the id is unknown.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	batch.Jobs, err = s.JobsForBatch(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ListBatches returns batches newest first with offset/limit pagination and
// the total row count. A non-positive limit returns everything after offset.
func (s *Store) ListBatches(ctx context.Context, offset, limit int) ([]*Batch, int, error) {
	ctx = ensureContext(ctx)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM batches`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, batch)
	}
	return batches, total, rows.Err()
}

// UpdateBatchStatus records a batch status transition with its timestamps.
func (s *Store) UpdateBatchStatus(ctx context.Context, id string, status BatchStatus) error {
	now := time.Now().UTC()
	query := `UPDATE batches SET status = ?, updated_at = ?`
	args := []any{status, formatTime(now)}
	switch status {
	case BatchProcessing:
		query += `, started_at = COALESCE(started_at, ?)`
		args = append(args, formatTime(now))
	case BatchCompleted, BatchCompletedWithErrors, BatchCancelled:
		query += `, completed_at = ?`
		args = append(args, formatTime(now))
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s not found", id)
	}
	return nil
}

// IncrementBatchCompleted atomically bumps the completed counter. Counter
// updates never read-modify-write through Go so concurrent job goroutines
// cannot race.
func (s *Store) IncrementBatchCompleted(ctx context.Context, id string) error {
	return s.incrementBatchCounter(ctx, id, "completed_jobs")
}

// IncrementBatchFailed atomically bumps the failed counter.
func (s *Store) IncrementBatchFailed(ctx context.Context, id string) error {
	return s.incrementBatchCounter(ctx, id, "failed_jobs")
}

func (s *Store) incrementBatchCounter(ctx context.Context, id, column string) error {
	query := fmt.Sprintf(
		`UPDATE batches SET %s = %s + 1, updated_at = ? WHERE id = ?`,
		column, column,
	)
	if _, err := s.execWithRetry(ctx, query, formatTime(time.Now().UTC()), id); err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	return nil
}

// ResetFailedJobs returns a batch's failed jobs to pending, clears their
// errors, and zeroes the failed counter. Returns how many jobs were reset.
func (s *Store) ResetFailedJobs(ctx context.Context, batchID string) (int64, error) {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin retry tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now().UTC())
	res, err := tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, stage = ?, error_message = NULL,
            completed_at = NULL, updated_at = ?
         WHERE batch_id = ? AND status = ?`,
		StatusPending,
		StageStarted,
		now,
		batchID,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("reset failed jobs: %w", err)
	}
	reset, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE batches SET failed_jobs = 0, updated_at = ? WHERE id = ?`,
		now,
		batchID,
	); err != nil {
		return 0, fmt.Errorf("zero failed counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit retry tx: %w", err)
	}
	return reset, nil
}

// CancelOpenJobs marks a batch's pending and processing jobs cancelled.
// Processing jobs are marked but their in-flight external invocations are
// only interrupted cooperatively through context cancellation.
func (s *Store) CancelOpenJobs(ctx context.Context, batchID string) (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, updated_at = ?
         WHERE batch_id = ? AND status IN (?, ?)`,
		StatusCancelled,
		now,
		now,
		batchID,
		StatusPending,
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel open jobs: %w", err)
	}
	return res.RowsAffected()
}

// DeleteBatch removes a batch and, via the cascade, its jobs.
func (s *Store) DeleteBatch(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanBatch(row rowScanner) (*Batch, error) {
	var (
		batch       Batch
		createdAt   string
		updatedAt   string
		startedAt   sql.NullString
		completedAt sql.NullString
	)
	err := row.Scan(
		&batch.ID,
		&batch.Kind,
		&batch.Status,
		&batch.TotalJobs,
		&batch.CompletedJobs,
		&batch.FailedJobs,
		&createdAt,
		&updatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	if batch.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if batch.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if batch.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if batch.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	return &batch, nil
}
