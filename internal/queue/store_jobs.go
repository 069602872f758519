package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, batch_id, status, stage, progress, attempts, request_json,
	export_json, results_json, error_message, created_at, updated_at, started_at, completed_at`

// NewJob inserts a standalone job for the given request.
func (s *Store) NewJob(ctx context.Context, req Request) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Stage:     StageStarted,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.insertJob(ctx, s.db, job); err != nil {
		return nil, err
	}
	return s.GetJob(ctx, job.ID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertJob(ctx context.Context, db execer, job *Job) error {
	ctx = ensureContext(ctx)
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	var exportJSON any
	if job.Export != nil {
		data, err := json.Marshal(job.Export)
		if err != nil {
			return fmt.Errorf("marshal export spec: %w", err)
		}
		exportJSON = string(data)
	}

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, batch_id, status, stage, progress, attempts, request_json,
            export_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		nullableString(job.BatchID),
		job.Status,
		job.Stage,
		job.Progress,
		job.Attempts,
		string(requestJSON),
		exportJSON,
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by id. Returns nil when the id is unknown.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// UpdateJob persists the mutable fields of a job.
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("job must not be nil")
	}
	job.UpdatedAt = time.Now().UTC()

	var resultsJSON any
	if len(job.Results) > 0 {
		data, err := json.Marshal(job.Results)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		resultsJSON = string(data)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, stage = ?, progress = ?, attempts = ?, results_json = ?,
            error_message = ?, updated_at = ?, started_at = ?, completed_at = ?
        WHERE id = ?`,
		job.Status,
		job.Stage,
		job.Progress,
		job.Attempts,
		resultsJSON,
		nullableString(job.ErrorMessage),
		formatTime(job.UpdatedAt),
		formatTimePtr(job.StartedAt),
		formatTimePtr(job.CompletedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

// ListJobs returns jobs filtered by status, oldest first. With no statuses it
// returns every job.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at ASC`
	return s.queryJobs(ctx, query, args...)
}

// JobsForBatch returns a batch's jobs, optionally filtered by status, in
// creation order.
func (s *Store) JobsForBatch(ctx context.Context, batchID string, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE batch_id = ?`
	args := []any{batchID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return s.queryJobs(ctx, query, args...)
}

// Stats returns job counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		batchID     sql.NullString
		requestJSON string
		exportJSON  sql.NullString
		resultsJSON sql.NullString
		errMessage  sql.NullString
		createdAt   string
		updatedAt   string
		startedAt   sql.NullString
		completedAt sql.NullString
	)
	err := row.Scan(
		&job.ID,
		&batchID,
		&job.Status,
		&job.Stage,
		&job.Progress,
		&job.Attempts,
		&requestJSON,
		&exportJSON,
		&resultsJSON,
		&errMessage,
		&createdAt,
		&updatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.BatchID = batchID.String
	job.ErrorMessage = errMessage.String
	if err := json.Unmarshal([]byte(requestJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request for job %s: %w", job.ID, err)
	}
	if exportJSON.Valid && strings.TrimSpace(exportJSON.String) != "" {
		var spec ExportSpec
		if err := json.Unmarshal([]byte(exportJSON.String), &spec); err != nil {
			return nil, fmt.Errorf("unmarshal export spec for job %s: %w", job.ID, err)
		}
		job.Export = &spec
	}
	if resultsJSON.Valid && strings.TrimSpace(resultsJSON.String) != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &job.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results for job %s: %w", job.ID, err)
		}
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
