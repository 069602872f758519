package queue

import (
	"context"
	"fmt"
	"time"
)

// PurgeOlderThan removes terminal standalone jobs and terminal batches (with
// their jobs) that completed before the cutoff. Returns how many jobs were
// removed. In-flight work is never touched.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	boundary := formatTime(cutoff)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`DELETE FROM jobs WHERE batch_id IS NULL
           AND status IN (?, ?, ?)
           AND completed_at IS NOT NULL AND completed_at < ?`,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
		boundary,
	)
	if err != nil {
		return 0, fmt.Errorf("purge standalone jobs: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	rows, err := tx.QueryContext(
		ctx,
		`SELECT id FROM batches WHERE status IN (?, ?, ?)
           AND completed_at IS NOT NULL AND completed_at < ?`,
		BatchCompleted,
		BatchCompletedWithErrors,
		BatchCancelled,
		boundary,
	)
	if err != nil {
		return 0, fmt.Errorf("select stale batches: %w", err)
	}
	var staleIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan stale batch: %w", err)
		}
		staleIDs = append(staleIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate stale batches: %w", err)
	}

	for _, id := range staleIDs {
		res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE batch_id = ?`, id)
		if err != nil {
			return 0, fmt.Errorf("purge batch jobs: %w", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		purged += count
		if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("purge batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge tx: %w", err)
	}
	return purged, nil
}
