package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rowboat-io/rowboat/internal/domain/model"
	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// RunRepo records completed export runs.
type RunRepo struct {
	DB *sql.DB
}

// NewRunRepo creates a RunRepo with the given database connection.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{DB: db}
}

// Insert stores a completed run. The run's ID is assigned if empty.
func (r *RunRepo) Insert(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO export_runs (id, export_id, status, error, row_count, byte_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.ExportID, string(run.Status), run.Error,
		run.Rows, run.Bytes, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert export run: %w", apperrors.MapDBError(err))
	}
	return nil
}

const runColumns = `id, export_id, status, error, row_count, byte_count, started_at, finished_at`

// Recent returns the most recent runs across all exports, newest first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM export_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", apperrors.MapDBError(err))
	}
	return collectRuns(rows)
}

// RecentByExport returns the most recent runs for one export, newest first.
func (r *RunRepo) RecentByExport(ctx context.Context, exportID string, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM export_runs
		WHERE export_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, exportID, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs for export %s: %w", exportID, apperrors.MapDBError(err))
	}
	return collectRuns(rows)
}

// Prune deletes run records that finished before the cutoff. Returns the
// number of rows deleted.
func (r *RunRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM export_runs WHERE finished_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune export runs: %w", apperrors.MapDBError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return affected, nil
}

func collectRuns(rows *sql.Rows) ([]model.Run, error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			// best-effort close
			_ = closeErr
		}
	}()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var status string
		if err := rows.Scan(
			&run.ID,
			&run.ExportID,
			&status,
			&run.Error,
			&run.Rows,
			&run.Bytes,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export run: %w", err)
		}
		run.Status = model.RunStatus(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export runs: %w", err)
	}
	return runs, nil
}
