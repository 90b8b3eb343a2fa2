// Package data provides Postgres-backed repositories for rowboat.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rowboat-io/rowboat/internal/data/pgxutil"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// ExportRepo provides database operations for export definitions.
type ExportRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewExportRepo creates an ExportRepo with the given database connection.
func NewExportRepo(db *sql.DB) *ExportRepo {
	return &ExportRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewExportRepoWithTimeProvider creates an ExportRepo with a custom
// TimeProvider (useful for testing).
func NewExportRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ExportRepo {
	return &ExportRepo{DB: db, timeProvider: tp}
}

const exportColumns = `
  id,
  name,
  query,
  sink_type,
  format,
  filename,
  schedule,
  transform,
  enabled,
  last_run_at,
  created_at,
  updated_at
`

// List returns all export definitions ordered by name.
func (r *ExportRepo) List(ctx context.Context) ([]model.Export, error) {
	return r.collect(ctx, `SELECT `+exportColumns+` FROM exports ORDER BY name ASC`)
}

// ListEnabled returns enabled export definitions ordered by name.
func (r *ExportRepo) ListEnabled(ctx context.Context) ([]model.Export, error) {
	return r.collect(ctx, `SELECT `+exportColumns+` FROM exports WHERE enabled ORDER BY name ASC`)
}

// collect runs a query through the pgx bridge and maps rows with pgx v5
// generics.
func (r *ExportRepo) collect(ctx context.Context, query string, args ...any) ([]model.Export, error) {
	var exports []model.Export
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, query, args...)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, rowToExport)
		if collectErr != nil {
			return collectErr
		}
		exports = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", apperrors.MapDBError(err))
	}
	return exports, nil
}

// GetByName fetches a single export definition by its unique name.
func (r *ExportRepo) GetByName(ctx context.Context, name string) (*model.Export, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE name = $1`, name)

	export, err := scanExport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundf("export %q not found", name)
		}
		return nil, fmt.Errorf("get export %q: %w", name, apperrors.MapDBError(err))
	}
	return &export, nil
}

// Upsert creates or updates an export definition identified by name. An
// update preserves last_run_at so the schedule does not re-fire.
func (r *ExportRepo) Upsert(ctx context.Context, e *model.Export) (*model.Export, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO exports (id, name, query, sink_type, format, filename, schedule, transform, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (name) DO UPDATE SET
			query = EXCLUDED.query,
			sink_type = EXCLUDED.sink_type,
			format = EXCLUDED.format,
			filename = EXCLUDED.filename,
			schedule = EXCLUDED.schedule,
			transform = EXCLUDED.transform,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
		RETURNING `+exportColumns,
		id, e.Name, e.Query, string(e.SinkType), string(e.Format),
		e.OutputFilename(), e.Schedule, e.Transform, e.Enabled, now)

	export, err := scanExport(row)
	if err != nil {
		return nil, fmt.Errorf("upsert export %q: %w", e.Name, apperrors.MapDBError(err))
	}
	return &export, nil
}

// Delete removes an export definition by name. Returns true if a row was
// deleted.
func (r *ExportRepo) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM exports WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete export %q: %w", name, apperrors.MapDBError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Claim marks an export as run at ranAt, but only if last_run_at still
// matches prev. Return semantics:
//   - (true, nil): this runner owns the firing
//   - (false, nil): another runner claimed it first
//   - (false, err): update failed
func (r *ExportRepo) Claim(ctx context.Context, id string, ranAt time.Time, prev *time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE exports
		SET last_run_at = $2, updated_at = $3
		WHERE id = $1 AND last_run_at IS NOT DISTINCT FROM $4`,
		id, ranAt.UTC(), r.timeProvider.Now().UTC(), nullableTime(prev))
	if err != nil {
		return false, fmt.Errorf("claim export: %w", apperrors.MapDBError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return affected > 0, nil
}

// TryWithExportLock attempts a transaction-scoped advisory lock keyed by the
// FNV-1a hash of the export name, holding it for the duration of fn. Return
// semantics:
//   - (false, nil): lock not acquired; fn was not executed
//   - (true, nil): lock acquired; fn executed and succeeded
//   - (true, err): lock acquired; fn executed and failed with err
func (r *ExportRepo) TryWithExportLock(
	ctx context.Context,
	name string,
	fn func(context.Context) error,
) (bool, error) {
	lockKey := fnvHash(name)

	var locked bool
	var fnErr error

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1)", lockKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock for export %s: %w", name, err)
			}
			if !locked {
				return nil
			}
			// Commit regardless of fn's result; fnErr is surfaced separately.
			fnErr = fn(ctx)
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return locked, fnErr
}

// fnvHash computes the FNV-1a 64-bit hash of s, constrained into the BIGINT
// range advisory locks accept.
func fnvHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	u := h.Sum64()
	if u > uint64(math.MaxInt64) {
		u %= uint64(math.MaxInt64)
	}
	return int64(u) // #nosec G115 -- bounded to <= MaxInt64 above.
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// exportRow matches the exports table schema, letting pgx.RowToStructByName
// do the mapping.
type exportRow struct {
	ID        string       `db:"id"`
	Name      string       `db:"name"`
	Query     string       `db:"query"`
	SinkType  string       `db:"sink_type"`
	Format    string       `db:"format"`
	Filename  string       `db:"filename"`
	Schedule  string       `db:"schedule"`
	Transform string       `db:"transform"`
	Enabled   bool         `db:"enabled"`
	LastRunAt sql.NullTime `db:"last_run_at"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func (row *exportRow) toModel() model.Export {
	e := model.Export{
		ID:        row.ID,
		Name:      row.Name,
		Query:     row.Query,
		SinkType:  model.SinkType(row.SinkType),
		Format:    model.Format(row.Format),
		Filename:  row.Filename,
		Schedule:  row.Schedule,
		Transform: row.Transform,
		Enabled:   row.Enabled,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.LastRunAt.Valid {
		t := row.LastRunAt.Time
		e.LastRunAt = &t
	}
	return e
}

func rowToExport(row pgx.CollectableRow) (model.Export, error) {
	dbRow, err := pgx.RowToStructByName[exportRow](row)
	if err != nil {
		return model.Export{}, fmt.Errorf("scan export row: %w", err)
	}
	return dbRow.toModel(), nil
}

// scanExport scans a database/sql row into a model.Export.
func scanExport(row *sql.Row) (model.Export, error) {
	var dbRow exportRow
	err := row.Scan(
		&dbRow.ID,
		&dbRow.Name,
		&dbRow.Query,
		&dbRow.SinkType,
		&dbRow.Format,
		&dbRow.Filename,
		&dbRow.Schedule,
		&dbRow.Transform,
		&dbRow.Enabled,
		&dbRow.LastRunAt,
		&dbRow.CreatedAt,
		&dbRow.UpdatedAt,
	)
	if err != nil {
		return model.Export{}, err
	}
	return dbRow.toModel(), nil
}
