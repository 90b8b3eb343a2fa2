package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rowboat-io/rowboat/internal/domain/model"
	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// RowSource executes export queries and materializes the results as ordered
// row sets. Column order follows the query's select list.
type RowSource struct {
	DB      *sql.DB
	Timeout time.Duration
}

// NewRowSource creates a RowSource. A zero timeout means queries run under
// the caller's context only.
func NewRowSource(db *sql.DB, timeout time.Duration) *RowSource {
	return &RowSource{DB: db, Timeout: timeout}
}

// Fetch runs the query and collects every row into memory.
func (s *RowSource) Fetch(ctx context.Context, query string) (*model.RowSet, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run export query: %w", apperrors.MapDBError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			// best-effort close
			_ = closeErr
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	rs := &model.RowSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}

		row := make(model.Row, len(columns))
		for i, col := range columns {
			row[i] = model.Field{Column: col, Value: model.NormalizeScalar(values[i])}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", apperrors.MapDBError(err))
	}
	return rs, nil
}
