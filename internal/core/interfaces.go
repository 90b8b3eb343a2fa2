// Package core defines the ports between rowboat's service layer and its
// adapters. Services depend on these interfaces, not on concrete
// implementations.
package core

import (
	"context"
	"time"

	"github.com/rowboat-io/rowboat/internal/domain/model"
)

// ExportRepository defines the interface for export definition storage.
type ExportRepository interface {
	List(ctx context.Context) ([]model.Export, error)
	ListEnabled(ctx context.Context) ([]model.Export, error)
	GetByName(ctx context.Context, name string) (*model.Export, error)
	Upsert(ctx context.Context, e *model.Export) (*model.Export, error)
	Delete(ctx context.Context, name string) (bool, error)

	// Claim marks the export as run at ranAt if last_run_at still matches
	// prev. Returns false when another runner claimed the firing first.
	Claim(ctx context.Context, id string, ranAt time.Time, prev *time.Time) (bool, error)
}

// RunRepository defines the interface for run history storage.
type RunRepository interface {
	Insert(ctx context.Context, run *model.Run) error
	Recent(ctx context.Context, limit int) ([]model.Run, error)
	RecentByExport(ctx context.Context, exportID string, limit int) ([]model.Run, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// RowFetcher executes an export query and returns the materialized rows.
type RowFetcher interface {
	Fetch(ctx context.Context, query string) (*model.RowSet, error)
}

// RunLocker coordinates run exclusion across replicas.
type RunLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}
