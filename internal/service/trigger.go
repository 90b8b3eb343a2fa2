package service

import (
	"context"
	"time"

	"github.com/rowboat-io/rowboat/internal/core"
	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// TriggerService runs an export on demand, outside its schedule. Manual runs
// go through the same lock and claim as scheduled ones, so a trigger cannot
// overlap a scheduled firing.
type TriggerService struct {
	exports      core.ExportRepository
	runs         core.RunRepository
	lock         core.RunLocker
	exporter     *ExporterService
	lockTTL      time.Duration
	timeProvider data.TimeProvider
}

// TriggerServiceOptions holds the dependencies for creating a TriggerService.
type TriggerServiceOptions struct {
	Exports      core.ExportRepository
	Runs         core.RunRepository
	Lock         core.RunLocker
	Exporter     *ExporterService
	LockTTL      time.Duration
	TimeProvider data.TimeProvider
}

// NewTriggerService creates a TriggerService with the given options.
func NewTriggerService(opts TriggerServiceOptions) *TriggerService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	return &TriggerService{
		exports:      opts.Exports,
		runs:         opts.Runs,
		lock:         opts.Lock,
		exporter:     opts.Exporter,
		lockTTL:      opts.LockTTL,
		timeProvider: opts.TimeProvider,
	}
}

// TriggerRun executes the named export immediately and records the run.
// A manual run advances last_run_at, so the next scheduled firing counts
// from it.
func (s *TriggerService) TriggerRun(ctx context.Context, name string) (*model.Run, error) {
	e, err := s.exports.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.lock != nil {
		acquired, lockErr := s.lock.Acquire(ctx, e.Name, s.lockTTL)
		if lockErr != nil {
			return nil, lockErr
		}
		if !acquired {
			return nil, apperrors.Conflict("export is already running")
		}
		defer func() {
			_ = s.lock.Release(ctx, e.Name)
		}()
	}

	now := s.timeProvider.Now().UTC()
	claimed, err := s.exports.Claim(ctx, e.ID, now, e.LastRunAt)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperrors.Conflict("export was claimed by a scheduled run")
	}

	run := s.exporter.Run(ctx, *e)
	if insertErr := s.runs.Insert(ctx, &run); insertErr != nil {
		return nil, insertErr
	}
	return &run, nil
}
