// Package exporter provides the adapter that runs the export scheduler loop.
package exporter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rowboat-io/rowboat/internal/core"
	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	obserrors "github.com/rowboat-io/rowboat/internal/observability/errors"
	"github.com/rowboat-io/rowboat/internal/observability/metrics"
	"github.com/rowboat-io/rowboat/internal/observability/statsd"
	"github.com/rowboat-io/rowboat/internal/service"
)

// ExportLocker serializes a run with a database-level lock held for the
// duration of fn. It is the exclusion fallback when no distributed run lock
// is configured.
type ExportLocker interface {
	TryWithExportLock(ctx context.Context, name string, fn func(context.Context) error) (bool, error)
}

// Runner drives the export schedule: on each tick it finds due exports,
// claims each firing, and hands it to the exporter service. Run failures are
// recorded in run history; only repository errors surface in logs.
type Runner struct {
	exports  core.ExportRepository
	runs     core.RunRepository
	lock     core.RunLocker
	dbLock   ExportLocker
	exporter *service.ExporterService

	interval      time.Duration
	batchSize     int
	lockTTL       time.Duration
	runRetention  time.Duration
	pruneInterval time.Duration
	lastPrune     time.Time

	timeProvider data.TimeProvider
	logger       *slog.Logger
	metrics      statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Exports  core.ExportRepository
	Runs     core.RunRepository
	Lock     core.RunLocker
	DBLock   ExportLocker
	Exporter *service.ExporterService

	Interval     time.Duration
	BatchSize    int
	LockTTL      time.Duration
	RunRetention time.Duration

	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// NewRunner creates an exporter runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Exports == nil {
		return nil, errors.New("export repository is required")
	}
	if opts.Runs == nil {
		return nil, errors.New("run repository is required")
	}
	if opts.Exporter == nil {
		return nil, errors.New("exporter service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Runner{
		exports:       opts.Exports,
		runs:          opts.Runs,
		lock:          opts.Lock,
		dbLock:        opts.DBLock,
		exporter:      opts.Exporter,
		interval:      opts.Interval,
		batchSize:     opts.BatchSize,
		lockTTL:       opts.LockTTL,
		runRetention:  opts.RunRetention,
		pruneInterval: time.Hour,
		timeProvider:  opts.TimeProvider,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}, nil
}

// Run starts the tick loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting exporter runner", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "exporter runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			now := r.timeProvider.Now().UTC()
			start := time.Now()
			processed, err := r.Tick(ctx, now)
			r.emitTickMetrics(processed, time.Since(start), err)

			if err != nil {
				// Keep ticking; a transient repository error should not
				// stop the schedule.
				r.logger.ErrorContext(ctx, "exporter tick failed", "error", err)
			} else if processed > 0 {
				r.logger.InfoContext(ctx, "exporter tick complete", "exports_run", processed)
			}

			r.maybePrune(ctx, now)
		}
	}
}

// Tick runs every enabled export whose schedule is due at now. Returns the
// number of exports that ran.
//
// Concurrency safety across replicas is layered: the Redis run lock keeps a
// slow export from overlapping itself, and the optimistic Claim update makes
// sure exactly one replica owns each firing.
func (r *Runner) Tick(ctx context.Context, now time.Time) (int, error) {
	enabled, err := r.exports.ListEnabled(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, e := range enabled {
		if processed >= r.batchSize {
			break
		}
		due, dueErr := r.isDue(e, now)
		if dueErr != nil {
			r.logger.WarnContext(ctx, "skipping export with bad schedule",
				"export", e.Name, "schedule", e.Schedule, "error", dueErr)
			continue
		}
		if !due {
			continue
		}
		if r.runExport(ctx, e, now) {
			processed++
		}
	}
	return processed, nil
}

func (r *Runner) isDue(e model.Export, now time.Time) (bool, error) {
	sched, err := model.ParseSchedule(e.Schedule)
	if err != nil {
		return false, err
	}
	return sched.Due(e.LastRunAt, now), nil
}

// runExport takes the run lock and the firing claim, then executes the
// export. Returns true when this runner performed the run. Exclusion uses the
// distributed run lock when one is configured, falling back to the
// database-level export lock otherwise.
func (r *Runner) runExport(ctx context.Context, e model.Export, now time.Time) bool {
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, e.Name, r.lockTTL)
		if err != nil {
			r.logger.ErrorContext(ctx, "run lock unavailable", "export", e.Name, "error", err)
			return false
		}
		if !acquired {
			r.logger.DebugContext(ctx, "export already running elsewhere", "export", e.Name)
			return false
		}
		defer func() {
			if releaseErr := r.lock.Release(ctx, e.Name); releaseErr != nil {
				r.logger.WarnContext(ctx, "run lock release failed",
					"export", e.Name, "error", releaseErr)
			}
		}()
		return r.claimAndRun(ctx, e, now)
	}

	if r.dbLock != nil {
		ran := false
		locked, err := r.dbLock.TryWithExportLock(ctx, e.Name, func(ctx context.Context) error {
			ran = r.claimAndRun(ctx, e, now)
			return nil
		})
		if err != nil {
			r.logger.ErrorContext(ctx, "export lock unavailable", "export", e.Name, "error", err)
			return false
		}
		if !locked {
			r.logger.DebugContext(ctx, "export already running elsewhere", "export", e.Name)
			return false
		}
		return ran
	}

	return r.claimAndRun(ctx, e, now)
}

// claimAndRun claims the firing and, if won, executes the export and records
// the run.
func (r *Runner) claimAndRun(ctx context.Context, e model.Export, now time.Time) bool {
	claimed, err := r.exports.Claim(ctx, e.ID, now, e.LastRunAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "claim failed", "export", e.Name, "error", err)
		return false
	}
	if !claimed {
		r.logger.DebugContext(ctx, "firing claimed by another replica", "export", e.Name)
		return false
	}

	run := r.exporter.Run(ctx, e)
	metrics.EmitRun(r.metrics, e, run)

	if insertErr := r.runs.Insert(ctx, &run); insertErr != nil {
		r.logger.ErrorContext(ctx, "run history insert failed",
			"export", e.Name, "error", insertErr)
	}
	return true
}

func (r *Runner) maybePrune(ctx context.Context, now time.Time) {
	if r.runRetention <= 0 {
		return
	}
	if !r.lastPrune.IsZero() && now.Sub(r.lastPrune) < r.pruneInterval {
		return
	}
	r.lastPrune = now

	pruned, err := r.runs.Prune(ctx, now.Add(-r.runRetention))
	if err != nil {
		r.logger.ErrorContext(ctx, "run history prune failed", "error", err)
		return
	}
	if pruned > 0 {
		r.logger.InfoContext(ctx, "pruned run history", "runs", pruned)
		if r.metrics != nil {
			r.metrics.Count("runs.pruned", pruned, nil)
		}
	}
}

func (r *Runner) emitTickMetrics(processed int, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if processed == 0 {
		result = metrics.ResultNoop
	}
	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("exporter.tick", 1, tags)
	if processed > 0 {
		r.metrics.Count("exporter.exports_run", int64(processed), metrics.CloneTags(tags))
	}
	if elapsed > 0 {
		r.metrics.Timing("exporter.tick_duration", elapsed, metrics.CloneTags(tags))
	}
}
