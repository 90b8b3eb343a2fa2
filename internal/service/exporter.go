// Package service provides the business logic for rowboat exports.
package service

import (
	"context"
	"log/slog"

	"github.com/rowboat-io/rowboat/internal/core"
	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	"github.com/rowboat-io/rowboat/internal/payload"
	"github.com/rowboat-io/rowboat/internal/sink"
)

// ExporterService executes export runs: fetch rows, encode the payload, and
// deliver it to the configured sink. Every failure along the way ends the run
// with a sink_error status; Run never returns an error because run failures
// are recorded, not propagated.
type ExporterService struct {
	rows         core.RowFetcher
	sinks        map[model.SinkType]sink.Sink
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// ExporterServiceOptions holds the dependencies for creating an ExporterService.
type ExporterServiceOptions struct {
	Rows         core.RowFetcher
	Sinks        []sink.Sink
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// NewExporterService creates an ExporterService with the given options.
func NewExporterService(opts ExporterServiceOptions) *ExporterService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sinks := make(map[model.SinkType]sink.Sink, len(opts.Sinks))
	for _, s := range opts.Sinks {
		if s != nil {
			sinks[s.Kind()] = s
		}
	}

	return &ExporterService{
		rows:         opts.Rows,
		sinks:        sinks,
		timeProvider: opts.TimeProvider,
		logger:       opts.Logger,
	}
}

// Run executes one export end to end and returns the completed run record.
func (s *ExporterService) Run(ctx context.Context, e model.Export) model.Run {
	started := s.timeProvider.Now().UTC()
	logger := s.logger.With("export", e.Name, "sink", string(e.SinkType), "format", string(e.Format))

	run := model.Run{
		ExportID:  e.ID,
		StartedAt: started,
	}

	outcome, rows, bytes := s.execute(ctx, logger, e)
	run.Status = outcome.Status
	run.Error = outcome.Description
	run.Rows = rows
	run.Bytes = bytes
	run.FinishedAt = s.timeProvider.Now().UTC()

	if outcome.Failed() {
		logger.ErrorContext(ctx, "export run failed",
			"error", outcome.Description,
			"duration", run.Duration())
	} else {
		logger.InfoContext(ctx, "export run complete",
			"rows", rows,
			"bytes", bytes,
			"duration", run.Duration())
	}
	return run
}

func (s *ExporterService) execute(
	ctx context.Context,
	logger *slog.Logger,
	e model.Export,
) (outcome sink.Outcome, rows, bytes int) {
	dest, ok := s.sinks[e.SinkType]
	if !ok {
		return sink.Failuref("no %s sink configured", e.SinkType), 0, 0
	}

	rs, err := s.rows.Fetch(ctx, e.Query)
	if err != nil {
		return sink.Failure("run query", err), 0, 0
	}
	logger.DebugContext(ctx, "rows fetched", "rows", rs.Len())

	data, err := s.encode(e, rs)
	if err != nil {
		return sink.Failure("encode payload", err), rs.Len(), 0
	}

	outcome = dest.Deliver(ctx, sink.Payload{
		Filename: e.OutputFilename(),
		Data:     data,
	})
	return outcome, rs.Len(), len(data)
}

func (s *ExporterService) encode(e model.Export, rs *model.RowSet) ([]byte, error) {
	if e.Format == model.FormatJSON && e.Transform != "" {
		return payload.EncodeJSONTransformed(e.Transform, rs)
	}
	return payload.Encode(e.Format, rs)
}
