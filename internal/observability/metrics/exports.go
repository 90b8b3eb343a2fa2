// Package metrics centralizes metric emission for export runs.
package metrics

import (
	"github.com/rowboat-io/rowboat/internal/domain/model"
	"github.com/rowboat-io/rowboat/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// EmitRun emits the standard metrics for one completed export run.
func EmitRun(sink statsd.Sink, e model.Export, run model.Run) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	if !run.Succeeded() {
		result = ResultError
	}
	tags := map[string]string{
		"export": e.Name,
		"sink":   string(e.SinkType),
		"result": result,
	}

	sink.Count("export.run", 1, tags)
	sink.Count("export.rows", int64(run.Rows), CloneTags(tags))
	sink.Count("export.bytes", int64(run.Bytes), CloneTags(tags))

	if d := run.Duration(); d > 0 {
		sink.Timing("export.duration", d, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
