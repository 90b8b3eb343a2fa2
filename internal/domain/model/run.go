package model

import "time"

// RunStatus is the terminal state of a single export run.
type RunStatus string

const (
	// RunStatusSuccess means the payload reached the sink.
	RunStatusSuccess RunStatus = "success"
	// RunStatusSinkError means extraction, encoding, or delivery failed.
	// Sink errors never propagate to the scheduler; they end the run.
	RunStatusSinkError RunStatus = "sink_error"
)

// Run records one completed export run.
type Run struct {
	ID         string    `json:"id"`
	ExportID   string    `json:"export_id"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	Rows       int       `json:"rows"`
	Bytes      int       `json:"bytes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded reports whether the run delivered its payload.
func (r *Run) Succeeded() bool {
	return r != nil && r.Status == RunStatusSuccess
}

// Duration returns the wall-clock duration of the run.
func (r *Run) Duration() time.Duration {
	if r == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
