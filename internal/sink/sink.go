// Package sink delivers serialized export payloads to their destinations.
package sink

import (
	"context"
	"fmt"

	"github.com/rowboat-io/rowboat/internal/domain/model"
)

// Payload is a serialized document ready for delivery.
type Payload struct {
	// Filename names the remote file for file-transfer sinks. HTTP sinks
	// ignore it.
	Filename string
	Data     []byte
}

// Outcome is the explicit result of a delivery attempt. Sink failures are a
// value, not an error: the exporter records them and completes the run
// without propagating anything to the scheduler.
type Outcome struct {
	Status      model.RunStatus
	Description string
}

// Failed reports whether the delivery did not reach the sink.
func (o Outcome) Failed() bool {
	return o.Status != model.RunStatusSuccess
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{Status: model.RunStatusSuccess}
}

// Failure returns a sink-error outcome describing the failed operation.
func Failure(op string, err error) Outcome {
	return Outcome{
		Status:      model.RunStatusSinkError,
		Description: fmt.Sprintf("%s: %v", op, err),
	}
}

// Failuref returns a sink-error outcome with a formatted description.
func Failuref(format string, args ...any) Outcome {
	return Outcome{
		Status:      model.RunStatusSinkError,
		Description: fmt.Sprintf(format, args...),
	}
}

// Sink is a delivery destination for export payloads. Deliver makes exactly
// one attempt; retry policy belongs to callers, and rowboat's policy is no
// retries.
type Sink interface {
	Kind() model.SinkType
	Deliver(ctx context.Context, p Payload) Outcome
}
