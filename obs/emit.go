// Package obs provides the ambient observability surface: a pluggable
// Emitter for structured run events and a Prometheus metrics collector,
// trimmed to the events and series this engine's single-threaded step
// loop actually produces (no scheduler queue depth or concurrent merge
// conflicts).
package obs

import "context"

// Emitter receives step-by-step observability events during a run.
// Implementations must not block the step loop; buffer or drop rather
// than stall execution.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}

// Event is one observability record emitted during a run.
type Event struct {
	ThreadID string
	Step     int
	NodeID   string
	Msg      string
	Meta     map[string]any
}

// NopEmitter discards every event, for tests that don't care about
// observability.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
func (NopEmitter) EmitBatch(context.Context, []Event) error { return nil }
func (NopEmitter) Flush(context.Context) error { return nil }
