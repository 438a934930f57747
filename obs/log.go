package obs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing one line per event to writer:
// text mode is human-readable key=value pairs, JSON mode is one JSON
// object per line.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter wraps writer. A nil writer defaults to os.Stdout.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit implements Emitter.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

// EmitBatch implements Emitter, writing every event in order.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush implements Emitter. LogEmitter writes synchronously and buffers
// nothing of its own, so there is nothing to flush.
func (l *LogEmitter) Flush(_ context.Context) error {
	return nil
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		ThreadID string         `json:"thread_id"`
		Step     int            `json:"step"`
		NodeID   string         `json:"node_id"`
		Msg      string         `json:"msg"`
		Meta     map[string]any `json:"meta,omitempty"`
	}{
		ThreadID: event.ThreadID,
		Step:     event.Step,
		NodeID:   event.NodeID,
		Msg:      event.Msg,
		Meta:     event.Meta,
	})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] thread_id=%s step=%d node_id=%s",
		event.Msg, event.ThreadID, event.Step, event.NodeID)
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}
