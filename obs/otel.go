package obs

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OtelEmitter implements Emitter by turning each Event into an
// immediately-ended span. A run never holds a node open across a
// goroutine boundary, so there is no in-flight span bookkeeping to
// carry — every Emit call is a single point-in-time span.
type OtelEmitter struct {
	tracer trace.Tracer
}

// NewOtelEmitter wraps tracer (e.g. otel.Tracer("blueprint-go")).
func NewOtelEmitter(tracer trace.Tracer) *OtelEmitter {
	return &OtelEmitter{tracer: tracer}
}

// Emit implements Emitter.
func (o *OtelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()
	o.annotate(span, event)
}

// EmitBatch implements Emitter.
func (o *OtelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.annotate(span, event)
		span.End()
	}
	return nil
}

// Flush implements Emitter, force-flushing the global tracer provider if
// it supports it (a noop provider does not).
func (o *OtelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OtelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("thread_id", event.ThreadID),
		attribute.Int("step", event.Step),
		attribute.String("node_id", event.NodeID),
	)
	for k, v := range event.Meta {
		span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", v)))
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}
