// Package tracing turns the lifecycle of tasks into OpenTelemetry spans.
// Every started task gets a span named after the task, every further
// state transition is recorded as span event, and the span ends when
// the task terminates, carrying the error of a failed task body.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/mandelsoft/waitnotify/pkg/processing"
)

const instrumentation = "github.com/mandelsoft/waitnotify"

// NewProvider creates a tracer provider exporting spans as JSON with the
// stdout exporter. If w is nil the exporter writes to os.Stdout.
func NewProvider(serviceName, serviceVersion string, w io.Writer) (*sdktrace.TracerProvider, error) {
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return NewProviderWithExporter(serviceName, serviceVersion, exporter)
}

// NewProviderWithExporter creates a tracer provider for any exporter
// supported by the OpenTelemetry SDK.
func NewProviderWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}

// Observer is a processing.Observer recording task lifecycles as spans.
type Observer struct {
	tracer trace.Tracer
	runID  string

	lock  sync.Mutex
	spans map[int64]trace.Span
}

var _ processing.Observer = (*Observer)(nil)

// NewObserver creates an observer for the tasks of the scheduler with
// the given run id.
func NewObserver(tp trace.TracerProvider, runID string) *Observer {
	return &Observer{
		tracer: tp.Tracer(instrumentation),
		runID:  runID,
		spans:  map[int64]trace.Span{},
	}
}

func (o *Observer) StateChanged(t processing.Task, from, to processing.State) {
	o.lock.Lock()
	defer o.lock.Unlock()

	span, ok := o.spans[t.ID()]
	if !ok {
		if from != processing.StateNew {
			return
		}
		_, span = o.tracer.Start(context.Background(), t.Name(),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.Int64("task.id", t.ID()),
				attribute.Int("task.priority", t.Priority()),
				attribute.String("scheduler.run_id", o.runID),
			),
		)
		o.spans[t.ID()] = span
	}

	span.AddEvent("state", trace.WithAttributes(
		attribute.String("state.from", from.String()),
		attribute.String("state.to", to.String()),
	))

	if to == processing.StateTerminated {
		if err := t.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		delete(o.spans, t.ID())
	}
}

// Open returns the number of spans of tasks not yet terminated.
func (o *Observer) Open() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	return len(o.spans)
}
