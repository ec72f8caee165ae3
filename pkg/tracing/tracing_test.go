package tracing_test

import (
	"bytes"
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mandelsoft/waitnotify/pkg/processing"
	"github.com/mandelsoft/waitnotify/pkg/tracing"
)

func transitions(span sdktrace.ReadOnlySpan) []string {
	var r []string
	for _, e := range span.Events() {
		if e.Name != "state" {
			continue
		}
		var from, to string
		for _, a := range e.Attributes {
			switch a.Key {
			case "state.from":
				from = a.Value.AsString()
			case "state.to":
				to = a.Value.AsString()
			}
		}
		r = append(r, from+"->"+to)
	}
	return r
}

var _ = Describe("tracing observer", func() {
	var recorder *tracetest.SpanRecorder
	var provider *sdktrace.TracerProvider
	var observer *tracing.Observer
	var sched processing.Scheduler

	BeforeEach(func() {
		recorder = tracetest.NewSpanRecorder()
		provider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		sched = processing.New(0, processing.WithObserver(processing.ObserverFunc(func(t processing.Task, from, to processing.State) {
			observer.StateChanged(t, from, to)
		})))
		observer = tracing.NewObserver(provider, sched.ID())
	})

	It("records a span per task", func() {
		mon := processing.NewMonitor()
		t := sched.NewTask(processing.TaskFunction(func(op processing.Operation) error {
			mon.Lock(op)
			defer mon.Unlock(op)
			return mon.TimedWait(op, 10*time.Millisecond)
		}), "waiter")
		Expect(t.Start()).To(Succeed())
		Expect(t.JoinTimeout(nil, 2*time.Second)).To(Succeed())

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(1))
		span := spans[0]
		Expect(span.Name()).To(Equal("task:1:waiter"))
		Expect(span.Attributes()).To(ContainElement(attribute.String("scheduler.run_id", sched.ID())))
		Expect(span.Attributes()).To(ContainElement(attribute.Int64("task.id", 1)))
		Expect(transitions(span)).To(Equal([]string{
			"NEW->RUNNABLE",
			"RUNNABLE->TIMED_WAITING",
			"TIMED_WAITING->RUNNABLE",
			"RUNNABLE->TERMINATED",
		}))
		// the body returns ErrTimeout
		Expect(span.Status().Code).To(Equal(codes.Error))
		Expect(observer.Open()).To(Equal(0))
	})

	It("marks successful tasks", func() {
		t := sched.NewTask(nil)
		Expect(t.Start()).To(Succeed())
		Expect(t.Join(nil)).To(Succeed())
		Expect(recorder.Ended()).To(HaveLen(1))
		Expect(recorder.Ended()[0].Status().Code).To(Equal(codes.Ok))
	})

	It("records failures", func() {
		t := sched.NewTask(processing.TaskFunction(func(op processing.Operation) error {
			return fmt.Errorf("broken")
		}))
		Expect(t.Start()).To(Succeed())
		Expect(t.Join(nil)).To(Succeed())
		span := recorder.Ended()[0]
		Expect(span.Status().Code).To(Equal(codes.Error))
		Expect(span.Status().Description).To(Equal("broken"))
	})

	It("exports to a writer", func() {
		buf := &bytes.Buffer{}
		tp, err := tracing.NewProvider("waitnotify", "test", buf)
		Expect(err).To(Succeed())
		obs := tracing.NewObserver(tp, "run")
		s := processing.New(0, processing.WithObserver(obs))
		t := s.NewTask(nil, "exported")
		Expect(t.Start()).To(Succeed())
		Expect(t.Join(nil)).To(Succeed())
		Expect(tp.Shutdown(context.Background())).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("task:1:exported"))
	})
})
