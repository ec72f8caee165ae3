package processing_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/waitnotify/pkg/processing"
)

var _ = Describe("observer", func() {
	It("records transitions", func() {
		recorder := processing.NewRecorder()
		sched := processing.New(0, processing.WithObserver(recorder))
		t := sched.NewTask(processing.TaskFunction(func(op processing.Operation) error {
			return op.Sleep(10 * time.Millisecond)
		}), "sleeper")
		Expect(t.Start()).To(Succeed())
		Expect(t.JoinTimeout(nil, 2*time.Second)).To(Succeed())

		Expect(recorder.History(t)).To(Equal([]processing.State{
			processing.StateNew, processing.StateRunnable, processing.StateTimedWaiting, processing.StateRunnable, processing.StateTerminated,
		}))
		Expect(recorder.Reached(t, processing.StateTimedWaiting)).To(BeTrue())
		Expect(recorder.Reached(t, processing.StateBlocked)).To(BeFalse())

		data, err := recorder.Report()
		Expect(err).To(Succeed())
		var report struct {
			Transitions []processing.Transition `yaml:"transitions"`
		}
		Expect(yaml.Unmarshal(data, &report)).To(Succeed())
		Expect(report.Transitions).To(HaveLen(4))
		Expect(report.Transitions[0]).To(Equal(processing.Transition{
			Seq: 1, ID: 1, Task: "task:1:sleeper", From: processing.StateNew, To: processing.StateRunnable,
		}))
	})

	It("logs transitions and failures", func() {
		buf := &bytes.Buffer{}
		log := logrus.New()
		log.SetOutput(buf)
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

		sched := processing.New(0,
			processing.WithLogger(log),
			processing.WithName("logging"),
			processing.WithObserver(processing.NewLoggingObserver(log, logrus.DebugLevel)),
		)
		t := sched.NewTask(processing.TaskFunction(func(op processing.Operation) error {
			return processing.ErrInterrupted
		}), "failing")
		Expect(t.Start()).To(Succeed())
		Expect(t.Join(nil)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("scheduler=logging"))
		Expect(out).To(ContainSubstring("task failed"))
		Expect(out).To(ContainSubstring("to=TERMINATED"))
		Expect(out).To(ContainSubstring("error=interrupted"))
	})

	It("calls observer functions", func() {
		var states []processing.State
		sched := processing.New(0, processing.WithObserver(processing.ObserverFunc(func(t processing.Task, from, to processing.State) {
			states = append(states, to)
		})))
		t := sched.NewTask(nil)
		Expect(t.Start()).To(Succeed())
		Expect(t.Join(nil)).To(Succeed())
		Expect(states).To(Equal([]processing.State{processing.StateRunnable, processing.StateTerminated}))
	})
})
