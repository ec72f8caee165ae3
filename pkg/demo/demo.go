// Package demo runs the wait/notify handshake: a waiting task suspends on
// a shared monitor until a notifying task wakes it up, while the state of
// the waiting task is reported before it is started and after it has been
// joined.
package demo

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mandelsoft/waitnotify/pkg/config"
	"github.com/mandelsoft/waitnotify/pkg/processing"
)

const (
	WAITER   = "waiter"
	NOTIFIER = "notifier"
	RUNNER   = "runner"
)

// Printer receives the messages of the task bodies.
type Printer func(format string, args ...interface{})

type TaskReport struct {
	ID       int64            `yaml:"id"`
	Priority int              `yaml:"priority"`
	State    processing.State `yaml:"state"`
	Error    string           `yaml:"error,omitempty"`
}

type Report struct {
	RunID           string                  `yaml:"runId"`
	DefaultPriority int                     `yaml:"defaultPriority"`
	Priority        int                     `yaml:"priority"`
	InitialState    processing.State        `yaml:"initialState"`
	FinalState      processing.State        `yaml:"finalState"`
	Joined          bool                    `yaml:"joined"`
	Tasks           map[string]TaskReport   `yaml:"tasks"`
	Transitions     []processing.Transition `yaml:"transitions,omitempty"`
}

// signal is the condition the waiter waits for, guarded by the monitor.
type signal struct {
	mon      processing.Monitor
	notified bool
}

// waiter is a task body with its own state.
type waiter struct {
	*signal
	out Printer
}

func (w *waiter) Run(op processing.Operation) error {
	w.mon.Lock(op)
	w.out("%s: suspended, waiting for someone to take the lock and wake me up", op.Name())
	for !w.notified {
		if err := w.mon.Wait(op); err != nil {
			w.mon.Unlock(op)
			return err
		}
	}
	w.out("%s: thanks, I have been woken up", op.Name())
	if err := w.mon.Unlock(op); err != nil {
		return err
	}
	w.out("%s: running a Runnable implementation", op.Name())
	return nil
}

func notifier(s *signal, out Printer) processing.TaskFunction {
	return func(op processing.Operation) error {
		s.mon.Lock(op)
		out("%s: here to wake you up", op.Name())
		s.notified = true
		if err := s.mon.Notify(op); err != nil {
			s.mon.Unlock(op)
			return err
		}
		out("%s: done, woke up a waiting task", op.Name())
		return s.mon.Unlock(op)
	}
}

func runner(out Printer) processing.TaskFunction {
	return func(op processing.Operation) error {
		out("%s: running a TaskFunction", op.Name())
		return nil
	}
}

// Run executes the handshake. The notifier is started first, then the
// waiter and an unrelated runner. The waiter is joined with the configured
// timeout, afterwards all tasks are awaited with the same timeout.
func Run(cfg *config.Config, out Printer, opts ...processing.Option) (*Report, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger()
	if out == nil {
		out = log.Infof
	}

	recorder := processing.NewRecorder()
	opts = append([]processing.Option{
		processing.WithLogger(log),
		processing.WithObserver(processing.NewLoggingObserver(log, logrus.DebugLevel)),
		processing.WithObserver(recorder),
	}, opts...)
	sched := processing.New(cfg.Processors, opts...)

	s := &signal{mon: processing.NewMonitor("lock")}
	tasks := map[string]processing.Task{}
	tasks[WAITER] = sched.NewTask(&waiter{signal: s, out: out}, WAITER)
	tasks[NOTIFIER] = sched.NewTask(notifier(s, out), NOTIFIER)
	tasks[RUNNER] = sched.NewTask(runner(out), RUNNER)
	w := tasks[WAITER]
	dflt := w.Priority()
	for n, t := range tasks {
		if err := t.SetPriority(cfg.Priority(n)); err != nil {
			return nil, err
		}
	}

	if err := tasks[NOTIFIER].Start(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:           sched.ID(),
		DefaultPriority: dflt,
		Priority:        w.Priority(),
		InitialState:    w.State(),
		Tasks:           map[string]TaskReport{},
	}
	out("default priority of %s: %d", w.Name(), report.DefaultPriority)
	if report.Priority != dflt {
		out("priority of %s: %d", w.Name(), report.Priority)
	}
	out("state of %s: %s", w.Name(), report.InitialState)

	for _, n := range []string{WAITER, RUNNER} {
		if err := tasks[n].Start(); err != nil {
			return nil, err
		}
	}

	err := w.JoinTimeout(nil, cfg.JoinTimeout)
	report.Joined = err == nil
	report.FinalState = w.State()
	out("state of %s: %s", w.Name(), report.FinalState)

	all := processing.NewDependencyTrigger(nil, tasks[WAITER], tasks[NOTIFIER], tasks[RUNNER])
	if err := all.WaitTimeout(nil, cfg.JoinTimeout); err != nil {
		for _, t := range tasks {
			t.Interrupt()
		}
		return report, fmt.Errorf("tasks did not terminate: %w", err)
	}

	for n, t := range tasks {
		r := TaskReport{
			ID:       t.ID(),
			Priority: t.Priority(),
			State:    t.State(),
		}
		if err := t.Err(); err != nil {
			r.Error = err.Error()
		}
		report.Tasks[n] = r
	}
	report.Transitions = recorder.Transitions()
	return report, nil
}
