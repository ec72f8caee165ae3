package processing

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scheduler creates and executes tasks in parallel.
// Hereby, the number of tasks actually executing their body is limited to
// the number of processors passed to the scheduler constructor.
// There might be any number of tasks in progress, but a task only
// occupies a processor as long as it is not suspended on one of the
// synchronization primitives supported by this package (Mutex, Monitor,
// Trigger, Task.Join and Operation.Sleep). Blocking on other primitives,
// like Go channels, keeps the processor.
// Ready tasks get a free processor according to their priority.
type Scheduler = *scheduler

type scheduler struct {
	lock       sync.Mutex
	id         string
	name       string
	processors int
	active     int
	ready      *queue
	tasks      []*task

	log       logrus.FieldLogger
	observers []Observer
}

// New creates a scheduler for n processors. A value less than or equal
// to zero means no limit.
func New(n int, opts ...Option) Scheduler {
	s := &scheduler{
		id:         uuid.New().String(),
		processors: n,
		ready:      newQueue("ready"),
		log:        logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.name == "" {
		s.name = s.id
	}
	s.log = s.log.WithField("scheduler", s.name)
	return s
}

// ID returns the unique run id of the scheduler.
func (s *scheduler) ID() string {
	return s.id
}

func (s *scheduler) Name() string {
	return s.name
}

func (s *scheduler) Processors() int {
	return s.processors
}

// NewTask creates a new task in state NEW executing the given Runnable.
func (s *scheduler) NewTask(r Runnable, names ...string) Task {
	s.lock.Lock()
	defer s.lock.Unlock()

	t := newTask(s, int64(len(s.tasks)+1), r, names...)
	s.tasks = append(s.tasks, t)
	return t
}

// Tasks returns all tasks created by the scheduler in creation order.
func (s *scheduler) Tasks() []Task {
	s.lock.Lock()
	defer s.lock.Unlock()

	r := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		r[i] = t
	}
	return r
}

// ActiveCount returns the number of tasks occupying or waiting for a processor.
func (s *scheduler) ActiveCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.active + s.ready.Len()
}

// RunningCount returns the number of tasks occupying a processor.
func (s *scheduler) RunningCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.active
}

// ReadyCount returns the number of runnable tasks waiting for a processor.
func (s *scheduler) ReadyCount() int {
	return s.ready.Len()
}

// BlockedCount returns the number of tasks waiting for a monitor.
func (s *scheduler) BlockedCount() int {
	return s.Count(StateBlocked)
}

// WaitingCount returns the number of tasks suspended with or without time limit.
func (s *scheduler) WaitingCount() int {
	return s.Count(StateWaiting, StateTimedWaiting)
}

// Count returns the number of tasks currently in one of the given states.
// All tasks are inspected in a single pass, so a task moving between the
// given states is counted exactly once.
func (s *scheduler) Count(states ...State) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	cnt := 0
	for _, t := range s.tasks {
		st := t.State()
		for _, e := range states {
			if st == e {
				cnt++
				break
			}
		}
	}
	return cnt
}

// dispatch assigns a processor to the task. If all processors are busy
// the caller is blocked until a processor is passed to it.
func (s *scheduler) dispatch(t *task) {
	s.lock.Lock()

	if s.processors <= 0 || s.active < s.processors {
		s.active++
		s.lock.Unlock()
		return
	}
	w := newWaiter(t, 0)
	s.ready.Add(w)
	s.lock.Unlock()
	<-w.ready
}

// release gives up the processor of the calling task. It is passed
// to the next ready task, if there is any.
func (s *scheduler) release() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if w := s.ready.Next(); w != nil {
		close(w.ready) // pass processor
	} else {
		s.active--
	}
}

// preempt passes the processor of the calling task to another ready
// task, if there is any.
func (s *scheduler) preempt(t *task) {
	if s.ready.Len() == 0 {
		return
	}
	s.release()
	s.dispatch(t)
}

func (s *scheduler) notify(t *task, from, to State) {
	if !CanTransition(from, to) {
		s.log.WithField("task", t.name).Warnf("unexpected state transition %s -> %s", from, to)
	}
	for _, o := range s.observers {
		o.StateChanged(t, from, to)
	}
}
