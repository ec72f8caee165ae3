package processing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrIllegalTaskState = fmt.Errorf("illegal task state")
	ErrInvalidPriority  = fmt.Errorf("invalid priority")
	ErrPanic            = fmt.Errorf("task body panicked")
)

const (
	MinPriority  = 1
	NormPriority = 5
	MaxPriority  = 10
)

// Runnable is the body of a Task. Implement it to provide a task body
// with its own state, or use a TaskFunction for a plain function.
type Runnable interface {
	Run(Operation) error
}

// TaskFunction is a Go function usable as Runnable. The function gets an
// argument describing the running task. It can be used to identify the
// task for actions on synchronization primitives.
type TaskFunction func(Operation) error

func (f TaskFunction) Run(op Operation) error {
	return f(op)
}

// A Task is the execution of a Runnable by a Scheduler. It has an
// observable lifecycle State. It starts in state NEW, is started
// exactly once and finally reaches state TERMINATED when its body
// returns, regardless whether the body succeeded, failed or panicked.
// The result of the body can be queried with Err once the task has
// terminated.
type Task interface {
	Dependency

	Name() string
	// ID is the creation order of the task in its scheduler.
	ID() int64

	Start() error

	// Join waits for the task to terminate. If op is given the waiting
	// task is suspended in state WAITING and may be interrupted.
	// If it is nil, the calling Go routine is blocked.
	Join(op Operation) error
	// JoinTimeout is like Join but returns ErrTimeout if the task did not
	// terminate in time. A timeout less than or equal to zero waits forever.
	JoinTimeout(op Operation, timeout time.Duration) error
	Done() <-chan struct{}

	// State returns the actual lifecycle state. It never blocks.
	State() State

	Priority() int
	SetPriority(p int) error

	// Interrupt requests the cancellation of the task. A suspension of the
	// task is aborted with ErrInterrupted, and all subsequent ones fail.
	Interrupt()

	Err() error
}

type task struct {
	lock   sync.Mutex
	sched  *scheduler
	id     int64
	name   string
	runner Runnable

	state    atomic.Int32
	priority atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	done   Trigger
	err    error
	held   map[*mutex]struct{}
}

var _ Task = (*task)(nil)

func newTask(s *scheduler, id int64, r Runnable, names ...string) *task {
	t := &task{
		sched:  s,
		id:     id,
		name:   ElementName("task", append([]string{fmt.Sprintf("%d", id)}, names...)...),
		runner: r,
		done:   NewArmedTrigger(nil),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.priority.Store(NormPriority)
	return t
}

func (t *task) Name() string {
	return t.name
}

func (t *task) ID() int64 {
	return t.id
}

func (t *task) State() State {
	return State(t.state.Load())
}

func (t *task) setState(s State) {
	old := State(t.state.Swap(int32(s)))
	if old != s {
		t.sched.notify(t, old, s)
	}
}

func (t *task) Priority() int {
	return int(t.priority.Load())
}

func (t *task) SetPriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidPriority, p, MinPriority, MaxPriority)
	}
	t.priority.Store(int32(p))
	return nil
}

func (t *task) Start() error {
	if !t.state.CompareAndSwap(int32(StateNew), int32(StateRunnable)) {
		return fmt.Errorf("%w: cannot start %s in state %s", ErrIllegalTaskState, t.name, t.State())
	}
	t.sched.notify(t, StateNew, StateRunnable)
	t.sched.log.WithField("task", t.name).Debugf("starting task")
	go t.run()
	return nil
}

func (t *task) run() {
	t.sched.dispatch(t)
	err := t.invoke()

	t.lock.Lock()
	t.err = err
	t.lock.Unlock()
	if err != nil {
		t.sched.log.WithField("task", t.name).WithError(err).Error("task failed")
	}

	t.abandon()
	t.sched.release()
	t.setState(StateTerminated)
	t.cancel()
	t.done.Trigger()
}

func (t *task) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	if t.runner == nil {
		return nil
	}
	return t.runner.Run(&operation{t})
}

func (t *task) hold(m *mutex) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.held == nil {
		t.held = map[*mutex]struct{}{}
	}
	t.held[m] = struct{}{}
}

func (t *task) unhold(m *mutex) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.held, m)
}

// abandon releases all mutexes still held by the terminating task.
func (t *task) abandon() {
	t.lock.Lock()
	held := t.held
	t.held = nil
	t.lock.Unlock()

	for m := range held {
		m.abandon(t)
	}
}

func (t *task) Join(op Operation) error {
	return t.done.Wait(op)
}

func (t *task) JoinTimeout(op Operation, timeout time.Duration) error {
	return t.done.WaitTimeout(op, timeout)
}

func (t *task) Done() <-chan struct{} {
	return t.done.Done()
}

func (t *task) Interrupt() {
	t.cancel()
}

func (t *task) Err() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.err
}

func (t *task) RegisterAction(a TriggerAction) {
	t.done.RegisterAction(a)
}

func (t *task) String() string {
	return fmt.Sprintf("%s[%s]", t.name, t.State())
}
