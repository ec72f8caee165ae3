package processing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInterrupted = fmt.Errorf("interrupted")
	ErrTimeout     = fmt.Errorf("timeout")
)

// Operation is the identity of a running Task. It is passed to the
// body of the task and is used to identify the task for actions
// on synchronization primitives (like locking a Monitor or joining
// another task).
// An Operation object MUST only be used by the task body (or better, by
// the Go routine used to execute the body). It should never be stored
// in any object and shared with other Go routines.
type Operation interface {
	Name() string
	ID() int64

	// Context is cancelled when the task is interrupted.
	Context() context.Context
	Interrupted() bool

	// Sleep suspends the task for the given duration in state
	// TIMED_WAITING. It returns ErrInterrupted if the task is interrupted
	// meanwhile.
	Sleep(d time.Duration) error

	// Yield passes the processor to another ready task, if there is any.
	Yield()

	_task() *task
}

type operation struct {
	t *task
}

var _ Operation = (*operation)(nil)

func (o *operation) Name() string {
	return o.t.name
}

func (o *operation) ID() int64 {
	return o.t.id
}

func (o *operation) Context() context.Context {
	return o.t.ctx
}

func (o *operation) Interrupted() bool {
	return o.t.ctx.Err() != nil
}

func (o *operation) Sleep(d time.Duration) error {
	if d <= 0 {
		if o.Interrupted() {
			return ErrInterrupted
		}
		return nil
	}
	err := park(o, nil, d)
	if errors.Is(err, ErrTimeout) {
		return nil
	}
	return err
}

func (o *operation) Yield() {
	o.t.sched.preempt(o.t)
}

func (o *operation) _task() *task {
	return o.t
}

func taskOf(op Operation) *task {
	if op == nil {
		return nil
	}
	return op._task()
}

// park suspends the calling operation until the done channel is closed
// or the timeout (if greater than zero) elapses. Meanwhile the task is
// in state WAITING or TIMED_WAITING and its processor is passed to other
// ready tasks.
// If the operation is not given (nil), the actual Go routine is blocked
// by the Go runtime instead and cannot be interrupted.
func park(op Operation, done <-chan struct{}, timeout time.Duration) error {
	select {
	case <-done:
		return nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	t := taskOf(op)
	if t == nil {
		select {
		case <-done:
			return nil
		case <-expired:
			return ErrTimeout
		}
	}

	if t.ctx.Err() != nil {
		return ErrInterrupted
	}

	if timeout > 0 {
		t.setState(StateTimedWaiting)
	} else {
		t.setState(StateWaiting)
	}
	t.sched.release()

	var err error
	select {
	case <-done:
	case <-expired:
		err = ErrTimeout
	case <-t.ctx.Done():
		err = ErrInterrupted
	}

	t.setState(StateRunnable)
	t.sched.dispatch(t)
	return err
}
