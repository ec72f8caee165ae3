package processing

import (
	"fmt"
	"sync"
	"time"
)

var ErrArmed = fmt.Errorf("trigger already armed")

type TriggerAction func(Trigger)

// Dependency is something a Trigger can wait for. Every Task is a
// Dependency firing when the task terminates.
type Dependency interface {
	// RegisterAction registers an action called exactly once when the
	// dependency fires. If it already fired the action is called
	// synchronously.
	RegisterAction(TriggerAction)
}

// Trigger is a latch tasks can wait for. It fires once
//   - it is armed,
//   - Trigger has been called, and
//   - all dependencies have fired.
//
// Registered actions are executed when it fires. A Trigger is again a
// Dependency, so Triggers and Tasks can be combined, for example to await
// the termination of a group of tasks.
type Trigger interface {
	Dependency

	DependOn(...Dependency) error
	Arm()
	Trigger()

	IsTriggered() bool
	Done() <-chan struct{}

	Wait(op Operation) error
	WaitTimeout(op Operation, timeout time.Duration) error
}

// NewTrigger creates an unarmed Trigger.
func NewTrigger() Trigger {
	return &trigger{
		pending: 2, // arm + trigger
		done:    make(chan struct{}),
	}
}

// NewArmedTrigger creates an armed Trigger firing the given action when
// all dependencies have fired and Trigger is called.
func NewArmedTrigger(a TriggerAction, deps ...Dependency) Trigger {
	t := NewTrigger()
	t.DependOn(deps...)
	t.RegisterAction(a)
	t.Arm()
	return t
}

// NewDependencyTrigger creates a Trigger firing as soon as all
// dependencies have fired.
func NewDependencyTrigger(a TriggerAction, deps ...Dependency) Trigger {
	t := NewArmedTrigger(a, deps...)
	t.Trigger()
	return t
}

type trigger struct {
	lock sync.Mutex

	armed     bool
	triggered bool
	// pending counts the conditions still missing for firing.
	pending int
	actions []TriggerAction

	done chan struct{}
}

func (t *trigger) Arm() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.armed {
		t.armed = true
		t.resolve()
	}
}

func (t *trigger) Trigger() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.triggered {
		t.triggered = true
		t.resolve()
	}
}

func (t *trigger) resolve() {
	t.pending--
	if t.pending != 0 {
		return
	}
	actions := t.actions
	t.actions = nil
	close(t.done)
	for _, a := range actions {
		a(t)
	}
}

func (t *trigger) RegisterAction(a TriggerAction) {
	if a == nil {
		return
	}
	t.lock.Lock()
	if t.pending > 0 {
		t.actions = append(t.actions, a)
		t.lock.Unlock()
		return
	}
	t.lock.Unlock()
	a(t)
}

func (t *trigger) DependOn(deps ...Dependency) error {
	t.lock.Lock()
	if t.armed {
		t.lock.Unlock()
		return ErrArmed
	}
	t.pending += len(deps)
	t.lock.Unlock()

	for _, d := range deps {
		d.RegisterAction(func(Trigger) {
			t.lock.Lock()
			defer t.lock.Unlock()
			t.resolve()
		})
	}
	return nil
}

func (t *trigger) IsTriggered() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *trigger) Done() <-chan struct{} {
	return t.done
}

// Wait waits for the trigger to fire.
// If the operation is given the task is suspended by the scheduler until
// the trigger fired, so the scheduler can continue with another task ready
// for execution. Without operation (nil) the calling goroutine is blocked
// by the Go runtime.
func (t *trigger) Wait(op Operation) error {
	return park(op, t.done, 0)
}

// WaitTimeout is like Wait, but gives up after the given duration
// with ErrTimeout.
func (t *trigger) WaitTimeout(op Operation, timeout time.Duration) error {
	return park(op, t.done, timeout)
}
