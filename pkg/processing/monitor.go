package processing

import (
	"time"
)

// Monitor is a Mutex combined with a condition. A task holding the
// monitor may suspend itself with Wait until another task holding the
// monitor calls Notify or NotifyAll.
// Checking the condition a task waits for and calling Wait must be done
// while holding the monitor, the same holds for changing the condition
// and calling Notify. This way a notification cannot get lost.
//
//	mon.Lock(op)
//	for !ready {
//	    if err := mon.Wait(op); err != nil {
//	        ...
//	    }
//	}
//	mon.Unlock(op)
type Monitor = *monitor

type monitor struct {
	mutex
	waitset *queue
}

func NewMonitor(names ...string) Monitor {
	return newMonitor("monitor", names...)
}

func newMonitor(typ string, names ...string) *monitor {
	name := ElementName(typ, names...)
	return &monitor{
		mutex: mutex{
			name:    name,
			waiting: newQueue(name),
		},
		waitset: newQueue(name + ":waiting"),
	}
}

// Wait releases the monitor and suspends the calling task in state
// WAITING until it is notified. Afterwards the monitor is reacquired,
// with the same hold count as before, before Wait returns.
// It fails with ErrIllegalMonitorState if the task does not hold the
// monitor, and with ErrInterrupted if the task is interrupted. In the
// latter case the monitor is held again, too.
func (m *monitor) Wait(op Operation) error {
	return m.wait(op, 0)
}

// TimedWait is like Wait, but the task resumes after the given
// duration even if it is not notified. In this case ErrTimeout
// is returned. A timeout less than or equal to zero waits forever.
func (m *monitor) TimedWait(op Operation, timeout time.Duration) error {
	return m.wait(op, timeout)
}

func (m *monitor) wait(op Operation, timeout time.Duration) error {
	m.lock.Lock()

	if err := m.check(op, "wait"); err != nil {
		m.lock.Unlock()
		return err
	}
	t := m.holder
	if t.ctx.Err() != nil {
		m.lock.Unlock()
		return ErrInterrupted
	}

	w := newWaiter(t, m.count)
	m.waitset.Add(w)
	if timeout > 0 {
		t.setState(StateTimedWaiting)
	} else {
		t.setState(StateWaiting)
	}
	m.handoff()
	m.lock.Unlock()
	t.sched.release()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var err error
	select {
	case <-w.ready:
	case <-expired:
		err = ErrTimeout
	case <-t.ctx.Done():
		err = ErrInterrupted
	}

	if err != nil {
		m.lock.Lock()
		if m.waitset.Remove(w) {
			if m.holder == nil {
				m.acquire(t, w.count)
				close(w.ready)
			} else {
				t.setState(StateBlocked)
				m.waiting.Add(w)
			}
		} else {
			// notified concurrently, interruption stays pending
			err = nil
		}
		m.lock.Unlock()
		<-w.ready
	}

	t.setState(StateRunnable)
	t.sched.dispatch(t)
	return err
}

// Notify moves one task waiting on the monitor to the tasks
// blocked on acquiring the monitor. The monitor is not released.
// It fails with ErrIllegalMonitorState if the task does not hold the
// monitor.
func (m *monitor) Notify(op Operation) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.check(op, "notify"); err != nil {
		return err
	}
	if w := m.waitset.Next(); w != nil {
		m.wakeup(w)
	}
	return nil
}

// NotifyAll is like Notify, but moves all waiting tasks.
func (m *monitor) NotifyAll(op Operation) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.check(op, "notify"); err != nil {
		return err
	}
	for w := m.waitset.Next(); w != nil; w = m.waitset.Next() {
		m.wakeup(w)
	}
	return nil
}

// Waiting returns the tasks actually waiting for a notification.
func (m *monitor) Waiting() []Task {
	return m.waitset.Tasks()
}

func (m *monitor) wakeup(w *waiter) {
	w.task.setState(StateBlocked)
	m.waiting.Add(w)
}
