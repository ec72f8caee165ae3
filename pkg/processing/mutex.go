package processing

import (
	"fmt"
	"sync"
)

var ErrIllegalMonitorState = fmt.Errorf("illegal monitor state")

// Mutex is a reentrant lock owned by a task. A task trying to lock
// a mutex held by another task is suspended in state BLOCKED. On unlock
// the ownership is passed directly to the next blocked task.
type Mutex = *mutex

type mutex struct {
	lock sync.Mutex
	name string

	waiting *queue
	holder  *task
	count   int
}

func NewMutex(names ...string) Mutex {
	return newMutex("mutex", names...)
}

func newMutex(typ string, names ...string) *mutex {
	name := ElementName(typ, names...)
	return &mutex{
		name:    name,
		waiting: newQueue(name),
	}
}

func (m *mutex) Name() string {
	return m.name
}

// Lock acquires the mutex for the given task. It may be called
// again by the holding task, which then must call Unlock as often.
func (m *mutex) Lock(op Operation) {
	t := taskOf(op)
	if t == nil {
		panic(fmt.Sprintf("%s: lock requires an operation", m.name))
	}
	m.lock.Lock()

	if m.holder == t {
		m.count++
		m.lock.Unlock()
		return
	}
	if m.holder == nil {
		m.acquire(t, 1)
		m.lock.Unlock()
		return
	}

	w := newWaiter(t, 1)
	m.waiting.Add(w)
	t.setState(StateBlocked)
	m.lock.Unlock()

	t.sched.release()
	<-w.ready
	t.setState(StateRunnable)
	t.sched.dispatch(t)
}

// Unlock releases one hold of the mutex. It fails with
// ErrIllegalMonitorState if the task does not hold the mutex.
func (m *mutex) Unlock(op Operation) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.check(op, "unlock"); err != nil {
		return err
	}
	m.count--
	if m.count == 0 {
		m.handoff()
	}
	return nil
}

// HeldBy reports whether the mutex is actually held by the given task.
func (m *mutex) HeldBy(op Operation) bool {
	t := taskOf(op)
	m.lock.Lock()
	defer m.lock.Unlock()
	return t != nil && m.holder == t
}

// Holder returns the task holding the mutex, or nil.
func (m *mutex) Holder() Task {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.holder == nil {
		return nil
	}
	return m.holder
}

// Blocked returns the tasks waiting to acquire the mutex.
func (m *mutex) Blocked() []Task {
	return m.waiting.Tasks()
}

func (m *mutex) check(op Operation, action string) error {
	t := taskOf(op)
	if t == nil {
		return fmt.Errorf("%w: %s without operation on %s", ErrIllegalMonitorState, action, m.name)
	}
	if m.holder != t {
		return fmt.Errorf("%w: %s on %s not held by %s", ErrIllegalMonitorState, action, m.name, t.name)
	}
	return nil
}

func (m *mutex) acquire(t *task, count int) {
	m.holder = t
	m.count = count
	t.hold(m)
}

// handoff completely releases the mutex. If there are blocked tasks,
// the next one becomes the holder.
func (m *mutex) handoff() {
	if m.holder != nil {
		m.holder.unhold(m)
	}
	m.holder = nil
	m.count = 0
	if w := m.waiting.Next(); w != nil {
		m.acquire(w.task, w.count)
		close(w.ready) // pass lock
	}
}

// abandon releases the mutex if it is still held by a terminated task.
func (m *mutex) abandon(t *task) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.holder == t {
		t.sched.log.WithField("task", t.name).Warnf("releasing %s held by terminated task", m.name)
		m.handoff()
	}
}
