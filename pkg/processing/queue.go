package processing

import (
	"sync"
)

// waiter is the entry of a task in a queue. The ready channel is closed
// once the task may continue, which is the moment the resource the task
// is waiting for (processor or monitor) has been passed to it.
type waiter struct {
	task  *task
	count int
	ready chan struct{}
}

func newWaiter(t *task, count int) *waiter {
	return &waiter{
		task:  t,
		count: count,
		ready: make(chan struct{}),
	}
}

// queue is an ordered list of waiters. Next prefers the waiter with the
// highest task priority and is FIFO among waiters of equal priority.
type queue struct {
	lock sync.Mutex
	name string
	list []*waiter
}

func newQueue(name string) *queue {
	return &queue{name: name}
}

func (q *queue) Name() string {
	return q.name
}

func (q *queue) Add(w *waiter) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.list = append(q.list, w)
}

func (q *queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.list)
}

func (q *queue) Next() *waiter {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.list) == 0 {
		return nil
	}
	sel := 0
	prio := q.list[0].task.Priority()
	for i, w := range q.list[1:] {
		if p := w.task.Priority(); p > prio {
			sel, prio = i+1, p
		}
	}
	r := q.list[sel]
	q.list = append(q.list[:sel], q.list[sel+1:]...)
	return r
}

func (q *queue) Remove(w *waiter) bool {
	if q == nil {
		return false
	}
	q.lock.Lock()
	defer q.lock.Unlock()

	for i, e := range q.list {
		if e == w {
			q.list = append(q.list[:i], q.list[i+1:]...)
			return true
		}
	}
	return false
}

// Tasks returns the tasks currently queued, in queue order.
func (q *queue) Tasks() []Task {
	q.lock.Lock()
	defer q.lock.Unlock()

	r := make([]Task, len(q.list))
	for i, w := range q.list {
		r[i] = w.task
	}
	return r
}
