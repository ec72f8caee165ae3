package processing

import (
	"fmt"
)

var ErrClosed = fmt.Errorf("already closed")

// Channel supports communication among tasks
// by sending and receiving messages.
// It has a defined capacity to buffer sent messages.
// Once this capacity is exceeded any further Channel.Send
// operation is blocked until a message is received by
// a Channel.Receive operation.
// Senders and receivers wait on the same Monitor, therefore every
// state change notifies all waiting tasks.
type Channel[T any] interface {
	Send(Operation, T) error
	Receive(Operation) (T, error)
	Close(Operation) error
}

type channel[T any] struct {
	monitor  *monitor
	capacity int
	size     int
	first    int
	buffer   []T
	closed   bool
}

func NewChannel[T any](capacity int, names ...string) Channel[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &channel[T]{
		monitor:  newMonitor("channel", names...),
		capacity: capacity,
		buffer:   make([]T, capacity),
	}
}

func (c *channel[T]) Send(op Operation, t T) error {
	c.monitor.Lock(op)
	defer c.monitor.Unlock(op)

	for c.size >= c.capacity && !c.closed {
		if err := c.monitor.Wait(op); err != nil {
			return err
		}
	}
	if c.closed {
		return ErrClosed
	}
	c.buffer[(c.first+c.size)%c.capacity] = t
	c.size++
	return c.monitor.NotifyAll(op)
}

func (c *channel[T]) Receive(op Operation) (T, error) {
	var zero T

	c.monitor.Lock(op)
	defer c.monitor.Unlock(op)

	for c.size == 0 {
		if c.closed {
			return zero, ErrClosed
		}
		if err := c.monitor.Wait(op); err != nil {
			return zero, err
		}
	}
	t := c.buffer[c.first]
	c.buffer[c.first] = zero
	c.size--
	c.first = (c.first + 1) % c.capacity
	return t, c.monitor.NotifyAll(op)
}

// Close closes the channel. Buffered messages can still be received,
// blocked senders and receivers of an empty channel fail with ErrClosed.
func (c *channel[T]) Close(op Operation) error {
	c.monitor.Lock(op)
	defer c.monitor.Unlock(op)

	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return c.monitor.NotifyAll(op)
}
