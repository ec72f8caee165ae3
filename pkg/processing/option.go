package processing

import (
	"github.com/sirupsen/logrus"
)

// Option configures a Scheduler.
type Option func(s *scheduler)

// WithName sets the name used in log output. It defaults to the run id.
func WithName(name string) Option {
	return func(s *scheduler) {
		s.name = name
	}
}

// WithID sets the run id of the scheduler. By default a random UUID is used.
func WithID(id string) Option {
	return func(s *scheduler) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets the logger used by the scheduler and its tasks.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver adds observers notified about every state transition
// of the tasks of the scheduler.
func WithObserver(observers ...Observer) Option {
	return func(s *scheduler) {
		for _, o := range observers {
			if o != nil {
				s.observers = append(s.observers, o)
			}
		}
	}
}
