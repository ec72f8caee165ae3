package processing

import (
	"github.com/sirupsen/logrus"
)

// Observer gets notified about the state transitions of tasks.
// StateChanged is called synchronously by the Go routine causing the
// transition, partly while internal locks of synchronization primitives
// are held. It must therefore not block and must not call back into
// the Monitor or Mutex involved.
type Observer interface {
	StateChanged(t Task, from, to State)
}

type ObserverFunc func(t Task, from, to State)

func (f ObserverFunc) StateChanged(t Task, from, to State) {
	f(t, from, to)
}

type loggingObserver struct {
	log   logrus.FieldLogger
	level logrus.Level
}

// NewLoggingObserver reports state transitions on the given logger
// with the given level.
func NewLoggingObserver(log logrus.FieldLogger, level logrus.Level) Observer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &loggingObserver{log: log, level: level}
}

func (o *loggingObserver) StateChanged(t Task, from, to State) {
	e := o.log.WithFields(logrus.Fields{
		"task": t.Name(),
		"from": from.String(),
		"to":   to.String(),
	})
	if t.State() == StateTerminated && t.Err() != nil {
		e = e.WithError(t.Err())
	}
	switch o.level {
	case logrus.TraceLevel:
		e.Trace("state changed")
	case logrus.DebugLevel:
		e.Debug("state changed")
	case logrus.WarnLevel:
		e.Warn("state changed")
	default:
		e.Info("state changed")
	}
}
