package processing

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a Task.
type State int32

const (
	// StateNew is the state of a task not yet started.
	StateNew State = iota
	// StateRunnable is the state of a started task either executing or waiting
	// for a processor of its scheduler.
	StateRunnable
	// StateBlocked is the state of a task waiting to acquire a monitor held by
	// another task.
	StateBlocked
	// StateWaiting is the state of a task suspended without time limit, either on
	// a monitor or while joining another task.
	StateWaiting
	// StateTimedWaiting is the state of a task suspended with a time limit.
	StateTimedWaiting
	// StateTerminated is the final state of a task whose body has returned.
	StateTerminated
)

var stateNames = [...]string{
	StateNew:          "NEW",
	StateRunnable:     "RUNNABLE",
	StateBlocked:      "BLOCKED",
	StateWaiting:      "WAITING",
	StateTimedWaiting: "TIMED_WAITING",
	StateTerminated:   "TERMINATED",
}

func (s State) String() string {
	if s < StateNew || s > StateTerminated {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// IsSuspended reports whether a task in this state gave up its processor.
func (s State) IsSuspended() bool {
	return s == StateBlocked || s == StateWaiting || s == StateTimedWaiting
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(data []byte) error {
	p, err := ParseState(string(data))
	if err != nil {
		return err
	}
	*s = p
	return nil
}

func ParseState(name string) (State, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, s := range stateNames {
		if s == n {
			return State(i), nil
		}
	}
	return StateNew, fmt.Errorf("unknown task state %q", name)
}

// transitions lists the legal successors of every state.
var transitions = map[State][]State{
	StateNew:          {StateRunnable},
	StateRunnable:     {StateBlocked, StateWaiting, StateTimedWaiting, StateTerminated},
	StateBlocked:      {StateRunnable},
	StateWaiting:      {StateBlocked, StateRunnable},
	StateTimedWaiting: {StateBlocked, StateRunnable},
}

// CanTransition reports whether a task may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
