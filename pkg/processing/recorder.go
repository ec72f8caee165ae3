package processing

import (
	"sync"

	"gopkg.in/yaml.v3"
)

// Transition describes a single state change of a task.
type Transition struct {
	Seq  int    `yaml:"seq"`
	ID   int64  `yaml:"id"`
	Task string `yaml:"task"`
	From State  `yaml:"from"`
	To   State  `yaml:"to"`
}

// Recorder is an Observer keeping the history of all state transitions.
type Recorder = *recorder

type recorder struct {
	lock sync.Mutex
	list []Transition
}

var _ Observer = (Recorder)(nil)

func NewRecorder() Recorder {
	return &recorder{}
}

func (r *recorder) StateChanged(t Task, from, to State) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.list = append(r.list, Transition{
		Seq:  len(r.list) + 1,
		ID:   t.ID(),
		Task: t.Name(),
		From: from,
		To:   to,
	})
}

// Transitions returns all recorded transitions in the order they were observed.
func (r *recorder) Transitions() []Transition {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]Transition(nil), r.list...)
}

// History returns the sequence of states of a task, starting with New.
func (r *recorder) History(t Task) []State {
	r.lock.Lock()
	defer r.lock.Unlock()

	h := []State{StateNew}
	for _, e := range r.list {
		if e.ID == t.ID() && e.Task == t.Name() {
			h = append(h, e.To)
		}
	}
	return h
}

// Reached reports whether the task has been observed in the given state.
func (r *recorder) Reached(t Task, s State) bool {
	for _, e := range r.History(t) {
		if e == s {
			return true
		}
	}
	return false
}

// Report renders the recorded transitions as YAML document.
func (r *recorder) Report() ([]byte, error) {
	return yaml.Marshal(map[string]interface{}{
		"transitions": r.Transitions(),
	})
}
