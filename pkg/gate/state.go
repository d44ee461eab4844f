package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/stackgate/pkg/observability"
)

// State is a position in the gate's state machine.
type State int

const (
	NotChecked State = iota
	Present
	Absent
	Triggering
	Polling
	Succeeded
	Failed
	TimedOut
)

var stateNames = [...]string{
	NotChecked: "not_checked",
	Present:    "present",
	Absent:     "absent",
	Triggering: "triggering",
	Polling:    "polling",
	Succeeded:  "succeeded",
	Failed:     "failed",
	TimedOut:   "timed_out",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return len(transitions[s]) == 0 }

// OK reports whether s means the package is installable from the mirror.
func (s State) OK() bool { return s == Present || s == Succeeded }

var transitions = map[State][]State{
	NotChecked: {Present, Absent},
	Absent:     {Triggering},
	Triggering: {Polling, Failed},
	Polling:    {Succeeded, Failed, TimedOut},
}

// Transition is one recorded state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// machine tracks one package's state and refuses transitions the table
// does not list.
type machine struct {
	pkg     string
	state   State
	history []Transition
	now     func() time.Time
}

func (m *machine) to(ctx context.Context, next State) {
	allowed := false
	for _, s := range transitions[m.state] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		panic(fmt.Sprintf("gate: illegal transition %s -> %s for %s", m.state, next, m.pkg))
	}
	observability.Gate().OnTransition(ctx, m.pkg, m.state.String(), next.String())
	m.history = append(m.history, Transition{From: m.state, To: next, At: m.now()})
	m.state = next
}

// MarshalText encodes s by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
