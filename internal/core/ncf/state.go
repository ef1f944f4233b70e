package ncf

import "fmt"

// State is the lifecycle state of a sequence.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateExpired  State = "expired"
	StateDepleted State = "depleted"
)

// ParseState validates a state name.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateActive, StateInactive, StateExpired, StateDepleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown sequence state %q", s)
}

// Terminal reports whether no transition may leave s.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateDepleted
}

// Open reports whether s counts toward the one-open-sequence-per-prefix rule.
func (s State) Open() bool {
	return s == StateActive || s == StateInactive
}

// CanTransition reports whether the lifecycle allows moving from s to to.
func (s State) CanTransition(to State) bool {
	switch s {
	case StateActive:
		return to == StateInactive || to == StateExpired || to == StateDepleted
	case StateInactive:
		return to == StateActive
	}
	return false
}

func (s State) String() string { return string(s) }
