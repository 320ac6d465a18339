package model

import "fmt"

// State is a state of the attack coordinator.
//
//	Idle → Counting → Searching → {Found, Exhausted}
//	Idle | Counting | Searching → Aborted
type State int

const (
	// StateIdle is the initial state before any input has been opened.
	StateIdle State = iota

	// StateCounting means the wordlist is open and candidates are being counted.
	StateCounting

	// StateSearching means candidates are being dispatched to workers.
	StateSearching

	// StateFound is terminal: a candidate matched.
	StateFound

	// StateExhausted is terminal: every candidate was tested without a match.
	StateExhausted

	// StateAborted is terminal: a fatal error stopped the attack.
	StateAborted
)

// String returns a human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCounting:
		return "counting"
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateIdle; candidate <= StateAborted; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateFound || s == StateExhausted || s == StateAborted
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateIdle:
		return next == StateCounting || next == StateAborted
	case StateCounting:
		return next == StateSearching || next == StateAborted
	case StateSearching:
		return next == StateFound || next == StateExhausted || next == StateAborted
	default:
		return false
	}
}

// Outcome is the result exposed to the caller once an attack is over.
type Outcome string

const (
	// OutcomeNone means the attack has not finished.
	OutcomeNone Outcome = ""

	// OutcomeFound means the password was found.
	OutcomeFound Outcome = "found"

	// OutcomeNotFound means the wordlist was exhausted without a match.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeAborted means a fatal error stopped the attack.
	OutcomeAborted Outcome = "aborted"
)

// OutcomeOf returns the outcome matching a terminal state.
func OutcomeOf(s State) Outcome {
	switch s {
	case StateFound:
		return OutcomeFound
	case StateExhausted:
		return OutcomeNotFound
	case StateAborted:
		return OutcomeAborted
	default:
		return OutcomeNone
	}
}
