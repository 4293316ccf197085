// Package fsm defines the recording lifecycle of a dictation session.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateCooldown  State = "cooldown"
)

const (
	EventStarted Event = "started"
	EventEnded   Event = "ended"
	EventFail    Event = "fail"
	EventReset   Event = "reset"
)

// ErrUnknownState is wrapped by TransitionError when From is not a lifecycle state.
var ErrUnknownState = errors.New("unknown state")

// TransitionError reports an event the current state does not accept.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	if _, ok := transitions[e.From]; !ok {
		return fmt.Sprintf("%s %q", ErrUnknownState, e.From)
	}
	return fmt.Sprintf("invalid transition: %s --(%s)--> ?", e.From, e.Event)
}

func (e *TransitionError) Unwrap() error {
	if _, ok := transitions[e.From]; !ok {
		return ErrUnknownState
	}
	return nil
}

// transitions lists every accepted event per state. Fail is accepted
// everywhere. An ended event during cooldown keeps cooldown, which its own
// timer clears with reset.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStarted: StateRecording,
		EventEnded:   StateIdle,
		EventReset:   StateIdle,
		EventFail:    StateCooldown,
	},
	StateRecording: {
		EventEnded: StateIdle,
		EventFail:  StateCooldown,
	},
	StateCooldown: {
		EventStarted: StateRecording,
		EventEnded:   StateCooldown,
		EventReset:   StateIdle,
		EventFail:    StateCooldown,
	},
}

// Transition returns the state reached from current when event is applied.
// On error the returned state is current.
func Transition(current State, event Event) (State, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, &TransitionError{From: current, Event: event}
	}
	return next, nil
}

// Accepts reports whether event is valid in state.
func Accepts(state State, event Event) bool {
	_, ok := transitions[state][event]
	return ok
}
