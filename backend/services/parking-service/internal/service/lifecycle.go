package service

import (
	"fmt"

	"parkflow/backend/services/parking-service/internal/models"
)

// State is where a session stands from this service's point of view. Quoted
// never reaches the remote store.
type State string

const (
	StateNoSession State = "no_session"
	StateQuoted    State = "quoted"
	StateActive    State = "active"
	StateEnded     State = "ended"
)

// Event moves a session between states.
type Event string

const (
	EventQuote        Event = "quote"
	EventStart        Event = "start"
	EventExtend       Event = "extend"
	EventExtendFailed Event = "extend_failed"
	EventEnd          Event = "end"
)

var transitions = map[State]map[Event]State{
	StateNoSession: {
		EventQuote: StateQuoted,
	},
	StateQuoted: {
		EventQuote: StateQuoted,
		EventStart: StateActive,
	},
	StateActive: {
		EventExtend:       StateActive,
		EventExtendFailed: StateActive,
		EventEnd:          StateEnded,
	},
}

// Advance applies ev to from.
func Advance(from State, ev Event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}

// StateOf maps a store status onto a lifecycle state. Unknown statuses map to
// StateNoSession, where extend and end are refused.
func StateOf(status models.SessionStatus) State {
	switch status {
	case models.SessionStatusActive:
		return StateActive
	case models.SessionStatusCompleted, models.SessionStatusExpired:
		return StateEnded
	default:
		return StateNoSession
	}
}
