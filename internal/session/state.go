package session

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a sign-in session.
type State string

const (
	Anonymous           State = "anonymous"
	Authenticating      State = "authenticating"
	Authenticated       State = "authenticated"
	FirstLoginPending   State = "first_login_pending"
	AuthenticationError State = "authentication_error"
)

type Event string

const (
	EventSubmit     Event = "submit"
	EventSuccess    Event = "success"
	EventFirstLogin Event = "first_login"
	EventFailure    Event = "failure"
	EventErrorShown Event = "error_shown"
	EventRotated    Event = "rotated"
	EventSignOut    Event = "sign_out"
)

var ErrIllegalTransition = errors.New("illegal session transition")

var transitions = map[State]map[Event]State{
	Anonymous: {
		EventSubmit: Authenticating,
	},
	Authenticating: {
		EventSuccess:    Authenticated,
		EventFirstLogin: FirstLoginPending,
		EventFailure:    AuthenticationError,
	},
	AuthenticationError: {
		EventErrorShown: Anonymous,
	},
	FirstLoginPending: {
		EventRotated: Authenticated,
		EventSignOut: Anonymous,
	},
	Authenticated: {
		EventSignOut: Anonymous,
	},
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return s, fmt.Errorf("%s on %s: %w", e, s, ErrIllegalTransition)
}
