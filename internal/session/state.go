package session

import (
	"errors"
	"fmt"

	"github.com/songzhibin97/adminconsole/pkg/console"
)

// Status is the authentication status of the console.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusExpired        Status = "expired"
)

// ErrInvalidTransition is returned when an operation would move the session
// along an edge the state machine does not have.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrAlreadyAuthenticated is returned by Login while a session is active.
var ErrAlreadyAuthenticated = errors.New("already authenticated")

var transitions = map[Status][]Status{
	StatusAnonymous:      {StatusAuthenticating},
	StatusAuthenticating: {StatusAuthenticated, StatusAnonymous},
	StatusAuthenticated:  {StatusAnonymous, StatusExpired},
	StatusExpired:        {StatusAnonymous},
}

func canTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// State is an immutable snapshot of the session.
type State struct {
	Status Status
	// Token and Profile are set only while Authenticated.
	Token   string
	Profile *console.Profile
	// Err is the failure that ended the last login, verification or
	// session. It is cleared by the next transition.
	Err error
}

// Authenticated reports whether the snapshot holds an active session.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}
