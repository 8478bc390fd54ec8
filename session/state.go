package session

import (
	"errors"
	"fmt"
)

type State int32

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateFailed
	StateClosed
)

var ErrInvalidTransition = errors.New("session: invalid state transition")

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

func (s State) Terminal() bool {
	return s == StateFailed || s == StateClosed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// canTransition reports whether from -> to follows
// New -> Connecting -> Connected, with Failed reachable before or after
// connecting and Closed from any live state.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StateConnecting:
		return from == StateNew
	case StateConnected:
		return from == StateConnecting
	case StateFailed, StateClosed:
		return true
	}
	return false
}
