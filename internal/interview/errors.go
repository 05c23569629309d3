package interview

import (
	"errors"
	"fmt"

	"github.com/spigell/ai-interviewer/internal/session"
)

var errEmptyQueue = errors.New("no question at cursor")

// UsageError reports an operation that is invalid for the session's current
// state. It is surfaced to the caller and never retried internally.
type UsageError struct {
	Op     string
	State  session.State
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s rejected in state %q: %s", e.Op, e.State, e.Reason)
}

func usageErr(op string, state session.State, reason string) error {
	return &UsageError{Op: op, State: state, Reason: reason}
}

// InvariantError reports a broken internal invariant. The session is
// considered corrupted; the controller ends it and the error must not be
// swallowed.
type InvariantError struct {
	SessionID string
	Err       error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("session %s corrupted: %v", e.SessionID, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
