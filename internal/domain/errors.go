package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when the workflow cannot move from its current stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrEmptySession is returned by Current on a completed swipe session.
	ErrEmptySession = errors.New("swipe session has no current candidate")

	// ErrAlreadyComplete is returned by Like/Pass on a completed swipe session.
	ErrAlreadyComplete = errors.New("swipe session already complete")

	// ErrNoLikedCandidates means the user swiped through everything without liking anything.
	// The only way forward is a reset of the stage's session.
	ErrNoLikedCandidates = errors.New("no liked candidates; reset and try again")

	// ErrSwipeIncomplete is returned when choosing before every candidate was shown.
	ErrSwipeIncomplete = errors.New("swipe session not complete")

	// ErrUnknownCandidate is returned when a selection references an id that was not offered.
	ErrUnknownCandidate = errors.New("unknown candidate")

	ErrMissingDestination = errors.New("destination_input is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PersistenceError reports a failed call to the external store. The in-memory
// workflow state is kept as-is; the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable is always true; store failures never invalidate the plan.
func (e *PersistenceError) Retryable() bool { return true }
