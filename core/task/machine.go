package task

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("task not found")

	// ErrLocked signals a routine daily status frozen by day-close submission.
	ErrLocked = errors.New("routine status is locked")

	// ErrConflict signals a stale status read; the caller may retry with a
	// fresh read. This is the only retryable error in the workflow.
	ErrConflict = errors.New("status changed concurrently, retry with a fresh read")
)

// IllegalTransitionError reports a requested edge missing from the
// transition table, regardless of who asked.
type IllegalTransitionError struct {
	Current   Status
	Requested Status
	Actor     Actor
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s (as %s)", e.Current, e.Requested, e.Actor)
}

// ForbiddenError reports a legal edge requested under the wrong capability.
type ForbiddenError struct {
	Current   Status
	Requested Status
	Actor     Actor
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s may not move %s -> %s", e.Actor, e.Current, e.Requested)
}

// transitions is the single source of truth for legal status moves and the
// capability allowed to trigger each. Corrections must step through this
// table too; the only sanctioned deviation is the day-close triage fast path
// applied inside dayclose.Service.Submit.
var transitions = map[Status]map[Status]Actor{
	StatusNotStarted: {
		StatusInProgress: ActorDoer,
	},
	StatusInProgress: {
		StatusPendingVerification: ActorDoer,
	},
	StatusPendingVerification: {
		StatusInProgress: ActorObserver, // reject
		StatusDone:       ActorObserver,
		StatusVerified:   ActorObserver,
	},
	StatusDone: {
		StatusPendingVerification: ActorObserver, // recall
		StatusVerified:            ActorObserver,
	},
	StatusVerified: {
		StatusInProgress:          ActorObserver, // reopen
		StatusPendingVerification: ActorObserver, // reopen
	},
}

// CanTransition validates current -> requested under the given capability.
// A missing edge yields IllegalTransitionError; a legal edge under the wrong
// capability yields ForbiddenError.
func CanTransition(current, requested Status, actor Actor) error {
	edges, ok := transitions[current]
	if !ok {
		return &IllegalTransitionError{Current: current, Requested: requested, Actor: actor}
	}
	allowed, ok := edges[requested]
	if !ok {
		return &IllegalTransitionError{Current: current, Requested: requested, Actor: actor}
	}
	if actor != allowed {
		return &ForbiddenError{Current: current, Requested: requested, Actor: actor}
	}
	return nil
}

// NextStatuses lists the states the given capability may move current to.
func NextStatuses(current Status, actor Actor) []Status {
	var next []Status
	for _, s := range AllStatuses {
		if to, ok := transitions[current][s]; ok && to == actor {
			next = append(next, s)
		}
	}
	return next
}
