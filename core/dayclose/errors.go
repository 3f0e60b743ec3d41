package dayclose

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("day-close request not found")

	// ErrWindowClosed signals a close attempt outside the configured window
	// with no bypass active.
	ErrWindowClosed = errors.New("outside the day-close window")

	// ErrDateMismatch signals an open attempt for a date other than today.
	ErrDateMismatch = errors.New("a day may only be opened on its own date")

	// ErrAlreadyClosed signals an approved request already exists for the date.
	ErrAlreadyClosed = errors.New("day already closed for this date")

	// ErrAlreadySubmitted is raised by storage when a racing duplicate insert
	// hits the (user, date) unique constraint; Submit treats it as idempotent
	// success when the surviving row is still pending.
	ErrAlreadySubmitted = errors.New("day-close request already submitted for this date")

	// ErrMRIPending signals uncleared rhythm-indicator slot logs for the date.
	ErrMRIPending = errors.New("rhythm indicator slots not cleared for this date")

	// ErrConflict signals the request's status moved between read and write;
	// the caller may re-read and retry.
	ErrConflict = errors.New("day-close request was modified concurrently")

	ErrForbidden = errors.New("not allowed to act on this request")
)

// InvalidStateError reports a lifecycle action not applicable from the
// request's current status.
type InvalidStateError struct {
	Status RequestStatus
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a %s request", e.Action, e.Status)
}

// NotEligibleError carries the structured blocking reasons of a rejected
// submission attempt.
type NotEligibleError struct {
	Reasons []Reason
}

func (e *NotEligibleError) Error() string {
	codes := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		codes = append(codes, string(r.Code))
	}
	return fmt.Sprintf("not eligible to close day: %v", codes)
}
