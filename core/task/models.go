package task

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Kind tags the two task-like entity families sharing the status machine.
type Kind string

const (
	KindAssigned Kind = "assigned"
	KindRoutine  Kind = "routine"
)

// Status is the closed set of verification states a task-like entity moves
// through. Progress order: not_started -> in_progress -> pending_verification
// -> done -> verified, with the explicit review/reopen back-edges defined by
// the transition table in machine.go.
type Status string

const (
	StatusNotStarted          Status = "not_started"
	StatusInProgress          Status = "in_progress"
	StatusPendingVerification Status = "pending_verification"
	StatusDone                Status = "done"
	StatusVerified            Status = "verified"
)

var AllStatuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusPendingVerification,
	StatusDone,
	StatusVerified,
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Outstanding reports whether the status still blocks a day-close
// (anything short of done/verified).
func (s Status) Outstanding() bool {
	return s != StatusDone && s != StatusVerified
}

// Actor is the capability under which a transition is requested.
type Actor string

const (
	ActorDoer     Actor = "doer"
	ActorObserver Actor = "observer"
	// ActorNone tags a requester with no standing over the entity at all.
	ActorNone Actor = "none"
)

// Assignment is one member's copy of an assigned task; one row per
// (task, assigned member). Forward moves belong to the member (doer),
// review moves to a supervisor/admin (observer).
type Assignment struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	MemberID  string    `json:"member_id" db:"member_id"`
	Status    Status    `json:"status" db:"status"`
	Deadline  time.Time `json:"deadline" db:"deadline"`  // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// RoutineTask is a recurring daily duty owned by a member; its per-day
// progress lives in RoutineStatus rows created lazily.
type RoutineTask struct {
	ID       string `json:"id" db:"id"`
	MemberID string `json:"member_id" db:"member_id"`
	Name     string `json:"name" db:"name"`
}

// RoutineStatus is the status of one routine task on one calendar day;
// exactly one row per (routine task, date) once the day has been touched.
// IsLocked only ever goes false to true here, set by day-close submission.
type RoutineStatus struct {
	ID            string      `json:"id" db:"id"`
	RoutineTaskID string      `json:"routine_task_id" db:"routine_task_id"`
	Date          time.Time   `json:"date" db:"date"` // UTC midnight
	Status        Status      `json:"status" db:"status"`
	IsLocked      bool        `json:"is_locked" db:"is_locked"`
	Comment       null.String `json:"comment" db:"comment"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"` // UTC
}
