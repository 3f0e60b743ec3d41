package dayclose

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/kazi/core/task"
)

// RequestStatus is the day-close request lifecycle:
// none -> pending -> approved | rejected, with approved -> pending as the
// administrative reopen edge.
type RequestStatus string

const (
	RequestNone     RequestStatus = "none"
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Request is the persisted day-close workflow object; exactly one per
// (user, date), never deleted. The four log fields are append-only audit
// trails: member-side general/routine notes and the immediate supervisor's
// (IS) counterparts.
type Request struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"user_id" db:"user_id"`
	Date         time.Time     `json:"date" db:"date"` // UTC midnight
	Status       RequestStatus `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"` // UTC
	ApprovedAt   null.Time     `json:"approved_at" db:"approved_at"`
	ApprovedBy   null.String   `json:"approved_by" db:"approved_by"`
	GeneralLog   string        `json:"general_log" db:"general_log"`
	RoutineLog   string        `json:"routine_log" db:"routine_log"`
	ISGeneralLog string        `json:"is_general_log" db:"is_general_log"`
	ISRoutineLog string        `json:"is_routine_log" db:"is_routine_log"`
}

// appendLog appends one timestamped line to an audit log field.
func appendLog(log string, at time.Time, actorID, note string) string {
	line := fmt.Sprintf("[%s] %s: %s", at.UTC().Format(time.RFC3339), actorID, note)
	if log == "" {
		return line
	}
	return log + "\n" + line
}

// TimeWindow is the per-user-type open/close schedule. Times are "HH:MM"
// wall-clock values; the closing window may span midnight
// (ClosingWindowEnd < ClosingWindowStart).
type TimeWindow struct {
	UserType           string `json:"user_type" db:"user_type" validate:"required"`
	DayOpenTime        string `json:"day_open_time" db:"day_open_time" validate:"required,clocktime"`
	DayCloseTime       string `json:"day_close_time" db:"day_close_time" validate:"required,clocktime"`
	ClosingWindowStart string `json:"closing_window_start" db:"closing_window_start" validate:"required,clocktime"`
	ClosingWindowEnd   string `json:"closing_window_end" db:"closing_window_end" validate:"required,clocktime"`
}

// UserWindowOverride carries a user's custom open/close times (honored for
// the open check only when UseCustomTimes) and the day open/close stamps.
type UserWindowOverride struct {
	UserID         string      `json:"user_id" db:"user_id"`
	DayOpenTime    string      `json:"day_open_time" db:"day_open_time"`
	DayCloseTime   string      `json:"day_close_time" db:"day_close_time"`
	UseCustomTimes bool        `json:"use_custom_times" db:"use_custom_times"`
	DayOpenedAt    null.Time   `json:"day_opened_at" db:"day_opened_at"`
	DayClosedAt    null.Time   `json:"day_closed_at" db:"day_closed_at"`
}

// SlotLog is one MRI (rhythm-indicator) duty row, supplied read-only by an
// external collaborator.
type SlotLog struct {
	ID     string      `json:"id" db:"id"`
	UserID string      `json:"user_id" db:"user_id"`
	Date   time.Time   `json:"date" db:"date"` // UTC midnight
	Status task.Status `json:"status" db:"status"`
}

// AuditEntry records an administrative toggle or lifecycle resolution.
type AuditEntry struct {
	ID        string    `json:"id" db:"id"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	Action    string    `json:"action" db:"action"`
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// TriageAction is a day-close triage decision for one outstanding
// assignment.
type TriageAction string

const (
	// TriageMarkDone marks the assignment done directly, the deliberate
	// fast-path deviation from the transition table, valid only here.
	TriageMarkDone TriageAction = "done"
	// TriageMoveDeadline pushes the deadline forward and resets the
	// assignment to not_started.
	TriageMoveDeadline TriageAction = "move"
)

type TriageDecision struct {
	AssignmentID string       `json:"assignment_id" validate:"required"`
	Action       TriageAction `json:"action" validate:"required,oneof=done move"`
	NewDeadline  time.Time    `json:"new_deadline,omitempty"`
}

// SubmitInput is the day-close submission payload: triage decisions for
// outstanding assignments, checkbox completions for routine tasks and the
// member's closing comment.
type SubmitInput struct {
	Triage      []TriageDecision `json:"triage" validate:"dive"`
	RoutineDone []string         `json:"routine_done"`
	Comment     string           `json:"comment"`
}

// CloseWindow is the gate's answer to a close check.
type CloseWindow struct {
	Allowed          bool `json:"allowed"`
	SecondsRemaining int  `json:"seconds_remaining"`
	Bypassed         bool `json:"bypassed"`
}

// RoutineItem pairs a routine task with its (possibly virtual) status row
// for the day under consideration.
type RoutineItem struct {
	Task   task.RoutineTask   `json:"task"`
	Status task.RoutineStatus `json:"status"`
}

// Preparation is the outstanding-work snapshot backing the close-day wizard.
type Preparation struct {
	MRICleared          bool              `json:"mri_cleared"`
	OutstandingAssigned []task.Assignment `json:"outstanding_assigned"`
	OutstandingRoutine  []RoutineItem     `json:"outstanding_routine"`
}

// ReasonCode identifies why a day-close is blocked.
type ReasonCode string

const (
	ReasonWindowClosed     ReasonCode = "window_closed"
	ReasonPaused           ReasonCode = "paused"
	ReasonOutstandingTasks ReasonCode = "outstanding_tasks"
	ReasonMRIPending       ReasonCode = "mri_pending"
)

// Reason is one structured blocking reason; callers render explanations from
// these, never from a bare boolean.
type Reason struct {
	Code      ReasonCode        `json:"code"`
	OpenCount int               `json:"open_count,omitempty"`
	Assigned  []task.Assignment `json:"assigned,omitempty"`
	Routine   []RoutineItem     `json:"routine,omitempty"`
}

type Eligibility struct {
	Eligible bool        `json:"eligible"`
	Window   CloseWindow `json:"window"`
	Reasons  []Reason    `json:"reasons"`
}

// StatusInfo is the display payload for a user's day-close state on a date.
type StatusInfo struct {
	Request       Request               `json:"request"`
	Pause         PauseInfo             `json:"pause"`
	BypassEnabled bool                  `json:"bypass_enabled"`
}

// PauseInfo mirrors escalation.PauseState without importing it into every
// API consumer.
type PauseInfo struct {
	Paused         bool `json:"paused"`
	OpenCount      int  `json:"open_count"`
	OverrideActive bool `json:"override_active"`
}
