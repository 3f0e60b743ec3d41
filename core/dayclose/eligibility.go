package dayclose

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
)

type (
	// TaskReader is the slice of task storage the eligibility engine needs;
	// satisfied by task.Repository.
	TaskReader interface {
		QueryOutstandingAssignments(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]task.Assignment, error)
		QueryMemberRoutineTasks(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]task.RoutineTask, error)
		QueryRoutineStatuses(ctx context.Context, memberID string, date time.Time, exec ...core.DBExecutor) ([]task.RoutineStatus, error)
	}

	SlotLogRepository interface {
		QuerySlotLogs(ctx context.Context, userID string, date time.Time, exec ...core.DBExecutor) ([]SlotLog, error)
		CreateSlotLog(ctx context.Context, sl SlotLog, exec ...core.DBExecutor) (SlotLog, error)
	}

	// Engine aggregates the gate, the escalation pause tracker and
	// outstanding task state into a day-close eligibility verdict.
	Engine struct {
		gate  *Gate
		pause *escalation.Service
		tasks TaskReader
		slots SlotLogRepository
	}
)

func NewEngine(gate *Gate, pause *escalation.Service, tasks TaskReader, slots SlotLogRepository) *Engine {
	return &Engine{
		gate:  gate,
		pause: pause,
		tasks: tasks,
		slots: slots,
	}
}

// Prepare assembles the outstanding-work snapshot for the close-day wizard:
// uncleared MRI slots, assignments not yet done/verified and routine tasks
// not yet done or locked for the date.
func (e *Engine) Prepare(ctx context.Context, userID string, date time.Time) (Preparation, error) {
	date = core.DateOf(date)

	mriCleared, err := e.mriCleared(ctx, userID, date)
	if err != nil {
		return Preparation{}, err
	}

	assigned, err := e.tasks.QueryOutstandingAssignments(ctx, userID)
	if err != nil {
		return Preparation{}, errors.Wrap(err, "querying outstanding assignments")
	}

	routine, err := e.outstandingRoutine(ctx, userID, date)
	if err != nil {
		return Preparation{}, err
	}

	return Preparation{
		MRICleared:          mriCleared,
		OutstandingAssigned: assigned,
		OutstandingRoutine:  routine,
	}, nil
}

// CheckEligible combines the closing window (or bypass), the escalation
// pause and outstanding work into a structured verdict. With acceptTriage
// the outstanding-task reason is waived; the caller takes responsibility
// for triaging every listed item at submission.
func (e *Engine) CheckEligible(ctx context.Context, usr user.User, date, now time.Time, acceptTriage bool) (Eligibility, error) {
	date = core.DateOf(date)
	var reasons []Reason

	window, err := e.gate.CanClose(ctx, usr.Type(), now)
	if err != nil {
		return Eligibility{}, err
	}
	if !window.Allowed {
		reasons = append(reasons, Reason{Code: ReasonWindowClosed})
	}

	pause, err := e.pause.PauseState(ctx, usr.ID)
	if err != nil {
		return Eligibility{}, err
	}
	if pause.Paused {
		reasons = append(reasons, Reason{Code: ReasonPaused, OpenCount: pause.OpenCount})
	}

	prep, err := e.Prepare(ctx, usr.ID, date)
	if err != nil {
		return Eligibility{}, err
	}
	if !prep.MRICleared {
		reasons = append(reasons, Reason{Code: ReasonMRIPending})
	}
	if !acceptTriage && (len(prep.OutstandingAssigned) > 0 || len(prep.OutstandingRoutine) > 0) {
		reasons = append(reasons, Reason{
			Code:     ReasonOutstandingTasks,
			Assigned: prep.OutstandingAssigned,
			Routine:  prep.OutstandingRoutine,
		})
	}

	return Eligibility{
		Eligible: len(reasons) == 0,
		Window:   window,
		Reasons:  reasons,
	}, nil
}

func (e *Engine) mriCleared(ctx context.Context, userID string, date time.Time) (bool, error) {
	slots, err := e.slots.QuerySlotLogs(ctx, userID, date)
	if err != nil {
		return false, errors.Wrap(err, "querying slot logs")
	}
	for _, sl := range slots {
		if sl.Status == task.StatusNotStarted {
			return false, nil
		}
	}
	return true, nil
}

// outstandingRoutine lists the user's routine tasks still blocking the date:
// a task with no row yet counts as not_started; locked rows count as
// handled.
func (e *Engine) outstandingRoutine(ctx context.Context, userID string, date time.Time) ([]RoutineItem, error) {
	routines, err := e.tasks.QueryMemberRoutineTasks(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying routine tasks")
	}
	statuses, err := e.tasks.QueryRoutineStatuses(ctx, userID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying routine statuses")
	}

	byRoutine := make(map[string]task.RoutineStatus, len(statuses))
	for _, rs := range statuses {
		byRoutine[rs.RoutineTaskID] = rs
	}

	var outstanding []RoutineItem
	for _, rt := range routines {
		rs, ok := byRoutine[rt.ID]
		if !ok {
			rs = task.RoutineStatus{RoutineTaskID: rt.ID, Date: date, Status: task.StatusNotStarted}
		}
		if rs.IsLocked || !rs.Status.Outstanding() {
			continue
		}
		outstanding = append(outstanding, RoutineItem{Task: rt, Status: rs})
	}
	return outstanding, nil
}
