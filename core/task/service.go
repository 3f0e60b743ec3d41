package task

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/user"
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		QueryMemberAssignments(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]Assignment, error)
		QueryOutstandingAssignments(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]Assignment, error)
		// UpdateAssignment compares-and-swaps on prevUpdatedAt; a stale read
		// surfaces as ErrConflict.
		UpdateAssignment(ctx context.Context, a Assignment, prevUpdatedAt time.Time, exec ...core.DBExecutor) (Assignment, error)

		CreateRoutineTask(ctx context.Context, rt RoutineTask, exec ...core.DBExecutor) (RoutineTask, error)
		GetRoutineTask(ctx context.Context, id string, exec ...core.DBExecutor) (RoutineTask, error)
		QueryMemberRoutineTasks(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]RoutineTask, error)
		GetRoutineStatus(ctx context.Context, routineTaskID string, date time.Time, exec ...core.DBExecutor) (RoutineStatus, error)
		CreateRoutineStatus(ctx context.Context, rs RoutineStatus, exec ...core.DBExecutor) (RoutineStatus, error)
		UpdateRoutineStatus(ctx context.Context, rs RoutineStatus, prevUpdatedAt time.Time, exec ...core.DBExecutor) (RoutineStatus, error)
		QueryRoutineStatuses(ctx context.Context, memberID string, date time.Time, exec ...core.DBExecutor) ([]RoutineStatus, error)
	}

	// UserDirectory resolves members and their supervisor chain; satisfied by
	// *user.Service.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo  Repository
		users UserDirectory
		clock func() time.Time
	}
)

func NewService(repo Repository, users UserDirectory) *Service {
	return &Service{
		repo:  repo,
		users: users,
		clock: time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (svc *Service) WithClock(clock func() time.Time) *Service {
	svc.clock = clock
	return svc
}

// actorRole resolves the capability actor holds over memberID's work:
// the member themselves is the doer; an admin or the member's immediate
// supervisor is an observer; anyone else has no standing.
func (svc *Service) actorRole(ctx context.Context, actor user.User, memberID string) (Actor, error) {
	if actor.ID == memberID {
		return ActorDoer, nil
	}
	if actor.IsAdmin() {
		return ActorObserver, nil
	}
	member, err := svc.users.GetByID(ctx, memberID)
	if err != nil {
		return ActorNone, errors.Wrap(err, "resolving member")
	}
	if actor.Supervises(member) {
		return ActorObserver, nil
	}
	return ActorNone, nil
}

// MoveAssignment applies one transition to an assigned-task assignment on
// behalf of actor, validating the edge against the transition table.
func (svc *Service) MoveAssignment(ctx context.Context, actor user.User, id string, next Status) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "getting assignment")
	}

	role, err := svc.actorRole(ctx, actor, a.MemberID)
	if err != nil {
		return Assignment{}, err
	}
	if err = CanTransition(a.Status, next, role); err != nil {
		return Assignment{}, err
	}

	prev := a.UpdatedAt
	a.Status = next
	a.UpdatedAt = svc.clock().UTC()
	a, err = svc.repo.UpdateAssignment(ctx, a, prev)
	return a, errors.Wrap(err, "updating assignment status")
}

// MoveRoutine applies one transition to a routine task's status for one
// calendar day, creating the day's row lazily on first touch. A locked row
// rejects every mutation with ErrLocked.
func (svc *Service) MoveRoutine(ctx context.Context, actor user.User, routineTaskID string, date time.Time, next Status, comment string) (RoutineStatus, error) {
	rt, err := svc.repo.GetRoutineTask(ctx, routineTaskID)
	if err != nil {
		return RoutineStatus{}, errors.Wrap(err, "getting routine task")
	}

	role, err := svc.actorRole(ctx, actor, rt.MemberID)
	if err != nil {
		return RoutineStatus{}, err
	}

	date = core.DateOf(date)
	rs, err := svc.repo.GetRoutineStatus(ctx, routineTaskID, date)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return RoutineStatus{}, errors.Wrap(err, "getting routine status")
		}
		rs = RoutineStatus{
			RoutineTaskID: routineTaskID,
			Date:          date,
			Status:        StatusNotStarted,
			UpdatedAt:     svc.clock().UTC(),
		}
		if rs, err = svc.repo.CreateRoutineStatus(ctx, rs); err != nil {
			return RoutineStatus{}, errors.Wrap(err, "creating routine status")
		}
	}

	if rs.IsLocked {
		return RoutineStatus{}, ErrLocked
	}
	if err = CanTransition(rs.Status, next, role); err != nil {
		return RoutineStatus{}, err
	}

	prev := rs.UpdatedAt
	rs.Status = next
	if comment != "" {
		rs.Comment = null.StringFrom(comment)
	}
	rs.UpdatedAt = svc.clock().UTC()
	rs, err = svc.repo.UpdateRoutineStatus(ctx, rs, prev)
	return rs, errors.Wrap(err, "updating routine status")
}

// MemberAssignments lists all assignments owned by memberID.
func (svc *Service) MemberAssignments(ctx context.Context, memberID string) ([]Assignment, error) {
	return svc.repo.QueryMemberAssignments(ctx, memberID)
}

// RoutineDay returns every routine task of memberID paired with its status
// row for date, substituting a virtual not_started row where the day has not
// been touched yet.
func (svc *Service) RoutineDay(ctx context.Context, memberID string, date time.Time) ([]RoutineDayItem, error) {
	date = core.DateOf(date)
	routines, err := svc.repo.QueryMemberRoutineTasks(ctx, memberID)
	if err != nil {
		return nil, errors.Wrap(err, "querying routine tasks")
	}
	statuses, err := svc.repo.QueryRoutineStatuses(ctx, memberID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying routine statuses")
	}

	byRoutine := make(map[string]RoutineStatus, len(statuses))
	for _, rs := range statuses {
		byRoutine[rs.RoutineTaskID] = rs
	}

	items := make([]RoutineDayItem, 0, len(routines))
	for _, rt := range routines {
		item := RoutineDayItem{Task: rt}
		if rs, ok := byRoutine[rt.ID]; ok {
			item.Status = rs
		} else {
			item.Status = RoutineStatus{RoutineTaskID: rt.ID, Date: date, Status: StatusNotStarted}
		}
		items = append(items, item)
	}
	return items, nil
}

// RoutineDayItem pairs a routine task with its (possibly virtual) status row
// for one day.
type RoutineDayItem struct {
	Task   RoutineTask   `json:"task"`
	Status RoutineStatus `json:"status"`
}
