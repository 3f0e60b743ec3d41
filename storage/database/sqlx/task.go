package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/task"
)

type taskRepository struct {
	exec core.DBExecutor
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(exec core.DBExecutor) *taskRepository {
	return &taskRepository{exec: exec}
}

func (repo taskRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const (
	assignmentColumns    = `id, task_id, member_id, status, deadline, updated_at`
	routineTaskColumns   = `id, member_id, name`
	routineStatusColumns = `id, routine_task_id, date, status, is_locked, comment, updated_at`

	// done and verified are settled; everything else is outstanding
	outstandingStatuses = `('not_started', 'in_progress', 'pending_verification')`
)

func (repo taskRepository) CreateAssignment(ctx context.Context, a task.Assignment, exec ...core.DBExecutor) (task.Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	q := `INSERT INTO assignment (` + assignmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		a.ID, a.TaskID, a.MemberID, a.Status, a.Deadline.UTC(), a.UpdatedAt.UTC(),
	)
	if err != nil {
		return task.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo taskRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (task.Assignment, error) {
	var a task.Assignment
	q := `SELECT ` + assignmentColumns + ` FROM assignment WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &a, q, id); err != nil {
		return task.Assignment{}, repo.trapNoRowsErr(err, "finding assignment")
	}
	return a, nil
}

func (repo taskRepository) QueryMemberAssignments(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]task.Assignment, error) {
	assignments := make([]task.Assignment, 0)
	q := `SELECT ` + assignmentColumns + ` FROM assignment WHERE member_id = $1 ORDER BY deadline, id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &assignments, q, memberID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignments, nil
}

func (repo taskRepository) QueryOutstandingAssignments(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]task.Assignment, error) {
	assignments := make([]task.Assignment, 0)
	q := `SELECT ` + assignmentColumns + ` FROM assignment
		WHERE member_id = $1 AND status IN ` + outstandingStatuses + ` ORDER BY deadline, id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &assignments, q, memberID); err != nil {
		return nil, errors.Wrap(err, "querying outstanding assignments")
	}
	return assignments, nil
}

func (repo taskRepository) UpdateAssignment(ctx context.Context, a task.Assignment, prevUpdatedAt time.Time, exec ...core.DBExecutor) (task.Assignment, error) {
	q := `UPDATE assignment SET status = $1, deadline = $2, updated_at = $3 WHERE id = $4 AND updated_at = $5`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		a.Status, a.Deadline.UTC(), a.UpdatedAt.UTC(), a.ID, prevUpdatedAt.UTC(),
	)
	if err != nil {
		return task.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return task.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n == 0 {
		return task.Assignment{}, task.ErrConflict
	}
	return a, nil
}

func (repo taskRepository) CreateRoutineTask(ctx context.Context, rt task.RoutineTask, exec ...core.DBExecutor) (task.RoutineTask, error) {
	if rt.ID == "" {
		rt.ID = uuid.New().String()
	}
	q := `INSERT INTO routine_task (` + routineTaskColumns + `) VALUES ($1, $2, $3)`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, rt.ID, rt.MemberID, rt.Name); err != nil {
		return task.RoutineTask{}, errors.Wrap(err, "inserting routine task")
	}
	return rt, nil
}

func (repo taskRepository) GetRoutineTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.RoutineTask, error) {
	var rt task.RoutineTask
	q := `SELECT ` + routineTaskColumns + ` FROM routine_task WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &rt, q, id); err != nil {
		return task.RoutineTask{}, repo.trapNoRowsErr(err, "finding routine task")
	}
	return rt, nil
}

func (repo taskRepository) QueryMemberRoutineTasks(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]task.RoutineTask, error) {
	tasks := make([]task.RoutineTask, 0)
	q := `SELECT ` + routineTaskColumns + ` FROM routine_task WHERE member_id = $1 ORDER BY name`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &tasks, q, memberID); err != nil {
		return nil, errors.Wrap(err, "querying routine tasks")
	}
	return tasks, nil
}

func (repo taskRepository) GetRoutineStatus(ctx context.Context, routineTaskID string, date time.Time, exec ...core.DBExecutor) (task.RoutineStatus, error) {
	var rs task.RoutineStatus
	q := `SELECT ` + routineStatusColumns + ` FROM routine_status WHERE routine_task_id = $1 AND date = $2`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &rs, q, routineTaskID, core.DateOf(date)); err != nil {
		return task.RoutineStatus{}, repo.trapNoRowsErr(err, "finding routine status")
	}
	return rs, nil
}

func (repo taskRepository) CreateRoutineStatus(ctx context.Context, rs task.RoutineStatus, exec ...core.DBExecutor) (task.RoutineStatus, error) {
	if rs.ID == "" {
		rs.ID = uuid.New().String()
	}
	rs.Date = core.DateOf(rs.Date)
	q := `INSERT INTO routine_status (` + routineStatusColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		rs.ID, rs.RoutineTaskID, rs.Date, rs.Status, rs.IsLocked, rs.Comment, rs.UpdatedAt.UTC(),
	)
	if err != nil {
		return task.RoutineStatus{}, errors.Wrap(err, "inserting routine status")
	}
	return rs, nil
}

func (repo taskRepository) UpdateRoutineStatus(ctx context.Context, rs task.RoutineStatus, prevUpdatedAt time.Time, exec ...core.DBExecutor) (task.RoutineStatus, error) {
	q := `UPDATE routine_status SET status = $1, is_locked = $2, comment = $3, updated_at = $4
		WHERE id = $5 AND updated_at = $6`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		rs.Status, rs.IsLocked, rs.Comment, rs.UpdatedAt.UTC(), rs.ID, prevUpdatedAt.UTC(),
	)
	if err != nil {
		return task.RoutineStatus{}, errors.Wrap(err, "updating routine status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return task.RoutineStatus{}, errors.Wrap(err, "updating routine status")
	}
	if n == 0 {
		return task.RoutineStatus{}, task.ErrConflict
	}
	return rs, nil
}

func (repo taskRepository) QueryRoutineStatuses(ctx context.Context, memberID string, date time.Time, exec ...core.DBExecutor) ([]task.RoutineStatus, error) {
	statuses := make([]task.RoutineStatus, 0)
	q := `SELECT rs.id, rs.routine_task_id, rs.date, rs.status, rs.is_locked, rs.comment, rs.updated_at
		FROM routine_status rs
		JOIN routine_task rt ON rt.id = rs.routine_task_id
		WHERE rt.member_id = $1 AND rs.date = $2
		ORDER BY rs.routine_task_id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &statuses, q, memberID, core.DateOf(date)); err != nil {
		return nil, errors.Wrap(err, "querying routine statuses")
	}
	return statuses, nil
}
