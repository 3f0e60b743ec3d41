package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/task"
)

var _ task.Repository = (*taskRepository)(nil)

type taskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateAssignment(_ context.Context, a task.Assignment, _ ...core.DBExecutor) (task.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *taskRepository) GetAssignment(_ context.Context, id string, _ ...core.DBExecutor) (task.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return task.Assignment{}, task.ErrNotFound
}

func (repo *taskRepository) QueryMemberAssignments(_ context.Context, memberID string, _ ...core.DBExecutor) ([]task.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]task.Assignment, 0)
	for _, a := range repo.db.assignments {
		if a.MemberID == memberID {
			assignments = append(assignments, *a)
		}
	}
	sortAssignments(assignments)
	return assignments, nil
}

func (repo *taskRepository) QueryOutstandingAssignments(_ context.Context, memberID string, _ ...core.DBExecutor) ([]task.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]task.Assignment, 0)
	for _, a := range repo.db.assignments {
		if a.MemberID == memberID && a.Status.Outstanding() {
			assignments = append(assignments, *a)
		}
	}
	sortAssignments(assignments)
	return assignments, nil
}

func (repo *taskRepository) UpdateAssignment(_ context.Context, a task.Assignment, prevUpdatedAt time.Time, _ ...core.DBExecutor) (task.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.assignments[a.ID]
	if !ok {
		return task.Assignment{}, task.ErrNotFound
	}
	if !cur.UpdatedAt.Equal(prevUpdatedAt) {
		return task.Assignment{}, task.ErrConflict
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *taskRepository) CreateRoutineTask(_ context.Context, rt task.RoutineTask, _ ...core.DBExecutor) (task.RoutineTask, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if rt.ID == "" {
		rt.ID = uuid.New().String()
	}
	repo.db.routineTasks[rt.ID] = &rt
	return rt, nil
}

func (repo *taskRepository) GetRoutineTask(_ context.Context, id string, _ ...core.DBExecutor) (task.RoutineTask, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rt, ok := repo.db.routineTasks[id]; ok {
		return *rt, nil
	}
	return task.RoutineTask{}, task.ErrNotFound
}

func (repo *taskRepository) QueryMemberRoutineTasks(_ context.Context, memberID string, _ ...core.DBExecutor) ([]task.RoutineTask, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.RoutineTask, 0)
	for _, rt := range repo.db.routineTasks {
		if rt.MemberID == memberID {
			tasks = append(tasks, *rt)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}

func (repo *taskRepository) GetRoutineStatus(_ context.Context, routineTaskID string, date time.Time, _ ...core.DBExecutor) (task.RoutineStatus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rs := range repo.db.routineStatuses {
		if rs.RoutineTaskID == routineTaskID && core.SameDate(rs.Date, date) {
			return *rs, nil
		}
	}
	return task.RoutineStatus{}, task.ErrNotFound
}

func (repo *taskRepository) CreateRoutineStatus(_ context.Context, rs task.RoutineStatus, _ ...core.DBExecutor) (task.RoutineStatus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if rs.ID == "" {
		rs.ID = uuid.New().String()
	}
	rs.Date = core.DateOf(rs.Date)
	repo.db.routineStatuses[rs.ID] = &rs
	return rs, nil
}

func (repo *taskRepository) UpdateRoutineStatus(_ context.Context, rs task.RoutineStatus, prevUpdatedAt time.Time, _ ...core.DBExecutor) (task.RoutineStatus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.routineStatuses[rs.ID]
	if !ok {
		return task.RoutineStatus{}, task.ErrNotFound
	}
	if !cur.UpdatedAt.Equal(prevUpdatedAt) {
		return task.RoutineStatus{}, task.ErrConflict
	}
	repo.db.routineStatuses[rs.ID] = &rs
	return rs, nil
}

func (repo *taskRepository) QueryRoutineStatuses(_ context.Context, memberID string, date time.Time, _ ...core.DBExecutor) ([]task.RoutineStatus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	statuses := make([]task.RoutineStatus, 0)
	for _, rs := range repo.db.routineStatuses {
		rt, ok := repo.db.routineTasks[rs.RoutineTaskID]
		if !ok || rt.MemberID != memberID {
			continue
		}
		if core.SameDate(rs.Date, date) {
			statuses = append(statuses, *rs)
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].RoutineTaskID < statuses[j].RoutineTaskID })
	return statuses, nil
}

func sortAssignments(assignments []task.Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Deadline.Equal(assignments[j].Deadline) {
			return assignments[i].ID < assignments[j].ID
		}
		return assignments[i].Deadline.Before(assignments[j].Deadline)
	})
}
