package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
	inmemdb "github.com/mwalimu/kazi/storage/database/inmem"
	testutil "github.com/mwalimu/kazi/tests"
)

var now = time.Date(2021, 3, 8, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (task.Repository, user.Repository, *task.Service) {
	t.Helper()
	db := inmemdb.Open()
	taskRepo := inmemdb.NewTaskRepository(db)
	userRepo := inmemdb.NewUserRepository(db)
	svc := task.NewService(taskRepo, user.NewService(userRepo)).WithClock(func() time.Time { return now })
	return taskRepo, userRepo, svc
}

func TestMoveAssignment(t *testing.T) {
	ctx := context.Background()
	taskRepo, userRepo, svc := setup(t)

	supervisor := testutil.CreateUser(t, userRepo, "Imani", "imani", "imani@kazi.test", []string{user.RoleSupervisor}, "")
	member := testutil.CreateUser(t, userRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, supervisor.ID)
	admin := testutil.CreateUser(t, userRepo, "Zuri", "zuri", "zuri@kazi.test", []string{user.RoleAdminPrincipal}, "")
	outsider := testutil.CreateUser(t, userRepo, "Neema", "neema", "neema@kazi.test", []string{user.RoleStaff}, "")

	a := testutil.CreateAssignment(t, taskRepo, "task1", member.ID, task.StatusNotStarted, now.Add(48*time.Hour))

	// doer walks the happy path
	a2, err := svc.MoveAssignment(ctx, member, a.ID, task.StatusInProgress)
	if err != nil {
		t.Fatalf("MoveAssignment() failed: %v", err)
	}
	if a2.Status != task.StatusInProgress {
		t.Errorf("Status = %s; want %s", a2.Status, task.StatusInProgress)
	}
	if _, err = svc.MoveAssignment(ctx, member, a.ID, task.StatusPendingVerification); err != nil {
		t.Fatalf("MoveAssignment() failed: %v", err)
	}

	// doer may not verify their own work
	if _, err = svc.MoveAssignment(ctx, member, a.ID, task.StatusDone); err == nil {
		t.Error("doer verified their own work; want ForbiddenError")
	} else if _, ok := err.(*task.ForbiddenError); !ok {
		t.Errorf("MoveAssignment() = %v; want ForbiddenError", err)
	}

	// an unrelated member has no standing either
	if _, err = svc.MoveAssignment(ctx, outsider, a.ID, task.StatusDone); err == nil {
		t.Error("outsider moved the assignment; want ForbiddenError")
	}

	// the supervisor verifies
	a2, err = svc.MoveAssignment(ctx, supervisor, a.ID, task.StatusDone)
	if err != nil {
		t.Fatalf("MoveAssignment() as supervisor failed: %v", err)
	}
	if a2.Status != task.StatusDone {
		t.Errorf("Status = %s; want %s", a2.Status, task.StatusDone)
	}

	// done -> in_progress is not an edge at all
	if _, err = svc.MoveAssignment(ctx, admin, a.ID, task.StatusInProgress); err == nil {
		t.Error("moved done -> in_progress; want IllegalTransitionError")
	} else if _, ok := err.(*task.IllegalTransitionError); !ok {
		t.Errorf("MoveAssignment() = %v; want IllegalTransitionError", err)
	}

	// admins hold observer capability everywhere
	if _, err = svc.MoveAssignment(ctx, admin, a.ID, task.StatusVerified); err != nil {
		t.Errorf("MoveAssignment() as admin failed: %v", err)
	}
}

func TestMoveAssignmentConflict(t *testing.T) {
	ctx := context.Background()
	taskRepo, userRepo, _ := setup(t)

	member := testutil.CreateUser(t, userRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")
	a := testutil.CreateAssignment(t, taskRepo, "task1", member.ID, task.StatusNotStarted, now.Add(time.Hour))

	// a concurrent write lands between a stale reader's read and its update
	stale := a
	a.UpdatedAt = now.Add(time.Minute)
	if _, err := taskRepo.UpdateAssignment(ctx, a, stale.UpdatedAt); err != nil {
		t.Fatalf("UpdateAssignment() failed: %v", err)
	}
	if _, err := taskRepo.UpdateAssignment(ctx, a, stale.UpdatedAt); err != task.ErrConflict {
		t.Errorf("UpdateAssignment() = %v; want ErrConflict", err)
	}
}

func TestMoveRoutine(t *testing.T) {
	ctx := context.Background()
	taskRepo, userRepo, svc := setup(t)

	member := testutil.CreateUser(t, userRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")
	rt := testutil.CreateRoutineTask(t, taskRepo, member.ID, "tidy store room")

	// first touch of the day creates the row lazily
	rs, err := svc.MoveRoutine(ctx, member, rt.ID, now, task.StatusInProgress, "")
	if err != nil {
		t.Fatalf("MoveRoutine() failed: %v", err)
	}
	if rs.Status != task.StatusInProgress {
		t.Errorf("Status = %s; want %s", rs.Status, task.StatusInProgress)
	}
	if !rs.Date.Equal(time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v; want UTC midnight of the day", rs.Date)
	}

	rs, err = svc.MoveRoutine(ctx, member, rt.ID, now, task.StatusPendingVerification, "store room done")
	if err != nil {
		t.Fatalf("MoveRoutine() failed: %v", err)
	}
	if rs.Comment.String != "store room done" {
		t.Errorf("Comment = %q; want %q", rs.Comment.String, "store room done")
	}

	// each day is its own row
	nextDay := now.Add(24 * time.Hour)
	rs2, err := svc.MoveRoutine(ctx, member, rt.ID, nextDay, task.StatusInProgress, "")
	if err != nil {
		t.Fatalf("MoveRoutine() next day failed: %v", err)
	}
	if rs2.ID == rs.ID {
		t.Error("next day reused the previous day's status row")
	}
}

func TestMoveRoutineLocked(t *testing.T) {
	ctx := context.Background()
	taskRepo, userRepo, svc := setup(t)

	member := testutil.CreateUser(t, userRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")
	rt := testutil.CreateRoutineTask(t, taskRepo, member.ID, "tidy store room")
	testutil.CreateRoutineStatus(t, taskRepo, rt.ID, now, task.StatusDone, true)

	if _, err := svc.MoveRoutine(ctx, member, rt.ID, now, task.StatusInProgress, ""); err != task.ErrLocked {
		t.Errorf("MoveRoutine() on locked row = %v; want ErrLocked", err)
	}
}

func TestRoutineDay(t *testing.T) {
	ctx := context.Background()
	taskRepo, userRepo, svc := setup(t)

	member := testutil.CreateUser(t, userRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")
	rt1 := testutil.CreateRoutineTask(t, taskRepo, member.ID, "lock gates")
	rt2 := testutil.CreateRoutineTask(t, taskRepo, member.ID, "tidy store room")
	testutil.CreateRoutineStatus(t, taskRepo, rt2.ID, now, task.StatusDone, false)

	items, err := svc.RoutineDay(ctx, member.ID, now)
	if err != nil {
		t.Fatalf("RoutineDay() failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d; want 2", len(items))
	}
	for _, item := range items {
		switch item.Task.ID {
		case rt1.ID:
			if item.Status.Status != task.StatusNotStarted {
				t.Errorf("untouched routine status = %s; want %s", item.Status.Status, task.StatusNotStarted)
			}
			if item.Status.ID != "" {
				t.Error("untouched routine got a persisted row")
			}
		case rt2.ID:
			if item.Status.Status != task.StatusDone {
				t.Errorf("routine status = %s; want %s", item.Status.Status, task.StatusDone)
			}
		}
	}
}
