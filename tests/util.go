package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email string,
	roles []string,
	supervisorID string,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if supervisorID != "" {
		usr.SupervisorID = null.StringFrom(supervisorID)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateAssignment(
	t *testing.T,
	repo task.Repository,
	taskID, memberID string,
	status task.Status,
	deadline time.Time,
) task.Assignment {
	t.Helper()

	now := time.Now().UTC()
	a, err := repo.CreateAssignment(context.Background(), task.Assignment{
		TaskID:    taskID,
		MemberID:  memberID,
		Status:    status,
		Deadline:  deadline.UTC(),
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

func CreateRoutineTask(t *testing.T, repo task.Repository, memberID, name string) task.RoutineTask {
	t.Helper()

	rt, err := repo.CreateRoutineTask(context.Background(), task.RoutineTask{
		MemberID: memberID,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("CreateRoutineTask() failed: %v", err)
	}
	return rt
}

func CreateRoutineStatus(
	t *testing.T,
	repo task.Repository,
	routineTaskID string,
	date time.Time,
	status task.Status,
	locked bool,
) task.RoutineStatus {
	t.Helper()

	rs, err := repo.CreateRoutineStatus(context.Background(), task.RoutineStatus{
		RoutineTaskID: routineTaskID,
		Date:          core.DateOf(date),
		Status:        status,
		IsLocked:      locked,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRoutineStatus() failed: %v", err)
	}
	return rs
}

func CreateMatter(t *testing.T, repo escalation.Repository, subject string, members ...string) escalation.Matter {
	t.Helper()

	m, err := repo.CreateMatter(context.Background(), escalation.Matter{
		Status:    "OPEN",
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
	}, members)
	if err != nil {
		t.Fatalf("CreateMatter() failed: %v", err)
	}
	return m
}

func CreateTimeWindow(
	t *testing.T,
	repo dayclose.WindowRepository,
	userType, openTime, closeTime, closingStart, closingEnd string,
) dayclose.TimeWindow {
	t.Helper()

	w, err := repo.UpsertTimeWindow(context.Background(), dayclose.TimeWindow{
		UserType:           userType,
		DayOpenTime:        openTime,
		DayCloseTime:       closeTime,
		ClosingWindowStart: closingStart,
		ClosingWindowEnd:   closingEnd,
	})
	if err != nil {
		t.Fatalf("CreateTimeWindow() failed: %v", err)
	}
	return w
}

func CreateSlotLog(
	t *testing.T,
	repo dayclose.SlotLogRepository,
	userID string,
	date time.Time,
	status task.Status,
) dayclose.SlotLog {
	t.Helper()

	sl, err := repo.CreateSlotLog(context.Background(), dayclose.SlotLog{
		UserID: userID,
		Date:   core.DateOf(date),
		Status: status,
	})
	if err != nil {
		t.Fatalf("CreateSlotLog() failed: %v", err)
	}
	return sl
}
