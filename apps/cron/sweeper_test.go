package main

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/user"
	emailsvc "github.com/mwalimu/kazi/services/email"
	inmemdb "github.com/mwalimu/kazi/storage/database/inmem"
	testutil "github.com/mwalimu/kazi/tests"
)

func at(h, m, s int) time.Time {
	return time.Date(2021, 3, 8, h, m, s, 0, time.UTC)
}

type sweeperFixture struct {
	svc    *dayclose.Service
	member user.User
	sw     *sweeper
	now    time.Time
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	emailsvc.ClearSentMessages()

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	taskRepo := inmemdb.NewTaskRepository(db)
	dcRepo := inmemdb.NewDayCloseRepository(db)
	winRepo := inmemdb.NewWindowRepository(db)

	conf := &core.Config{
		AppName:          "kazi",
		TestMode:         true,
		DefaultFromEmail: mail.Address{Name: "kazi", Address: "noreply@kazi.test"},
		DayOpenGrace:     10 * time.Minute,
	}
	f := &sweeperFixture{now: at(17, 0, 0)}
	clock := func() time.Time { return f.now }

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo)
	escSvc := escalation.NewService(inmemdb.NewEscalationRepository(db), dcRepo).WithClock(clock)
	f.svc = dayclose.NewService(db, dayclose.Repos{
		Request:  dcRepo,
		Windows:  winRepo,
		Settings: inmemdb.NewSettingsRepository(db),
		Slots:    inmemdb.NewSlotLogRepository(db),
		Tasks:    taskRepo,
	}, escSvc, usrSvc, mailSvc, nopLogger{}, conf).WithClock(clock)

	testutil.CreateTimeWindow(t, winRepo, user.TypeStaff, "08:00", "17:00", "16:50", "17:20")
	sup := testutil.CreateUser(t, usrRepo, "Imani", "imani", "imani@kazi.test", []string{user.RoleSupervisor}, "")
	f.member = testutil.CreateUser(t, usrRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, sup.ID)

	f.sw = newSweeper(f.svc, usrSvc, mailSvc, nopLogger{}, conf)
	return f
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func Test_sweeper_sweep(t *testing.T) {
	ctx := context.Background()
	f := newSweeperFixture(t)

	t.Run("outside the window nothing happens", func(t *testing.T) {
		if sent := f.sw.sweep(ctx, at(12, 0, 0)); sent != 0 {
			t.Errorf("sweep() = %v; want 0", sent)
		}
	})

	t.Run("open window reminds the unclosed member", func(t *testing.T) {
		if sent := f.sw.sweep(ctx, f.now); sent != 1 {
			t.Fatalf("sweep() = %v; want 1", sent)
		}
		msgs := emailsvc.SentMessages
		if len(msgs) != 1 {
			t.Fatalf("len(SentMessages) = %v; want 1", len(msgs))
		}
		if to := msgs[0].To[0].Address; to != f.member.Email {
			t.Errorf("reminder sent to %q; want %q", to, f.member.Email)
		}
	})

	t.Run("one reminder per member per day", func(t *testing.T) {
		if sent := f.sw.sweep(ctx, f.now.Add(time.Minute)); sent != 0 {
			t.Errorf("sweep() = %v; want 0", sent)
		}
	})

	t.Run("submitted members are left alone", func(t *testing.T) {
		f2 := newSweeperFixture(t)
		if _, err := f2.svc.Submit(ctx, f2.member, f2.now, dayclose.SubmitInput{}); err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		emailsvc.ClearSentMessages()
		if sent := f2.sw.sweep(ctx, f2.now); sent != 0 {
			t.Errorf("sweep() = %v; want 0", sent)
		}
	})
}
