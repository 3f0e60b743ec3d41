package main

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"testing"
	"time"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/user"
	emailsvc "github.com/mwalimu/kazi/services/email"
	"github.com/mwalimu/kazi/storage/database"
	inmemdb "github.com/mwalimu/kazi/storage/database/inmem"
	testutil "github.com/mwalimu/kazi/tests"
)

var (
	usrRepo user.Repository
	escRepo escalation.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	escRepo = inmemdb.NewEscalationRepository(db)
	dcRepo := inmemdb.NewDayCloseRepository(db)
	winRepo := inmemdb.NewWindowRepository(db)

	conf := &core.Config{
		AppName:          "kazi",
		TestMode:         true,
		DefaultFromEmail: mail.Address{Name: "kazi", Address: "noreply@kazi.test"},
		DayOpenGrace:     10 * time.Minute,
	}
	usrSvc := user.NewService(usrRepo)
	escSvc := escalation.NewService(escRepo, dcRepo)
	dcSvc := dayclose.NewService(db, dayclose.Repos{
		Request:  dcRepo,
		Windows:  winRepo,
		Settings: inmemdb.NewSettingsRepository(db),
		Slots:    inmemdb.NewSlotLogRepository(db),
		Tasks:    inmemdb.NewTaskRepository(db),
	}, escSvc, usrSvc, emailsvc.NewConsoleServiceMock(conf), nopLogger{}, conf)

	// start CLI
	return &commandLine{
		usrSvc:  usrSvc,
		escSvc:  escSvc,
		dcSvc:   dcSvc,
		winRepo: winRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want %v%s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *database.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create requires a NAME"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "slot_log", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	runTests(t, cli, tests)
}

func Test_commandLine_seedWindows(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"seedwindows"}, wantErr: errHelp},
		{
			name:    "missing cend",
			args:    []string{"seedwindows", "-type", "staff", "-open", "08:00", "-close", "17:00", "-cstart", "16:50"},
			wantErr: errHelp,
		},
		{
			name:       "bad clock time",
			args:       []string{"seedwindows", "-type", "staff", "-open", "8am", "-close", "17:00", "-cstart", "16:50", "-cend", "17:20"},
			wantErrStr: `invalid clock time "8am", expected HH:MM`,
		},
		{
			name: "ok",
			args: []string{"seedwindows", "-type", "staff", "-open", "08:00", "-close", "17:00", "-cstart", "16:50", "-cend", "17:20"},
		},
		{
			name: "midnight-spanning closing window",
			args: []string{"seedwindows", "-type", "supervisor", "-open", "08:00", "-close", "23:59", "-cstart", "23:50", "-cend", "00:20"},
		},
	}
	runTests(t, cli, tests)

	w, err := cli.winRepo.GetTimeWindow(context.Background(), user.TypeStaff)
	if err != nil {
		t.Fatalf("GetTimeWindow() failed: %v", err)
	}
	if w.DayOpenTime != "08:00" || w.ClosingWindowEnd != "17:20" {
		t.Errorf("window = %+v; want open 08:00, cend 17:20", w)
	}
}

func Test_commandLine_bypass(t *testing.T) {
	cli := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@kazi.test", []string{user.RoleAdminOwner}, "")
	staff := testutil.CreateUser(t, usrRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")

	tests := []cliTest{
		{name: "no args", args: []string{"bypass"}, wantErr: errHelp},
		{name: "no actor", args: []string{"bypass", "-on"}, wantErr: errHelp},
		{name: "both on and off", args: []string{"bypass", "-on", "-off", "-actor", admin.ID}, wantErr: errHelp},
		{name: "neither on nor off", args: []string{"bypass", "-actor", admin.ID}, wantErr: errHelp},
		{name: "unknown actor", args: []string{"bypass", "-on", "-actor", "nope"}, wantErr: user.ErrNotFound},
		{name: "actor not admin", args: []string{"bypass", "-on", "-actor", staff.ID}, wantErr: dayclose.ErrForbidden},
		{name: "on", args: []string{"bypass", "-on", "-actor", admin.ID}},
	}
	runTests(t, cli, tests)

	on, err := cli.dcSvc.Bypass(context.Background())
	if err != nil {
		t.Fatalf("Bypass() failed: %v", err)
	}
	if !on {
		t.Error("bypass should be enabled")
	}

	if err := cli.run([]string{"admin", "bypass", "-off", "-actor", admin.ID}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
	if on, _ = cli.dcSvc.Bypass(context.Background()); on {
		t.Error("bypass should be disabled")
	}
}

func Test_commandLine_override(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@kazi.test", []string{user.RoleAdminOwner}, "")
	staff := testutil.CreateUser(t, usrRepo, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")
	testutil.CreateMatter(t, escRepo, "missing inventory", staff.ID)

	tests := []cliTest{
		{name: "no args", args: []string{"override"}, wantErr: errHelp},
		{name: "no user", args: []string{"override", "-on", "-actor", admin.ID}, wantErr: errHelp},
		{name: "no toggle", args: []string{"override", "-user", staff.ID, "-actor", admin.ID}, wantErr: errHelp},
		{name: "actor not admin", args: []string{"override", "-user", staff.ID, "-on", "-actor", staff.ID}, wantErr: escalation.ErrForbidden},
		{name: "on", args: []string{"override", "-user", staff.ID, "-on", "-actor", admin.ID}},
	}
	runTests(t, cli, tests)

	state, err := cli.escSvc.PauseState(ctx, staff.ID)
	if err != nil {
		t.Fatalf("PauseState() failed: %v", err)
	}
	if state.Paused || !state.OverrideActive {
		t.Errorf("state = %+v; want override active and not paused", state)
	}

	if err := cli.run([]string{"admin", "override", "-user", staff.ID, "-off", "-actor", admin.ID}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
	if state, _ = cli.escSvc.PauseState(ctx, staff.ID); !state.Paused {
		t.Error("pause should be back once the override is lifted")
	}
}

func Test_commandLine_addUser(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)

	sup := testutil.CreateUser(t, usrRepo, "Imani", "imani", "imani@kazi.test", []string{user.RoleSupervisor}, "")

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-name", "Baraka", "-username", "baraka"}, wantErr: errHelp},
		{
			name: "ok",
			args: []string{"adduser", "-name", "Baraka", "-username", " Baraka ", "-email", "BARAKA@kazi.test", "-supervisor", sup.ID},
		},
	}
	runTests(t, cli, tests)

	usr, err := cli.usrSvc.GetByUsername(ctx, "baraka")
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if usr.Email != "baraka@kazi.test" {
		t.Errorf("email = %q; want cleaned lowercase", usr.Email)
	}
	if !usr.IsStaff() {
		t.Error("default role should be staff")
	}
	if usr.SupervisorID.String != sup.ID {
		t.Errorf("supervisorID = %q; want %q", usr.SupervisorID.String, sup.ID)
	}
}
