package main

import (
	"log"
	"os"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/user"
	emailsvc "github.com/mwalimu/kazi/services/email"
	"github.com/mwalimu/kazi/storage/database"
	sqlxrepos "github.com/mwalimu/kazi/storage/database/sqlx"
)

var logger *log.Logger

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	dcRepo := sqlxrepos.NewDayCloseRepository(db)
	taskRepo := sqlxrepos.NewTaskRepository(db)
	winRepo := sqlxrepos.NewWindowRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	escSvc := escalation.NewService(sqlxrepos.NewEscalationRepository(db), dcRepo)
	dcSvc := dayclose.NewService(db, dayclose.Repos{
		Request:  dcRepo,
		Windows:  winRepo,
		Settings: sqlxrepos.NewSettingsRepository(db),
		Slots:    sqlxrepos.NewSlotLogRepository(db),
		Tasks:    taskRepo,
	}, escSvc, usrSvc, emailsvc.NewConsoleService(conf), nopLogger{}, conf)

	// start CLI
	cli := commandLine{
		db:      db,
		usrSvc:  usrSvc,
		escSvc:  escSvc,
		dcSvc:   dcSvc,
		winRepo: winRepo,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
