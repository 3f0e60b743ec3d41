package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/user"
	emailsvc "github.com/mwalimu/kazi/services/email"
	logsvc "github.com/mwalimu/kazi/services/logger"
	"github.com/mwalimu/kazi/storage/database"
	sqlxrepos "github.com/mwalimu/kazi/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "CRON : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	dcRepo := sqlxrepos.NewDayCloseRepository(db)
	taskRepo := sqlxrepos.NewTaskRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	escSvc := escalation.NewService(sqlxrepos.NewEscalationRepository(db), dcRepo)
	dcSvc := dayclose.NewService(db, dayclose.Repos{
		Request:  dcRepo,
		Windows:  sqlxrepos.NewWindowRepository(db),
		Settings: sqlxrepos.NewSettingsRepository(db),
		Slots:    sqlxrepos.NewSlotLogRepository(db),
		Tasks:    taskRepo,
	}, escSvc, usrSvc, mailSvc, logger, conf)

	s := newSweeper(dcSvc, usrSvc, mailSvc, logger, conf)

	scheduler := cron.New()
	if _, err = scheduler.AddFunc("* * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()
		if sent := s.sweep(ctx, time.Now()); sent > 0 {
			logger.Info(fmt.Sprintf("sent %d day-close reminder(s)", sent))
		}
	}); err != nil {
		logger.Fatal(fmt.Sprintf("scheduling sweep: %v", err), err)
	}

	logger.Info("day-close reminder scheduler starting")
	scheduler.Start()
	defer scheduler.Stop()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: stopping scheduler", sig))
}
