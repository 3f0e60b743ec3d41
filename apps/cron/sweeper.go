package main

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/user"
)

var watchedUserTypes = []string{user.TypeStaff, user.TypeSupervisor}

// sweeper reminds members to close their day while their closing window is
// open. It runs off a minute tick and sends at most one reminder per member
// per day.
type sweeper struct {
	dcSvc    *dayclose.Service
	usrSvc   *user.Service
	mailSvc  core.EmailService
	logger   core.Logger
	conf     *core.Config
	reminded map[string]time.Time // member ID -> date last reminded
}

func newSweeper(
	dcSvc *dayclose.Service,
	usrSvc *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *sweeper {
	return &sweeper{
		dcSvc:    dcSvc,
		usrSvc:   usrSvc,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
		reminded: make(map[string]time.Time),
	}
}

// sweep checks each user type's closing window and reminds members whose day
// is still unclosed. Returns the number of reminders sent.
func (s *sweeper) sweep(ctx context.Context, now time.Time) int {
	now = now.UTC()
	date := core.DateOf(now)
	sent := 0

	for _, userType := range watchedUserTypes {
		window, err := s.dcSvc.Gate().CanClose(ctx, userType, now)
		if err != nil {
			if errors.Cause(err) != dayclose.ErrNotFound {
				s.logger.Error(fmt.Sprintf("checking close window for %q: %v", userType, err), err)
			}
			continue
		}
		if !window.Allowed || window.Bypassed {
			continue
		}

		members, err := s.usrSvc.QueryByType(ctx, userType)
		if err != nil {
			s.logger.Error(fmt.Sprintf("querying %q members: %v", userType, err), err)
			continue
		}

		for _, member := range members {
			if !member.IsActive {
				continue
			}
			if last, ok := s.reminded[member.ID]; ok && core.SameDate(last, date) {
				continue
			}

			info, err := s.dcSvc.Status(ctx, member.ID, date)
			if err != nil {
				s.logger.Error(fmt.Sprintf("getting day-close status for %s: %v", member.Username, err), err)
				continue
			}
			switch info.Request.Status {
			case dayclose.RequestPending, dayclose.RequestApproved:
				continue
			}

			s.remind(member, window)
			s.reminded[member.ID] = date
			sent++
		}
	}
	return sent
}

func (s *sweeper) remind(member user.User, window dayclose.CloseWindow) {
	remaining := time.Duration(window.SecondsRemaining) * time.Second
	s.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: member.Name, Address: member.Email}},
		Subject: "Your day is still open",
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour closing window is open for another %s. Please review your tasks and submit your day-close request.",
			member.Name, remaining.Round(time.Minute),
		),
	})
}
