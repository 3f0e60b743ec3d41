package dayclose

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
)

type (
	Repository interface {
		// CreateRequest inserts the request row; a racing duplicate on the
		// (user, date) unique constraint surfaces as ErrAlreadySubmitted.
		CreateRequest(ctx context.Context, r Request, exec ...core.DBExecutor) (Request, error)
		GetRequest(ctx context.Context, userID string, date time.Time, exec ...core.DBExecutor) (Request, error)
		GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
		// UpdateRequest writes the row only while its status is still prev;
		// zero rows affected surfaces as ErrConflict.
		UpdateRequest(ctx context.Context, r Request, prev RequestStatus, exec ...core.DBExecutor) (Request, error)
		QueryUserRequests(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Request, error)
		RecordAudit(ctx context.Context, actorID, action, detail string, exec ...core.DBExecutor) error
		QueryAuditEntries(ctx context.Context, action string, exec ...core.DBExecutor) ([]AuditEntry, error)
	}

	// UserDirectory resolves principals and the supervisor chain; satisfied
	// by *user.Service.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// Repos bundles the storage surfaces the lifecycle works across.
	Repos struct {
		Request  Repository
		Windows  WindowRepository
		Settings SettingsRepository
		Slots    SlotLogRepository
		Tasks    task.Repository
	}

	// Service is the day-close request lifecycle. It owns the one sanctioned
	// deviation from the task transition table: the triage fast path applied
	// during Submit (mark an assignment done directly, or move its deadline
	// and reset it), never exposed as a general-purpose operation.
	Service struct {
		db      core.DB
		repos   Repos
		gate    *Gate
		engine  *Engine
		pause   *escalation.Service
		users   UserDirectory
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
		clock   func() time.Time
	}
)

func NewService(
	db core.DB,
	repos Repos,
	pause *escalation.Service,
	users UserDirectory,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	gate := NewGate(repos.Windows, repos.Settings, conf.DayOpenGrace)
	return &Service{
		db:      db,
		repos:   repos,
		gate:    gate,
		engine:  NewEngine(gate, pause, repos.Tasks, repos.Slots),
		pause:   pause,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (svc *Service) WithClock(clock func() time.Time) *Service {
	svc.clock = clock
	return svc
}

// Gate exposes the time window gate for callers that only re-evaluate
// windows (countdowns, the cron sweep).
func (svc *Service) Gate() *Gate {
	return svc.gate
}

// Now returns the service's notion of current time.
func (svc *Service) Now() time.Time {
	return svc.clock().UTC()
}

// OpenDay checks the open window for today and stamps the user's day as
// opened.
func (svc *Service) OpenDay(ctx context.Context, usr user.User, now time.Time) error {
	now = now.UTC()
	if err := svc.gate.CanOpen(ctx, usr.Type(), usr.ID, core.DateOf(now), now); err != nil {
		return err
	}
	return errors.Wrap(svc.repos.Windows.StampDayOpened(ctx, usr.ID, now), "stamping day opened")
}

// Prepare returns the outstanding-work snapshot for the close-day wizard.
func (svc *Service) Prepare(ctx context.Context, userID string, date time.Time) (Preparation, error) {
	return svc.engine.Prepare(ctx, userID, date)
}

// CheckEligible returns the structured eligibility verdict for closing date.
func (svc *Service) CheckEligible(ctx context.Context, usr user.User, date time.Time) (Eligibility, error) {
	return svc.engine.CheckEligible(ctx, usr, date, svc.clock().UTC(), false)
}

// Submit records the user's day-close request for date. Eligibility must
// pass outright, or every outstanding item must be covered by the supplied
// triage decisions and routine completions, which are applied atomically
// with the request row. Every completed routine status touched is locked.
// A second submit against an already-pending request is idempotent.
func (svc *Service) Submit(ctx context.Context, usr user.User, date time.Time, in SubmitInput) (Request, error) {
	date = core.DateOf(date)
	now := svc.clock().UTC()

	existing, err := svc.repos.Request.GetRequest(ctx, usr.ID, date)
	switch errors.Cause(err) {
	case nil:
		switch existing.Status {
		case RequestApproved:
			return Request{}, ErrAlreadyClosed
		case RequestPending:
			// idempotent: same request, no duplicate row
			return existing, nil
		}
	case ErrNotFound:
	default:
		return Request{}, errors.Wrap(err, "getting existing request")
	}

	acceptTriage := len(in.Triage) > 0 || len(in.RoutineDone) > 0
	elig, err := svc.engine.CheckEligible(ctx, usr, date, now, acceptTriage)
	if err != nil {
		return Request{}, err
	}
	if !elig.Eligible {
		return Request{}, &NotEligibleError{Reasons: elig.Reasons}
	}
	if acceptTriage {
		if err = svc.checkTriageCoverage(ctx, usr.ID, date, in); err != nil {
			return Request{}, err
		}
	}

	var req Request
	err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		generalLog := appendLog("", now, usr.ID, submitNote(in.Comment))
		var routineLog string

		for _, d := range in.Triage {
			line, err := svc.applyTriage(ctx, usr, d, now, tx)
			if err != nil {
				return err
			}
			generalLog = appendLog(generalLog, now, usr.ID, line)
		}

		for _, routineTaskID := range in.RoutineDone {
			line, err := svc.completeRoutine(ctx, usr, routineTaskID, date, now, tx)
			if err != nil {
				return err
			}
			if line != "" {
				routineLog = appendLog(routineLog, now, usr.ID, line)
			}
		}

		locked, err := svc.lockCompletedRoutine(ctx, usr.ID, date, now, tx)
		if err != nil {
			return err
		}
		if locked > 0 {
			routineLog = appendLog(routineLog, now, usr.ID, fmt.Sprintf("locked %d completed routine status(es)", locked))
		}

		if existing.ID != "" { // rejected request being resubmitted
			existing.Status = RequestPending
			existing.GeneralLog = existing.GeneralLog + "\n" + generalLog
			if routineLog != "" {
				existing.RoutineLog = existing.RoutineLog + "\n" + routineLog
			}
			req, err = svc.repos.Request.UpdateRequest(ctx, existing, RequestRejected, tx)
			return errors.Wrap(err, "resubmitting request")
		}

		req, err = svc.repos.Request.CreateRequest(ctx, Request{
			UserID:     usr.ID,
			Date:       date,
			Status:     RequestPending,
			CreatedAt:  now,
			GeneralLog: generalLog,
			RoutineLog: routineLog,
		}, tx)
		return errors.Wrap(err, "creating request")
	})
	if errors.Cause(err) == ErrAlreadySubmitted {
		// lost a race; the surviving row carries the same intent if pending
		if won, gerr := svc.repos.Request.GetRequest(ctx, usr.ID, date); gerr == nil {
			if won.Status == RequestPending {
				return won, nil
			}
			return Request{}, ErrAlreadyClosed
		}
		return Request{}, err
	}
	if err != nil {
		return Request{}, err
	}

	svc.notifySupervisor(ctx, usr, fmt.Sprintf("%s submitted their day-close for %s.", usr.Name, date.Format("2006-01-02")))
	return req, nil
}

// Approve resolves a pending request. Only an admin or the member's
// immediate supervisor may approve.
func (svc *Service) Approve(ctx context.Context, actor user.User, requestID string) (Request, error) {
	r, err := svc.repos.Request.GetRequestByID(ctx, requestID)
	if err != nil {
		return Request{}, errors.Wrap(err, "getting request")
	}
	if r.Status != RequestPending {
		return Request{}, &InvalidStateError{Status: r.Status, Action: "approve"}
	}

	member, err := svc.users.GetByID(ctx, r.UserID)
	if err != nil {
		return Request{}, errors.Wrap(err, "resolving member")
	}
	if !actor.IsAdmin() && !actor.Supervises(member) {
		return Request{}, ErrForbidden
	}

	now := svc.clock().UTC()
	r.Status = RequestApproved
	r.ApprovedAt = null.TimeFrom(now)
	r.ApprovedBy = null.StringFrom(actor.ID)
	r.ISGeneralLog = appendLog(r.ISGeneralLog, now, actor.ID, "approved")
	r, err = svc.repos.Request.UpdateRequest(ctx, r, RequestPending)
	if err != nil {
		return Request{}, errors.Wrap(err, "approving request")
	}

	if err = svc.repos.Request.RecordAudit(ctx, actor.ID, "dayclose_approve", r.ID); err != nil {
		return Request{}, errors.Wrap(err, "recording audit entry")
	}
	if err = svc.repos.Windows.StampDayClosed(ctx, r.UserID, now); err != nil {
		return Request{}, errors.Wrap(err, "stamping day closed")
	}
	svc.notifyMember(ctx, member, fmt.Sprintf("Your day-close for %s was approved.", r.Date.Format("2006-01-02")))
	return r, nil
}

// Reject resolves a pending request negatively, recording the approver's
// note in the supervisor-side log.
func (svc *Service) Reject(ctx context.Context, actor user.User, requestID, note string) (Request, error) {
	r, err := svc.repos.Request.GetRequestByID(ctx, requestID)
	if err != nil {
		return Request{}, errors.Wrap(err, "getting request")
	}
	if r.Status != RequestPending {
		return Request{}, &InvalidStateError{Status: r.Status, Action: "reject"}
	}

	member, err := svc.users.GetByID(ctx, r.UserID)
	if err != nil {
		return Request{}, errors.Wrap(err, "resolving member")
	}
	if !actor.IsAdmin() && !actor.Supervises(member) {
		return Request{}, ErrForbidden
	}

	now := svc.clock().UTC()
	r.Status = RequestRejected
	if note == "" {
		note = "rejected"
	}
	r.ISGeneralLog = appendLog(r.ISGeneralLog, now, actor.ID, note)
	r, err = svc.repos.Request.UpdateRequest(ctx, r, RequestPending)
	if err != nil {
		return Request{}, errors.Wrap(err, "rejecting request")
	}

	if err = svc.repos.Request.RecordAudit(ctx, actor.ID, "dayclose_reject", r.ID); err != nil {
		return Request{}, errors.Wrap(err, "recording audit entry")
	}
	svc.notifyMember(ctx, member, fmt.Sprintf("Your day-close for %s was rejected.", r.Date.Format("2006-01-02")))
	return r, nil
}

// Reopen resets an approved request to pending. Only an admin or the
// original approver may reopen.
func (svc *Service) Reopen(ctx context.Context, actor user.User, requestID string) (Request, error) {
	r, err := svc.repos.Request.GetRequestByID(ctx, requestID)
	if err != nil {
		return Request{}, errors.Wrap(err, "getting request")
	}
	if r.Status != RequestApproved {
		return Request{}, &InvalidStateError{Status: r.Status, Action: "reopen"}
	}
	if !actor.IsAdmin() && !(r.ApprovedBy.Valid && r.ApprovedBy.String == actor.ID) {
		return Request{}, ErrForbidden
	}

	now := svc.clock().UTC()
	r.ISGeneralLog = appendLog(r.ISGeneralLog, now, actor.ID, fmt.Sprintf("reopened (was approved by %s)", r.ApprovedBy.String))
	r.Status = RequestPending
	r.ApprovedAt = null.Time{}
	r.ApprovedBy = null.String{}
	r, err = svc.repos.Request.UpdateRequest(ctx, r, RequestApproved)
	if err != nil {
		return Request{}, errors.Wrap(err, "reopening request")
	}

	if err = svc.repos.Request.RecordAudit(ctx, actor.ID, "dayclose_reopen", r.ID); err != nil {
		return Request{}, errors.Wrap(err, "recording audit entry")
	}
	if member, merr := svc.users.GetByID(ctx, r.UserID); merr == nil {
		svc.notifyMember(ctx, member, fmt.Sprintf("Your day-close for %s was reopened.", r.Date.Format("2006-01-02")))
	}
	return r, nil
}

// Status reports the request state plus pause/bypass info for display.
func (svc *Service) Status(ctx context.Context, userID string, date time.Time) (StatusInfo, error) {
	date = core.DateOf(date)

	r, err := svc.repos.Request.GetRequest(ctx, userID, date)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return StatusInfo{}, errors.Wrap(err, "getting request")
		}
		r = Request{UserID: userID, Date: date, Status: RequestNone}
	}

	pause, err := svc.pause.PauseState(ctx, userID)
	if err != nil {
		return StatusInfo{}, err
	}
	bypass, err := svc.repos.Settings.BypassEnabled(ctx)
	if err != nil {
		return StatusInfo{}, errors.Wrap(err, "reading bypass flag")
	}

	return StatusInfo{
		Request:       r,
		Pause:         PauseInfo(pause),
		BypassEnabled: bypass,
	}, nil
}

// History lists the user's past requests, most recent first, with logs.
func (svc *Service) History(ctx context.Context, userID string) ([]Request, error) {
	return svc.repos.Request.QueryUserRequests(ctx, userID)
}

// SetBypass toggles the system-wide day-close bypass flag. Admin only; every
// write is audited.
func (svc *Service) SetBypass(ctx context.Context, actor user.User, on bool) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := svc.repos.Settings.SetBypass(ctx, on); err != nil {
		return errors.Wrap(err, "setting bypass flag")
	}
	return errors.Wrap(
		svc.repos.Request.RecordAudit(ctx, actor.ID, "dayclose_bypass", fmt.Sprintf("enabled=%t", on)),
		"recording audit entry",
	)
}

// SetTimeWindow creates or replaces the closing window config for a user
// type. Admin only; every write is audited.
func (svc *Service) SetTimeWindow(ctx context.Context, actor user.User, w TimeWindow) (TimeWindow, error) {
	if !actor.IsAdmin() {
		return TimeWindow{}, ErrForbidden
	}
	saved, err := svc.repos.Windows.UpsertTimeWindow(ctx, w)
	if err != nil {
		return TimeWindow{}, errors.Wrap(err, "upserting time window")
	}
	return saved, errors.Wrap(
		svc.repos.Request.RecordAudit(ctx, actor.ID, "dayclose_window", fmt.Sprintf("user_type=%s", w.UserType)),
		"recording audit entry",
	)
}

// Bypass reads the system-wide bypass flag.
func (svc *Service) Bypass(ctx context.Context) (bool, error) {
	return svc.repos.Settings.BypassEnabled(ctx)
}

// checkTriageCoverage verifies the submission triages every outstanding
// item; uncovered leftovers keep the submission blocked with structured
// reasons.
func (svc *Service) checkTriageCoverage(ctx context.Context, userID string, date time.Time, in SubmitInput) error {
	prep, err := svc.engine.Prepare(ctx, userID, date)
	if err != nil {
		return err
	}

	triaged := make(map[string]bool, len(in.Triage))
	for _, d := range in.Triage {
		triaged[d.AssignmentID] = true
	}
	completed := make(map[string]bool, len(in.RoutineDone))
	for _, id := range in.RoutineDone {
		completed[id] = true
	}

	var uncoveredAssigned []task.Assignment
	for _, a := range prep.OutstandingAssigned {
		if !triaged[a.ID] {
			uncoveredAssigned = append(uncoveredAssigned, a)
		}
	}
	var uncoveredRoutine []RoutineItem
	for _, item := range prep.OutstandingRoutine {
		if !completed[item.Task.ID] {
			uncoveredRoutine = append(uncoveredRoutine, item)
		}
	}

	if len(uncoveredAssigned) > 0 || len(uncoveredRoutine) > 0 {
		return &NotEligibleError{Reasons: []Reason{{
			Code:     ReasonOutstandingTasks,
			Assigned: uncoveredAssigned,
			Routine:  uncoveredRoutine,
		}}}
	}
	return nil
}

// applyTriage executes one fast-path decision against the doer's own
// assignment: mark done directly, or move the deadline forward and reset to
// not_started. The observer gate does not apply to triage decisions.
func (svc *Service) applyTriage(ctx context.Context, usr user.User, d TriageDecision, now time.Time, tx core.DBTransactor) (string, error) {
	a, err := svc.repos.Tasks.GetAssignment(ctx, d.AssignmentID, tx)
	if err != nil {
		return "", errors.Wrap(err, "getting assignment")
	}
	if a.MemberID != usr.ID {
		return "", ErrForbidden
	}

	prev := a.UpdatedAt
	var line string
	switch d.Action {
	case TriageMarkDone:
		a.Status = task.StatusDone
		line = fmt.Sprintf("triage: assignment %s marked done", a.ID)
	case TriageMoveDeadline:
		if d.NewDeadline.IsZero() || !d.NewDeadline.After(a.Deadline) {
			return "", core.NewValidationError(
				errors.New("moved deadline must be after the current deadline"),
				core.FieldError{Field: "new_deadline", Error: "must be after the current deadline"},
			)
		}
		a.Deadline = d.NewDeadline.UTC()
		a.Status = task.StatusNotStarted
		line = fmt.Sprintf("triage: assignment %s deadline moved to %s", a.ID, a.Deadline.Format("2006-01-02"))
	default:
		return "", core.NewValidationError(
			errors.Errorf("unknown triage action %q", d.Action),
			core.FieldError{Field: "action", Error: "must be done or move"},
		)
	}

	a.UpdatedAt = now
	if _, err = svc.repos.Tasks.UpdateAssignment(ctx, a, prev, tx); err != nil {
		return "", errors.Wrap(err, "applying triage decision")
	}
	return line, nil
}

// completeRoutine marks the member's routine task done for date (creating
// the day row lazily). Locked rows are left untouched.
func (svc *Service) completeRoutine(ctx context.Context, usr user.User, routineTaskID string, date, now time.Time, tx core.DBTransactor) (string, error) {
	rt, err := svc.repos.Tasks.GetRoutineTask(ctx, routineTaskID, tx)
	if err != nil {
		return "", errors.Wrap(err, "getting routine task")
	}
	if rt.MemberID != usr.ID {
		return "", ErrForbidden
	}

	rs, err := svc.repos.Tasks.GetRoutineStatus(ctx, routineTaskID, date, tx)
	if err != nil {
		if errors.Cause(err) != task.ErrNotFound {
			return "", errors.Wrap(err, "getting routine status")
		}
		rs, err = svc.repos.Tasks.CreateRoutineStatus(ctx, task.RoutineStatus{
			RoutineTaskID: routineTaskID,
			Date:          date,
			Status:        task.StatusNotStarted,
			UpdatedAt:     now,
		}, tx)
		if err != nil {
			return "", errors.Wrap(err, "creating routine status")
		}
	}
	if rs.IsLocked {
		return "", nil
	}

	prev := rs.UpdatedAt
	rs.Status = task.StatusDone
	rs.UpdatedAt = now
	if _, err = svc.repos.Tasks.UpdateRoutineStatus(ctx, rs, prev, tx); err != nil {
		return "", errors.Wrap(err, "completing routine status")
	}
	return fmt.Sprintf("%s completed", rt.Name), nil
}

// lockCompletedRoutine freezes every completed routine status of the day;
// the lock never comes back off through this workflow.
func (svc *Service) lockCompletedRoutine(ctx context.Context, userID string, date, now time.Time, tx core.DBTransactor) (int, error) {
	statuses, err := svc.repos.Tasks.QueryRoutineStatuses(ctx, userID, date, tx)
	if err != nil {
		return 0, errors.Wrap(err, "querying routine statuses")
	}

	var locked int
	for _, rs := range statuses {
		if rs.IsLocked || rs.Status.Outstanding() {
			continue
		}
		prev := rs.UpdatedAt
		rs.IsLocked = true
		rs.UpdatedAt = now
		if _, err = svc.repos.Tasks.UpdateRoutineStatus(ctx, rs, prev, tx); err != nil {
			return 0, errors.Wrap(err, "locking routine status")
		}
		locked++
	}
	return locked, nil
}

func submitNote(comment string) string {
	if comment == "" {
		return "day-close submitted"
	}
	return "day-close submitted: " + comment
}

// notifySupervisor mails the member's immediate supervisor. Fire-and-forget:
// failures are logged, never escalated into the workflow.
func (svc *Service) notifySupervisor(ctx context.Context, member user.User, body string) {
	if !member.SupervisorID.Valid {
		return
	}
	sup, err := svc.users.GetByID(ctx, member.SupervisorID.String)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("notify: resolving supervisor of %s: %v", member.ID, err))
		return
	}
	svc.notifyMember(ctx, sup, body)
}

func (svc *Service) notifyMember(_ context.Context, to user.User, body string) {
	if to.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: to.Name, Address: to.Email}},
		Subject:     "Day-close update",
		TextContent: body,
	})
}
