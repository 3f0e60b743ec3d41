package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
)

// psql unique_violation
const uniqueViolation = "23505"

type dayCloseRepository struct {
	exec core.DBExecutor
}

var _ dayclose.Repository = (*dayCloseRepository)(nil) // interface compliance check

func NewDayCloseRepository(exec core.DBExecutor) *dayCloseRepository {
	return &dayCloseRepository{exec: exec}
}

func (repo dayCloseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo dayCloseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return dayclose.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const requestColumns = `id, user_id, date, status, created_at, approved_at, approved_by,
	general_log, routine_log, is_general_log, is_routine_log`

func (repo dayCloseRepository) CreateRequest(ctx context.Context, r dayclose.Request, exec ...core.DBExecutor) (dayclose.Request, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Date = core.DateOf(r.Date)
	q := `INSERT INTO day_close_request (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		r.ID, r.UserID, r.Date, r.Status, r.CreatedAt.UTC(), r.ApprovedAt, r.ApprovedBy,
		r.GeneralLog, r.RoutineLog, r.ISGeneralLog, r.ISRoutineLog,
	)
	if err != nil {
		// the (user, date) unique constraint backs submission idempotency
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return dayclose.Request{}, dayclose.ErrAlreadySubmitted
		}
		return dayclose.Request{}, errors.Wrap(err, "inserting day-close request")
	}
	return r, nil
}

func (repo dayCloseRepository) GetRequest(ctx context.Context, userID string, date time.Time, exec ...core.DBExecutor) (dayclose.Request, error) {
	var r dayclose.Request
	q := `SELECT ` + requestColumns + ` FROM day_close_request WHERE user_id = $1 AND date = $2`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &r, q, userID, core.DateOf(date)); err != nil {
		return dayclose.Request{}, repo.trapNoRowsErr(err, "finding day-close request")
	}
	return r, nil
}

func (repo dayCloseRepository) GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (dayclose.Request, error) {
	var r dayclose.Request
	q := `SELECT ` + requestColumns + ` FROM day_close_request WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &r, q, id); err != nil {
		return dayclose.Request{}, repo.trapNoRowsErr(err, "finding day-close request by ID")
	}
	return r, nil
}

func (repo dayCloseRepository) UpdateRequest(ctx context.Context, r dayclose.Request, prev dayclose.RequestStatus, exec ...core.DBExecutor) (dayclose.Request, error) {
	// the status predicate makes resolution a compare-and-swap; a racing
	// resolution leaves zero rows
	q := `UPDATE day_close_request
		SET status = $1, approved_at = $2, approved_by = $3,
			general_log = $4, routine_log = $5, is_general_log = $6, is_routine_log = $7
		WHERE id = $8 AND status = $9`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		r.Status, r.ApprovedAt, r.ApprovedBy,
		r.GeneralLog, r.RoutineLog, r.ISGeneralLog, r.ISRoutineLog, r.ID, prev,
	)
	if err != nil {
		return dayclose.Request{}, errors.Wrap(err, "updating day-close request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dayclose.Request{}, dayclose.ErrConflict
	}
	return r, nil
}

func (repo dayCloseRepository) QueryUserRequests(ctx context.Context, userID string, exec ...core.DBExecutor) ([]dayclose.Request, error) {
	requests := make([]dayclose.Request, 0)
	q := `SELECT ` + requestColumns + ` FROM day_close_request WHERE user_id = $1 ORDER BY date DESC`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &requests, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying day-close requests")
	}
	return requests, nil
}

func (repo dayCloseRepository) RecordAudit(ctx context.Context, actorID, action, detail string, exec ...core.DBExecutor) error {
	q := `INSERT INTO audit_entry (id, actor_id, action, detail, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.getExec(exec).ExecContext(ctx, q, uuid.New().String(), actorID, action, detail, time.Now().UTC())
	return errors.Wrap(err, "inserting audit entry")
}

func (repo dayCloseRepository) QueryAuditEntries(ctx context.Context, action string, exec ...core.DBExecutor) ([]dayclose.AuditEntry, error) {
	entries := make([]dayclose.AuditEntry, 0)
	q := `SELECT id, actor_id, action, detail, created_at FROM audit_entry
		WHERE $1 = '' OR action = $1 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &entries, q, action); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	return entries, nil
}

type windowRepository struct {
	exec core.DBExecutor
}

var _ dayclose.WindowRepository = (*windowRepository)(nil) // interface compliance check

func NewWindowRepository(exec core.DBExecutor) *windowRepository {
	return &windowRepository{exec: exec}
}

func (repo windowRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo windowRepository) GetTimeWindow(ctx context.Context, userType string, exec ...core.DBExecutor) (dayclose.TimeWindow, error) {
	var w dayclose.TimeWindow
	q := `SELECT user_type, day_open_time, day_close_time, closing_window_start, closing_window_end
		FROM time_window WHERE user_type = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &w, q, userType); err != nil {
		if err == sql.ErrNoRows {
			return dayclose.TimeWindow{}, dayclose.ErrNotFound
		}
		return dayclose.TimeWindow{}, errors.Wrap(err, "finding time window")
	}
	return w, nil
}

func (repo windowRepository) UpsertTimeWindow(ctx context.Context, w dayclose.TimeWindow, exec ...core.DBExecutor) (dayclose.TimeWindow, error) {
	q := `INSERT INTO time_window (user_type, day_open_time, day_close_time, closing_window_start, closing_window_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_type) DO UPDATE
		SET day_open_time = $2, day_close_time = $3, closing_window_start = $4, closing_window_end = $5`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		w.UserType, w.DayOpenTime, w.DayCloseTime, w.ClosingWindowStart, w.ClosingWindowEnd,
	)
	if err != nil {
		return dayclose.TimeWindow{}, errors.Wrap(err, "upserting time window")
	}
	return w, nil
}

func (repo windowRepository) GetUserWindowOverride(ctx context.Context, userID string, exec ...core.DBExecutor) (dayclose.UserWindowOverride, error) {
	var o dayclose.UserWindowOverride
	q := `SELECT user_id, day_open_time, day_close_time, use_custom_times, day_opened_at, day_closed_at
		FROM user_window_override WHERE user_id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &o, q, userID); err != nil {
		if err == sql.ErrNoRows {
			return dayclose.UserWindowOverride{}, dayclose.ErrNotFound
		}
		return dayclose.UserWindowOverride{}, errors.Wrap(err, "finding user window override")
	}
	return o, nil
}

func (repo windowRepository) UpsertUserWindowOverride(ctx context.Context, o dayclose.UserWindowOverride, exec ...core.DBExecutor) (dayclose.UserWindowOverride, error) {
	q := `INSERT INTO user_window_override (user_id, day_open_time, day_close_time, use_custom_times, day_opened_at, day_closed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET day_open_time = $2, day_close_time = $3, use_custom_times = $4, day_opened_at = $5, day_closed_at = $6`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		o.UserID, o.DayOpenTime, o.DayCloseTime, o.UseCustomTimes, o.DayOpenedAt, o.DayClosedAt,
	)
	if err != nil {
		return dayclose.UserWindowOverride{}, errors.Wrap(err, "upserting user window override")
	}
	return o, nil
}

func (repo windowRepository) StampDayOpened(ctx context.Context, userID string, at time.Time, exec ...core.DBExecutor) error {
	q := `INSERT INTO user_window_override (user_id, day_opened_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET day_opened_at = $2`
	_, err := repo.getExec(exec).ExecContext(ctx, q, userID, at.UTC())
	return errors.Wrap(err, "stamping day opened")
}

func (repo windowRepository) StampDayClosed(ctx context.Context, userID string, at time.Time, exec ...core.DBExecutor) error {
	q := `INSERT INTO user_window_override (user_id, day_closed_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET day_closed_at = $2`
	_, err := repo.getExec(exec).ExecContext(ctx, q, userID, at.UTC())
	return errors.Wrap(err, "stamping day closed")
}

type settingsRepository struct {
	exec core.DBExecutor
}

var _ dayclose.SettingsRepository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(exec core.DBExecutor) *settingsRepository {
	return &settingsRepository{exec: exec}
}

func (repo settingsRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo settingsRepository) BypassEnabled(ctx context.Context, exec ...core.DBExecutor) (bool, error) {
	var enabled bool
	row := repo.getExec(exec).QueryRowxContext(ctx, `SELECT bypass_enabled FROM settings WHERE id`)
	if err := row.Scan(&enabled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errors.Wrap(err, "reading settings")
	}
	return enabled, nil
}

func (repo settingsRepository) SetBypass(ctx context.Context, on bool, exec ...core.DBExecutor) error {
	q := `INSERT INTO settings (id, bypass_enabled) VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET bypass_enabled = $1`
	_, err := repo.getExec(exec).ExecContext(ctx, q, on)
	return errors.Wrap(err, "updating settings")
}

type slotLogRepository struct {
	exec core.DBExecutor
}

var _ dayclose.SlotLogRepository = (*slotLogRepository)(nil) // interface compliance check

func NewSlotLogRepository(exec core.DBExecutor) *slotLogRepository {
	return &slotLogRepository{exec: exec}
}

func (repo slotLogRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo slotLogRepository) QuerySlotLogs(ctx context.Context, userID string, date time.Time, exec ...core.DBExecutor) ([]dayclose.SlotLog, error) {
	logs := make([]dayclose.SlotLog, 0)
	q := `SELECT id, user_id, date, status FROM slot_log WHERE user_id = $1 AND date = $2`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &logs, q, userID, core.DateOf(date)); err != nil {
		return nil, errors.Wrap(err, "querying slot logs")
	}
	return logs, nil
}

func (repo slotLogRepository) CreateSlotLog(ctx context.Context, sl dayclose.SlotLog, exec ...core.DBExecutor) (dayclose.SlotLog, error) {
	if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	sl.Date = core.DateOf(sl.Date)
	q := `INSERT INTO slot_log (id, user_id, date, status) VALUES ($1, $2, $3, $4)`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, sl.ID, sl.UserID, sl.Date, sl.Status); err != nil {
		return dayclose.SlotLog{}, errors.Wrap(err, "inserting slot log")
	}
	return sl, nil
}
