package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
)

var (
	_ dayclose.Repository         = (*dayCloseRepository)(nil)
	_ dayclose.WindowRepository   = (*windowRepository)(nil)
	_ dayclose.SettingsRepository = (*settingsRepository)(nil)
	_ dayclose.SlotLogRepository  = (*slotLogRepository)(nil)
)

type dayCloseRepository struct {
	db *DB
}

func NewDayCloseRepository(db *DB) dayclose.Repository {
	return &dayCloseRepository{db: db}
}

func (repo *dayCloseRepository) CreateRequest(_ context.Context, r dayclose.Request, _ ...core.DBExecutor) (dayclose.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cur := range repo.db.requests {
		if cur.UserID == r.UserID && core.SameDate(cur.Date, r.Date) {
			return dayclose.Request{}, dayclose.ErrAlreadySubmitted
		}
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Date = core.DateOf(r.Date)
	repo.db.requests[r.ID] = &r
	return r, nil
}

func (repo *dayCloseRepository) GetRequest(_ context.Context, userID string, date time.Time, _ ...core.DBExecutor) (dayclose.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.requests {
		if r.UserID == userID && core.SameDate(r.Date, date) {
			return *r, nil
		}
	}
	return dayclose.Request{}, dayclose.ErrNotFound
}

func (repo *dayCloseRepository) GetRequestByID(_ context.Context, id string, _ ...core.DBExecutor) (dayclose.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.requests[id]; ok {
		return *r, nil
	}
	return dayclose.Request{}, dayclose.ErrNotFound
}

func (repo *dayCloseRepository) UpdateRequest(_ context.Context, r dayclose.Request, prev dayclose.RequestStatus, _ ...core.DBExecutor) (dayclose.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.requests[r.ID]
	if !ok || cur.Status != prev {
		return dayclose.Request{}, dayclose.ErrConflict
	}
	repo.db.requests[r.ID] = &r
	return r, nil
}

func (repo *dayCloseRepository) QueryUserRequests(_ context.Context, userID string, _ ...core.DBExecutor) ([]dayclose.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	requests := make([]dayclose.Request, 0)
	for _, r := range repo.db.requests {
		if r.UserID == userID {
			requests = append(requests, *r)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].Date.After(requests[j].Date) })
	return requests, nil
}

func (repo *dayCloseRepository) RecordAudit(_ context.Context, actorID, action, detail string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.audits = append(repo.db.audits, dayclose.AuditEntry{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (repo *dayCloseRepository) QueryAuditEntries(_ context.Context, action string, _ ...core.DBExecutor) ([]dayclose.AuditEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]dayclose.AuditEntry, 0)
	for _, e := range repo.db.audits {
		if action == "" || e.Action == action {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

type windowRepository struct {
	db *DB
}

func NewWindowRepository(db *DB) dayclose.WindowRepository {
	return &windowRepository{db: db}
}

func (repo *windowRepository) GetTimeWindow(_ context.Context, userType string, _ ...core.DBExecutor) (dayclose.TimeWindow, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if w, ok := repo.db.windows[userType]; ok {
		return *w, nil
	}
	return dayclose.TimeWindow{}, dayclose.ErrNotFound
}

func (repo *windowRepository) UpsertTimeWindow(_ context.Context, w dayclose.TimeWindow, _ ...core.DBExecutor) (dayclose.TimeWindow, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.windows[w.UserType] = &w
	return w, nil
}

func (repo *windowRepository) GetUserWindowOverride(_ context.Context, userID string, _ ...core.DBExecutor) (dayclose.UserWindowOverride, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.userWindows[userID]; ok {
		return *o, nil
	}
	return dayclose.UserWindowOverride{}, dayclose.ErrNotFound
}

func (repo *windowRepository) UpsertUserWindowOverride(_ context.Context, o dayclose.UserWindowOverride, _ ...core.DBExecutor) (dayclose.UserWindowOverride, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.userWindows[o.UserID] = &o
	return o, nil
}

func (repo *windowRepository) StampDayOpened(_ context.Context, userID string, at time.Time, _ ...core.DBExecutor) error {
	return repo.stamp(userID, at, true)
}

func (repo *windowRepository) StampDayClosed(_ context.Context, userID string, at time.Time, _ ...core.DBExecutor) error {
	return repo.stamp(userID, at, false)
}

func (repo *windowRepository) stamp(userID string, at time.Time, opened bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	o, ok := repo.db.userWindows[userID]
	if !ok {
		o = &dayclose.UserWindowOverride{UserID: userID}
		repo.db.userWindows[userID] = o
	}
	if opened {
		o.DayOpenedAt.SetValid(at)
	} else {
		o.DayClosedAt.SetValid(at)
	}
	return nil
}

type settingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) dayclose.SettingsRepository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) BypassEnabled(_ context.Context, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.bypass, nil
}

func (repo *settingsRepository) SetBypass(_ context.Context, on bool, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.bypass = on
	return nil
}

type slotLogRepository struct {
	db *DB
}

func NewSlotLogRepository(db *DB) dayclose.SlotLogRepository {
	return &slotLogRepository{db: db}
}

func (repo *slotLogRepository) QuerySlotLogs(_ context.Context, userID string, date time.Time, _ ...core.DBExecutor) ([]dayclose.SlotLog, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	logs := make([]dayclose.SlotLog, 0)
	for _, sl := range repo.db.slotLogs {
		if sl.UserID == userID && core.SameDate(sl.Date, date) {
			logs = append(logs, *sl)
		}
	}
	return logs, nil
}

func (repo *slotLogRepository) CreateSlotLog(_ context.Context, sl dayclose.SlotLog, _ ...core.DBExecutor) (dayclose.SlotLog, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	sl.Date = core.DateOf(sl.Date)
	repo.db.slotLogs[sl.ID] = &sl
	return sl, nil
}
