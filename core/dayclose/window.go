package dayclose

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
)

const secondsPerDay = 24 * 60 * 60

type (
	WindowRepository interface {
		GetTimeWindow(ctx context.Context, userType string, exec ...core.DBExecutor) (TimeWindow, error)
		UpsertTimeWindow(ctx context.Context, w TimeWindow, exec ...core.DBExecutor) (TimeWindow, error)
		// GetUserWindowOverride returns ErrNotFound when the user has no
		// override row.
		GetUserWindowOverride(ctx context.Context, userID string, exec ...core.DBExecutor) (UserWindowOverride, error)
		UpsertUserWindowOverride(ctx context.Context, o UserWindowOverride, exec ...core.DBExecutor) (UserWindowOverride, error)
		StampDayOpened(ctx context.Context, userID string, at time.Time, exec ...core.DBExecutor) error
		StampDayClosed(ctx context.Context, userID string, at time.Time, exec ...core.DBExecutor) error
	}

	SettingsRepository interface {
		BypassEnabled(ctx context.Context, exec ...core.DBExecutor) (bool, error)
		SetBypass(ctx context.Context, on bool, exec ...core.DBExecutor) error
	}

	// Gate evaluates whether "now" falls inside the configured open/close
	// windows. Pure read-then-compute; no side effects.
	Gate struct {
		windows   WindowRepository
		settings  SettingsRepository
		openGrace time.Duration
	}
)

func NewGate(windows WindowRepository, settings SettingsRepository, openGrace time.Duration) *Gate {
	if openGrace <= 0 {
		openGrace = 10 * time.Minute
	}
	return &Gate{
		windows:   windows,
		settings:  settings,
		openGrace: openGrace,
	}
}

// CanOpen reports whether the user may open their operational day for date
// at instant now. A per-user override with UseCustomTimes supplies the open
// time; otherwise the type-level window applies. The day may only be opened
// on its own calendar date, within [dayOpenTime, dayOpenTime+grace].
func (g *Gate) CanOpen(ctx context.Context, userType, userID string, date, now time.Time) error {
	if !core.SameDate(date, now) {
		return ErrDateMismatch
	}

	openTime, _, err := g.resolveOpenTimes(ctx, userType, userID)
	if err != nil {
		return err
	}
	openSec, err := parseClock(openTime)
	if err != nil {
		return errors.Wrap(err, "parsing day open time")
	}

	nowSec := secondOfDay(now)
	if nowSec < openSec || nowSec > openSec+int(g.openGrace.Seconds()) {
		return ErrWindowClosed
	}
	return nil
}

// CanClose evaluates the closing window for the user's type at instant now.
// The closing window always comes from the type-level row (custom per-user
// closing windows are not supported) and may span midnight. When the
// system-wide bypass flag is set the answer is always allowed.
func (g *Gate) CanClose(ctx context.Context, userType string, now time.Time) (CloseWindow, error) {
	bypass, err := g.settings.BypassEnabled(ctx)
	if err != nil {
		return CloseWindow{}, errors.Wrap(err, "reading bypass flag")
	}
	if bypass {
		return CloseWindow{Allowed: true, SecondsRemaining: 0, Bypassed: true}, nil
	}

	w, err := g.windows.GetTimeWindow(ctx, userType)
	if err != nil {
		return CloseWindow{}, errors.Wrap(err, "getting time window")
	}
	startSec, err := parseClock(w.ClosingWindowStart)
	if err != nil {
		return CloseWindow{}, errors.Wrap(err, "parsing closing window start")
	}
	endSec, err := parseClock(w.ClosingWindowEnd)
	if err != nil {
		return CloseWindow{}, errors.Wrap(err, "parsing closing window end")
	}

	nowSec := secondOfDay(now)
	var allowed bool
	var remaining int
	if endSec >= startSec {
		allowed = nowSec >= startSec && nowSec <= endSec
		remaining = endSec - nowSec
	} else {
		// window spans midnight: the end falls on the next calendar day
		allowed = nowSec >= startSec || nowSec <= endSec
		if nowSec >= startSec {
			remaining = endSec + secondsPerDay - nowSec
		} else {
			remaining = endSec - nowSec
		}
	}
	if !allowed || remaining < 0 {
		remaining = 0
	}
	return CloseWindow{Allowed: allowed, SecondsRemaining: remaining}, nil
}

// resolveOpenTimes picks the user's custom open/close times when an override
// row says so, falling back to the type-level window.
func (g *Gate) resolveOpenTimes(ctx context.Context, userType, userID string) (open, close string, err error) {
	o, err := g.windows.GetUserWindowOverride(ctx, userID)
	if err == nil && o.UseCustomTimes && o.DayOpenTime != "" {
		return o.DayOpenTime, o.DayCloseTime, nil
	}
	if err != nil && errors.Cause(err) != ErrNotFound {
		return "", "", errors.Wrap(err, "getting user window override")
	}

	w, err := g.windows.GetTimeWindow(ctx, userType)
	if err != nil {
		return "", "", errors.Wrap(err, "getting time window")
	}
	return w.DayOpenTime, w.DayCloseTime, nil
}

// parseClock converts an "HH:MM" wall-clock value to seconds since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, errors.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.Errorf("invalid clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.Errorf("invalid clock time %q", s)
	}
	return (h*60 + m) * 60, nil
}

func secondOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
