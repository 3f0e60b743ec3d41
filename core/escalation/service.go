package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/user"
)

var (
	// errors
	ErrOverrideNotFound = errors.New("day-close override not found")
	ErrMatterNotFound   = errors.New("escalation matter not found")
	ErrForbidden        = errors.New("administrative rights required")
)

type (
	Repository interface {
		CountOpenMatters(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		GetActiveOverride(ctx context.Context, userID string, exec ...core.DBExecutor) (Override, error)
		CreateOverride(ctx context.Context, o Override, exec ...core.DBExecutor) (Override, error)
		DeactivateOverrides(ctx context.Context, userID string, exec ...core.DBExecutor) error

		// fixtures / collaborator writes
		CreateMatter(ctx context.Context, m Matter, members []string, exec ...core.DBExecutor) (Matter, error)
		CloseMatter(ctx context.Context, matterID string, exec ...core.DBExecutor) error
	}

	// AuditLog records who toggled an override and when.
	AuditLog interface {
		RecordAudit(ctx context.Context, actorID, action, detail string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo  Repository
		audit AuditLog
		clock func() time.Time
	}
)

func NewService(repo Repository, audit AuditLog) *Service {
	return &Service{
		repo:  repo,
		audit: audit,
		clock: time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (svc *Service) WithClock(clock func() time.Time) *Service {
	svc.clock = clock
	return svc
}

// PauseState derives the day-close pause signal for userID:
// paused = openMatterCount > 0 AND no active override. Reads only; slightly
// stale reads are acceptable here.
func (svc *Service) PauseState(ctx context.Context, userID string) (PauseState, error) {
	count, err := svc.repo.CountOpenMatters(ctx, userID)
	if err != nil {
		return PauseState{}, pkgerrors.Wrap(err, "counting open matters")
	}

	var overrideActive bool
	if _, err = svc.repo.GetActiveOverride(ctx, userID); err == nil {
		overrideActive = true
	} else if pkgerrors.Cause(err) != ErrOverrideNotFound {
		return PauseState{}, pkgerrors.Wrap(err, "getting active override")
	}

	return PauseState{
		Paused:         count > 0 && !overrideActive,
		OpenCount:      count,
		OverrideActive: overrideActive,
	}, nil
}

// SetOverride creates (active=true) or retracts (active=false) the
// administrative override suppressing userID's escalation pause. Admin only;
// every toggle is audited.
func (svc *Service) SetOverride(ctx context.Context, actor user.User, userID string, active bool) (PauseState, error) {
	if !actor.IsAdmin() {
		return PauseState{}, ErrForbidden
	}

	if active {
		if _, err := svc.repo.GetActiveOverride(ctx, userID); err == nil {
			// already active; idempotent
			return svc.PauseState(ctx, userID)
		} else if pkgerrors.Cause(err) != ErrOverrideNotFound {
			return PauseState{}, pkgerrors.Wrap(err, "getting active override")
		}
		o := Override{
			UserID:    userID,
			Active:    true,
			CreatedBy: actor.ID,
			CreatedAt: svc.clock().UTC(),
		}
		if _, err := svc.repo.CreateOverride(ctx, o); err != nil {
			return PauseState{}, pkgerrors.Wrap(err, "creating override")
		}
	} else {
		if err := svc.repo.DeactivateOverrides(ctx, userID); err != nil {
			return PauseState{}, pkgerrors.Wrap(err, "deactivating overrides")
		}
	}

	detail := fmt.Sprintf("user=%s active=%t", userID, active)
	if err := svc.audit.RecordAudit(ctx, actor.ID, "escalation_override", detail); err != nil {
		return PauseState{}, pkgerrors.Wrap(err, "recording audit entry")
	}
	return svc.PauseState(ctx, userID)
}
