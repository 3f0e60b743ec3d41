package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/escalation"
)

type escalationRepository struct {
	exec core.DBExecutor
}

var _ escalation.Repository = (*escalationRepository)(nil) // interface compliance check

func NewEscalationRepository(exec core.DBExecutor) *escalationRepository {
	return &escalationRepository{exec: exec}
}

func (repo escalationRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo escalationRepository) CountOpenMatters(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM matter m
		JOIN matter_member mm ON mm.matter_id = m.id
		WHERE mm.user_id = $1 AND m.status <> $2`
	row := repo.getExec(exec).QueryRowxContext(ctx, q, userID, escalation.MatterStatusClosed)
	if err := row.Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting open matters")
	}
	return count, nil
}

func (repo escalationRepository) GetActiveOverride(ctx context.Context, userID string, exec ...core.DBExecutor) (escalation.Override, error) {
	var o escalation.Override
	q := `SELECT id, user_id, active, created_by, created_at FROM escalation_override
		WHERE user_id = $1 AND active ORDER BY created_at DESC LIMIT 1`
	row := repo.getExec(exec).QueryRowxContext(ctx, q, userID)
	if err := row.StructScan(&o); err != nil {
		if err == sql.ErrNoRows {
			return escalation.Override{}, escalation.ErrOverrideNotFound
		}
		return escalation.Override{}, errors.Wrap(err, "finding active override")
	}
	return o, nil
}

func (repo escalationRepository) CreateOverride(ctx context.Context, o escalation.Override, exec ...core.DBExecutor) (escalation.Override, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	q := `INSERT INTO escalation_override (id, user_id, active, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.getExec(exec).ExecContext(ctx, q, o.ID, o.UserID, o.Active, o.CreatedBy, o.CreatedAt.UTC())
	if err != nil {
		return escalation.Override{}, errors.Wrap(err, "inserting override")
	}
	return o, nil
}

func (repo escalationRepository) DeactivateOverrides(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	q := `UPDATE escalation_override SET active = FALSE WHERE user_id = $1 AND active`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, userID); err != nil {
		return errors.Wrap(err, "deactivating overrides")
	}
	return nil
}

func (repo escalationRepository) CreateMatter(ctx context.Context, m escalation.Matter, members []string, exec ...core.DBExecutor) (escalation.Matter, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	exe := repo.getExec(exec)
	q := `INSERT INTO matter (id, status, subject, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := exe.ExecContext(ctx, q, m.ID, m.Status, m.Subject, m.CreatedAt.UTC()); err != nil {
		return escalation.Matter{}, errors.Wrap(err, "inserting matter")
	}
	for _, userID := range members {
		q = `INSERT INTO matter_member (matter_id, user_id) VALUES ($1, $2)`
		if _, err := exe.ExecContext(ctx, q, m.ID, userID); err != nil {
			return escalation.Matter{}, errors.Wrap(err, "inserting matter member")
		}
	}
	return m, nil
}

func (repo escalationRepository) CloseMatter(ctx context.Context, matterID string, exec ...core.DBExecutor) error {
	q := `UPDATE matter SET status = $1 WHERE id = $2`
	res, err := repo.getExec(exec).ExecContext(ctx, q, escalation.MatterStatusClosed, matterID)
	if err != nil {
		return errors.Wrap(err, "closing matter")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return escalation.ErrMatterNotFound
	}
	return nil
}
