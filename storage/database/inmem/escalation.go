package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/escalation"
)

var _ escalation.Repository = (*escalationRepository)(nil)

type escalationRepository struct {
	db *DB
}

func NewEscalationRepository(db *DB) escalation.Repository {
	return &escalationRepository{db: db}
}

func (repo *escalationRepository) CountOpenMatters(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for matterID, members := range repo.db.matterMembers {
		m, ok := repo.db.matters[matterID]
		if !ok || m.Status == escalation.MatterStatusClosed {
			continue
		}
		for _, id := range members {
			if id == userID {
				count++
				break
			}
		}
	}
	return count, nil
}

func (repo *escalationRepository) GetActiveOverride(_ context.Context, userID string, _ ...core.DBExecutor) (escalation.Override, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, o := range repo.db.overrides {
		if o.UserID == userID && o.Active {
			return *o, nil
		}
	}
	return escalation.Override{}, escalation.ErrOverrideNotFound
}

func (repo *escalationRepository) CreateOverride(_ context.Context, o escalation.Override, _ ...core.DBExecutor) (escalation.Override, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	repo.db.overrides[o.ID] = &o
	return o, nil
}

func (repo *escalationRepository) DeactivateOverrides(_ context.Context, userID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, o := range repo.db.overrides {
		if o.UserID == userID {
			o.Active = false
		}
	}
	return nil
}

func (repo *escalationRepository) CreateMatter(_ context.Context, m escalation.Matter, members []string, _ ...core.DBExecutor) (escalation.Matter, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	repo.db.matters[m.ID] = &m
	repo.db.matterMembers[m.ID] = append([]string(nil), members...)
	return m, nil
}

func (repo *escalationRepository) CloseMatter(_ context.Context, matterID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m, ok := repo.db.matters[matterID]
	if !ok {
		return escalation.ErrMatterNotFound
	}
	m.Status = escalation.MatterStatusClosed
	return nil
}
