package dayclose_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
	inmemdb "github.com/mwalimu/kazi/storage/database/inmem"
	testutil "github.com/mwalimu/kazi/tests"
)

type engineFixture struct {
	db       *inmemdb.DB
	users    user.Repository
	tasks    task.Repository
	matters  escalation.Repository
	windows  dayclose.WindowRepository
	settings dayclose.SettingsRepository
	slots    dayclose.SlotLogRepository
	engine   *dayclose.Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := inmemdb.Open()
	f := &engineFixture{
		db:       db,
		users:    inmemdb.NewUserRepository(db),
		tasks:    inmemdb.NewTaskRepository(db),
		matters:  inmemdb.NewEscalationRepository(db),
		windows:  inmemdb.NewWindowRepository(db),
		settings: inmemdb.NewSettingsRepository(db),
		slots:    inmemdb.NewSlotLogRepository(db),
	}
	gate := dayclose.NewGate(f.windows, f.settings, 10*time.Minute)
	pause := escalation.NewService(f.matters, inmemdb.NewDayCloseRepository(db))
	f.engine = dayclose.NewEngine(gate, pause, f.tasks, f.slots)
	testutil.CreateTimeWindow(t, f.windows, user.TypeStaff, "08:00", "17:00", "16:50", "17:20")
	return f
}

func reasonCodes(reasons []dayclose.Reason) []dayclose.ReasonCode {
	codes := make([]dayclose.ReasonCode, 0, len(reasons))
	for _, r := range reasons {
		codes = append(codes, r.Code)
	}
	return codes
}

func TestCheckEligible(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	member := testutil.CreateUser(t, f.users, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")

	inWindow := at(17, 0, 0)
	outOfWindow := at(12, 0, 0)

	t.Run("clean day inside the window", func(t *testing.T) {
		elig, err := f.engine.CheckEligible(ctx, member, inWindow, inWindow, false)
		require.NoError(t, err)
		assert.True(t, elig.Eligible)
		assert.Empty(t, elig.Reasons)
		assert.True(t, elig.Window.Allowed)
	})

	t.Run("outside the closing window", func(t *testing.T) {
		elig, err := f.engine.CheckEligible(ctx, member, outOfWindow, outOfWindow, false)
		require.NoError(t, err)
		assert.False(t, elig.Eligible)
		assert.Contains(t, reasonCodes(elig.Reasons), dayclose.ReasonWindowClosed)
	})

	t.Run("open matter pauses", func(t *testing.T) {
		m := testutil.CreateMatter(t, f.matters, "missing inventory", member.ID)
		elig, err := f.engine.CheckEligible(ctx, member, inWindow, inWindow, false)
		require.NoError(t, err)
		assert.False(t, elig.Eligible)
		assert.Contains(t, reasonCodes(elig.Reasons), dayclose.ReasonPaused)
		require.NoError(t, f.matters.CloseMatter(ctx, m.ID))
	})

	t.Run("outstanding work blocks unless triage is accepted", func(t *testing.T) {
		a := testutil.CreateAssignment(t, f.tasks, "task1", member.ID, task.StatusInProgress, inWindow)
		rt := testutil.CreateRoutineTask(t, f.tasks, member.ID, "lock gates")

		elig, err := f.engine.CheckEligible(ctx, member, inWindow, inWindow, false)
		require.NoError(t, err)
		assert.False(t, elig.Eligible)
		require.Contains(t, reasonCodes(elig.Reasons), dayclose.ReasonOutstandingTasks)
		for _, r := range elig.Reasons {
			if r.Code == dayclose.ReasonOutstandingTasks {
				assert.Len(t, r.Assigned, 1)
				assert.Len(t, r.Routine, 1)
			}
		}

		elig, err = f.engine.CheckEligible(ctx, member, inWindow, inWindow, true)
		require.NoError(t, err)
		assert.True(t, elig.Eligible)

		// settle the day for the following subtests
		now := time.Now().UTC()
		a.Status = task.StatusDone
		prev := a.UpdatedAt
		a.UpdatedAt = now
		_, err = f.tasks.UpdateAssignment(ctx, a, prev)
		require.NoError(t, err)
		testutil.CreateRoutineStatus(t, f.tasks, rt.ID, inWindow, task.StatusDone, false)
	})

	t.Run("uncleared duty slot blocks even with triage", func(t *testing.T) {
		testutil.CreateSlotLog(t, f.slots, member.ID, inWindow, task.StatusNotStarted)
		elig, err := f.engine.CheckEligible(ctx, member, inWindow, inWindow, true)
		require.NoError(t, err)
		assert.False(t, elig.Eligible)
		assert.Contains(t, reasonCodes(elig.Reasons), dayclose.ReasonMRIPending)
	})
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	member := testutil.CreateUser(t, f.users, "Baraka", "baraka", "baraka@kazi.test", []string{user.RoleStaff}, "")
	date := at(0, 0, 0)

	testutil.CreateAssignment(t, f.tasks, "task1", member.ID, task.StatusNotStarted, date)
	done := testutil.CreateAssignment(t, f.tasks, "task2", member.ID, task.StatusDone, date)
	rt1 := testutil.CreateRoutineTask(t, f.tasks, member.ID, "lock gates")
	rt2 := testutil.CreateRoutineTask(t, f.tasks, member.ID, "tidy store room")
	rt3 := testutil.CreateRoutineTask(t, f.tasks, member.ID, "water garden")
	testutil.CreateRoutineStatus(t, f.tasks, rt2.ID, date, task.StatusDone, true)
	testutil.CreateRoutineStatus(t, f.tasks, rt3.ID, date, task.StatusInProgress, false)
	testutil.CreateSlotLog(t, f.slots, member.ID, date, task.StatusDone)

	prep, err := f.engine.Prepare(ctx, member.ID, date)
	require.NoError(t, err)

	assert.True(t, prep.MRICleared)
	require.Len(t, prep.OutstandingAssigned, 1)
	assert.NotEqual(t, done.ID, prep.OutstandingAssigned[0].ID)

	// rt1 has no row yet, rt3 is in progress; the locked rt2 is settled
	require.Len(t, prep.OutstandingRoutine, 2)
	gotIDs := map[string]bool{}
	for _, item := range prep.OutstandingRoutine {
		gotIDs[item.Task.ID] = true
	}
	assert.True(t, gotIDs[rt1.ID])
	assert.True(t, gotIDs[rt3.ID])
}
