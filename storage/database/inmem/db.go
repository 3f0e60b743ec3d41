// Package inmemdb provides map-backed repositories for tests and local
// development. The optional DBExecutor arguments of the repository methods
// are ignored; the shared mutex stands in for transaction isolation.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
)

var _ core.DB = (*DB)(nil)

type DB struct {
	*sqlx.DB // nil; present only for the executor method set, never called

	mutex sync.RWMutex

	users           map[string]*user.User
	assignments     map[string]*task.Assignment
	routineTasks    map[string]*task.RoutineTask
	routineStatuses map[string]*task.RoutineStatus
	matters         map[string]*escalation.Matter
	matterMembers   map[string][]string // matterID -> userIDs
	overrides       map[string]*escalation.Override
	requests        map[string]*dayclose.Request
	windows         map[string]*dayclose.TimeWindow // keyed by user type
	userWindows     map[string]*dayclose.UserWindowOverride
	slotLogs        map[string]*dayclose.SlotLog
	audits          []dayclose.AuditEntry
	bypass          bool
}

func Open() *DB {
	return &DB{
		users:           make(map[string]*user.User),
		assignments:     make(map[string]*task.Assignment),
		routineTasks:    make(map[string]*task.RoutineTask),
		routineStatuses: make(map[string]*task.RoutineStatus),
		matters:         make(map[string]*escalation.Matter),
		matterMembers:   make(map[string][]string),
		overrides:       make(map[string]*escalation.Override),
		requests:        make(map[string]*dayclose.Request),
		windows:         make(map[string]*dayclose.TimeWindow),
		userWindows:     make(map[string]*dayclose.UserWindowOverride),
		slotLogs:        make(map[string]*dayclose.SlotLog),
	}
}

func (db *DB) BeginTxx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return noopTx{}, nil
}

type noopTx struct {
	*sqlx.Tx // nil; executor method set only
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
