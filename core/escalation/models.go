package escalation

import "time"

// MatterStatusClosed is the only terminal matter status this subsystem cares
// about; every other value counts as open.
const MatterStatusClosed = "CLOSED"

// Matter is an escalated issue linking one or more users. Its lifecycle is
// owned by a separate collaborator; this package only reads the aggregate.
type Matter struct {
	ID        string    `json:"id" db:"id"`
	Status    string    `json:"status" db:"status"`
	Subject   string    `json:"subject" db:"subject"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// MatterMember joins a matter to an involved user.
type MatterMember struct {
	MatterID string `json:"matter_id" db:"matter_id"`
	UserID   string `json:"user_id" db:"user_id"`
}

// Override is an administrative record that, while active, suppresses the
// day-close pause derived from the user's open matters.
type Override struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// PauseState is the derived day-close pause signal for one user.
type PauseState struct {
	Paused         bool `json:"paused"`
	OpenCount      int  `json:"open_count"`
	OverrideActive bool `json:"override_active"`
}
