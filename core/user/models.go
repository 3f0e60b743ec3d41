package user

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Supervisor (immediate superior of one or more staff members)
	RoleSupervisor = "supervisor:"

	// Staff (teaching & non-teaching operational staff)
	RoleStaff = "staff:"
)

// User types, as referenced by open/close time window config.
const (
	TypeAdmin      = "admin"
	TypeSupervisor = "supervisor"
	TypeStaff      = "staff"
)

var (
	AdminRoles      = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	SupervisorRoles = []string{RoleSupervisor}
	StaffRoles      = []string{RoleStaff}
	AllRoles        = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Supervisors: 20 - 11
		RoleSupervisor: 11,

		// Staff: 10 - 1
		RoleStaff: 1,
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, SupervisorRoles...)
	all = append(all, StaffRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	IsActive     bool        `json:"is_active"`
	Roles        []string    `json:"roles"`
	SupervisorID null.String `json:"supervisor_id"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsSupervisor() bool {
	return u.RoleStartsWith(RoleSupervisor)
}

func (u *User) IsStaff() bool {
	return u.RoleStartsWith(RoleStaff)
}

// Type derives the open/close window user type from the user's highest role.
func (u *User) Type() string {
	switch {
	case u.IsAdmin():
		return TypeAdmin
	case u.IsSupervisor():
		return TypeSupervisor
	default:
		return TypeStaff
	}
}

// Supervises reports whether u is the immediate supervisor of other.
func (u *User) Supervises(other User) bool {
	return other.SupervisorID.Valid && other.SupervisorID.String == u.ID
}
