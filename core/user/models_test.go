package user

import (
	"testing"

	"github.com/volatiletech/null/v8"
)

func TestUser_Type(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  string
	}{
		{"principal is admin", []string{RoleAdminPrincipal}, TypeAdmin},
		{"owner is admin", []string{RoleAdminOwner}, TypeAdmin},
		{"supervisor", []string{RoleSupervisor}, TypeSupervisor},
		{"staff", []string{RoleStaff}, TypeStaff},
		{"admin wins over supervisor", []string{RoleSupervisor, RoleAdminPrincipal}, TypeAdmin},
		{"no roles falls back to staff", nil, TypeStaff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{Roles: tt.roles}
			if got := u.Type(); got != tt.want {
				t.Errorf("Type() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestUser_Supervises(t *testing.T) {
	boss := User{ID: "sup-1", Roles: []string{RoleSupervisor}}
	other := User{ID: "sup-2", Roles: []string{RoleSupervisor}}

	member := User{ID: "stf-1", Roles: []string{RoleStaff}, SupervisorID: null.StringFrom("sup-1")}
	orphan := User{ID: "stf-2", Roles: []string{RoleStaff}}

	if !boss.Supervises(member) {
		t.Error("Supervises() = false for the member's immediate supervisor")
	}
	if other.Supervises(member) {
		t.Error("Supervises() = true for an unrelated supervisor")
	}
	if boss.Supervises(orphan) {
		t.Error("Supervises() = true for a member with no supervisor")
	}
}

func TestMaxRolePriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"empty", nil, 0},
		{"staff only", []string{RoleStaff}, 1},
		{"owner beats principal", []string{RoleAdminPrincipal, RoleAdminOwner}, 30},
		{"unknown role ignored", []string{"visitor:", RoleSupervisor}, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRolePriority(tt.roles); got != tt.want {
				t.Errorf("MaxRolePriority(%v) = %d; want %d", tt.roles, got, tt.want)
			}
		})
	}
}
