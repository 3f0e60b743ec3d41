package logsvc

import (
	"reflect"
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/kazi/core/user"
)

func Test_personExtras(t *testing.T) {
	usr := user.User{
		ID:           "stf-1",
		Username:     "jdoe",
		Roles:        []string{user.RoleStaff},
		SupervisorID: null.StringFrom("sup-1"),
	}

	got := personExtras(usr)
	want := map[string]interface{}{
		"user_type":     user.TypeStaff,
		"roles":         []string{user.RoleStaff},
		"supervisor_id": "sup-1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("personExtras() = %+v; want %+v", got, want)
	}

	admin := user.User{ID: "adm-1", Roles: []string{user.RoleAdminPrincipal}}
	if got := personExtras(admin); got["user_type"] != user.TypeAdmin {
		t.Errorf("user_type = %v; want %v", got["user_type"], user.TypeAdmin)
	}
}
