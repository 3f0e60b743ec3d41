package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/user"
)

// addUser creates an active user.User.
func (cli *commandLine) addUser(name, uname, email, role, supervisorID string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if supervisorID != "" {
		if _, err := cli.usrSvc.GetByID(ctx, supervisorID); err != nil {
			return errors.Wrapf(err, "looking up supervisor %q", supervisorID)
		}
	}

	usr, err := cli.usrSvc.Create(ctx, user.User{
		Name:         name,
		Username:     uname,
		Email:        email,
		IsActive:     true,
		Roles:        []string{role},
		SupervisorID: null.NewString(supervisorID, supervisorID != ""),
	})
	if err != nil {
		return err
	}
	fmt.Printf("user %q created (id=%s)\n", usr.Username, usr.ID)
	return nil
}
