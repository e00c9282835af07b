package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
)

// addUser creates an active user, optionally granting the admin role.
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, isAdmin bool) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	in := school.UserInput{
		Name:            core.CleanString(name),
		Username:        core.CleanString(uname, true /* lower */),
		Email:           core.CleanString(email, true /* lower */),
		Password:        pwd,
		PasswordConfirm: pwd,
		IsActive:        core.BoolPtr(true),
		Roles:           []string{},
	}
	if isAdmin {
		in.Roles = []string{school.RoleAdmin}
	}
	if schoolID := cli.settings.Settings().ActiveSchoolID; schoolID.Valid {
		in.SchoolID = core.IntPtr(schoolID.Int)
	}

	usr, err := cli.stores.Users.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created with ID %d\n", usr.Username, usr.ID)
	return nil
}
