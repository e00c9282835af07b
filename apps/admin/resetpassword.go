package main

import (
	"context"
	"strings"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	uname = core.CleanString(uname, true)
	if err := cli.stores.Users.FetchAll(ctx, school.UserFilter{Search: uname}); err != nil {
		return err
	}

	var (
		usr   school.User
		found bool
	)
	for _, u := range cli.stores.Users.Items() {
		if strings.EqualFold(u.Username, uname) || strings.EqualFold(u.Email, uname) {
			usr, found = u, true
			break
		}
	}
	if !found {
		return errUserNotFound
	}

	_, err := cli.stores.Users.Update(ctx, usr.ID, school.UserInput{
		Name:            usr.Name,
		Username:        usr.Username,
		Email:           usr.Email,
		Password:        pwd,
		PasswordConfirm: pwd,
		IsActive:        core.BoolPtr(usr.IsActive),
		Roles:           usr.Roles,
		SchoolID:        usr.SchoolID,
	})
	return err
}
