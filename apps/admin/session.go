package main

import (
	"context"
	"fmt"

	"github.com/volatiletech/null/v8"
)

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	sess, err := cli.client.Login(ctx, uname, pwd)
	if err != nil {
		return err
	}
	if err = cli.kv.Set(ctx, tokenKey, []byte(sess.Token)); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "logged in as %s\n", sess.User.Username)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	cli.client.Logout()
	cli.stores.Reset()
	return cli.kv.Delete(ctx, tokenKey)
}

func (cli *commandLine) requireSession() error {
	if cli.client.Token() == "" {
		return errNotLoggedIn
	}
	return nil
}

// use changes the active school and/or academic year. Clearing the school clears the year;
// choosing another school keeps it.
func (cli *commandLine) use(ctx context.Context, schoolID, yearID *null.Int) error {
	if schoolID != nil {
		if schoolID.Valid {
			if err := cli.requireSession(); err != nil {
				return err
			}
			if _, err := cli.stores.Schools.GetByID(ctx, schoolID.Int); err != nil {
				return err
			}
		}
		if err := cli.settings.SetSchool(ctx, *schoolID); err != nil {
			return err
		}
	}
	if yearID != nil {
		if err := cli.settings.SetAcademicYear(ctx, *yearID); err != nil {
			return err
		}
	}
	return cli.show()
}

func (cli *commandLine) show() error {
	st := cli.settings.Settings()
	prefs := cli.settings.Preferences()
	fmt.Fprintf(cli.out, "school:    %s\n", formatID(st.ActiveSchoolID))
	fmt.Fprintf(cli.out, "year:      %s\n", formatID(st.ActiveAcademicYearID))
	fmt.Fprintf(cli.out, "font size: %s\n", prefs.FontSize)
	fmt.Fprintf(cli.out, "theme:     %s\n", prefs.Theme)
	return nil
}

func (cli *commandLine) setPreferences(ctx context.Context, fontSize, theme string) error {
	prefs := cli.settings.Preferences()
	if fontSize != "" {
		prefs.FontSize = fontSize
	}
	if theme != "" {
		prefs.Theme = theme
	}
	if prefs == cli.settings.Preferences() {
		return errHelp
	}
	if err := cli.settings.SetPreferences(ctx, prefs); err != nil {
		return err
	}
	return cli.show()
}

