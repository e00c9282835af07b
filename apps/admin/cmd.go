package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/term"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/messaging"
	"github.com/trezcool/masomo-admin/settings"
	"github.com/trezcool/masomo-admin/storage/kvstore"
	"github.com/trezcool/masomo-admin/store"
)

// tokenKey stores the bearer token of the logged in admin next to the settings.
const tokenKey = "session-token"

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp         = errors.New("help provided")
	errNotLoggedIn  = errors.New("not logged in: run `admin login` first")
	errUserNotFound = errors.New("user not found")
)

type commandLine struct {
	conf     *core.Config
	client   *apiclient.Client
	kv       kvstore.Store
	settings *settings.Store
	stores   *store.Registry
	msgs     *messaging.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME               - log in; the password will be prompted next")
	fmt.Fprintln(cli.out, "  logout                                 - forget the session")
	fmt.Fprintln(cli.out, "  use [-school ID] [-year ID]            - set the active school and academic year (0 clears)")
	fmt.Fprintln(cli.out, "  show                                   - show the active settings and preferences")
	fmt.Fprintln(cli.out, "  prefs [-font-size SIZE] [-theme THEME] - update the display preferences")
	fmt.Fprintln(cli.out, "  list RESOURCE [-search Q] [-page N]    - list "+strings.Join(listableResources(), "|"))
	fmt.Fprintln(cli.out, "  search NAME                            - look students up by name")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME [-email EMAIL] [-admin] - create a user; the password will be prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  bulk-send -to PHONES -message TEXT [-delay SECONDS] [-watch] - send a WhatsApp message to comma separated phones")
	fmt.Fprintln(cli.out, "  bulk-status JOB_ID                     - show the progress of a bulk send")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The username. The password will be prompted next.")

	useCmd := flag.NewFlagSet("use", flag.ContinueOnError)
	useSchool := useCmd.Int("school", -1, "The active school ID (0 clears).")
	useYear := useCmd.Int("year", -1, "The active academic year ID (0 clears).")

	prefsCmd := flag.NewFlagSet("prefs", flag.ContinueOnError)
	prefsFont := prefsCmd.String("font-size", "", "small|medium|large")
	prefsTheme := prefsCmd.String("theme", "", "light|dark")

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listSearch := listCmd.String("search", "", "Search term.")
	listPage := listCmd.Int("page", 1, "Page number.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	bulkSendCmd := flag.NewFlagSet("bulk-send", flag.ContinueOnError)
	bulkSendTo := bulkSendCmd.String("to", "", "Comma separated phone numbers.")
	bulkSendMsg := bulkSendCmd.String("message", "", "The message text.")
	bulkSendDelay := bulkSendCmd.Int("delay", -1, "Seconds between two messages.")
	bulkSendWatch := bulkSendCmd.Bool("watch", false, "Follow the progress until the job ends.")

	for _, fs := range []*flag.FlagSet{loginCmd, useCmd, prefsCmd, listCmd, addUserCmd, resetPasswordCmd, bulkSendCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, string(pwd))

	case "logout":
		return cli.logout(ctx)

	case "use":
		if err := useCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *useSchool < 0 && *useYear < 0 {
			useCmd.Usage()
			return errHelp
		}
		return cli.use(ctx, optionalID(*useSchool), optionalID(*useYear))

	case "show":
		return cli.show()

	case "prefs":
		if err := prefsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.setPreferences(ctx, *prefsFont, *prefsTheme)

	case "list":
		if len(args) < 3 {
			listCmd.Usage()
			return errHelp
		}
		if err := listCmd.Parse(args[3:]); err != nil {
			return err
		}
		return cli.list(ctx, args[2], *listSearch, *listPage)

	case "search":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.searchStudents(ctx, strings.Join(args[2:], " "))

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserName, *addUserUname, *addUserEmail, string(pwd), *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordUname, string(pwd))

	case "bulk-send":
		if err := bulkSendCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bulkSendTo == "" || *bulkSendMsg == "" {
			bulkSendCmd.Usage()
			return errHelp
		}
		var delay *int
		if *bulkSendDelay >= 0 {
			delay = bulkSendDelay
		}
		return cli.bulkSend(ctx, splitList(*bulkSendTo), *bulkSendMsg, delay, *bulkSendWatch)

	case "bulk-status":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.bulkStatus(ctx, args[2])

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() ([]byte, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return pwd, err
}

// optionalID maps a flag value to an ID: negative leaves it unset, 0 clears it.
func optionalID(id int) *null.Int {
	switch {
	case id < 0:
		return nil
	case id == 0:
		v := null.Int{}
		return &v
	default:
		v := null.IntFrom(id)
		return &v
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func formatID(id null.Int) string {
	if !id.Valid {
		return "-"
	}
	return strconv.FormatInt(int64(id.Int), 10)
}
