package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/messaging"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/settings"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
	"github.com/trezcool/masomo-admin/storage/kvstore"
	"github.com/trezcool/masomo-admin/store"
	"github.com/trezcool/masomo-admin/tests"
)

func setup(t *testing.T) (*commandLine, *dummydb.DB, *bytes.Buffer) {
	ts, db := testutil.NewServer(t)
	conf := &core.Config{
		API:       core.APIConfig{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second, Locale: "ar"},
		Messaging: core.MessagingConfig{PollInterval: 5 * time.Millisecond},
	}
	logger := logsvc.NewNopLogger()
	kv := kvstore.NewMemoryStore()
	st := settings.New(kv, logger)
	require.NoError(t, st.Load(context.Background()))

	c := apiclient.New(conf.API, apiclient.WithLogger(logger))
	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:     conf,
		client:   c,
		kv:       kv,
		settings: st,
		stores:   store.NewRegistry(c, store.Deps{Logger: logger}),
		msgs:     messaging.NewService(c.WhatsApp, logger),
		out:      out,
	}
	return cli, db, out
}

// requestLog records the path of every request sent through it.
type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (rl *requestLog) RoundTrip(req *http.Request) (*http.Response, error) {
	rl.mu.Lock()
	rl.paths = append(rl.paths, req.URL.Path)
	rl.mu.Unlock()
	return http.DefaultTransport.RoundTrip(req)
}

func (rl *requestLog) count(suffix string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for _, p := range rl.paths {
		if strings.HasSuffix(p, suffix) {
			n++
		}
	}
	return n
}

func login(t *testing.T, cli *commandLine) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(testutil.AdminPassword), nil }
	require.NoError(t, cli.run([]string{"admin", "login", "-username", testutil.AdminUsername}))
}

type cliTest struct {
	name     string
	args     []string // without program name
	pwd      string
	wantErr  error
	wantKind core.ErrorKind
	wantOut  string
}

func (tt cliTest) check(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.pwd), nil }
	out.Reset()

	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
	case tt.wantKind != "":
		assert.True(t, core.IsKind(err, tt.wantKind), "cli.run() error = %v, wantKind %v", err, tt.wantKind)
	default:
		require.NoError(t, err)
	}
	if tt.wantOut != "" {
		assert.Contains(t, out.String(), tt.wantOut)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "login: no args", args: []string{"login"}, wantErr: errHelp},
		{name: "login: no password", args: []string{"login", "-username", "admin"}, wantErr: errHelp},
		{name: "list: no resource", args: []string{"list"}, wantErr: errHelp},
		{name: "use: no flags", args: []string{"use"}, wantErr: errHelp},
		{name: "search: no name", args: []string{"search"}, wantErr: errHelp},
		{name: "bulk-status: no job", args: []string{"bulk-status"}, wantErr: errHelp},
		{name: "list before login", args: []string{"list", "schools"}, wantErr: errNotLoggedIn},
		{name: "show defaults", args: []string{"show"}, wantOut: "theme:     light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_login(t *testing.T) {
	cli, db, out := setup(t)
	testutil.CreateUser(t, db, "Inactive", "inactive", "secret123", nil, false)

	tests := []cliTest{
		{name: "wrong password", args: []string{"login", "-username", "admin"}, pwd: "lol", wantKind: core.KindUnauthorized},
		{name: "unknown user", args: []string{"login", "-username", "lol"}, pwd: "lol", wantKind: core.KindUnauthorized},
		{name: "inactive user", args: []string{"login", "-username", "inactive"}, pwd: "secret123", wantKind: core.KindForbidden},
		{name: "admin", args: []string{"login", "-username", "admin"}, pwd: testutil.AdminPassword, wantOut: "logged in as admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	token, err := cli.kv.Get(context.Background(), tokenKey)
	require.NoError(t, err)
	assert.Equal(t, cli.client.Token(), string(token))

	require.NoError(t, cli.run([]string{"admin", "logout"}))
	assert.Empty(t, cli.client.Token())
	_, err = cli.kv.Get(context.Background(), tokenKey)
	assert.True(t, errors.Is(err, kvstore.ErrKeyNotFound))
}

func Test_commandLine_use(t *testing.T) {
	cli, db, out := setup(t)
	login(t, cli)
	sch := testutil.CreateSchool(t, db, "مدرسة النور", "NOOR")
	year := testutil.CreateAcademicYear(t, db, sch, "2024-2025", true)
	other := testutil.CreateSchool(t, db, "مدرسة الأمل", "AMAL")

	tests := []cliTest{
		{name: "unknown school", args: []string{"use", "-school", "999"}, wantKind: core.KindNotFound},
		{name: "school", args: []string{"use", "-school", itoa(sch.ID)}, wantOut: "school:    " + itoa(sch.ID)},
		{name: "year", args: []string{"use", "-year", itoa(year.ID)}, wantOut: "year:      " + itoa(year.ID)},
		{name: "other school keeps the year", args: []string{"use", "-school", itoa(other.ID)}, wantOut: "year:      " + itoa(year.ID)},
		{name: "bad theme", args: []string{"prefs", "-theme", "pink"}, wantKind: core.KindValidation},
		{name: "theme", args: []string{"prefs", "-theme", "dark"}, wantOut: "theme:     dark"},
		{name: "clear school", args: []string{"use", "-school", "0"}, wantOut: "year:      -"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
	assert.False(t, cli.settings.Settings().ActiveAcademicYearID.Valid)
}

func Test_commandLine_list(t *testing.T) {
	cli, db, out := setup(t)
	login(t, cli)
	sch := testutil.CreateSchool(t, db, "مدرسة النور", "NOOR")
	testutil.CreateSchool(t, db, "مدرسة الأمل", "AMAL")
	testutil.CreateAcademicYear(t, db, sch, "2024-2025", true)
	testutil.CreateStudent(t, db, "أحمد علي")

	tests := []cliTest{
		{name: "schools", args: []string{"list", "schools"}, wantOut: "page 1/1 (2 total)"},
		{name: "schools search", args: []string{"list", "schools", "-search", "noor"}, wantOut: "(1 total)"},
		{name: "academic years", args: []string{"list", "academic-years"}, wantOut: "2024-2025"},
		{name: "students search", args: []string{"search", "أحمد"}, wantOut: "أحمد علي"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	assert.ErrorContains(t, cli.run([]string{"admin", "list", "lol"}), `unknown resource "lol"`)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, db, out := setup(t)
	login(t, cli)
	usr := testutil.CreateUser(t, db, "User", "awe", "old-password", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "new-password", wantErr: errUserNotFound},
		{name: "password too short", args: []string{"resetpassword", "-username", usr.Username}, pwd: "short", wantKind: core.KindValidation},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "new-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	other := apiclient.New(cli.conf.API)
	_, err := other.Login(context.Background(), usr.Username, "old-password")
	assert.True(t, core.IsKind(err, core.KindUnauthorized))
	_, err = other.Login(context.Background(), usr.Username, "new-password")
	assert.NoError(t, err)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, db, out := setup(t)
	login(t, cli)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Sara", "-username", "sara"}, wantErr: errHelp},
		{name: "admin", args: []string{"adduser", "-name", "Sara", "-username", "Sara", "-admin"}, pwd: "password1", wantOut: "user sara created"},
		{name: "duplicate", args: []string{"adduser", "-name", "Sara", "-username", "sara"}, pwd: "password1", wantKind: core.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	assert.Equal(t, 2, db.Accounts.Len())
}

func Test_commandLine_bulkSend(t *testing.T) {
	cli, _, out := setup(t)
	login(t, cli)

	tests := []cliTest{
		{name: "no args", args: []string{"bulk-send"}, wantErr: errHelp},
		{name: "invalid phone", args: []string{"bulk-send", "-to", "lol", "-message", "مرحبا"}, wantKind: core.KindValidation},
		{name: "unknown job", args: []string{"bulk-status", "lol"}, wantKind: core.KindNotFound},
		{
			name:    "watch",
			args:    []string{"bulk-send", "-to", "0912345678, 0900012345", "-message", "مرحبا", "-delay", "0", "-watch"},
			wantOut: "completed: 1/2 sent, 1 failed, 0 pending (100%)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_search(t *testing.T) {
	cli, db, out := setup(t)
	testutil.CreateStudent(t, db, "أحمد علي")

	reqs := new(requestLog)
	cli.conf.Search = core.SearchConfig{Debounce: time.Millisecond, MinLength: 2}
	cli.client = apiclient.New(cli.conf.API,
		apiclient.WithLogger(logsvc.NewNopLogger()),
		apiclient.WithHTTPClient(&http.Client{Transport: reqs}),
	)
	cli.stores = store.NewRegistry(cli.client, store.Deps{Logger: logsvc.NewNopLogger()})
	login(t, cli)

	tests := []struct {
		name      string
		query     string
		wantSent  int
		wantOut   string
		wantEmpty bool
	}{
		{name: "one character", query: "أ", wantSent: 0, wantEmpty: true},
		{name: "blank padded", query: "  a ", wantSent: 0, wantEmpty: true},
		{name: "name", query: "أحمد", wantSent: 1, wantOut: "أحمد علي"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			before := reqs.count("/students/search")

			require.NoError(t, cli.run([]string{"admin", "search", tt.query}))
			assert.Equal(t, tt.wantSent, reqs.count("/students/search")-before, "search requests")
			assert.Contains(t, out.String(), "PARENT PHONE")
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
			if tt.wantEmpty {
				assert.NotContains(t, out.String(), "أحمد علي")
			}
		})
	}
}
