package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/news"
	"github.com/trezcool/habari/core/newsletter"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/email"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
	"github.com/trezcool/habari/tests"
)

const strongPwd = "Kib0ko-Mwanza!"

type fixture struct {
	cli      *commandLine
	out      *bytes.Buffer
	db       *sqlx.DB
	siteRepo site.Repository
	usrRepo  user.Repository
}

func setup(t *testing.T) *fixture {
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()

	emailsvc.ResetSentMessages()
	t.Cleanup(emailsvc.ResetSentMessages)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	f := &fixture{
		out:      new(bytes.Buffer),
		db:       db,
		siteRepo: sqlxrepos.NewSiteRepository(db),
		usrRepo:  sqlxrepos.NewUserRepository(db),
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	siteSvc := site.NewService(f.siteRepo, conf)
	newsletterSvc := newsletter.NewServiceMock(
		sqlxrepos.NewNewsletterRepository(db), sqlxrepos.NewNewsRepository(db), siteSvc, mailSvc, nil, logger, conf,
	)

	// start CLI
	f.cli = &commandLine{
		db:            db,
		validate:      validate,
		translator:    translator,
		siteSvc:       siteSvc,
		usrSvc:        user.NewServiceMock(f.usrRepo, mailSvc, newsletterSvc, logger, conf),
		newsletterSvc: newsletterSvc,
		out:           f.out,
	}
	return f
}

// mockPassword makes the password prompt return pwd.
func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name         string
	args         []string // without program name
	pwd          string
	wantErr      error
	wantErrStr   string
	wantDescribe string // a line of the translated error
}

func (tt cliTest) check(t *testing.T, cli *commandLine, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	case tt.wantDescribe != "":
		require.Error(t, err)
		assert.NotEqual(t, errHelp, err)
		assert.Contains(t, cli.describe(err), tt.wantDescribe)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"addsite", "-lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.out.Reset()
			tt.check(t, f.cli, f.cli.run(append([]string{"admin"}, tt.args...)))
			assert.Contains(t, f.out.String(), "Usage")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	orig := runMigrationsFunc
	t.Cleanup(func() { runMigrationsFunc = orig })
	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("real database", func(t *testing.T) {
		runMigrationsFunc = orig
		assert.NoError(t, f.cli.run([]string{"admin", "migrate", "version"}))
	})
}

func Test_commandLine_addSite(t *testing.T) {
	f := setup(t)
	testutil.CreateSite(t, f.siteRepo, "example.com", "Example School")

	tests := []cliTest{
		{name: "no args", args: []string{"addsite"}, wantErr: errHelp},
		{name: "no name", args: []string{"addsite", "-domain", "other.org"}, wantErr: errHelp},
		{name: "invalid domain", args: []string{"addsite", "-domain", "not a domain", "-name", "Other"}, wantDescribe: "domain: "},
		{name: "domain taken", args: []string{"addsite", "-domain", "Example.com", "-name", "Other"}, wantDescribe: "domain: " + site.ErrDomainExists.Error()},
		{name: "created", args: []string{"addsite", "-domain", "other.org", "-name", "Other School"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	s, err := f.siteRepo.GetSite(context.Background(), site.GetFilter{Domain: "other.org"})
	require.NoError(t, err)
	assert.Equal(t, "Other School", s.Name)
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.usrRepo, "taken", "taken@example.com", "", user.RoleReader, true)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "awe"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "awe", "-email", "awe@example.com"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-username", "awe", "-email", "awe@example.com"}, pwd: "password", wantDescribe: "password: "},
		{name: "unknown role", args: []string{"adduser", "-username", "awe", "-email", "awe@example.com", "-role", "lol"}, pwd: strongPwd, wantDescribe: "role: "},
		{name: "username taken", args: []string{"adduser", "-username", "Taken", "-email", "awe@example.com"}, pwd: strongPwd, wantDescribe: "username: " + user.ErrUsernameExists.Error()},
		{name: "created", args: []string{"adduser", "-username", "Awe", "-email", "Awe@Example.com", "-role", user.RoleNewsEditor}, pwd: strongPwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, f.cli, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{Username: "awe"})
	require.NoError(t, err)
	assert.Equal(t, "awe@example.com", usr.Email)
	assert.Equal(t, user.RoleNewsEditor, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(strongPwd))
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.usrRepo, "awe", "awe@example.com", "Old-pa55word!", user.RoleSchoolAdmin, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: strongPwd, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: strongPwd},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@example.com"}, pwd: "N3w-" + strongPwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := f.cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, f.cli, err)
			if err != nil {
				return
			}

			refreshed, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			assert.Equal(t, user.RoleSchoolAdmin, refreshed.Role)
		})
	}

	t.Run("weak password", func(t *testing.T) {
		mockPassword(t, "12345678")
		tt := cliTest{wantDescribe: "password: "}
		tt.check(t, f.cli, f.cli.run([]string{"admin", "resetpassword", "-username", usr.Username}))
	})
}

func Test_commandLine_sendNewsletter(t *testing.T) {
	f := setup(t)
	st := testutil.CreateSite(t, f.siteRepo, "example.com", "Example School")
	newsRepo := sqlxrepos.NewNewsRepository(f.db)
	published := testutil.CreateArticle(t, newsRepo, st.ID, "Open Day", testutil.Published(time.Now().Add(-time.Hour)))
	draft := testutil.CreateArticle(t, newsRepo, st.ID, "Secret Plans")

	for _, email := range []string{"jane@example.com", "bob@example.com"} {
		_, err := f.cli.newsletterSvc.Subscribe(context.Background(), st.ID, email)
		require.NoError(t, err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"sendnewsletter"}, wantErr: errHelp},
		{name: "unknown article", args: []string{"sendnewsletter", "-article", "lol"}, wantErr: news.ErrArticleNotFound},
		{name: "draft", args: []string{"sendnewsletter", "-article", draft.ID}, wantDescribe: "status: " + newsletter.ErrNotPublished.Error()},
		{name: "sent by slug", args: []string{"sendnewsletter", "-article", published.Slug}},
		{name: "not sent twice", args: []string{"sendnewsletter", "-article", published.ID}, wantErrStr: newsletter.ErrAlreadySent.Error()},
		{name: "forced", args: []string{"sendnewsletter", "-article", published.ID, "-force"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	assert.Len(t, emailsvc.Outbox(), 4)
	assert.Contains(t, f.out.String(), "newsletter sent: 2 delivered, 0 failed")
}

func Test_commandLine_exportSubscribers(t *testing.T) {
	f := setup(t)
	st := testutil.CreateSite(t, f.siteRepo, "example.com", "Example School")
	other := testutil.CreateSite(t, f.siteRepo, "other.org", "Other School")

	ctx := context.Background()
	for _, sub := range []struct{ siteID, email string }{
		{st.ID, "jane@example.com"},
		{st.ID, "bob@example.com"},
		{other.ID, "ann@other.org"},
	} {
		_, err := f.cli.newsletterSvc.Subscribe(ctx, sub.siteID, sub.email)
		require.NoError(t, err)
	}
	require.NoError(t, f.cli.newsletterSvc.Unsubscribe(ctx, st.ID, "bob@example.com"))

	readCSV := func(t *testing.T, data []byte) [][]string {
		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		require.NotEmpty(t, rows)
		assert.Equal(t, []string{"Email", "Site", "Subscribed At"}, rows[0])
		return rows[1:]
	}

	t.Run("unknown site", func(t *testing.T) {
		err := f.cli.run([]string{"admin", "exportsubscribers", "-site", "lol.org"})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("active subscribers to stdout", func(t *testing.T) {
		f.out.Reset()
		require.NoError(t, f.cli.run([]string{"admin", "exportsubscribers"}))
		assert.Len(t, readCSV(t, f.out.Bytes()), 2)
	})

	t.Run("one site, inactive included, to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "subscribers.csv")
		require.NoError(t, f.cli.run([]string{"admin", "exportsubscribers", "-site", "Example.com", "-all", "-o", path}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		rows := readCSV(t, data)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, "Example School", row[1])
		}
	})
}
