package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/newsletter"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db            *sqlx.DB
	validate      *validator.Validate
	translator    ut.Translator
	siteSvc       *site.Service
	usrSvc        user.Service
	newsletterSvc *newsletter.Service
	out           io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  addsite -domain DOMAIN -name NAME - create a site")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-role ROLE] - create a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  sendnewsletter -article ID|SLUG [-force] - send an article's newsletter")
	fmt.Fprintln(cli.out, "  exportsubscribers [-site DOMAIN] [-all] [-o FILE] - export newsletter subscribers as CSV")
}

// promptPassword reads a password without echoing it. An empty password prints the command usage.
func (cli *commandLine) promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSiteCmd := flag.NewFlagSet("addsite", flag.ContinueOnError)
	addSiteDomain := addSiteCmd.String("domain", "", "The site's domain, e.g. school.example.com")
	addSiteName := addSiteCmd.String("name", "", "The site's display name")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The new user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The new user's email")
	addUserRole := addUserCmd.String("role", user.RoleSuperAdmin, "One of: "+strings.Join(user.AllRoles, ", "))

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	sendNewsletterCmd := flag.NewFlagSet("sendnewsletter", flag.ContinueOnError)
	sendNewsletterRef := sendNewsletterCmd.String("article", "", "The article's id or slug")
	sendNewsletterForce := sendNewsletterCmd.Bool("force", false, "Send again even if the newsletter was already sent")

	exportCmd := flag.NewFlagSet("exportsubscribers", flag.ContinueOnError)
	exportSite := exportCmd.String("site", "", "Only export the subscribers of this site domain")
	exportAll := exportCmd.Bool("all", false, "Include inactive subscribers")
	exportOut := exportCmd.String("o", "", "Output file (defaults to stdout)")

	for _, cmd := range []*flag.FlagSet{addSiteCmd, addUserCmd, resetPasswordCmd, sendNewsletterCmd, exportCmd} {
		cmd.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addsite":
		if err := addSiteCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addSiteDomain == "" || *addSiteName == "" {
			addSiteCmd.Usage()
			return errHelp
		}
		return cli.addSite(*addSiteDomain, *addSiteName)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "sendnewsletter":
		if err := sendNewsletterCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *sendNewsletterRef == "" {
			sendNewsletterCmd.Usage()
			return errHelp
		}
		return cli.sendNewsletter(*sendNewsletterRef, *sendNewsletterForce)

	case "exportsubscribers":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.exportSubscribers(*exportSite, *exportAll, *exportOut)

	default:
		cli.printUsage()
		return errHelp
	}
}

// describe renders err for the terminal, with validation errors translated per field.
func (cli *commandLine) describe(err error) string {
	var lines []string
	switch cause := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, vErr := range cause {
			lines = append(lines, vErr.Field()+": "+vErr.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fe := range cause.Fields {
			lines = append(lines, fe.Field+": "+fe.Error)
		}
	}
	if len(lines) == 0 {
		return err.Error()
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
