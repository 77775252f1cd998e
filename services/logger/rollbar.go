package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
)

// RollbarLogger reports to rollbar and mirrors every entry on a std logger.
type RollbarLogger struct {
	std      *log.Logger
	debug    bool
	hasToken bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && conf.RollbarToken != "")
	return &RollbarLogger{std: std, debug: conf.Debug, hasToken: conf.RollbarToken != ""}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled && l.hasToken)
}

// Wait blocks until the queued rollbar items are sent.
func (l RollbarLogger) Wait() {
	rollbar.Wait()
}

// entry is a log call split into what rollbar and the std logger need.
type entry struct {
	msg    string
	err    error
	domain string
	fields map[string]interface{}
}

// newEntry sorts args: the first error, the acting user (rollbar person),
// the site (tagged on every line) and custom fields. Anything else lands in "extra".
func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, fields: make(map[string]interface{})}
	var usr *user.User
	var extra []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			if e.err == nil {
				e.err = v
			} else {
				extra = append(extra, v.Error())
			}
		case user.User:
			if usr == nil {
				usr = &v
			}
		case *user.User:
			if usr == nil && v != nil {
				usr = v
			}
		case site.Site:
			e.domain = v.Domain
			e.fields["site_id"] = v.ID
		case map[string]interface{}:
			for k, val := range v {
				e.fields[k] = val
			}
		default:
			extra = append(extra, v)
		}
	}
	if len(extra) > 0 {
		e.fields["extra"] = extra
	}
	if usr != nil {
		rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
		e.fields["user"] = usr.Username
	} else {
		rollbar.ClearPerson()
	}
	if e.domain != "" {
		e.fields["site"] = e.domain
	}
	return e
}

func (e entry) rollbarArgs() []interface{} {
	args := []interface{}{e.msg}
	if e.err != nil {
		args = append(args, e.err)
	}
	if len(e.fields) > 0 {
		args = append(args, e.fields)
	}
	return args
}

func (e entry) String() string {
	var b strings.Builder
	if e.domain != "" {
		b.WriteString("[" + e.domain + "] ")
	}
	b.WriteString(e.msg)

	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		if k != "site" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.fields[k])
	}
	if e.err != nil {
		fmt.Fprintf(&b, "\n%+v", e.err)
	}
	return b.String()
}

func (l RollbarLogger) log(level string, e entry) {
	l.std.Println(level + " " + e.String())
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", newEntry(msg, args))
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Info(e.rollbarArgs()...)
	l.log("INFO", e)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Warning(e.rollbarArgs()...)
	l.log("WARN", e)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Error(e.rollbarArgs()...)
	l.log("ERROR", e)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Critical(e.rollbarArgs()...)
	l.log("FATAL", e)
	rollbar.Wait()
	l.std.Fatal(msg)
}
