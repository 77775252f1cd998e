// Package sqlxrepos implements the domain repositories over sqlx, with queries built by squirrel.
// The SQL sticks to what both postgres and sqlite understand.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// builder returns a squirrel builder using the placeholders of exec's driver.
func builder(exec core.DBExecutor) sq.StatementBuilderType {
	if sqlx.BindType(exec.DriverName()) == sqlx.DOLLAR {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func newID() string {
	return uuid.New().String()
}

func getOne(ctx context.Context, exec core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.GetContext(ctx, dest, q, args...)
}

func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.SelectContext(ctx, dest, q, args...)
}

// execute runs a statement and returns the number of affected rows.
func execute(ctx context.Context, exec core.DBExecutor, query sq.Sqlizer) (int64, error) {
	q, args, err := query.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exec.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func count(ctx context.Context, exec core.DBExecutor, query sq.SelectBuilder) (int, error) {
	var n int
	err := getOne(ctx, exec, &n, query)
	return n, err
}

// trapNoRowsErr maps the "no rows" err to the domain's not found error
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ilike is a case-insensitive "contains" on any of cols.
// The search is matched literally: LIKE wildcards in it are escaped.
func ilike(search string, cols ...string) sq.Or {
	val := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.Expr("LOWER("+col+`) LIKE ? ESCAPE '\'`, val))
	}
	return or
}

// orderBy translates orderings on the allowed {field: column} pairs, unknown fields are ignored.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, def ...string) []string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := allowed[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		return def
	}
	return clauses
}

// isUniqueViolation tells if err comes from a unique constraint, on both engines.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(errors.Cause(err).Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
