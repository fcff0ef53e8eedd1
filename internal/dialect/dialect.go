// Package dialect holds the per-engine SQL text rules the rest of the
// module needs to build portable statements: placeholder syntax, identifier
// quoting, text casts for uniform substring search, pagination clauses and
// generated-key retrieval. Dialects register themselves by driver name.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// ReturningStyle describes how a dialect hands back a generated identifier
// after an INSERT.
type ReturningStyle int

const (
	// ReturningLastID uses sql.Result.LastInsertId after a plain INSERT.
	ReturningLastID ReturningStyle = iota
	// ReturningOutput embeds an OUTPUT INSERTED clause; the INSERT is run as
	// a query returning one row.
	ReturningOutput
	// ReturningSuffix appends RETURNING <id>; the INSERT is run as a query
	// returning one row.
	ReturningSuffix
	// ReturningInto appends RETURNING <id> INTO :n and binds an out
	// parameter.
	ReturningInto
)

// Dialect supplies the SQL fragments that differ between engines. Identifier
// arguments must already be validated against the table allow-list or the
// live column set; Dialect does no validation of its own.
type Dialect interface {
	// Name returns the canonical driver name.
	Name() string

	// Placeholder returns the 1-based positional parameter marker.
	Placeholder(n int) string

	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string

	// CastText wraps an already-quoted expression in a cast to the engine's
	// text type, so numeric and date columns take part in LIKE matching.
	CastText(expr string) string

	// LimitOffset returns the pagination clause and its bind arguments in
	// the order the clause's placeholders expect. n is the count of
	// placeholders already used by the statement.
	LimitOffset(n, offset, limit int) (clause string, args []any)

	// NoOrderClause is the ORDER BY used when no sort column is set. Empty
	// means the clause is omitted entirely.
	NoOrderClause() string

	// ReturningStyle selects the generated-key retrieval mechanism.
	ReturningStyle() ReturningStyle

	// ColumnsQuery returns a statement listing the column names of table in
	// ordinal order. The table name is interpolated; callers validate it
	// against the allow-list first.
	ColumnsQuery(table string) string

	// TablesQuery returns a statement listing all table names.
	TablesQuery() string
}

var registry = map[string]Dialect{}

// Register makes a Dialect available under name.
func Register(name string, d Dialect) {
	registry[strings.ToLower(name)] = d
}

// Get looks up a registered dialect by driver name.
func Get(name string) (Dialect, error) {
	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("dialect not registered: %q (available: %v)", name, Registered())
	}
	return d, nil
}

// Registered returns the registered dialect names, sorted.
func Registered() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Execer is the subset of *sql.Tx and *sql.DB the insert helper needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertReturningID inserts one row and returns the generated identifier,
// using whichever retrieval mechanism the dialect supports. cols and args
// must be parallel; idCol is the generated key column.
func InsertReturningID(ctx context.Context, e Execer, d Dialect, table, idCol string, cols []string, args []any) (int64, error) {
	quoted := make([]string, len(cols))
	markers := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
		markers[i] = d.Placeholder(i + 1)
	}
	base := fmt.Sprintf("INSERT INTO %s (%s)", d.QuoteIdent(table), strings.Join(quoted, ", "))
	values := fmt.Sprintf("VALUES (%s)", strings.Join(markers, ", "))

	var id int64
	switch d.ReturningStyle() {
	case ReturningOutput:
		stmt := fmt.Sprintf("%s OUTPUT INSERTED.%s %s", base, d.QuoteIdent(idCol), values)
		if err := e.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return 0, err
		}
	case ReturningSuffix:
		stmt := fmt.Sprintf("%s %s RETURNING %s", base, values, d.QuoteIdent(idCol))
		if err := e.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return 0, err
		}
	case ReturningInto:
		stmt := fmt.Sprintf("%s %s RETURNING %s INTO %s", base, values, d.QuoteIdent(idCol), d.Placeholder(len(args)+1))
		out := append(append([]any{}, args...), sql.Out{Dest: &id})
		if _, err := e.ExecContext(ctx, stmt, out...); err != nil {
			return 0, err
		}
	default:
		stmt := base + " " + values
		res, err := e.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}
