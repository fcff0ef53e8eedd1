package dialect

import "fmt"

// sqliteDialect implements Dialect for SQLite.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(n int) string { return "?" }

func (sqliteDialect) QuoteIdent(name string) string { return `"` + name + `"` }

func (sqliteDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS TEXT)", expr)
}

func (sqliteDialect) LimitOffset(n, offset, limit int) (string, []any) {
	return "LIMIT ? OFFSET ?", []any{limit, offset}
}

func (sqliteDialect) NoOrderClause() string { return "" }

func (sqliteDialect) ReturningStyle() ReturningStyle { return ReturningLastID }

func (sqliteDialect) ColumnsQuery(table string) string {
	return fmt.Sprintf("SELECT name FROM pragma_table_info('%s') ORDER BY cid", table)
}

func (sqliteDialect) TablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'"
}

func init() {
	Register("sqlite", sqliteDialect{})
	Register("sqlite3", sqliteDialect{})
}
