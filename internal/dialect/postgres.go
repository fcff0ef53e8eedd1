package dialect

import "fmt"

// postgresDialect implements Dialect for PostgreSQL.
type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) QuoteIdent(name string) string { return `"` + name + `"` }

func (postgresDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS TEXT)", expr)
}

func (d postgresDialect) LimitOffset(n, offset, limit int) (string, []any) {
	clause := fmt.Sprintf("LIMIT %s OFFSET %s", d.Placeholder(n+1), d.Placeholder(n+2))
	return clause, []any{limit, offset}
}

func (postgresDialect) NoOrderClause() string { return "" }

func (postgresDialect) ReturningStyle() ReturningStyle { return ReturningSuffix }

func (postgresDialect) ColumnsQuery(table string) string {
	return fmt.Sprintf(
		"SELECT column_name FROM information_schema.columns WHERE table_name = '%s' ORDER BY ordinal_position", table)
}

func (postgresDialect) TablesQuery() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'"
}

func init() {
	Register("postgres", postgresDialect{})
	Register("postgresql", postgresDialect{})
}
