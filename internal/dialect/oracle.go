package dialect

import "fmt"

// oracleDialect implements Dialect for Oracle via godror.
type oracleDialect struct{}

func (oracleDialect) Name() string { return "godror" }

func (oracleDialect) Placeholder(n int) string { return fmt.Sprintf(":%d", n) }

func (oracleDialect) QuoteIdent(name string) string { return `"` + name + `"` }

func (oracleDialect) CastText(expr string) string {
	return fmt.Sprintf("TO_CHAR(%s)", expr)
}

func (d oracleDialect) LimitOffset(n, offset, limit int) (string, []any) {
	clause := fmt.Sprintf("OFFSET %s ROWS FETCH NEXT %s ROWS ONLY", d.Placeholder(n+1), d.Placeholder(n+2))
	return clause, []any{offset, limit}
}

func (oracleDialect) NoOrderClause() string { return "" }

func (oracleDialect) ReturningStyle() ReturningStyle { return ReturningInto }

func (oracleDialect) ColumnsQuery(table string) string {
	return fmt.Sprintf(
		"SELECT COLUMN_NAME FROM USER_TAB_COLUMNS WHERE TABLE_NAME = '%s' ORDER BY COLUMN_ID", table)
}

func (oracleDialect) TablesQuery() string {
	return "SELECT TABLE_NAME FROM USER_TABLES"
}

func init() {
	Register("godror", oracleDialect{})
	Register("oracle", oracleDialect{})
}
