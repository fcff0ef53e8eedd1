package dialect

import "fmt"

// mssqlDialect implements Dialect for Microsoft SQL Server, the engine the
// detailing software ships its catalog on.
type mssqlDialect struct{}

func (mssqlDialect) Name() string { return "sqlserver" }

func (mssqlDialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (mssqlDialect) QuoteIdent(name string) string { return "[" + name + "]" }

func (mssqlDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS NVARCHAR(MAX))", expr)
}

func (d mssqlDialect) LimitOffset(n, offset, limit int) (string, []any) {
	clause := fmt.Sprintf("OFFSET %s ROWS FETCH NEXT %s ROWS ONLY", d.Placeholder(n+1), d.Placeholder(n+2))
	return clause, []any{offset, limit}
}

// OFFSET/FETCH requires an ORDER BY; (SELECT NULL) keeps the server order
// without paying for a sort.
func (mssqlDialect) NoOrderClause() string { return "ORDER BY (SELECT NULL)" }

func (mssqlDialect) ReturningStyle() ReturningStyle { return ReturningOutput }

func (mssqlDialect) ColumnsQuery(table string) string {
	return fmt.Sprintf(
		"SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = '%s' ORDER BY ORDINAL_POSITION", table)
}

func (mssqlDialect) TablesQuery() string {
	return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE'"
}

func init() {
	Register("sqlserver", mssqlDialect{})
	Register("mssql", mssqlDialect{})
}
