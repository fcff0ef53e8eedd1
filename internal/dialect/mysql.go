package dialect

import "fmt"

// mysqlDialect implements Dialect for MySQL and MariaDB.
type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Placeholder(n int) string { return "?" }

func (mysqlDialect) QuoteIdent(name string) string { return "`" + name + "`" }

func (mysqlDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS CHAR)", expr)
}

func (mysqlDialect) LimitOffset(n, offset, limit int) (string, []any) {
	return "LIMIT ? OFFSET ?", []any{limit, offset}
}

func (mysqlDialect) NoOrderClause() string { return "" }

func (mysqlDialect) ReturningStyle() ReturningStyle { return ReturningLastID }

func (mysqlDialect) ColumnsQuery(table string) string {
	return fmt.Sprintf(
		"SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = '%s' ORDER BY ORDINAL_POSITION", table)
}

func (mysqlDialect) TablesQuery() string {
	return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'"
}

func init() {
	Register("mysql", mysqlDialect{})
	Register("mariadb", mysqlDialect{})
}
