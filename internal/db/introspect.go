package db

import (
	"context"
	"fmt"
	"sort"
)

// Columns lists the live column names of a table in ordinal order. The
// table name is checked against the allow-list before any SQL text is
// built; the live set is used to validate and build SQL only, never to
// redefine the static catalog.
func (s *Session) Columns(ctx context.Context, table string) ([]string, error) {
	if !s.catalog.Allowed(table) {
		return nil, Validation("table %q is not a recognized fastener table", table)
	}
	rows, err := s.Query(ctx, s.d.ColumnsQuery(table))
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	if len(cols) == 0 {
		return nil, Validation("table %q has no columns; does it exist?", table)
	}
	return cols, nil
}

// Tables enumerates the database's tables filtered down to the allow-list,
// sorted.
func (s *Session) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.Query(ctx, s.d.TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if s.catalog.Allowed(name) {
			tables = append(tables, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	sort.Strings(tables)
	return tables, nil
}

// TablesResult is the outcome of an asynchronous table enumeration.
type TablesResult struct {
	Tables []string
	Err    error
}

// LoadTablesAsync runs table enumeration on a worker goroutine so startup
// does not block the interface. The worker only reads; the caller merges
// the result on its own thread.
func (s *Session) LoadTablesAsync(ctx context.Context) <-chan TablesResult {
	ch := make(chan TablesResult, 1)
	go func() {
		tables, err := s.Tables(ctx)
		ch <- TablesResult{Tables: tables, Err: err}
	}()
	return ch
}
