// Package reader executes the paged browse queries: count plus page fetch
// against an allow-listed table, using the clause the query package builds.
package reader

import (
	"context"
	"fmt"
	"strings"

	"fastenbase/internal/db"
	"fastenbase/internal/query"
)

// Page is one screen of results.
type Page struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Total     int      `json:"total"`
	Offset    int      `json:"offset"`
	PageIndex int      `json:"page_index"`
	PageSize  int      `json:"page_size"`
	HasNext   bool     `json:"has_next"`
	HasPrev   bool     `json:"has_prev"`
}

// Reader runs browse queries over a session.
type Reader struct {
	s *db.Session
}

// New returns a Reader bound to the session.
func New(s *db.Session) *Reader {
	return &Reader{s: s}
}

// Count returns the number of rows matching the filter.
func (r *Reader) Count(ctx context.Context, table string, f *query.FilterState) (int, error) {
	d := r.s.Dialect()
	if !r.s.Catalog().Allowed(table) {
		return 0, db.Validation("table %q is not a recognized fastener table", table)
	}
	cols, err := r.s.Columns(ctx, table)
	if err != nil {
		return 0, err
	}
	where, args, err := f.Build(d, cols)
	if err != nil {
		return 0, db.Validation("%v", err)
	}
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
	if where != "" {
		stmt += " WHERE " + where
	}
	return r.s.QueryInt(ctx, stmt, args...)
}

// FetchPage returns one page of filtered, sorted rows together with the
// total match count and the next/prev availability derived from it.
func (r *Reader) FetchPage(ctx context.Context, table string, f *query.FilterState) (*Page, error) {
	d := r.s.Dialect()
	if !r.s.Catalog().Allowed(table) {
		return nil, db.Validation("table %q is not a recognized fastener table", table)
	}
	cols, err := r.s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	total, err := r.Count(ctx, table, f)
	if err != nil {
		return nil, err
	}

	where, args, err := f.Build(d, cols)
	if err != nil {
		return nil, db.Validation("%v", err)
	}
	order, err := f.OrderClause(d, cols)
	if err != nil {
		return nil, db.Validation("%v", err)
	}

	offset := f.Offset()
	pageClause, pageArgs := d.LimitOffset(len(args), offset, f.Limit())

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", d.QuoteIdent(table))
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if order != "" {
		b.WriteString(" " + order)
	}
	b.WriteString(" " + pageClause)

	columns, rows, err := r.scanAll(ctx, b.String(), append(args, pageArgs...))
	if err != nil {
		return nil, err
	}
	if columns == nil {
		columns = cols
	}

	return &Page{
		Columns:   columns,
		Rows:      rows,
		Total:     total,
		Offset:    offset,
		PageIndex: f.PageIndex,
		PageSize:  f.Limit(),
		HasNext:   offset+len(rows) < total,
		HasPrev:   f.PageIndex > 0,
	}, nil
}

// FetchAll returns the full filtered, sorted result set without pagination,
// for export.
func (r *Reader) FetchAll(ctx context.Context, table string, f *query.FilterState) ([]string, [][]any, error) {
	d := r.s.Dialect()
	if !r.s.Catalog().Allowed(table) {
		return nil, nil, db.Validation("table %q is not a recognized fastener table", table)
	}
	cols, err := r.s.Columns(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	where, args, err := f.Build(d, cols)
	if err != nil {
		return nil, nil, db.Validation("%v", err)
	}
	var order string
	if f.SortColumn != "" {
		if order, err = f.OrderClause(d, cols); err != nil {
			return nil, nil, db.Validation("%v", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", d.QuoteIdent(table))
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if order != "" {
		b.WriteString(" " + order)
	}

	columns, rows, err := r.scanAll(ctx, b.String(), args)
	if err != nil {
		return nil, nil, err
	}
	if columns == nil {
		columns = cols
	}
	return columns, rows, nil
}

// DistinctValues lists the distinct non-null values of one column as text,
// for the column filter picker.
func (r *Reader) DistinctValues(ctx context.Context, table, column string) ([]string, error) {
	d := r.s.Dialect()
	cols, err := r.s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	ok := false
	for _, c := range cols {
		if c == column {
			ok = true
			break
		}
	}
	if !ok {
		return nil, db.Validation("unknown column %q in table %q", column, table)
	}

	qcol := d.QuoteIdent(column)
	stmt := fmt.Sprintf("SELECT DISTINCT %s AS val FROM %s WHERE %s IS NOT NULL ORDER BY val",
		d.CastText(qcol), d.QuoteIdent(table), qcol)
	rows, err := r.s.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		if v != "" {
			values = append(values, v)
		}
	}
	return values, db.Classify(rows.Err())
}

// scanAll runs a SELECT * statement and materializes every row, normalizing
// []byte cells to string for display.
func (r *Reader) scanAll(ctx context.Context, stmt string, args []any) ([]string, [][]any, error) {
	rows, err := r.s.Query(ctx, stmt, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, db.Classify(err)
	}

	var out [][]any
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		out = append(out, cells)
	}
	return columns, out, db.Classify(rows.Err())
}
