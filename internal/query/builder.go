package query

import (
	"fmt"
	"sort"
	"strings"

	"fastenbase/internal/dialect"
)

// Build translates the filter state into a WHERE clause body and its bind
// arguments, in placeholder order. columns is the live column set of the
// target table; any filter naming a column outside it is rejected, so no
// unvalidated identifier ever reaches the SQL text. An empty filter yields
// an empty clause.
//
// Precedence: non-empty advanced conditions suppress the global keyword;
// per-column filters apply in both modes.
func (f *FilterState) Build(d dialect.Dialect, columns []string) (string, []any, error) {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}

	var preds []string
	var args []any
	n := 0 // placeholders used so far
	next := func() string {
		n++
		return d.Placeholder(n)
	}
	textCol := func(col string) string {
		return d.CastText(d.QuoteIdent(col))
	}

	if len(f.AdvancedConditions) > 0 {
		for _, cond := range f.AdvancedConditions {
			if _, ok := known[cond.Column]; !ok {
				return "", nil, fmt.Errorf("unknown column in search condition: %q", cond.Column)
			}
			switch cond.Op {
			case OpContains:
				preds = append(preds, fmt.Sprintf("%s LIKE %s", textCol(cond.Column), next()))
				args = append(args, "%"+cond.Value+"%")
			case OpEquals:
				preds = append(preds, fmt.Sprintf("%s = %s", textCol(cond.Column), next()))
				args = append(args, cond.Value)
			case OpStartsWith:
				preds = append(preds, fmt.Sprintf("%s LIKE %s", textCol(cond.Column), next()))
				args = append(args, cond.Value+"%")
			case OpEndsWith:
				preds = append(preds, fmt.Sprintf("%s LIKE %s", textCol(cond.Column), next()))
				args = append(args, "%"+cond.Value)
			case OpNotContains:
				preds = append(preds, fmt.Sprintf("%s NOT LIKE %s", textCol(cond.Column), next()))
				args = append(args, "%"+cond.Value+"%")
			default:
				return "", nil, fmt.Errorf("unknown search operator: %q", cond.Op)
			}
		}
	} else if keyword := strings.TrimSpace(f.GlobalKeyword); keyword != "" {
		// One OR group across every column: the keyword may match anywhere.
		group := make([]string, 0, len(columns))
		for _, col := range columns {
			group = append(group, fmt.Sprintf("%s LIKE %s", textCol(col), next()))
			args = append(args, "%"+keyword+"%")
		}
		if len(group) > 0 {
			preds = append(preds, "("+strings.Join(group, " OR ")+")")
		}
	}

	// Per-column filters, in stable column order for deterministic SQL text.
	cols := make([]string, 0, len(f.ColumnFilters))
	for col := range f.ColumnFilters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		value := f.ColumnFilters[col]
		if value == "" || value == "All" {
			continue
		}
		if _, ok := known[col]; !ok {
			return "", nil, fmt.Errorf("unknown column in filter: %q", col)
		}
		preds = append(preds, fmt.Sprintf("%s LIKE %s", textCol(col), next()))
		args = append(args, "%"+value+"%")
	}

	return strings.Join(preds, " AND "), args, nil
}

// OrderClause returns the ORDER BY text for the current sort, validated
// against the live column set. With no sort column the dialect's stable
// no-order form is used (possibly empty).
func (f *FilterState) OrderClause(d dialect.Dialect, columns []string) (string, error) {
	if f.SortColumn == "" {
		return d.NoOrderClause(), nil
	}
	ok := false
	for _, c := range columns {
		if c == f.SortColumn {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("unknown sort column: %q", f.SortColumn)
	}
	dir := "ASC"
	if strings.EqualFold(f.SortOrder, "DESC") {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", d.QuoteIdent(f.SortColumn), dir), nil
}
