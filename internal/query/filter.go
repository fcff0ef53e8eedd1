// Package query turns browser filter state into parameterized SQL clauses.
// It never executes anything; the reader does that.
package query

// DefaultPageSize is the rows-per-page default for table browsing.
const DefaultPageSize = 25

// Op is an advanced-search comparison operator.
type Op string

const (
	OpContains    Op = "contains"
	OpEquals      Op = "equals"
	OpStartsWith  Op = "starts_with"
	OpEndsWith    Op = "ends_with"
	OpNotContains Op = "not_contains"
)

// Condition is one advanced-search predicate.
type Condition struct {
	Column string `json:"column"`
	Op     Op     `json:"operator"`
	Value  string `json:"value"`
}

// FilterState holds the active browse filters for one table session.
// Advanced conditions and the global keyword are mutually exclusive
// application modes: non-empty conditions suppress the keyword.
type FilterState struct {
	GlobalKeyword      string            `json:"global_keyword,omitempty"`
	ColumnFilters      map[string]string `json:"column_filters,omitempty"`
	AdvancedConditions []Condition       `json:"advanced_conditions,omitempty"`
	SortColumn         string            `json:"sort_column,omitempty"`
	SortOrder          string            `json:"sort_order,omitempty"` // ASC or DESC
	PageIndex          int               `json:"page_index"`
	PageSize           int               `json:"page_size"`
}

// NewFilterState returns an empty filter with defaults applied.
func NewFilterState() *FilterState {
	return &FilterState{
		ColumnFilters: map[string]string{},
		SortOrder:     "ASC",
		PageSize:      DefaultPageSize,
	}
}

// Clone returns an independent copy of the filter state. Mutating either
// copy never affects the other.
func (f *FilterState) Clone() *FilterState {
	c := *f
	c.ColumnFilters = make(map[string]string, len(f.ColumnFilters))
	for col, v := range f.ColumnFilters {
		c.ColumnFilters[col] = v
	}
	c.AdvancedConditions = append([]Condition(nil), f.AdvancedConditions...)
	return &c
}

// SetKeyword replaces the global keyword, clears advanced conditions and
// rewinds to the first page.
func (f *FilterState) SetKeyword(keyword string) {
	f.GlobalKeyword = keyword
	f.AdvancedConditions = nil
	f.PageIndex = 0
}

// SetColumnFilter sets or, for an empty value, removes a per-column filter,
// rewinding to the first page.
func (f *FilterState) SetColumnFilter(column, value string) {
	if f.ColumnFilters == nil {
		f.ColumnFilters = map[string]string{}
	}
	if value == "" {
		delete(f.ColumnFilters, column)
	} else {
		f.ColumnFilters[column] = value
	}
	f.PageIndex = 0
}

// SetConditions replaces the advanced conditions, clears the global keyword
// and rewinds to the first page.
func (f *FilterState) SetConditions(conds []Condition) {
	f.AdvancedConditions = conds
	f.GlobalKeyword = ""
	f.PageIndex = 0
}

// SetSort sets the sort column, toggling direction when the column is
// already the sort key, and rewinds to the first page.
func (f *FilterState) SetSort(column string) {
	if f.SortColumn == column {
		if f.SortOrder == "ASC" {
			f.SortOrder = "DESC"
		} else {
			f.SortOrder = "ASC"
		}
	} else {
		f.SortColumn = column
		f.SortOrder = "ASC"
	}
	f.PageIndex = 0
}

// SetPage moves to a page without touching the filters. Negative indexes
// clamp to 0.
func (f *FilterState) SetPage(index int) {
	if index < 0 {
		index = 0
	}
	f.PageIndex = index
}

// Clear drops every filter and sort, rewinding to the first page. Page size
// is kept.
func (f *FilterState) Clear() {
	f.GlobalKeyword = ""
	f.ColumnFilters = map[string]string{}
	f.AdvancedConditions = nil
	f.SortColumn = ""
	f.SortOrder = "ASC"
	f.PageIndex = 0
}

// Offset returns the row offset of the current page.
func (f *FilterState) Offset() int {
	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return f.PageIndex * size
}

// Limit returns the effective page size.
func (f *FilterState) Limit() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return f.PageSize
}
