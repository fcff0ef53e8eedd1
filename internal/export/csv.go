// Package export renders a filtered result set as CSV with the same
// semantics as the on-screen table, including optional inch display of
// dimensional columns.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"fastenbase/internal/units"
)

// WriteCSV writes the result set to w. Headers carry an "(inches)" suffix
// on converted dimensional columns; nil cells become empty fields.
func WriteCSV(w io.Writer, columns []string, rows [][]any, inches bool) error {
	cw := csv.NewWriter(w)

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = units.Header(col, inches)
	}
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(columns) {
				cell = units.ToDisplay(columns[i], cell, inches)
			}
			record[i] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatCell renders one value the way the table view would.
func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", c)
	}
}
