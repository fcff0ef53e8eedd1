// Package units converts dimensional catalog values from stored millimeters
// to inches for display. Conversion is one-directional: there is no
// inch-to-mm path, and writes always store millimeters.
package units

import (
	"fmt"
	"math"
)

// MMPerInch is the conversion divisor.
const MMPerInch = 25.4

// dimensional is the fixed set of columns carrying millimeter values. The
// same set drives display conversion and CSV export headers.
var dimensional = map[string]struct{}{
	"Diameter":        {},
	"Length":          {},
	"HeadHeight":      {},
	"Width":           {},
	"Height":          {},
	"Thickness":       {},
	"HeadDiameter":    {},
	"NutThickness":    {},
	"WasherThickness": {},
	"WasherOuterDia":  {},
	"GripMin":         {},
	"GripMax":         {},
}

// IsDimensional reports whether a column holds a millimeter dimension.
func IsDimensional(column string) bool {
	_, ok := dimensional[column]
	return ok
}

// ToInches converts a millimeter value, rounded to 3 decimal places.
func ToInches(mm float64) float64 {
	return math.Round(mm/MMPerInch*1000) / 1000
}

// ToDisplay returns the display value for a cell. Conversion happens only
// for dimensional columns, only for numeric values, and only when inches
// display was requested; everything else passes through unchanged.
func ToDisplay(column string, value any, inches bool) any {
	if !inches || !IsDimensional(column) {
		return value
	}
	switch v := value.(type) {
	case float64:
		return ToInches(v)
	case float32:
		return ToInches(float64(v))
	case int64:
		return ToInches(float64(v))
	case int:
		return ToInches(float64(v))
	default:
		return value
	}
}

// Header returns the column header for export, suffixed with the display
// unit for dimensional columns when inches are requested.
func Header(column string, inches bool) string {
	if inches && IsDimensional(column) {
		return fmt.Sprintf("%s (inches)", column)
	}
	return column
}
