package units

import "testing"

func TestToInches(t *testing.T) {
	var tests = []struct {
		name string
		mm   float64
		want float64
	}{
		{"one inch", 25.4, 1},
		{"half inch", 12.7, 0.5},
		{"rounds to 3 decimals", 10, 0.394},
		{"zero", 0, 0},
		{"large", 254, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToInches(tt.mm); got != tt.want {
				t.Errorf("\nToInches(%v) got %v, wanted %v", tt.mm, got, tt.want)
			}
		})
	}
}

func TestToDisplay(t *testing.T) {
	var tests = []struct {
		name   string
		column string
		value  any
		inches bool
		want   any
	}{
		{"mm mode passes through", "Diameter", 25.4, false, 25.4},
		{"dimensional float converts", "Diameter", 25.4, true, 1.0},
		{"dimensional int converts", "Length", int64(254), true, 10.0},
		{"non-dimensional untouched", "Name", 25.4, true, 25.4},
		{"string untouched", "Diameter", "M16", true, "M16"},
		{"nil untouched", "Diameter", nil, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToDisplay(tt.column, tt.value, tt.inches); got != tt.want {
				t.Errorf("\nToDisplay(%q, %v, %v) got %v, wanted %v",
					tt.column, tt.value, tt.inches, got, tt.want)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	var tests = []struct {
		name   string
		column string
		inches bool
		want   string
	}{
		{"dimensional in inches", "Diameter", true, "Diameter (inches)"},
		{"dimensional in mm", "Diameter", false, "Diameter"},
		{"non-dimensional", "Name", true, "Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Header(tt.column, tt.inches); got != tt.want {
				t.Errorf("\ngot %q, wanted %q", got, tt.want)
			}
		})
	}
}

func TestIsDimensional(t *testing.T) {
	if !IsDimensional("NutThickness") {
		t.Errorf("\nNutThickness should be dimensional")
	}
	if IsDimensional("PartName") {
		t.Errorf("\nPartName should not be dimensional")
	}
}
