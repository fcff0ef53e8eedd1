package writer

import (
	"context"
	"database/sql"
	"fmt"

	"fastenbase/internal/db"
)

// Option is one reference-table row offered for selection.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RefData carries the reference lists a creation form needs.
type RefData struct {
	Standards       []Option `json:"standards"`
	StrengthClasses []Option `json:"strength_classes"`
	Authors         []Option `json:"authors"`
	AssemblySets    []Option `json:"assembly_sets"`
}

// ReferenceData loads the Standard, StrengthClass, Authors and Sets option
// lists.
func (w *Writer) ReferenceData(ctx context.Context) (*RefData, error) {
	ref := &RefData{}
	var err error
	if ref.Standards, err = w.options(ctx, "SELECT ID, Name FROM Standard ORDER BY Name"); err != nil {
		return nil, fmt.Errorf("load standards: %w", err)
	}
	if ref.StrengthClasses, err = w.options(ctx, "SELECT ID, Name FROM StrengthClass ORDER BY Name"); err != nil {
		return nil, fmt.Errorf("load strength classes: %w", err)
	}
	if ref.Authors, err = w.options(ctx, "SELECT ID, Name FROM Authors ORDER BY Name"); err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	if ref.AssemblySets, err = w.assemblySets(ctx); err != nil {
		return nil, fmt.Errorf("load assembly sets: %w", err)
	}
	return ref, nil
}

func (w *Writer) options(ctx context.Context, stmt string) ([]Option, error) {
	rows, err := w.s.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// assemblySets labels each set with its code and optional description.
func (w *Writer) assemblySets(ctx context.Context) ([]Option, error) {
	rows, err := w.s.Query(ctx, "SELECT ID, SetCode, Description FROM Sets ORDER BY SetCode")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []Option
	for rows.Next() {
		var o Option
		var code string
		var desc sql.NullString
		if err := rows.Scan(&o.ID, &code, &desc); err != nil {
			return nil, err
		}
		o.Name = code
		if desc.Valid && desc.String != "" {
			o.Name = code + " - " + desc.String
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// SetCoverage reports whether nut/washer dimensions exist for one assembly
// set at a given standard and diameter.
type SetCoverage struct {
	SetID           int64    `json:"set_id"`
	HasData         bool     `json:"has_data"`
	NutThickness    *float64 `json:"nut_thickness,omitempty"`
	NutWidthAF      *float64 `json:"nut_width_af,omitempty"`
	WasherThickness *float64 `json:"washer_thickness,omitempty"`
	WasherOuterDia  *float64 `json:"washer_outer_dia,omitempty"`
}

// NutWasherCoverage checks each selected assembly set for a SetNutsBolts
// row matching the (standard, set, diameter) triple, returning the
// dimensions found or a missing-data marker.
func (w *Writer) NutWasherCoverage(ctx context.Context, standardID int64, diameter float64, setIDs []int64) ([]SetCoverage, error) {
	if len(setIDs) == 0 {
		return nil, db.Validation("select at least one assembly set first")
	}
	d := w.s.Dialect()
	stmt := fmt.Sprintf(
		"SELECT NutThickness, NutWidthAcrossFlats, WasherThickness, WasherOuterDia FROM SetNutsBolts WHERE StandardId = %s AND SetId = %s AND Diameter = %s",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))

	out := make([]SetCoverage, 0, len(setIDs))
	for _, setID := range setIDs {
		cov := SetCoverage{SetID: setID}
		var nt, nw, wt, wd sql.NullFloat64
		err := func() error {
			rows, err := w.s.Query(ctx, stmt, standardID, setID, diameter)
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				if err := rows.Scan(&nt, &nw, &wt, &wd); err != nil {
					return err
				}
				cov.HasData = true
				cov.NutThickness = nullFloat(nt)
				cov.NutWidthAF = nullFloat(nw)
				cov.WasherThickness = nullFloat(wt)
				cov.WasherOuterDia = nullFloat(wd)
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, err
		}
		out = append(out, cov)
	}
	return out, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
