// Package writer performs the multi-table catalog writes: creating a new
// composite bolt assembly and cloning an existing one, each inside a single
// transaction.
package writer

import (
	"fmt"
	"math"
	"sort"

	"fastenbase/internal/db"
)

// DefaultThreadType is the coarse-thread designation applied when a bolt is
// created without an explicit thread type.
const DefaultThreadType = "metric_coarse"

// LengthEntry is one available bolt length.
type LengthEntry struct {
	Length   float64 `json:"length"`
	Weight   float64 `json:"weight"`
	PartName string  `json:"part_name"`
}

// GripRule maps a grip range to the bolt length auto-selected for it.
type GripRule struct {
	GripMin float64 `json:"grip_min"`
	GripMax float64 `json:"grip_max"`
	Length  float64 `json:"length"`
}

// CompositeBolt is the unit of creation: one BoltDefinition root row plus
// its dependent lengths, assembly-set links, and optional auto-length rules.
type CompositeBolt struct {
	Name            string        `json:"name"`
	StandardID      int64         `json:"standard_id"`
	Diameter        float64       `json:"diameter"`
	StrengthClassID int64         `json:"strength_class_id"`
	AuthorID        int64         `json:"author_id"`
	HeadDiameter    *float64      `json:"head_diameter,omitempty"`
	HeadHeight      *float64      `json:"head_height,omitempty"`
	ThreadType      string        `json:"thread_type,omitempty"`
	Lengths         []LengthEntry `json:"lengths"`
	AssemblySetIDs  []int64       `json:"assembly_set_ids"`
	AutoLengths     []GripRule    `json:"auto_lengths,omitempty"`
}

// Validate checks the in-memory preconditions before any statement is
// issued. Referential validity of the foreign keys stays with the database.
func (b *CompositeBolt) Validate() error {
	if b.Name == "" {
		return db.Validation("bolt name is required")
	}
	if b.StandardID == 0 {
		return db.Validation("standard is required")
	}
	if b.Diameter <= 0 {
		return db.Validation("diameter must be positive")
	}
	if b.StrengthClassID == 0 {
		return db.Validation("strength class is required")
	}
	if b.AuthorID == 0 {
		return db.Validation("author is required")
	}
	if len(b.Lengths) == 0 {
		return db.Validation("at least one bolt length is required")
	}
	if len(b.AssemblySetIDs) == 0 {
		return db.Validation("at least one assembly set must be selected")
	}
	return nil
}

// threadType returns the explicit thread type or the coarse default.
func (b *CompositeBolt) threadType() string {
	if b.ThreadType == "" {
		return DefaultThreadType
	}
	return b.ThreadType
}

// PartName builds the conventional part designation, e.g. "M16x70".
func PartName(diameter, length float64) string {
	return fmt.Sprintf("M%dx%d", int(diameter), int(length))
}

// EstimateWeight approximates a bolt weight in kg from its dimensions,
// rounded to 3 decimals.
func EstimateWeight(diameter, length float64) float64 {
	return math.Round(length*diameter*diameter*0.00000617*1000) / 1000
}

// threadProjection is the fixed thread stick-out past the nut, in mm.
const threadProjection = 3.0

// defaultNutHeight is assumed when no nut thickness is known (M16).
const defaultNutHeight = 13.0

// GenerateGripRules derives grip ranges from the available lengths: each
// length covers grips up to length minus nut height minus the thread
// projection. The first usable rule starts at grip 0; each later rule
// starts 0.1mm above the previous max. Lengths whose usable grip does not
// exceed the running minimum produce no rule and do not break the chain.
// The heuristic is a simplified approximation of the detailing rules.
func GenerateGripRules(lengths []float64, nutHeight float64) []GripRule {
	if nutHeight <= 0 {
		nutHeight = defaultNutHeight
	}
	sorted := append([]float64(nil), lengths...)
	sort.Float64s(sorted)

	var rules []GripRule
	prevMax := 0.0
	for _, length := range sorted {
		maxGrip := length - nutHeight - threadProjection
		minGrip := 0.0
		if len(rules) > 0 {
			minGrip = prevMax + 0.1
		}
		if maxGrip > minGrip {
			rules = append(rules, GripRule{GripMin: minGrip, GripMax: maxGrip, Length: length})
			prevMax = maxGrip
		}
	}
	return rules
}
