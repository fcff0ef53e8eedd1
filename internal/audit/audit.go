// Package audit runs the relational-integrity battery over the catalog:
// orphaned foreign keys, missing nut/washer coverage, incomplete bolt
// definitions, and auto-length coverage gaps. Every check is read-only and
// independent; one failing check never aborts the others.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fastenbase/internal/db"
	"fastenbase/internal/logger"
	"fastenbase/internal/schema"
)

// Category labels a finding.
type Category string

const (
	CategoryOrphan      Category = "orphan"
	CategoryMissingData Category = "missing-required-data"
	CategoryCoverageGap Category = "coverage-gap"
)

// maxShownIDs caps the affected-identifier list in a finding; the Count
// stays exact regardless.
const maxShownIDs = 10

// Finding is one audit observation.
type Finding struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Count       int      `json:"count"`
	AffectedIDs []int64  `json:"affected_ids,omitempty"`
	Remainder   int      `json:"remainder,omitempty"` // IDs beyond the shown list
	Err         string   `json:"error,omitempty"`     // set when the check query itself failed
}

// errFinding wraps a failed check query as an inline finding.
func errFinding(cat Category, desc string, err error) Finding {
	logger.Error("audit check %q failed: %v", desc, err)
	return Finding{Category: cat, Description: desc, Err: err.Error()}
}

// capIDs fills the bounded identifier list from the full set.
func capIDs(f *Finding, ids []int64) {
	f.Count = len(ids)
	if len(ids) > maxShownIDs {
		f.AffectedIDs = ids[:maxShownIDs]
		f.Remainder = len(ids) - maxShownIDs
	} else {
		f.AffectedIDs = ids
	}
}

// Report is the outcome of one audit run.
type Report struct {
	ID       uuid.UUID `json:"id"`
	RanAt    time.Time `json:"ran_at"`
	Findings []Finding `json:"findings"`
}

// Auditor runs the checks over a session.
type Auditor struct {
	s *db.Session
}

// New returns an Auditor bound to the session.
func New(s *db.Session) *Auditor {
	return &Auditor{s: s}
}

// RunAll executes every check and collects the findings into one report.
func (a *Auditor) RunAll(ctx context.Context) *Report {
	r := &Report{ID: uuid.New(), RanAt: time.Now()}
	r.Findings = append(r.Findings, a.OrphanCheck(ctx)...)
	r.Findings = append(r.Findings, a.MissingNutWasherCheck(ctx)...)
	r.Findings = append(r.Findings, a.IncompleteBoltCheck(ctx)...)
	r.Findings = append(r.Findings, a.CoverageCheck(ctx)...)
	return r
}

// OrphanCheck counts, for every declared foreign-key relationship, the rows
// whose key value has no matching row in the referenced table, and appends
// an aggregate total.
func (a *Auditor) OrphanCheck(ctx context.Context) []Finding {
	d := a.s.Dialect()
	cat := a.s.Catalog()

	var findings []Finding
	total := 0
	for _, table := range cat.Described() {
		ts, _ := cat.Describe(table)
		for _, fkCol := range orderedKeys(ts.ForeignKeys) {
			ref := ts.ForeignKeys[fkCol]
			desc := fmt.Sprintf("%s rows with %s not matching any %s", table, fkCol, ref)
			stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s NOT IN (SELECT %s FROM %s)",
				d.QuoteIdent(table), d.QuoteIdent(fkCol), d.QuoteIdent(schema.IDColumn), d.QuoteIdent(ref))
			n, err := a.s.QueryInt(ctx, stmt)
			if err != nil {
				findings = append(findings, errFinding(CategoryOrphan, desc, err))
				continue
			}
			total += n
			findings = append(findings, Finding{Category: CategoryOrphan, Description: desc, Count: n})
		}
	}
	findings = append(findings, Finding{
		Category:    CategoryOrphan,
		Description: "total orphaned records",
		Count:       total,
	})
	return findings
}

// MissingNutWasherCheck finds (standard, set, diameter) combinations used
// by bolt assemblies that have no SetNutsBolts dimension row, grouped by
// combination with the count of affected bolts.
func (a *Auditor) MissingNutWasherCheck(ctx context.Context) []Finding {
	const desc = "bolt assemblies without nut/washer dimension data"
	stmt := `
		SELECT s.Name, bd.Diameter, st.SetCode, COUNT(*)
		FROM BoltDefinition bd
		JOIN Standard s ON bd.StandardId = s.ID
		JOIN SetOfBolts sob ON sob.BoltDefId = bd.ID
		JOIN Sets st ON st.ID = sob.SetId
		LEFT JOIN SetNutsBolts snb ON snb.StandardId = bd.StandardId
			AND snb.SetId = sob.SetId AND snb.Diameter = bd.Diameter
		WHERE snb.StandardId IS NULL
		GROUP BY bd.StandardId, s.Name, bd.Diameter, sob.SetId, st.SetCode
		ORDER BY s.Name, bd.Diameter`

	rows, err := a.s.Query(ctx, stmt)
	if err != nil {
		return []Finding{errFinding(CategoryMissingData, desc, err)}
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var stdName, setCode string
		var diameter float64
		var boltCount int
		if err := rows.Scan(&stdName, &diameter, &setCode, &boltCount); err != nil {
			return append(findings, errFinding(CategoryMissingData, desc, err))
		}
		findings = append(findings, Finding{
			Category:    CategoryMissingData,
			Description: fmt.Sprintf("%s Ø%gmm with %s has no nut/washer data", stdName, diameter, setCode),
			Count:       boltCount,
		})
	}
	if err := rows.Err(); err != nil {
		return append(findings, errFinding(CategoryMissingData, desc, err))
	}
	return findings
}

// IncompleteBoltCheck finds definitions with zero length rows, and
// separately definitions with zero assembly-set links. Identifier lists are
// capped for display; counts are exact.
func (a *Auditor) IncompleteBoltCheck(ctx context.Context) []Finding {
	var findings []Finding

	checks := []struct {
		desc string
		stmt string
	}{
		{
			desc: "bolt definitions without any lengths",
			stmt: `SELECT bd.ID FROM BoltDefinition bd
				LEFT JOIN SetBolts sb ON sb.BoltDefId = bd.ID
				WHERE sb.BoltDefId IS NULL ORDER BY bd.ID`,
		},
		{
			desc: "bolt definitions without assembly sets",
			stmt: `SELECT bd.ID FROM BoltDefinition bd
				LEFT JOIN SetOfBolts sob ON sob.BoltDefId = bd.ID
				WHERE sob.BoltDefId IS NULL ORDER BY bd.ID`,
		},
	}
	for _, c := range checks {
		ids, err := a.queryIDs(ctx, c.stmt)
		if err != nil {
			findings = append(findings, errFinding(CategoryMissingData, c.desc, err))
			continue
		}
		f := Finding{Category: CategoryMissingData, Description: c.desc}
		capIDs(&f, ids)
		findings = append(findings, f)
	}
	return findings
}

// CoverageCheck compares, per bolt, the distinct defined lengths against
// the distinct auto-length rule lengths, flagging zero and partial coverage
// separately.
func (a *Auditor) CoverageCheck(ctx context.Context) []Finding {
	const desc = "auto-length coverage"
	stmt := `
		SELECT bd.ID, COUNT(DISTINCT sb.Length), COUNT(DISTINCT al.Length)
		FROM BoltDefinition bd
		LEFT JOIN SetBolts sb ON sb.BoltDefId = bd.ID
		LEFT JOIN AutoLength al ON al.BoltDefId = bd.ID
		GROUP BY bd.ID
		HAVING COUNT(DISTINCT sb.Length) > 0
		ORDER BY bd.ID`

	rows, err := a.s.Query(ctx, stmt)
	if err != nil {
		return []Finding{errFinding(CategoryCoverageGap, desc, err)}
	}
	defer rows.Close()

	var zero, partial []int64
	for rows.Next() {
		var id int64
		var lengths, autoLengths int
		if err := rows.Scan(&id, &lengths, &autoLengths); err != nil {
			return []Finding{errFinding(CategoryCoverageGap, desc, err)}
		}
		switch {
		case autoLengths == 0:
			zero = append(zero, id)
		case autoLengths < lengths:
			partial = append(partial, id)
		}
	}
	if err := rows.Err(); err != nil {
		return []Finding{errFinding(CategoryCoverageGap, desc, err)}
	}

	zeroFinding := Finding{Category: CategoryCoverageGap, Description: "bolts without any auto-length rules"}
	capIDs(&zeroFinding, zero)
	partialFinding := Finding{Category: CategoryCoverageGap, Description: "bolts with incomplete auto-length coverage"}
	capIDs(&partialFinding, partial)
	return []Finding{zeroFinding, partialFinding}
}

func (a *Auditor) queryIDs(ctx context.Context, stmt string) ([]int64, error) {
	rows, err := a.s.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func orderedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
