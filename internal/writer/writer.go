package writer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fastenbase/internal/db"
	"fastenbase/internal/dialect"
	"fastenbase/internal/logger"
	"fastenbase/internal/schema"
)

// rootTable is the primary definition table the composite entity hangs off.
const rootTable = "BoltDefinition"

// Writer performs the transactional multi-table writes.
type Writer struct {
	s *db.Session
}

// New returns a Writer bound to the session.
func New(s *db.Session) *Writer {
	return &Writer{s: s}
}

// Create inserts a complete bolt assembly in one transaction: the root
// definition, one SetBolts row per length, one SetOfBolts row per assembly
// set, and any auto-length rules. Lengths without an explicit weight or part
// name get the estimated defaults. Any failure rolls everything back; a
// partial assembly never persists. Returns the generated root identifier.
func (w *Writer) Create(ctx context.Context, bolt *CompositeBolt) (int64, error) {
	if err := bolt.Validate(); err != nil {
		return 0, err
	}
	d := w.s.Dialect()

	tx, err := w.s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer rollbackOnError(tx, &err)

	rootID, err := dialect.InsertReturningID(ctx, tx, d, rootTable, schema.IDColumn,
		[]string{"Name", "StandardId", "Diameter", "StrengthClassId", "AuthorId", "HeadDiameter", "HeadHeight", "ThreadType"},
		[]any{bolt.Name, bolt.StandardID, bolt.Diameter, bolt.StrengthClassID, bolt.AuthorID,
			nullable(bolt.HeadDiameter), nullable(bolt.HeadHeight), bolt.threadType()})
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", rootTable, db.Classify(err))
	}

	lengthStmt := insertStmt(d, "SetBolts", "BoltDefId", "Length", "Weight", "PartName")
	for _, l := range bolt.Lengths {
		if l.Weight == 0 {
			l.Weight = EstimateWeight(bolt.Diameter, l.Length)
		}
		if l.PartName == "" {
			l.PartName = PartName(bolt.Diameter, l.Length)
		}
		if _, err = tx.ExecContext(ctx, lengthStmt, rootID, l.Length, l.Weight, l.PartName); err != nil {
			return 0, fmt.Errorf("insert SetBolts: %w", db.Classify(err))
		}
	}

	setStmt := insertStmt(d, "SetOfBolts", "BoltDefId", "SetId")
	for _, setID := range bolt.AssemblySetIDs {
		if _, err = tx.ExecContext(ctx, setStmt, rootID, setID); err != nil {
			return 0, fmt.Errorf("insert SetOfBolts: %w", db.Classify(err))
		}
	}

	autoStmt := insertStmt(d, "AutoLength", "BoltDefId", "GripMin", "GripMax", "Length")
	for _, rule := range bolt.AutoLengths {
		if _, err = tx.ExecContext(ctx, autoStmt, rootID, rule.GripMin, rule.GripMax, rule.Length); err != nil {
			return 0, fmt.Errorf("insert AutoLength: %w", db.Classify(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, db.Classify(err)
	}
	logger.Info("created bolt assembly %q (id %d, %d lengths, %d sets)",
		bolt.Name, rootID, len(bolt.Lengths), len(bolt.AssemblySetIDs))
	return rootID, nil
}

// Clone copies an existing bolt assembly under a new name: the root row is
// duplicated field-for-field except identifier and name, and every row in
// every dependent table referencing the source is copied over to the new
// identifier. The copy is structural: all dependent rows found, whatever
// their count, with no assumptions about the dependent columns beyond the
// foreign key itself.
func (w *Writer) Clone(ctx context.Context, sourceID int64, newName string) (int64, error) {
	if newName == "" {
		return 0, db.Validation("a name for the cloned bolt is required")
	}
	d := w.s.Dialect()

	// Live column enumeration happens before the transaction: the session
	// holds a single connection, so introspection queries cannot run while
	// a transaction owns it.
	rootCols, err := w.s.Columns(ctx, rootTable)
	if err != nil {
		return 0, err
	}
	deps := w.s.Catalog().DependentTables(rootTable)
	depCols := make(map[string][]string, len(deps))
	for _, dep := range deps {
		cols, err := w.s.Columns(ctx, dep.Table)
		if err != nil {
			return 0, err
		}
		depCols[dep.Table] = cols
	}

	tx, err := w.s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer rollbackOnError(tx, &err)

	source, err := readRow(ctx, tx, d, rootTable, rootCols, sourceID)
	if err != nil {
		return 0, err
	}

	// Re-insert every field except the identifier, substituting the name.
	var insertCols []string
	var insertVals []any
	for i, col := range rootCols {
		switch col {
		case schema.IDColumn:
			continue
		case "Name":
			insertCols = append(insertCols, col)
			insertVals = append(insertVals, newName)
		default:
			insertCols = append(insertCols, col)
			insertVals = append(insertVals, source[i])
		}
	}
	newID, err := dialect.InsertReturningID(ctx, tx, d, rootTable, schema.IDColumn, insertCols, insertVals)
	if err != nil {
		return 0, fmt.Errorf("insert cloned %s: %w", rootTable, db.Classify(err))
	}

	for _, dep := range deps {
		if err = copyDependents(ctx, tx, d, dep, depCols[dep.Table], sourceID, newID); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, db.Classify(err)
	}
	logger.Info("cloned bolt %d as %q (id %d)", sourceID, newName, newID)
	return newID, nil
}

// readRow fetches one row by ID with dynamic scanning.
func readRow(ctx context.Context, tx *sql.Tx, d dialect.Dialect, table string, cols []string, id int64) ([]any, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s",
		d.QuoteIdent(table), d.QuoteIdent(schema.IDColumn), d.Placeholder(1))
	cells := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	if err := tx.QueryRowContext(ctx, stmt, id).Scan(ptrs...); err != nil {
		if err == sql.ErrNoRows {
			return nil, db.Validation("source bolt %d not found", id)
		}
		return nil, db.Classify(err)
	}
	return cells, nil
}

// copyDependents duplicates every row of one dependent table referencing
// sourceID, re-pointed at newID, via a single INSERT..SELECT.
func copyDependents(ctx context.Context, tx *sql.Tx, d dialect.Dialect, dep schema.Dependent, cols []string, sourceID, newID int64) error {
	var insertCols, selectCols []string
	for _, col := range cols {
		if col == schema.IDColumn {
			continue
		}
		insertCols = append(insertCols, d.QuoteIdent(col))
		if col == dep.FKColumn {
			selectCols = append(selectCols, d.Placeholder(1))
		} else {
			selectCols = append(selectCols, d.QuoteIdent(col))
		}
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s WHERE %s = %s",
		d.QuoteIdent(dep.Table), strings.Join(insertCols, ", "),
		strings.Join(selectCols, ", "), d.QuoteIdent(dep.Table),
		d.QuoteIdent(dep.FKColumn), d.Placeholder(2))
	if _, err := tx.ExecContext(ctx, stmt, newID, sourceID); err != nil {
		return fmt.Errorf("copy %s rows: %w", dep.Table, db.Classify(err))
	}
	return nil
}

// insertStmt builds a parameterized INSERT for fixed columns.
func insertStmt(d dialect.Dialect, table string, cols ...string) string {
	quoted := make([]string, len(cols))
	markers := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
		markers[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(markers, ", "))
}

// rollbackOnError rolls the transaction back when the surrounding function
// is returning an error.
func rollbackOnError(tx *sql.Tx, err *error) {
	if *err != nil {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			logger.Error("rollback failed: %v", rerr)
		}
	}
}

// nullable turns an optional float into its SQL value.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
