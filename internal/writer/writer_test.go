package writer

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"fastenbase/internal/db"
	"fastenbase/internal/schema"
)

// newTestSession opens a session against a throwaway SQLite catalog with
// foreign keys enforced and the reference tables seeded.
func newTestSession(t *testing.T) *db.Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := db.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)", 10, schema.Default())
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	ddl := []string{
		`CREATE TABLE Standard (ID INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT NOT NULL)`,
		`CREATE TABLE StrengthClass (ID INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT NOT NULL)`,
		`CREATE TABLE Authors (ID INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT NOT NULL)`,
		`CREATE TABLE Sets (ID INTEGER PRIMARY KEY AUTOINCREMENT, SetCode TEXT NOT NULL, Description TEXT)`,
		`CREATE TABLE BoltDefinition (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			Name TEXT NOT NULL,
			StandardId INTEGER NOT NULL REFERENCES Standard(ID),
			Diameter REAL NOT NULL,
			StrengthClassId INTEGER NOT NULL REFERENCES StrengthClass(ID),
			AuthorId INTEGER NOT NULL REFERENCES Authors(ID),
			HeadDiameter REAL,
			HeadHeight REAL,
			ThreadType TEXT)`,
		`CREATE TABLE SetBolts (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			BoltDefId INTEGER NOT NULL REFERENCES BoltDefinition(ID),
			Length REAL NOT NULL,
			Weight REAL,
			PartName TEXT)`,
		`CREATE TABLE SetOfBolts (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			BoltDefId INTEGER NOT NULL REFERENCES BoltDefinition(ID),
			SetId INTEGER NOT NULL REFERENCES Sets(ID))`,
		`CREATE TABLE SetNutsBolts (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			StandardId INTEGER NOT NULL,
			SetId INTEGER NOT NULL,
			Diameter REAL NOT NULL,
			NutThickness REAL,
			NutWidthAcrossFlats REAL,
			WasherThickness REAL,
			WasherOuterDia REAL)`,
		`CREATE TABLE AutoLength (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			BoltDefId INTEGER NOT NULL REFERENCES BoltDefinition(ID),
			GripMin REAL,
			GripMax REAL,
			Length REAL)`,
		`INSERT INTO Standard (Name) VALUES ('DIN 6914')`,
		`INSERT INTO StrengthClass (Name) VALUES ('10.9')`,
		`INSERT INTO Authors (Name) VALUES ('ASTOR')`,
		`INSERT INTO Sets (SetCode, Description) VALUES ('Mu', 'nut only')`,
		`INSERT INTO Sets (SetCode, Description) VALUES ('Mu2S', NULL)`,
	}
	for _, stmt := range ddl {
		if _, err := s.Exec(ctx, stmt); err != nil {
			t.Fatalf("\ngot unexpected error: \"%v\"", err)
		}
	}
	return s
}

func validBolt() *CompositeBolt {
	return &CompositeBolt{
		Name:            "HV M16 custom",
		StandardID:      1,
		Diameter:        16,
		StrengthClassID: 1,
		AuthorID:        1,
		Lengths: []LengthEntry{
			{Length: 40, Weight: EstimateWeight(16, 40), PartName: PartName(16, 40)},
			{Length: 50, Weight: EstimateWeight(16, 50), PartName: PartName(16, 50)},
		},
		AssemblySetIDs: []int64{1, 2},
		AutoLengths:    GenerateGripRules([]float64{40, 50}, 13),
	}
}

func mustCount(t *testing.T, s *db.Session, table string) int {
	t.Helper()
	n, err := s.QueryInt(context.Background(), "SELECT COUNT(*) FROM "+table)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	return n
}

func TestCreate(t *testing.T) {
	s := newTestSession(t)
	w := New(s)

	id, err := w.Create(context.Background(), validBolt())
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if id <= 0 {
		t.Errorf("\ngot id %d, wanted a generated identifier", id)
	}

	if n := mustCount(t, s, "SetBolts"); n != 2 {
		t.Errorf("\ngot %d SetBolts rows, wanted 2", n)
	}
	if n := mustCount(t, s, "SetOfBolts"); n != 2 {
		t.Errorf("\ngot %d SetOfBolts rows, wanted 2", n)
	}
	if n := mustCount(t, s, "AutoLength"); n != 2 {
		t.Errorf("\ngot %d AutoLength rows, wanted 2", n)
	}

	var thread string
	rows, err := s.Query(context.Background(), "SELECT ThreadType FROM BoltDefinition WHERE ID = ?", id)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Fatalf("\ncreated root row not found")
	}
	if err := rows.Scan(&thread); err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if thread != DefaultThreadType {
		t.Errorf("\ngot thread type %q, wanted default %q", thread, DefaultThreadType)
	}
}

func TestCreateFillsLengthDefaults(t *testing.T) {
	s := newTestSession(t)
	w := New(s)
	ctx := context.Background()

	bolt := validBolt()
	bolt.Lengths = []LengthEntry{{Length: 70}} // no weight, no part name

	id, err := w.Create(ctx, bolt)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}

	rows, err := s.Query(ctx, "SELECT Weight, PartName FROM SetBolts WHERE BoltDefId = ?", id)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Fatalf("\nlength row not found")
	}
	var weight float64
	var partName string
	if err := rows.Scan(&weight, &partName); err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if partName != "M16x70" {
		t.Errorf("\ngot part name %q, wanted M16x70", partName)
	}
	if math.Abs(weight-EstimateWeight(16, 70)) > 1e-9 {
		t.Errorf("\ngot weight %v, wanted the estimate", weight)
	}
}

func TestCreateValidation(t *testing.T) {
	var tests = []struct {
		name   string
		mutate func(*CompositeBolt)
	}{
		{"missing name", func(b *CompositeBolt) { b.Name = "" }},
		{"missing standard", func(b *CompositeBolt) { b.StandardID = 0 }},
		{"zero diameter", func(b *CompositeBolt) { b.Diameter = 0 }},
		{"negative diameter", func(b *CompositeBolt) { b.Diameter = -16 }},
		{"missing strength class", func(b *CompositeBolt) { b.StrengthClassID = 0 }},
		{"missing author", func(b *CompositeBolt) { b.AuthorID = 0 }},
		{"no lengths", func(b *CompositeBolt) { b.Lengths = nil }},
		{"no sets", func(b *CompositeBolt) { b.AssemblySetIDs = nil }},
	}

	s := newTestSession(t)
	w := New(s)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bolt := validBolt()
			tt.mutate(bolt)

			_, err := w.Create(context.Background(), bolt)

			if !db.IsKind(err, db.KindValidation) {
				t.Errorf("\ngot %v, wanted a validation error", err)
			}
		})
	}

	if n := mustCount(t, s, "BoltDefinition"); n != 0 {
		t.Errorf("\ngot %d root rows after rejected creates, wanted 0", n)
	}
}

func TestCreateRollsBackOnConstraintViolation(t *testing.T) {
	s := newTestSession(t)
	w := New(s)

	bolt := validBolt()
	bolt.AssemblySetIDs = []int64{999} // no such set

	_, err := w.Create(context.Background(), bolt)
	if err == nil {
		t.Fatalf("\nexpected an error, did not receive one")
	}

	// nothing from the failed transaction may persist
	for _, table := range []string{"BoltDefinition", "SetBolts", "SetOfBolts", "AutoLength"} {
		if n := mustCount(t, s, table); n != 0 {
			t.Errorf("\ngot %d %s rows after rollback, wanted 0", n, table)
		}
	}
}

func TestClone(t *testing.T) {
	s := newTestSession(t)
	w := New(s)
	ctx := context.Background()

	head := 24.0
	bolt := validBolt()
	bolt.HeadDiameter = &head
	sourceID, err := w.Create(ctx, bolt)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}

	cloneID, err := w.Clone(ctx, sourceID, "HV M16 copy")
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if cloneID == sourceID {
		t.Fatalf("\nclone reused the source identifier %d", sourceID)
	}

	// root copied field for field except identifier and name
	rows, err := s.Query(ctx,
		"SELECT Name, StandardId, Diameter, HeadDiameter FROM BoltDefinition WHERE ID = ?", cloneID)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if !rows.Next() {
		rows.Close()
		t.Fatalf("\ncloned root row not found")
	}
	var name string
	var standardID int64
	var diameter, headDia float64
	err = rows.Scan(&name, &standardID, &diameter, &headDia)
	// the session holds a single connection; release it before the
	// dependent-row counts below
	rows.Close()
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if name != "HV M16 copy" {
		t.Errorf("\ngot clone name %q, wanted the new name", name)
	}
	if standardID != 1 || diameter != 16 || headDia != 24 {
		t.Errorf("\nclone fields diverged: standard %d diameter %v head %v", standardID, diameter, headDia)
	}

	// every dependent row duplicated under the new identifier
	for table, want := range map[string]int{"SetBolts": 2, "SetOfBolts": 2, "AutoLength": 2} {
		n, err := s.QueryInt(ctx, "SELECT COUNT(*) FROM "+table+" WHERE BoltDefId = ?", cloneID)
		if err != nil {
			t.Fatalf("\ngot unexpected error: \"%v\"", err)
		}
		if n != want {
			t.Errorf("\ngot %d cloned %s rows, wanted %d", n, table, want)
		}
	}
}

func TestCloneValidation(t *testing.T) {
	s := newTestSession(t)
	w := New(s)
	ctx := context.Background()

	if _, err := w.Clone(ctx, 1, ""); !db.IsKind(err, db.KindValidation) {
		t.Errorf("\ngot %v, wanted a validation error for empty name", err)
	}
	if _, err := w.Clone(ctx, 999, "copy"); !db.IsKind(err, db.KindValidation) {
		t.Errorf("\ngot %v, wanted a validation error for missing source", err)
	}
}

func TestPartName(t *testing.T) {
	if got := PartName(16, 70); got != "M16x70" {
		t.Errorf("\ngot %q, wanted M16x70", got)
	}
}

func TestEstimateWeight(t *testing.T) {
	got := EstimateWeight(16, 70)
	want := 0.111 // 70 * 16 * 16 * 0.00000617 rounded
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("\ngot %v, wanted %v", got, want)
	}
}

func TestGenerateGripRules(t *testing.T) {
	approx := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	t.Run("chained ranges", func(t *testing.T) {
		rules := GenerateGripRules([]float64{60, 40, 50}, 13)

		if len(rules) != 3 {
			t.Fatalf("\ngot %d rules, wanted 3", len(rules))
		}
		if !approx(rules[0].GripMin, 0) || !approx(rules[0].GripMax, 24) || rules[0].Length != 40 {
			t.Errorf("\ngot first rule %+v, wanted 0..24 for length 40", rules[0])
		}
		if !approx(rules[1].GripMin, 24.1) || !approx(rules[1].GripMax, 34) || rules[1].Length != 50 {
			t.Errorf("\ngot second rule %+v, wanted 24.1..34 for length 50", rules[1])
		}
		if !approx(rules[2].GripMin, 34.1) || !approx(rules[2].GripMax, 44) || rules[2].Length != 60 {
			t.Errorf("\ngot third rule %+v, wanted 34.1..44 for length 60", rules[2])
		}
	})

	t.Run("too-short length yields no rule", func(t *testing.T) {
		rules := GenerateGripRules([]float64{10}, 13)
		if len(rules) != 0 {
			t.Errorf("\ngot %d rules for an unusable length, wanted 0", len(rules))
		}
	})

	t.Run("unusable length does not break the chain", func(t *testing.T) {
		rules := GenerateGripRules([]float64{10, 40}, 13)
		if len(rules) != 1 {
			t.Fatalf("\ngot %d rules, wanted 1", len(rules))
		}
		if !approx(rules[0].GripMin, 0) || !approx(rules[0].GripMax, 24) || rules[0].Length != 40 {
			t.Errorf("\ngot rule %+v, wanted 0..24 for length 40", rules[0])
		}
	})

	t.Run("zero nut height uses default", func(t *testing.T) {
		rules := GenerateGripRules([]float64{40}, 0)
		if len(rules) != 1 || !approx(rules[0].GripMax, 40-13-3) {
			t.Errorf("\ngot %+v, wanted default nut height applied", rules)
		}
	})

	t.Run("no lengths", func(t *testing.T) {
		if rules := GenerateGripRules(nil, 13); len(rules) != 0 {
			t.Errorf("\ngot %d rules, wanted 0", len(rules))
		}
	})
}

func TestReferenceData(t *testing.T) {
	s := newTestSession(t)
	w := New(s)

	ref, err := w.ReferenceData(context.Background())
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if len(ref.Standards) != 1 || ref.Standards[0].Name != "DIN 6914" {
		t.Errorf("\ngot standards %v", ref.Standards)
	}
	if len(ref.AssemblySets) != 2 {
		t.Fatalf("\ngot %d assembly sets, wanted 2", len(ref.AssemblySets))
	}
	// described set carries the description, bare set just the code
	if ref.AssemblySets[0].Name != "Mu - nut only" {
		t.Errorf("\ngot set label %q, wanted \"Mu - nut only\"", ref.AssemblySets[0].Name)
	}
	if ref.AssemblySets[1].Name != "Mu2S" {
		t.Errorf("\ngot set label %q, wanted \"Mu2S\"", ref.AssemblySets[1].Name)
	}
}

func TestNutWasherCoverage(t *testing.T) {
	s := newTestSession(t)
	w := New(s)
	ctx := context.Background()

	_, err := s.Exec(ctx,
		"INSERT INTO SetNutsBolts (StandardId, SetId, Diameter, NutThickness, WasherThickness) VALUES (1, 1, 16, 13, 4)")
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}

	cov, err := w.NutWasherCoverage(ctx, 1, 16, []int64{1, 2})
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if len(cov) != 2 {
		t.Fatalf("\ngot %d coverage entries, wanted 2", len(cov))
	}
	if !cov[0].HasData || cov[0].NutThickness == nil || *cov[0].NutThickness != 13 {
		t.Errorf("\ngot set 1 coverage %+v, wanted nut thickness 13", cov[0])
	}
	if cov[1].HasData {
		t.Errorf("\ngot data for set 2, wanted a missing-data marker")
	}

	if _, err := w.NutWasherCoverage(ctx, 1, 16, nil); !db.IsKind(err, db.KindValidation) {
		t.Errorf("\ngot %v, wanted a validation error for empty set list", err)
	}
}
