package session

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"fastenbase/internal/query"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestOpenMissingFile(t *testing.T) {
	s := Open(testPath(t))

	doc := s.Snapshot()
	if len(doc.RecentTables) != 0 || len(doc.FavoriteFilters) != 0 {
		t.Errorf("\ngot non-empty document from a missing file: %+v", doc)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := testPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}

	s := Open(path)

	doc := s.Snapshot()
	if len(doc.RecentTables) != 0 {
		t.Errorf("\ncorrupt file should yield a fresh document, got %+v", doc)
	}

	// a fresh document must still be usable and persistable
	s.AddRecentTable("BoltDefinition")
	if got := s.RecentTables(); len(got) != 1 {
		t.Errorf("\ngot %v after add on fresh document", got)
	}
}

func TestAddRecentTable(t *testing.T) {
	s := Open(testPath(t))

	s.AddRecentTable("SetBolts")
	s.AddRecentTable("BoltDefinition")
	s.AddRecentTable("SetBolts") // re-visit moves to front

	want := []string{"SetBolts", "BoltDefinition"}
	if got := s.RecentTables(); !reflect.DeepEqual(got, want) {
		t.Errorf("\ngot %v, wanted %v", got, want)
	}
}

func TestRecentTablesCap(t *testing.T) {
	s := Open(testPath(t))

	tables := []string{"Authors", "AutoLength", "BoltDefinition", "BoltsCoating",
		"BoltsDiameters", "BoltsDistances", "Screw", "ScrewNew", "SetBolts",
		"SetBoltsType", "SetNutsBolts", "SetOfBolts"}
	for _, tbl := range tables {
		s.AddRecentTable(tbl)
	}

	got := s.RecentTables()
	if len(got) != maxRecentTables {
		t.Errorf("\ngot %d recent tables, wanted cap %d", len(got), maxRecentTables)
	}
	if got[0] != "SetOfBolts" {
		t.Errorf("\ngot %q first, wanted the most recent table", got[0])
	}
}

func TestRoundTrip(t *testing.T) {
	path := testPath(t)
	s := Open(path)

	f := query.NewFilterState()
	f.SetKeyword("M16")
	f.SetColumnFilter("Diameter", "16")
	s.SaveFilterPreset("hv bolts", "BoltDefinition", f)
	s.AddRecentTable("BoltDefinition")
	s.AddCustomBolt("HV M16 custom", "DIN 6914", 16)
	s.SetLastDatabase("AstorBase.mdf")

	// a second store reading the same file sees everything
	reopened := Open(path)
	doc := reopened.Snapshot()

	p, ok := doc.FavoriteFilters["hv bolts"]
	if !ok {
		t.Fatalf("\npreset not persisted: %+v", doc)
	}
	if p.Table != "BoltDefinition" || p.GlobalFilter != "M16" || p.ColumnFilters["Diameter"] != "16" {
		t.Errorf("\ngot preset %+v", p)
	}
	if len(doc.CustomBolts) != 1 || doc.CustomBolts[0].Diameter != 16 {
		t.Errorf("\ngot custom bolts %+v", doc.CustomBolts)
	}
	if doc.LastDatabase != "AstorBase.mdf" {
		t.Errorf("\ngot last database %q", doc.LastDatabase)
	}
	if reopened.LastDatabase() != "AstorBase.mdf" {
		t.Errorf("\ngot %q from accessor", reopened.LastDatabase())
	}
}

func TestPresetsForAndDelete(t *testing.T) {
	s := Open(testPath(t))

	s.SaveFilterPreset("a", "BoltDefinition", query.NewFilterState())
	s.SaveFilterPreset("b", "SetBolts", query.NewFilterState())

	if got := s.PresetsFor("BoltDefinition"); len(got) != 1 {
		t.Errorf("\ngot %d presets for BoltDefinition, wanted 1", len(got))
	}
	if got := s.PresetsFor(""); len(got) != 2 {
		t.Errorf("\ngot %d presets for all tables, wanted 2", len(got))
	}

	s.DeletePreset("a")
	if got := s.PresetsFor("BoltDefinition"); len(got) != 0 {
		t.Errorf("\ngot %d presets after delete, wanted 0", len(got))
	}
}

func TestRecentCustomBolts(t *testing.T) {
	s := Open(testPath(t))

	for i := 0; i < 5; i++ {
		s.AddCustomBolt("bolt", "DIN", float64(10+i))
	}

	got := s.RecentCustomBolts(3)
	if len(got) != 3 {
		t.Fatalf("\ngot %d bolts, wanted 3", len(got))
	}
	if got[2].Diameter != 14 {
		t.Errorf("\ngot last diameter %v, wanted the newest entry", got[2].Diameter)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := Open(testPath(t))
	s.AddRecentTable("SetBolts")

	doc := s.Snapshot()
	doc.RecentTables[0] = "mutated"

	if got := s.RecentTables(); got[0] != "SetBolts" {
		t.Errorf("\nsnapshot mutation leaked into the store: %v", got)
	}
}
