// Package schema declares the static description of the fastener catalog:
// which tables the tool may touch, how they reference each other, and which
// fields a valid row needs. The declaration never changes at runtime; live
// column enumeration is a separate concern handled by the db package.
package schema

import "sort"

// IDColumn is the generated primary key column shared by every catalog table.
const IDColumn = "ID"

// TableSchema describes one known table.
type TableSchema struct {
	// Name is the table name, unique within the catalog.
	Name string
	// ForeignKeys maps a local column to the table it references.
	ForeignKeys map[string]string
	// RequiredFields are the columns that must be non-null for a valid row.
	RequiredFields []string
	// Description is free text shown alongside the table.
	Description string
}

// Dependent names a table holding a foreign key into another table.
type Dependent struct {
	Table    string
	FKColumn string
}

// Catalog is the read-only lookup every other component uses to discover
// relationships and required fields. Built once at process start.
type Catalog struct {
	tables  map[string]TableSchema
	allowed map[string]struct{}
}

// Describe returns the declared schema for a table, if any.
func (c *Catalog) Describe(name string) (TableSchema, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Allowed reports whether a table is in the allow-list. Any table name that
// fails this check must be rejected before query text is built against it.
func (c *Catalog) Allowed(name string) bool {
	_, ok := c.allowed[name]
	return ok
}

// AllowedTables returns the allow-list, sorted.
func (c *Catalog) AllowedTables() []string {
	names := make([]string, 0, len(c.allowed))
	for n := range c.allowed {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Described returns the names of tables with a declared schema, sorted.
func (c *Catalog) Described() []string {
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DependentTables returns the tables carrying a foreign key into root,
// sorted by table name. Drives the structural clone and the orphan checks.
func (c *Catalog) DependentTables(root string) []Dependent {
	var deps []Dependent
	for _, t := range c.tables {
		for col, ref := range t.ForeignKeys {
			if ref == root {
				deps = append(deps, Dependent{Table: t.Name, FKColumn: col})
			}
		}
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Table != deps[j].Table {
			return deps[i].Table < deps[j].Table
		}
		return deps[i].FKColumn < deps[j].FKColumn
	})
	return deps
}

// Group labels tables for presentation.
type Group struct {
	Name   string
	Tables []string
}

// Groups returns the presentation grouping: core and support tables first,
// everything else in the order the allow-list sorts.
func (c *Catalog) Groups() []Group {
	core := []string{"BoltDefinition", "SetBolts", "SetOfBolts", "Standard", "Sets"}
	support := []string{"SetNutsBolts", "StrengthClass", "Authors", "AutoLength"}

	named := map[string]struct{}{}
	for _, t := range append(append([]string{}, core...), support...) {
		named[t] = struct{}{}
	}
	var other []string
	for _, t := range c.AllowedTables() {
		if _, ok := named[t]; !ok {
			other = append(other, t)
		}
	}
	return []Group{
		{Name: "Core Tables", Tables: core},
		{Name: "Support Tables", Tables: support},
		{Name: "Other", Tables: other},
	}
}

// fastenerTables is the fixed allow-list of domain-relevant tables. It
// overlaps, but is wider than, the set of tables with a declared schema.
var fastenerTables = []string{
	"Authors", "AutoLength", "BoltDefinition", "BoltsCoating", "BoltsDiameters",
	"BoltsDistances", "Screw", "ScrewNew", "SetBolts", "SetBoltsType",
	"SetNutsBolts", "SetOfBolts", "Sets", "Sources", "Standard",
	"StandardNuts", "StrengthClass", "TappingHole",
}

// Default returns the catalog of the fastener database. The relationships
// mirror the tables the composite bolt entity spans.
func Default() *Catalog {
	tables := []TableSchema{
		{
			Name: "BoltDefinition",
			ForeignKeys: map[string]string{
				"StandardId":      "Standard",
				"StrengthClassId": "StrengthClass",
				"AuthorId":        "Authors",
			},
			RequiredFields: []string{"Name", "StandardId", "Diameter", "StrengthClassId", "AuthorId"},
			Description:    "Base bolt type definitions",
		},
		{
			Name:           "SetBolts",
			ForeignKeys:    map[string]string{"BoltDefId": "BoltDefinition"},
			RequiredFields: []string{"BoltDefId", "Length", "Weight", "PartName"},
			Description:    "Individual bolt lengths",
		},
		{
			Name: "SetOfBolts",
			ForeignKeys: map[string]string{
				"BoltDefId": "BoltDefinition",
				"SetId":     "Sets",
			},
			RequiredFields: []string{"BoltDefId", "SetId"},
			Description:    "Links bolts to assembly sets",
		},
		{
			Name: "SetNutsBolts",
			ForeignKeys: map[string]string{
				"StandardId": "Standard",
				"SetId":      "Sets",
			},
			RequiredFields: []string{"StandardId", "SetId", "Diameter", "NutThickness", "WasherThickness"},
			Description:    "Nut and washer dimensions",
		},
		{
			Name:           "AutoLength",
			ForeignKeys:    map[string]string{"BoltDefId": "BoltDefinition"},
			RequiredFields: []string{"BoltDefId", "GripMin", "GripMax", "Length"},
			Description:    "Automatic length selection rules",
		},
	}

	c := &Catalog{
		tables:  make(map[string]TableSchema, len(tables)),
		allowed: make(map[string]struct{}, len(fastenerTables)),
	}
	for _, t := range tables {
		c.tables[t.Name] = t
	}
	for _, n := range fastenerTables {
		c.allowed[n] = struct{}{}
	}
	return c
}
