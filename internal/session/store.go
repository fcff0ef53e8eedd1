// Package session persists the user's working state between runs: recently
// browsed tables, saved filter presets, user-created bolts and the last
// database used. The document is a plain JSON file; a missing or corrupt
// file yields a fresh document rather than an error.
package session

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"fastenbase/internal/logger"
	"fastenbase/internal/query"
)

// maxRecentTables caps the most-recent-first table history.
const maxRecentTables = 10

// FilterPreset is a saved filter configuration for one table.
type FilterPreset struct {
	Table         string            `json:"table"`
	GlobalFilter  string            `json:"global_filter"`
	ColumnFilters map[string]string `json:"column_filters"`
	Created       time.Time         `json:"created"`
}

// CustomBolt records a user-created bolt assembly.
type CustomBolt struct {
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Standard string    `json:"standard"`
	Diameter float64   `json:"diameter"`
}

// Document is the persisted session state.
type Document struct {
	RecentTables    []string                `json:"recent_tables"`
	FavoriteFilters map[string]FilterPreset `json:"favorite_filters"`
	CustomBolts     []CustomBolt            `json:"custom_bolts"`
	LastDatabase    string                  `json:"last_database,omitempty"`
}

// Store reads and writes the session document. Every mutation saves
// immediately; save failures are logged, never fatal.
type Store struct {
	path string

	mu  sync.Mutex
	doc Document
}

// Open loads the document at path, falling back to a fresh one when the
// file is missing or unreadable.
func Open(path string) *Store {
	s := &Store{path: path}
	s.doc = Document{FavoriteFilters: map[string]FilterPreset{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("session file %s unreadable, starting fresh: %v", path, err)
		}
		return s
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("session file %s corrupt, starting fresh: %v", path, err)
		return s
	}
	if doc.FavoriteFilters == nil {
		doc.FavoriteFilters = map[string]FilterPreset{}
	}
	s.doc = doc
	return s
}

// save writes the document; must be called with the lock held.
func (s *Store) save() {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		logger.Error("marshal session: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		logger.Error("save session to %s: %v", s.path, err)
	}
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.RecentTables = append([]string(nil), s.doc.RecentTables...)
	doc.CustomBolts = append([]CustomBolt(nil), s.doc.CustomBolts...)
	doc.FavoriteFilters = make(map[string]FilterPreset, len(s.doc.FavoriteFilters))
	for k, v := range s.doc.FavoriteFilters {
		doc.FavoriteFilters[k] = v
	}
	return doc
}

// AddRecentTable moves a table to the front of the history, de-duplicated
// and capped.
func (s *Store) AddRecentTable(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recent := []string{table}
	for _, t := range s.doc.RecentTables {
		if t != table && len(recent) < maxRecentTables {
			recent = append(recent, t)
		}
	}
	s.doc.RecentTables = recent
	s.save()
}

// RecentTables returns the history, most recent first.
func (s *Store) RecentTables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.doc.RecentTables...)
}

// SaveFilterPreset stores a named filter configuration.
func (s *Store) SaveFilterPreset(name, table string, f *query.FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cols := make(map[string]string, len(f.ColumnFilters))
	for k, v := range f.ColumnFilters {
		cols[k] = v
	}
	s.doc.FavoriteFilters[name] = FilterPreset{
		Table:         table,
		GlobalFilter:  f.GlobalKeyword,
		ColumnFilters: cols,
		Created:       time.Now(),
	}
	s.save()
}

// PresetsFor returns the saved presets for one table; with an empty table
// name, all presets.
func (s *Store) PresetsFor(table string) map[string]FilterPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]FilterPreset{}
	for name, p := range s.doc.FavoriteFilters {
		if table == "" || p.Table == table {
			out[name] = p
		}
	}
	return out
}

// DeletePreset removes a named preset.
func (s *Store) DeletePreset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.FavoriteFilters, name)
	s.save()
}

// AddCustomBolt appends to the created-bolt log.
func (s *Store) AddCustomBolt(name, standard string, diameter float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.CustomBolts = append(s.doc.CustomBolts, CustomBolt{
		Name:     name,
		Created:  time.Now(),
		Standard: standard,
		Diameter: diameter,
	})
	s.save()
}

// RecentCustomBolts returns the last n created bolts, newest last.
func (s *Store) RecentCustomBolts(n int) []CustomBolt {
	s.mu.Lock()
	defer s.mu.Unlock()
	bolts := s.doc.CustomBolts
	if len(bolts) > n {
		bolts = bolts[len(bolts)-n:]
	}
	return append([]CustomBolt(nil), bolts...)
}

// SetLastDatabase records the database path used for the last connection.
func (s *Store) SetLastDatabase(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.LastDatabase = path
	s.save()
}

// LastDatabase returns the recorded database path, if any.
func (s *Store) LastDatabase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.LastDatabase
}
