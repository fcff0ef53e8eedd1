package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fastenbase/internal/audit"
	"fastenbase/internal/db"
	"fastenbase/internal/export"
	"fastenbase/internal/logger"
	"fastenbase/internal/query"
	"fastenbase/internal/reader"
	"fastenbase/internal/schema"
	"fastenbase/internal/session"
	"fastenbase/internal/units"
	"fastenbase/internal/writer"
	"fastenbase/pkg/config"
)

const defaultPort = 8080

// app holds the active database session and the per-table filter state.
// The session follows an explicit connect/disconnect lifecycle; everything
// else hangs off it.
type app struct {
	mu      sync.Mutex
	sess    *db.Session
	filters map[string]*query.FilterState
	tables  []string

	catalog  *schema.Catalog
	store    *session.Store
	pageSize int
	timeout  int
}

func (a *app) session() *db.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess
}

// updateFilter applies a mutation to a table's browse state under the lock,
// creating the state on first use, and returns a copy for the request to
// work on. Handlers run concurrently; only the copy ever leaves the lock.
func (a *app) updateFilter(table string, fn func(*query.FilterState)) *query.FilterState {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.filters[table]
	if !ok {
		f = query.NewFilterState()
		f.PageSize = a.pageSize
		a.filters[table] = f
	}
	if fn != nil {
		fn(f)
	}
	return f.Clone()
}

// filterSnapshot returns a copy of a table's browse state without mutating
// it.
func (a *app) filterSnapshot(table string) *query.FilterState {
	return a.updateFilter(table, nil)
}

func main() {
	// flags
	cfgPath := flag.String("config", "", "path to config YAML")
	driverFlag := flag.String("driver", "", "db driver override (postgres,mysql,sqlite,sqlserver,godror)")
	dsnFlag := flag.String("dsn", "", "dsn override")
	port := flag.Int("port", 0, "http port (0 uses config or 8080)")
	timeout := flag.Int("timeout", 10, "db connect timeout seconds")
	sessionFile := flag.String("session", "", "session file override")
	verbose := flag.Bool("v", false, "verbose query logging")
	flag.Parse()
	logger.SetVerbose(*verbose)

	// attempt to load config file (optional)
	var appCfg config.AppConfig
	if *cfgPath != "" {
		if c, err := config.LoadFile(*cfgPath); err == nil {
			appCfg = c
		} else {
			logger.Warn("config file %s not loaded: %v", *cfgPath, err)
		}
	}

	a := &app{
		filters:  map[string]*query.FilterState{},
		catalog:  schema.Default(),
		pageSize: cmp.Or(appCfg.Browser.PageSize, query.DefaultPageSize),
		timeout:  *timeout,
	}
	a.store = session.Open(cmp.Or(*sessionFile, appCfg.Browser.SessionFile, "fastenbase_session.json"))

	// allow CLI overrides, then fall back to config, then to the last
	// database the user connected to
	if *driverFlag != "" && *dsnFlag != "" {
		appCfg.Database = config.DBConfig{Type: *driverFlag, DSN: *dsnFlag}
	}
	if appCfg.Database.Type != "" {
		if drv, dsn, err := config.BuildDriverAndDSN(appCfg.Database); err == nil {
			if err := a.connect(drv, dsn); err != nil {
				logger.Error("initial connect failed: %v", userMessage(err))
			}
		} else {
			logger.Error("error building DSN: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/connect", a.handleConnect)
	mux.HandleFunc("/api/disconnect", a.handleDisconnect)
	mux.HandleFunc("/api/tables", a.handleTables)
	mux.HandleFunc("/api/browse", a.handleBrowse)
	mux.HandleFunc("/api/values", a.handleDistinctValues)
	mux.HandleFunc("/api/bolts", a.handleCreateBolt)
	mux.HandleFunc("/api/bolts/clone", a.handleCloneBolt)
	mux.HandleFunc("/api/bolts/reference", a.handleReferenceData)
	mux.HandleFunc("/api/bolts/coverage", a.handleCoverage)
	mux.HandleFunc("/api/bolts/griprules", a.handleGripRules)
	mux.HandleFunc("/api/audit", a.handleAudit)
	mux.HandleFunc("/api/export", a.handleExport)
	mux.HandleFunc("/api/session", a.handleSession)
	mux.HandleFunc("/api/presets", a.handlePresets)

	addr := fmt.Sprintf(":%d", cmp.Or(*port, appCfg.Server.Port, defaultPort))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	logger.Info("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("%v", err)
	}
}

func (a *app) connect(driver, dsn string) error {
	sess, err := db.Open(driver, dsn, a.timeout, a.catalog)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.sess != nil {
		a.sess.Close()
	}
	a.sess = sess
	a.filters = map[string]*query.FilterState{}
	a.mu.Unlock()

	a.store.SetLastDatabase(dsn)

	// table enumeration runs on a worker so connect responds promptly;
	// the result is merged under the lock
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.timeout)*time.Second)
	results := sess.LoadTablesAsync(ctx)
	go func() {
		defer cancel()
		res := <-results
		if res.Err != nil {
			logger.Error("table enumeration failed: %v", userMessage(res.Err))
			return
		}
		a.mu.Lock()
		a.tables = res.Tables
		a.mu.Unlock()
		logger.Info("loaded %d fastener tables", len(res.Tables))
	}()
	return nil
}

func (a *app) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var dbReq config.DBConfig
	if err := json.NewDecoder(r.Body).Decode(&dbReq); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	driver, dsn, err := config.BuildDriverAndDSN(dbReq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.connect(driver, dsn); err != nil {
		http.Error(w, "connection failed: "+userMessage(err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "driver": driver})
}

func (a *app) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	if a.sess != nil {
		a.sess.Close()
		a.sess = nil
	}
	a.tables = nil
	a.filters = map[string]*query.FilterState{}
	a.mu.Unlock()
	writeJSON(w, map[string]any{"ok": true})
}

// handleTables returns the allow-listed tables found in the database,
// grouped for presentation, with schema descriptions and the recent-table
// history.
func (a *app) handleTables(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection; POST /api/connect first", http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	tables := append([]string(nil), a.tables...)
	a.mu.Unlock()
	if tables == nil {
		// enumeration may still be running; do it synchronously now
		var err error
		if tables, err = sess.Tables(r.Context()); err != nil {
			httpError(w, err)
			return
		}
		a.mu.Lock()
		a.tables = tables
		a.mu.Unlock()
	}

	present := map[string]bool{}
	for _, t := range tables {
		present[t] = true
	}
	type tableInfo struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	type group struct {
		Name   string      `json:"name"`
		Tables []tableInfo `json:"tables"`
	}
	var groups []group
	for _, g := range a.catalog.Groups() {
		var infos []tableInfo
		for _, t := range g.Tables {
			if !present[t] {
				continue
			}
			info := tableInfo{Name: t}
			if ts, ok := a.catalog.Describe(t); ok {
				info.Description = ts.Description
			}
			infos = append(infos, info)
		}
		if len(infos) > 0 {
			groups = append(groups, group{Name: g.Name, Tables: infos})
		}
	}
	writeJSON(w, map[string]any{"groups": groups, "recent": a.store.RecentTables()})
}

// browseRequest mutates the table's filter state before the page is
// fetched. Pointer fields distinguish "leave alone" from "set empty".
type browseRequest struct {
	Table      string             `json:"table"`
	Keyword    *string            `json:"keyword,omitempty"`
	Column     *string            `json:"filter_column,omitempty"`
	Value      *string            `json:"filter_value,omitempty"`
	Conditions *[]query.Condition `json:"conditions,omitempty"`
	Sort       *string            `json:"sort,omitempty"`
	Page       *int               `json:"page,omitempty"`
	Clear      bool               `json:"clear,omitempty"`
	Preset     string             `json:"preset,omitempty"`
	Inches     bool               `json:"inches,omitempty"`
}

func (a *app) handleBrowse(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	var req browseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !a.catalog.Allowed(req.Table) {
		http.Error(w, fmt.Sprintf("table %q is not a recognized fastener table", req.Table), http.StatusBadRequest)
		return
	}

	var preset *session.FilterPreset
	if req.Preset != "" {
		p, ok := a.store.PresetsFor(req.Table)[req.Preset]
		if !ok {
			http.Error(w, fmt.Sprintf("no preset %q for table %q", req.Preset, req.Table), http.StatusBadRequest)
			return
		}
		preset = &p
	}

	f := a.updateFilter(req.Table, func(f *query.FilterState) {
		switch {
		case req.Clear:
			f.Clear()
		case preset != nil:
			f.Clear()
			f.SetKeyword(preset.GlobalFilter)
			for col, v := range preset.ColumnFilters {
				f.SetColumnFilter(col, v)
			}
		default:
			if req.Conditions != nil {
				f.SetConditions(*req.Conditions)
			}
			if req.Keyword != nil {
				f.SetKeyword(*req.Keyword)
			}
			if req.Column != nil && req.Value != nil {
				f.SetColumnFilter(*req.Column, *req.Value)
			}
			if req.Sort != nil {
				f.SetSort(*req.Sort)
			}
			if req.Page != nil {
				f.SetPage(*req.Page)
			}
		}
	})

	page, err := reader.New(sess).FetchPage(r.Context(), req.Table, f)
	if err != nil {
		httpError(w, err)
		return
	}
	if req.Inches {
		convertPage(page)
	}
	a.store.AddRecentTable(req.Table)
	writeJSON(w, page)
}

func (a *app) handleDistinctValues(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	table := r.URL.Query().Get("table")
	column := r.URL.Query().Get("column")
	values, err := reader.New(sess).DistinctValues(r.Context(), table, column)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]any{"values": values})
}

func (a *app) handleCreateBolt(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		writer.CompositeBolt
		Standard string `json:"standard,omitempty"` // display name for the session log
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	id, err := writer.New(sess).Create(r.Context(), &req.CompositeBolt)
	if err != nil {
		httpError(w, err)
		return
	}
	a.store.AddCustomBolt(req.Name, req.Standard, req.Diameter)
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

func (a *app) handleCloneBolt(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SourceID int64  `json:"source_id"`
		NewName  string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	id, err := writer.New(sess).Clone(r.Context(), req.SourceID, req.NewName)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

func (a *app) handleReferenceData(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	ref, err := writer.New(sess).ReferenceData(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, ref)
}

func (a *app) handleCoverage(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	var req struct {
		StandardID int64   `json:"standard_id"`
		Diameter   float64 `json:"diameter"`
		SetIDs     []int64 `json:"set_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	cov, err := writer.New(sess).NutWasherCoverage(r.Context(), req.StandardID, req.Diameter, req.SetIDs)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]any{"coverage": cov})
}

func (a *app) handleGripRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lengths   []float64 `json:"lengths"`
		NutHeight float64   `json:"nut_height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"rules": writer.GenerateGripRules(req.Lengths, req.NutHeight)})
}

func (a *app) handleAudit(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	writeJSON(w, audit.New(sess).RunAll(r.Context()))
}

// handleExport streams the full filtered, sorted result set as CSV.
func (a *app) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := a.session()
	if sess == nil {
		http.Error(w, "no active connection", http.StatusBadRequest)
		return
	}
	table := r.URL.Query().Get("table")
	inches, _ := strconv.ParseBool(r.URL.Query().Get("inches"))
	if !a.catalog.Allowed(table) {
		http.Error(w, fmt.Sprintf("table %q is not a recognized fastener table", table), http.StatusBadRequest)
		return
	}
	cols, rows, err := reader.New(sess).FetchAll(r.Context(), table, a.filterSnapshot(table))
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_export.csv", table))
	if err := export.WriteCSV(w, cols, rows, inches); err != nil {
		logger.Error("csv export: %v", err)
	}
}

func (a *app) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.store.Snapshot())
}

// handlePresets saves (POST) or lists (GET) filter presets.
func (a *app) handlePresets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, a.store.PresetsFor(r.URL.Query().Get("table")))
	case http.MethodPost:
		var req struct {
			Name  string `json:"name"`
			Table string `json:"table"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name == "" || !a.catalog.Allowed(req.Table) {
			http.Error(w, "preset name and a valid table are required", http.StatusBadRequest)
			return
		}
		a.store.SaveFilterPreset(req.Name, req.Table, a.filterSnapshot(req.Table))
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// convertPage applies inch display conversion to dimensional columns.
func convertPage(p *reader.Page) {
	for _, row := range p.Rows {
		for i, col := range p.Columns {
			if i < len(row) {
				row[i] = units.ToDisplay(col, row[i], true)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response: %v", err)
	}
}

// httpError maps a classified database error to a status code and its
// user-facing message.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case db.IsKind(err, db.KindValidation):
		status = http.StatusBadRequest
	case db.IsKind(err, db.KindPermission):
		status = http.StatusForbidden
	case db.IsKind(err, db.KindTimeout):
		status = http.StatusGatewayTimeout
	}
	http.Error(w, userMessage(err), status)
}

// userMessage renders an error for display, truncating raw driver text.
func userMessage(err error) string {
	var e *db.Error
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	return err.Error()
}
