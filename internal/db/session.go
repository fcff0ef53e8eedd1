// Package db owns the database session: one logical connection with an
// explicit connect/disconnect lifecycle, classified errors, and the query
// middleware every statement passes through. Components receive the session
// explicitly; there is no ambient connection state.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/godror/godror"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fastenbase/internal/dialect"
	"fastenbase/internal/logger"
	"fastenbase/internal/schema"
)

// ErrNotConnected is returned when an operation runs on a closed session.
var ErrNotConnected = errors.New("not connected to a database")

// Session is the single logical connection to the catalog database.
// Lifecycle: Open → queries/transactions → Close. The pool is capped at one
// open connection; the writer's transactions are the only concurrency
// guarantee the tool relies on.
type Session struct {
	driver  string
	dsn     string
	timeout time.Duration
	d       dialect.Dialect
	catalog *schema.Catalog

	mu sync.Mutex
	db *sql.DB
}

// Open connects and pings the database, returning a connected session.
func Open(driverName, dsn string, timeoutSec int, cat *schema.Catalog) (*Session, error) {
	d, err := dialect.Get(driverName)
	if err != nil {
		return nil, err
	}
	s := &Session{
		driver:  d.Name(),
		dsn:     dsn,
		timeout: time.Duration(timeoutSec) * time.Second,
		d:       d,
		catalog: cat,
	}
	if err := s.connect(); err != nil {
		return nil, Classify(err)
	}
	return s, nil
}

func (s *Session) connect() error {
	handle, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return err
	}
	// Single logical connection, like the desktop tool's one cursor.
	handle.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return err
	}
	s.mu.Lock()
	s.db = handle
	s.mu.Unlock()
	return nil
}

// reconnect closes the current handle and opens a fresh one.
func (s *Session) reconnect() error {
	s.mu.Lock()
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	s.mu.Unlock()
	return s.connect()
}

// Close disconnects. Safe to call on an already-closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Connected reports the lifecycle state.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

func (s *Session) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

// Dialect returns the SQL text rules for the connected engine.
func (s *Session) Dialect() dialect.Dialect { return s.d }

// Catalog returns the static schema catalog.
func (s *Session) Catalog() *schema.Catalog { return s.catalog }

// Query runs a read statement through the middleware chain.
func (s *Session) Query(ctx context.Context, stmt string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := s.do(ctx, "query", func(ctx context.Context) error {
		h, err := s.handle()
		if err != nil {
			return err
		}
		rows, err = h.QueryContext(ctx, stmt, args...)
		return err
	})
	return rows, err
}

// QueryInt runs a statement expected to return a single integer, such as a
// COUNT.
func (s *Session) QueryInt(ctx context.Context, stmt string, args ...any) (int, error) {
	var n int
	err := s.do(ctx, "count", func(ctx context.Context) error {
		h, err := s.handle()
		if err != nil {
			return err
		}
		return h.QueryRowContext(ctx, stmt, args...).Scan(&n)
	})
	return n, err
}

// Exec runs a write statement through the middleware chain.
func (s *Session) Exec(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := s.do(ctx, "exec", func(ctx context.Context) error {
		h, err := s.handle()
		if err != nil {
			return err
		}
		res, err = h.ExecContext(ctx, stmt, args...)
		return err
	})
	return res, err
}

// Begin opens a transaction. Transactions bypass the reconnect middleware:
// a connection lost mid-transaction is not retryable, the transaction is
// simply gone and the caller sees the classified error.
func (s *Session) Begin(ctx context.Context) (*sql.Tx, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}
	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return nil, Classify(err)
	}
	return tx, nil
}

// do composes the cross-cutting wrappers around one round trip: timing, a
// single reconnect-and-retry on lost connection, and error classification.
func (s *Session) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return timed(op, func() error {
		err := fn(ctx)
		if lostConnection(err) {
			logger.Warn("connection lost during %s, reconnecting once: %v", op, err)
			if rerr := s.reconnect(); rerr != nil {
				return fmt.Errorf("reconnect failed: %w", rerr)
			}
			err = fn(ctx)
		}
		return Classify(err)
	})
}

// timed logs the elapsed time of one database round trip.
func timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	logger.Debug("%s took %.3fs", op, time.Since(start).Seconds())
	return err
}
