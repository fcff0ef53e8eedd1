package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a database failure for user-facing reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindPermission
	KindTimeout
	KindQuery
	KindValidation
	KindIntegrity
)

// String returns the short human-readable category.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindPermission:
		return "permission"
	case KindTimeout:
		return "timeout"
	case KindQuery:
		return "query"
	case KindValidation:
		return "validation"
	case KindIntegrity:
		return "integrity"
	default:
		return "database"
	}
}

// Error is a classified database failure.
type Error struct {
	Kind Kind
	Msg  string // human-readable category message
	Err  error  // underlying driver error, possibly nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage renders the error for display: the category message plus the
// raw driver text truncated to 200 characters.
func (e *Error) UserMessage() string {
	if e.Err == nil {
		return e.Msg
	}
	raw := e.Err.Error()
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("%s: %s", e.Msg, raw)
}

// Validation builds a validation failure detected before any statement ran.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// lostConnection reports whether err looks like a dropped connection, the
// only condition the session retries.
func lostConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "communication link failure") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "disconnected")
}

// Classify maps a raw driver error to the taxonomy. Already-classified
// errors pass through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	s := strings.ToLower(err.Error())
	switch {
	case lostConnection(err):
		return &Error{Kind: KindConnection, Msg: "database connection was lost", Err: err}
	case strings.Contains(s, "localdb") && strings.Contains(s, "not found"):
		return &Error{Kind: KindConnection, Msg: "LocalDB instance not found; check the detailing software installation", Err: err}
	case strings.Contains(s, "permission") || strings.Contains(s, "access denied"):
		return &Error{Kind: KindPermission, Msg: "access denied; check your database permissions", Err: err}
	case strings.Contains(s, "timeout") || errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Msg: "query timed out; try applying filters to reduce data size", Err: err}
	case strings.Contains(s, "constraint") || strings.Contains(s, "foreign key"):
		return &Error{Kind: KindIntegrity, Msg: "the database rejected the write due to a constraint violation", Err: err}
	case strings.Contains(s, "syntax"):
		return &Error{Kind: KindQuery, Msg: "invalid query syntax; this might be a bug, please report it", Err: err}
	default:
		return &Error{Kind: KindUnknown, Msg: "database error", Err: err}
	}
}
