package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	var tests = []struct {
		name string
		err  error
		want Kind
	}{
		{"bad connection sentinel", driver.ErrBadConn, KindConnection},
		{"communication link failure", errors.New("Communication link failure"), KindConnection},
		{"localdb instance missing", errors.New("LocalDB instance ADVANCESTEEL2025 not found"), KindConnection},
		{"permission denied", errors.New("SELECT permission denied on object 'BoltDefinition'"), KindPermission},
		{"access denied", errors.New("Access denied for user 'reader'"), KindPermission},
		{"timeout text", errors.New("Timeout expired waiting for query"), KindTimeout},
		{"deadline exceeded", fmt.Errorf("query: %w", context.DeadlineExceeded), KindTimeout},
		{"foreign key violation", errors.New("FOREIGN KEY constraint failed"), KindIntegrity},
		{"syntax error", errors.New("Incorrect syntax near 'FORM'"), KindQuery},
		{"anything else", errors.New("disk quota exceeded"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)

			if !IsKind(got, tt.want) {
				var e *Error
				errors.As(got, &e)
				t.Errorf("\ngot kind %v, wanted %v", e.Kind, tt.want)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if err := Classify(nil); err != nil {
		t.Errorf("\ngot %v, wanted nil", err)
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := Validation("bad input %d", 7)

	got := Classify(fmt.Errorf("wrapped: %w", orig))

	if !IsKind(got, KindValidation) {
		t.Errorf("\nclassified error was reclassified: %v", got)
	}
}

func TestUserMessageTruncation(t *testing.T) {
	raw := strings.Repeat("x", 300)
	e := &Error{Kind: KindUnknown, Msg: "database error", Err: errors.New(raw)}

	msg := e.UserMessage()

	if !strings.HasSuffix(msg, "...") {
		t.Errorf("\nlong driver text not truncated: %q", msg)
	}
	if len(msg) > len("database error: ")+203 {
		t.Errorf("\ngot message length %d, wanted at most 200 chars of driver text", len(msg))
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := &Error{Kind: KindQuery, Msg: "invalid query", Err: inner}

	if !errors.Is(e, inner) {
		t.Errorf("\nunderlying error lost in wrapping")
	}
	if e.Error() != "invalid query: boom" {
		t.Errorf("\ngot %q", e.Error())
	}
}

func TestLostConnection(t *testing.T) {
	var tests = []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"plain failure", errors.New("no such table"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lostConnection(tt.err); got != tt.want {
				t.Errorf("\ngot %v, wanted %v", got, tt.want)
			}
		})
	}
}
