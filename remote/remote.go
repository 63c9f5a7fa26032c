// Package remote describes the relational data service the console talks to
// and ships two adapters for it: PostgreSQL (pgx) and an in-memory store used
// by tests and the memory:// backend.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Row is one record as returned by the data service, keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of r with key removed.
func (r Row) Without(key string) Row {
	out := r.Clone()
	delete(out, key)
	return out
}

// Result is the outcome of a Select. Count is only populated when the query
// asked for it with WithCount.
type Result struct {
	Rows  []Row
	Count *int64
}

// Service is the relational data service consumed by the console.
type Service interface {
	Select(ctx context.Context, q *Query) (Result, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, row Row, where ...Filter) (int64, error)
	Upsert(ctx context.Context, table string, row Row, conflictKey string) (Row, error)
	Delete(ctx context.Context, table string, where ...Filter) error
}

// ErrNotFound marks the absence of a row where exactly one was expected.
var ErrNotFound = errors.New("remote: row not found")

// Error is a failure reported by the data service. Code follows SQLSTATE
// (or the gateway's own codes, e.g. PGRST204).
type Error struct {
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
}

// SQLState lets classifiers treat *Error like a driver error.
func (e *Error) SQLState() string { return e.Code }
