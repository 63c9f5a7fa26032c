// Package retry runs a write at most twice: once as given and, when the
// classified failure is one a Transform knows how to repair, once more with
// the repaired payload. Attempts are sequential and never backed off.
package retry

import (
	"context"

	"food-console/errclass"
	"food-console/remote"
)

// Attempt performs the write with a complete payload.
type Attempt[P, T any] func(ctx context.Context, payload P) (T, error)

// Transform decides whether a failure is repairable and returns the payload
// for the second attempt. Returning false surfaces the first error.
type Transform[P any] func(ctx context.Context, payload P, c errclass.Classification) (P, bool)

// Outcome describes what Once did. Payload is the payload of the last attempt.
type Outcome[P, T any] struct {
	Value   T
	Payload P
	Retried bool
	Cause   errclass.Classification
}

func Once[P, T any](ctx context.Context, payload P, attempt Attempt[P, T], transform Transform[P]) (Outcome[P, T], error) {
	v, err := attempt(ctx, payload)
	if err == nil {
		return Outcome[P, T]{Value: v, Payload: payload}, nil
	}
	c := errclass.Classify(err)
	next, ok := transform(ctx, payload, c)
	if !ok {
		return Outcome[P, T]{Payload: payload, Cause: c}, err
	}
	v, err = attempt(ctx, next)
	return Outcome[P, T]{Value: v, Payload: next, Retried: true, Cause: c}, err
}

// StripUnknownColumn drops the column named by an UndefinedColumn failure
// from the payload. When the message does not name a column, the first of
// optional present in the payload is dropped instead.
func StripUnknownColumn(optional ...string) Transform[remote.Row] {
	return func(_ context.Context, row remote.Row, c errclass.Classification) (remote.Row, bool) {
		if c.Kind != errclass.UndefinedColumn {
			return row, false
		}
		if c.Column != "" {
			if _, ok := row[c.Column]; ok {
				return row.Without(c.Column), true
			}
			return row, false
		}
		for _, col := range optional {
			if _, ok := row[col]; ok {
				return row.Without(col), true
			}
		}
		return row, false
	}
}

// Lookup resolves a scoping attribute for payload. ok is false when the
// parent record does not exist.
type Lookup func(ctx context.Context, payload remote.Row) (value any, ok bool, err error)

// EnrichOnDenied merges field, resolved by lookup, into a payload rejected
// with PermissionDenied. A failed or empty lookup leaves the original error.
func EnrichOnDenied(field string, lookup Lookup) Transform[remote.Row] {
	return func(ctx context.Context, row remote.Row, c errclass.Classification) (remote.Row, bool) {
		if c.Kind != errclass.PermissionDenied {
			return row, false
		}
		v, ok, err := lookup(ctx, row)
		if err != nil || !ok || v == nil {
			return row, false
		}
		next := row.Clone()
		next[field] = v
		return next, true
	}
}

// Dropped lists keys of before that are missing from after.
func Dropped(before, after remote.Row) []string {
	var out []string
	for k := range before {
		if _, ok := after[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
