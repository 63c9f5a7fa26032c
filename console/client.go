// Package console is the data-access layer behind the operations console.
// Every method returns (data, error); branch-scoped reads are filtered to
// the session's branch selection unless it is scope.All.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"food-console/errclass"
	"food-console/remote"
	"food-console/scope"
)

var (
	ErrInvalidInput      = errors.New("console: missing required input")
	ErrInvalidTransition = errors.New("console: invalid delivery transition")
)

// ScopeReader exposes the current branch selection. *scope.Manager
// satisfies it.
type ScopeReader interface {
	Current() string
}

type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
	// StrictDelivery rejects delivery moves that ValidTransition disallows.
	StrictDelivery bool
}

type Client struct {
	svc            remote.Service
	scope          ScopeReader
	log            *zap.Logger
	now            func() time.Time
	strictDelivery bool
}

func New(svc remote.Service, sc ScopeReader, opts Options) *Client {
	c := &Client{
		svc:            svc,
		scope:          sc,
		log:            opts.Logger,
		now:            opts.Now,
		strictDelivery: opts.StrictDelivery,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// ListParams narrows a list. Branch overrides the session scope; zero
// Limit means the operation's default cap.
type ListParams struct {
	Branch string
	Limit  int
	Offset int
}

// Page is a list result that also carries the exact match count.
type Page[T any] struct {
	Items []T   `json:"items"`
	Count int64 `json:"count"`
}

// WriteResult reports a mutation that may have dropped optional columns to
// fit the deployed schema.
type WriteResult struct {
	Row            remote.Row `json:"row,omitempty"`
	Affected       int64      `json:"affected"`
	SchemaFallback bool       `json:"schema_fallback"`
	Dropped        []string   `json:"dropped,omitempty"`
}

// SettingsResult carries an optional singleton settings row. Missing is set
// when the backing table is not provisioned.
type SettingsResult struct {
	Settings remote.Row `json:"settings"`
	Missing  bool       `json:"missing"`
}

// branch resolves the effective branch filter value; "" means unfiltered.
func (c *Client) branch(override string) string {
	b := override
	if b == "" && c.scope != nil {
		b = c.scope.Current()
	}
	if b == scope.All {
		return ""
	}
	return b
}

func (c *Client) branchFilter(override string) []remote.Filter {
	if b := c.branch(override); b != "" {
		return []remote.Filter{remote.Eq("branch_id", b)}
	}
	return nil
}

// withBranch stamps branch_id on a new row when the session is scoped to a
// single branch and the caller did not set one.
func (c *Client) withBranch(row remote.Row) remote.Row {
	out := row.Clone()
	if _, ok := out["branch_id"]; ok {
		return out
	}
	if b := c.branch(""); b != "" {
		out["branch_id"] = b
	}
	return out
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// one runs q expecting at most one row. A missing row is (nil, nil).
func (c *Client) one(ctx context.Context, q *remote.Query) (remote.Row, error) {
	res, err := c.svc.Select(ctx, q.WithLimit(1))
	if err != nil {
		if errclass.Is(err, errclass.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

func decode[T any](row remote.Row) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(row)); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}

func decodeAll[T any](rows []remote.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func list[T any](ctx context.Context, c *Client, q *remote.Query) ([]T, error) {
	res, err := c.svc.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](res.Rows)
}

func page[T any](ctx context.Context, c *Client, q *remote.Query) (Page[T], error) {
	res, err := c.svc.Select(ctx, q.WithCount())
	if err != nil {
		return Page[T]{}, err
	}
	items, err := decodeAll[T](res.Rows)
	if err != nil {
		return Page[T]{}, err
	}
	p := Page[T]{Items: items, Count: int64(len(items))}
	if res.Count != nil {
		p.Count = *res.Count
	}
	return p, nil
}

func (c *Client) updateByID(ctx context.Context, table, id string, row remote.Row) (int64, error) {
	if id == "" {
		return 0, ErrInvalidInput
	}
	n, err := c.svc.Update(ctx, table, row, remote.Eq("id", id))
	if err != nil {
		return 0, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return n, nil
}

func (c *Client) insert(ctx context.Context, table string, row remote.Row) (remote.Row, error) {
	out, err := c.svc.Insert(ctx, table, row)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return out, nil
}
