package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the subset of *pgxpool.Pool used by Postgres.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres implements Service directly over a pgx pool. Row-level policies
// are whatever the connected role is subject to.
type Postgres struct {
	db Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Select(ctx context.Context, q *Query) (Result, error) {
	sql, args := buildSelect(q)
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return Result{}, mapError(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return Result{}, mapError(err)
	}
	res := Result{Rows: make([]Row, 0, len(maps))}
	for _, m := range maps {
		res.Rows = append(res.Rows, normalizeRow(m))
	}
	if q.Count {
		csql, cargs := buildCount(q)
		var n int64
		if err := p.db.QueryRow(ctx, csql, cargs...).Scan(&n); err != nil {
			return Result{}, mapError(err)
		}
		res.Count = &n
	}
	return res, nil
}

func (p *Postgres) Insert(ctx context.Context, table string, row Row) (Row, error) {
	cols, args := sortedColumns(row)
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), identList(cols), placeholders(1, len(cols)))
	return p.returningOne(ctx, sql, args)
}

func (p *Postgres) Update(ctx context.Context, table string, row Row, where ...Filter) (int64, error) {
	if len(row) == 0 {
		return 0, nil
	}
	cols, args := sortedColumns(row)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), i+1)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s", ident(table), strings.Join(sets, ", "))
	cond, wargs := buildWhere(where, len(args)+1)
	sql += cond
	tag, err := p.db.Exec(ctx, sql, append(args, wargs...)...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Upsert(ctx context.Context, table string, row Row, conflictKey string) (Row, error) {
	cols, args := sortedColumns(row)
	var sets []string
	for _, c := range cols {
		if c == conflictKey {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", ident(c), ident(c)))
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s RETURNING *",
		ident(table), identList(cols), placeholders(1, len(cols)), ident(conflictKey), action)
	return p.returningOne(ctx, sql, args)
}

func (p *Postgres) Delete(ctx context.Context, table string, where ...Filter) error {
	cond, args := buildWhere(where, 1)
	if _, err := p.db.Exec(ctx, "DELETE FROM "+ident(table)+cond, args...); err != nil {
		return mapError(err)
	}
	return nil
}

func (p *Postgres) returningOne(ctx context.Context, sql string, args []any) (Row, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return normalizeRow(m), nil
}

func buildSelect(q *Query) (string, []any) {
	cols := "*"
	if len(q.Columns) > 0 {
		cols = identList(q.Columns)
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", cols, ident(q.Table))
	cond, args := buildWhere(q.Filters, 1)
	sql += cond
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts[i] = ident(o.Column) + " " + dir
		}
		sql += " ORDER BY " + strings.Join(parts, ", ")
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return sql, args
}

func buildCount(q *Query) (string, []any) {
	cond, args := buildWhere(q.Filters, 1)
	return "SELECT COUNT(*) FROM " + ident(q.Table) + cond, args
}

// buildWhere renders filters as " WHERE ..." with placeholders numbered from
// start. It returns an empty string when there is nothing to filter on.
func buildWhere(filters []Filter, start int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", start+len(args)-1)
	}
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			if f.Value == nil {
				conds = append(conds, ident(f.Column)+" IS NULL")
				continue
			}
			conds = append(conds, ident(f.Column)+" = "+next(f.Value))
		case OpGte:
			conds = append(conds, ident(f.Column)+" >= "+next(f.Value))
		case OpLte:
			conds = append(conds, ident(f.Column)+" <= "+next(f.Value))
		case OpIn:
			conds = append(conds, ident(f.Column)+"::text = ANY("+next(f.Value)+")")
		case OpILikeAny:
			if len(f.Columns) == 0 {
				continue
			}
			ph := next("%" + fmt.Sprint(f.Value) + "%")
			ors := make([]string, len(f.Columns))
			for i, c := range f.Columns {
				ors[i] = ident(c) + "::text ILIKE " + ph
			}
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = ident(c)
	}
	return strings.Join(out, ", ")
}

func placeholders(start, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(out, ", ")
}

func sortedColumns(row Row) ([]string, []any) {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	return cols, args
}

// normalizeRow converts driver-specific values into plain Go values so rows
// decode the same way regardless of adapter.
func normalizeRow(m map[string]any) Row {
	out := make(Row, len(m))
	for k, v := range m {
		switch tv := v.(type) {
		case [16]byte:
			out[k] = uuid.UUID(tv).String()
		case pgtype.Numeric:
			f, err := tv.Float64Value()
			if err != nil || !f.Valid {
				out[k] = nil
				continue
			}
			out[k] = f.Float64
		default:
			out[k] = v
		}
	}
	return out
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{Code: pgErr.Code, Message: pgErr.Message, Details: pgErr.Detail, Hint: pgErr.Hint}
	}
	return err
}
