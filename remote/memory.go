package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"food-console/realtime"
)

// Policy decides whether action ("insert", "update", "delete") on row is
// allowed. A non-nil error rejects the write.
type Policy func(action string, row Row) error

// Call records one request served by Memory.
type Call struct {
	Action string
	Table  string
}

// Publisher receives change events from Memory.
type Publisher interface {
	Publish(ev realtime.Event)
}

type memTable struct {
	columns map[string]bool // nil: any column accepted
	rows    []Row
}

// Memory is an in-process Service. Tables must be declared with Define
// before use; a declared column set makes unknown columns fail the way
// PostgreSQL does.
type Memory struct {
	mu       sync.Mutex
	tables   map[string]*memTable
	policies map[string]Policy
	calls    []Call
	pub      Publisher
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string]*memTable),
		policies: make(map[string]Policy),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Define creates table. With no columns any column name is accepted.
func (m *Memory) Define(table string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &memTable{}
	if len(columns) > 0 {
		t.columns = make(map[string]bool, len(columns))
		for _, c := range columns {
			t.columns[c] = true
		}
	}
	m.tables[table] = t
}

// AddColumn extends a declared table, mimicking an additive migration.
func (m *Memory) AddColumn(table, column string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[table]; ok && t.columns != nil {
		t.columns[column] = true
	}
}

// Seed appends rows to table without policy checks or events.
func (m *Memory) Seed(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		t = &memTable{}
		m.tables[table] = t
	}
	for _, r := range rows {
		t.rows = append(t.rows, r.Clone())
	}
}

func (m *Memory) SetPolicy(table string, p Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		delete(m.policies, table)
		return
	}
	m.policies[table] = p
}

// SetPublisher wires change events (e.g. to a realtime.Hub).
func (m *Memory) SetPublisher(p Publisher) {
	m.mu.Lock()
	m.pub = p
	m.mu.Unlock()
}

// SetClock overrides the clock used for created_at defaults.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Calls returns the requests served so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount counts requests of action against table.
func (m *Memory) CallCount(action, table string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Action == action && c.Table == table {
			n++
		}
	}
	return n
}

// Rows returns a copy of every row in table.
func (m *Memory) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return nil
	}
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}

// DenyRLS is the error PostgreSQL raises when a row-level policy rejects a write.
func DenyRLS(table string) error {
	return &Error{
		Code:    "42501",
		Message: fmt.Sprintf("new row violates row-level security policy for table %q", table),
	}
}

func (m *Memory) Select(ctx context.Context, q *Query) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Action: "select", Table: q.Table})
	t, err := m.table(q.Table)
	if err != nil {
		return Result{}, err
	}
	for _, c := range q.Columns {
		if err := t.check(q.Table, c, true); err != nil {
			return Result{}, err
		}
	}
	for _, o := range q.Orders {
		if err := t.check(q.Table, o.Column, true); err != nil {
			return Result{}, err
		}
	}
	matched, err := t.filter(q.Table, q.Filters)
	if err != nil {
		return Result{}, err
	}
	sortRows(matched, q.Orders)
	res := Result{}
	if q.Count {
		n := int64(len(matched))
		res.Count = &n
	}
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	res.Rows = make([]Row, 0, len(matched))
	for _, r := range matched {
		res.Rows = append(res.Rows, project(r, q.Columns))
	}
	return res, nil
}

func (m *Memory) Insert(ctx context.Context, table string, row Row) (Row, error) {
	m.mu.Lock()
	out, ev, err := m.insertLocked(table, row)
	pub := m.pub
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if pub != nil {
		pub.Publish(ev)
	}
	return out, nil
}

func (m *Memory) insertLocked(table string, row Row) (Row, realtime.Event, error) {
	m.calls = append(m.calls, Call{Action: "insert", Table: table})
	t, err := m.table(table)
	if err != nil {
		return nil, realtime.Event{}, err
	}
	for c := range row {
		if err := t.check(table, c, false); err != nil {
			return nil, realtime.Event{}, err
		}
	}
	rec := row.Clone()
	if _, ok := rec["id"]; !ok && t.accepts("id") {
		rec["id"] = uuid.NewString()
	}
	if _, ok := rec["created_at"]; !ok && t.accepts("created_at") {
		rec["created_at"] = m.now()
	}
	if p := m.policies[table]; p != nil {
		if err := p("insert", rec); err != nil {
			return nil, realtime.Event{}, err
		}
	}
	t.rows = append(t.rows, rec)
	return rec.Clone(), changeEvent(realtime.EventInsert, table, rec, nil), nil
}

func (m *Memory) Update(ctx context.Context, table string, row Row, where ...Filter) (int64, error) {
	m.mu.Lock()
	n, events, err := m.updateLocked(table, row, where)
	pub := m.pub
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if pub != nil {
		for _, ev := range events {
			pub.Publish(ev)
		}
	}
	return n, nil
}

func (m *Memory) updateLocked(table string, row Row, where []Filter) (int64, []realtime.Event, error) {
	m.calls = append(m.calls, Call{Action: "update", Table: table})
	t, err := m.table(table)
	if err != nil {
		return 0, nil, err
	}
	for c := range row {
		if err := t.check(table, c, false); err != nil {
			return 0, nil, err
		}
	}
	idx, err := t.match(table, where)
	if err != nil {
		return 0, nil, err
	}
	p := m.policies[table]
	updated := make([]Row, len(idx))
	for i, j := range idx {
		next := t.rows[j].Clone()
		for k, v := range row {
			next[k] = v
		}
		if p != nil {
			if err := p("update", next); err != nil {
				return 0, nil, err
			}
		}
		updated[i] = next
	}
	events := make([]realtime.Event, 0, len(idx))
	for i, j := range idx {
		old := t.rows[j]
		t.rows[j] = updated[i]
		events = append(events, changeEvent(realtime.EventUpdate, table, updated[i], old))
	}
	return int64(len(idx)), events, nil
}

func (m *Memory) Upsert(ctx context.Context, table string, row Row, conflictKey string) (Row, error) {
	m.mu.Lock()
	t, err := m.table(table)
	if err != nil {
		m.calls = append(m.calls, Call{Action: "upsert", Table: table})
		m.mu.Unlock()
		return nil, err
	}
	key, hasKey := row[conflictKey]
	existing := -1
	if hasKey {
		for i, r := range t.rows {
			if equalValues(r[conflictKey], key) {
				existing = i
				break
			}
		}
	}
	var (
		out    Row
		events []realtime.Event
	)
	if existing < 0 {
		var ev realtime.Event
		out, ev, err = m.insertLocked(table, row)
		events = []realtime.Event{ev}
	} else {
		_, events, err = m.updateLocked(table, row, []Filter{Eq(conflictKey, key)})
		if err == nil {
			out = t.rows[existing].Clone()
		}
	}
	pub := m.pub
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if pub != nil {
		for _, ev := range events {
			pub.Publish(ev)
		}
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, table string, where ...Filter) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Action: "delete", Table: table})
	t, err := m.table(table)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	idx, err := t.match(table, where)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if p := m.policies[table]; p != nil {
		for _, j := range idx {
			if err := p("delete", t.rows[j]); err != nil {
				m.mu.Unlock()
				return err
			}
		}
	}
	drop := make(map[int]bool, len(idx))
	var events []realtime.Event
	for _, j := range idx {
		drop[j] = true
		events = append(events, changeEvent(realtime.EventDelete, table, nil, t.rows[j]))
	}
	kept := t.rows[:0]
	for i, r := range t.rows {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	pub := m.pub
	m.mu.Unlock()
	if pub != nil {
		for _, ev := range events {
			pub.Publish(ev)
		}
	}
	return nil
}

func (m *Memory) table(name string) (*memTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, &Error{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", name)}
	}
	return t, nil
}

func (t *memTable) accepts(col string) bool {
	return t.columns == nil || t.columns[col]
}

func (t *memTable) check(table, col string, read bool) error {
	if t.accepts(col) {
		return nil
	}
	if read {
		return &Error{Code: "42703", Message: fmt.Sprintf("column %s.%s does not exist", table, col)}
	}
	return &Error{Code: "42703", Message: fmt.Sprintf("column %q of relation %q does not exist", col, table)}
}

func (t *memTable) match(table string, filters []Filter) ([]int, error) {
	for _, f := range filters {
		cols := f.Columns
		if f.Op != OpILikeAny {
			cols = []string{f.Column}
		}
		for _, c := range cols {
			if err := t.check(table, c, true); err != nil {
				return nil, err
			}
		}
	}
	var idx []int
	for i, r := range t.rows {
		if matchAll(r, filters) {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

func (t *memTable) filter(table string, filters []Filter) ([]Row, error) {
	idx, err := t.match(table, filters)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(idx))
	for i, j := range idx {
		out[i] = t.rows[j]
	}
	return out, nil
}

func matchAll(r Row, filters []Filter) bool {
	for _, f := range filters {
		if !matchOne(r, f) {
			return false
		}
	}
	return true
}

func matchOne(r Row, f Filter) bool {
	switch f.Op {
	case OpEq:
		return equalValues(r[f.Column], f.Value)
	case OpGte:
		c, ok := compareValues(r[f.Column], f.Value)
		return ok && c >= 0
	case OpLte:
		c, ok := compareValues(r[f.Column], f.Value)
		return ok && c <= 0
	case OpIn:
		vals, _ := f.Value.([]string)
		v := r[f.Column]
		if v == nil {
			return false
		}
		s := fmt.Sprint(v)
		for _, x := range vals {
			if x == s {
				return true
			}
		}
		return false
	case OpILikeAny:
		term := strings.ToLower(fmt.Sprint(f.Value))
		for _, c := range f.Columns {
			v := r[c]
			if v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
				return true
			}
		}
		return false
	}
	return false
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues orders numbers numerically, times chronologically (accepting
// RFC 3339 strings on either side) and everything else as strings.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	ta, aok := toTime(a)
	tb, bok := toTime(b)
	if aok && bok {
		return ta.Compare(tb), true
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if p, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return p, true
		}
		if p, err := time.Parse("2006-01-02", t); err == nil {
			return p, true
		}
	}
	return time.Time{}, false
}

func sortRows(rows []Row, orders []Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			a, b := rows[i][o.Column], rows[j][o.Column]
			if a == nil || b == nil {
				if (a == nil) == (b == nil) {
					continue
				}
				return b == nil
			}
			c, _ := compareValues(a, b)
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func project(r Row, cols []string) Row {
	if len(cols) == 0 {
		return r.Clone()
	}
	out := make(Row, len(cols))
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

func changeEvent(typ, table string, rec, old Row) realtime.Event {
	return realtime.Event{
		Type:   typ,
		Schema: "public",
		Table:  table,
		Record: map[string]any(rec.Clone()),
		Old:    map[string]any(old.Clone()),
	}
}
