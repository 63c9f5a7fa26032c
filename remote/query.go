package remote

// Op is a filter operator.
type Op string

const (
	OpEq       Op = "eq"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpILikeAny Op = "ilike_any"
)

// Filter is a single predicate. For OpILikeAny, Columns lists the fields
// that are OR'ed together and Value is the substring to look for.
type Filter struct {
	Op      Op
	Column  string
	Columns []string
	Value   any
}

func Eq(col string, v any) Filter  { return Filter{Op: OpEq, Column: col, Value: v} }
func Gte(col string, v any) Filter { return Filter{Op: OpGte, Column: col, Value: v} }
func Lte(col string, v any) Filter { return Filter{Op: OpLte, Column: col, Value: v} }

// In matches rows whose column is one of values.
func In(col string, values []string) Filter {
	return Filter{Op: OpIn, Column: col, Value: values}
}

// ILikeAny matches rows where any of cols contains term, case-insensitively.
func ILikeAny(term string, cols ...string) Filter {
	return Filter{Op: OpILikeAny, Columns: cols, Value: term}
}

// Order is a sort key.
type Order struct {
	Column    string
	Ascending bool
}

// Query is a select against one table. Build it with From.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Orders  []Order
	Offset  int
	Limit   int
	Count   bool
}

// From starts a query on table selecting all columns.
func From(table string) *Query {
	return &Query{Table: table}
}

func (q *Query) Select(cols ...string) *Query {
	q.Columns = append(q.Columns, cols...)
	return q
}

func (q *Query) Where(f ...Filter) *Query {
	q.Filters = append(q.Filters, f...)
	return q
}

func (q *Query) Eq(col string, v any) *Query { return q.Where(Eq(col, v)) }

// OrderBy appends a sort key.
func (q *Query) OrderBy(col string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: col, Ascending: ascending})
	return q
}

// Range pages the result: offset rows skipped, at most limit returned.
func (q *Query) Range(offset, limit int) *Query {
	q.Offset = offset
	q.Limit = limit
	return q
}

func (q *Query) WithLimit(n int) *Query {
	q.Limit = n
	return q
}

// WithCount asks for the exact number of matching rows, ignoring paging.
func (q *Query) WithCount() *Query {
	q.Count = true
	return q
}
