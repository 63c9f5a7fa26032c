package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-console/realtime"
)

func seeded() *Memory {
	m := NewMemory()
	m.Define("orders", "id", "status", "branch_id", "total", "created_at")
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.Seed("orders",
		Row{"id": "o1", "status": "new", "branch_id": "a", "total": 10.0, "created_at": t0},
		Row{"id": "o2", "status": "ready", "branch_id": "b", "total": 25.5, "created_at": t0.Add(time.Hour)},
		Row{"id": "o3", "status": "new", "branch_id": "a", "total": 7, "created_at": t0.Add(2 * time.Hour)},
	)
	return m
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["id"].(string)
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMemorySelect(t *testing.T) {
	m := seeded()
	ctx := context.Background()
	tests := []struct {
		name      string
		q         *Query
		want      []string
		wantCount int64
	}{
		{"eq and desc", From("orders").Eq("branch_id", "a").OrderBy("created_at", false), []string{"o3", "o1"}, -1},
		{"numeric range", From("orders").Where(Gte("total", 8), Lte("total", 30)).OrderBy("total", true), []string{"o1", "o2"}, -1},
		{"time range with string bound", From("orders").Where(Gte("created_at", "2024-03-01T10:00:00Z")).OrderBy("created_at", true), []string{"o2", "o3"}, -1},
		{"in", From("orders").Where(In("id", []string{"o3", "o2"})).OrderBy("id", true), []string{"o2", "o3"}, -1},
		{"search", From("orders").Where(ILikeAny("READ", "status", "id")), []string{"o2"}, -1},
		{"paged with count", From("orders").OrderBy("created_at", true).Range(1, 1).WithCount(), []string{"o2"}, 3},
		{"offset past end", From("orders").Range(10, 5), []string{}, -1},
	}
	for _, tt := range tests {
		res, err := m.Select(ctx, tt.q)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got := ids(res.Rows); !sameIDs(got, tt.want) {
			t.Errorf("%s: ids = %v, want %v", tt.name, got, tt.want)
		}
		if tt.wantCount >= 0 {
			if res.Count == nil || *res.Count != tt.wantCount {
				t.Errorf("%s: count = %v, want %d", tt.name, res.Count, tt.wantCount)
			}
		} else if res.Count != nil {
			t.Errorf("%s: count set without WithCount", tt.name)
		}
	}
}

func TestMemoryProjection(t *testing.T) {
	m := seeded()
	res, err := m.Select(context.Background(), From("orders").Select("id").Eq("id", "o1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		t.Errorf("projection = %v", res.Rows)
	}
}

func TestMemorySchemaErrors(t *testing.T) {
	m := seeded()
	ctx := context.Background()
	tests := []struct {
		name string
		run  func() error
		code string
		msg  string
	}{
		{"unknown table", func() error {
			_, err := m.Select(ctx, From("nope"))
			return err
		}, "42P01", `relation "nope" does not exist`},
		{"unknown read column", func() error {
			_, err := m.Select(ctx, From("orders").Select("ghost"))
			return err
		}, "42703", "column orders.ghost does not exist"},
		{"unknown filter column", func() error {
			_, err := m.Select(ctx, From("orders").Eq("ghost", 1))
			return err
		}, "42703", "column orders.ghost does not exist"},
		{"unknown write column", func() error {
			_, err := m.Insert(ctx, "orders", Row{"ghost": 1})
			return err
		}, "42703", `column "ghost" of relation "orders" does not exist`},
	}
	for _, tt := range tests {
		err := tt.run()
		var re *Error
		if !errors.As(err, &re) {
			t.Fatalf("%s: err = %v, want *Error", tt.name, err)
		}
		if re.Code != tt.code || re.Message != tt.msg {
			t.Errorf("%s: got %s %q, want %s %q", tt.name, re.Code, re.Message, tt.code, tt.msg)
		}
	}
}

func TestMemoryAddColumn(t *testing.T) {
	m := seeded()
	ctx := context.Background()
	if _, err := m.Update(ctx, "orders", Row{"note": "x"}, Eq("id", "o1")); err == nil {
		t.Fatal("expected undefined column")
	}
	m.AddColumn("orders", "note")
	n, err := m.Update(ctx, "orders", Row{"note": "x"}, Eq("id", "o1"))
	if err != nil || n != 1 {
		t.Fatalf("Update after AddColumn = %d, %v", n, err)
	}
}

func TestMemoryInsertDefaults(t *testing.T) {
	m := seeded()
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })
	row, err := m.Insert(context.Background(), "orders", Row{"status": "new"})
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := row["id"].(string); id == "" {
		t.Errorf("id not generated: %v", row)
	}
	if row["created_at"] != now {
		t.Errorf("created_at = %v, want %v", row["created_at"], now)
	}
}

type recorder struct{ events []realtime.Event }

func (r *recorder) Publish(ev realtime.Event) { r.events = append(r.events, ev) }

func TestMemoryUpsertAndEvents(t *testing.T) {
	m := NewMemory()
	m.Define("deliveries", "id", "order_id", "status", "created_at")
	rec := &recorder{}
	m.SetPublisher(rec)
	ctx := context.Background()

	first, err := m.Upsert(ctx, "deliveries", Row{"order_id": "o1", "status": "assigned"}, "order_id")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Upsert(ctx, "deliveries", Row{"order_id": "o1", "status": "picked_up"}, "order_id")
	if err != nil {
		t.Fatal(err)
	}
	if first["id"] != second["id"] || second["status"] != "picked_up" {
		t.Errorf("upsert did not update in place: %v then %v", first, second)
	}
	if n := len(m.Rows("deliveries")); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
	if err := m.Delete(ctx, "deliveries", Eq("order_id", "o1")); err != nil {
		t.Fatal(err)
	}
	wantTypes := []string{realtime.EventInsert, realtime.EventUpdate, realtime.EventDelete}
	if len(rec.events) != len(wantTypes) {
		t.Fatalf("events = %+v", rec.events)
	}
	for i, typ := range wantTypes {
		if rec.events[i].Type != typ || rec.events[i].Table != "deliveries" {
			t.Errorf("event %d = %s %s, want %s deliveries", i, rec.events[i].Type, rec.events[i].Table, typ)
		}
	}
	if rec.events[1].Old["status"] != "assigned" {
		t.Errorf("update event old record = %v", rec.events[1].Old)
	}
}

func TestMemoryPolicy(t *testing.T) {
	m := seeded()
	m.SetPolicy("orders", func(action string, row Row) error {
		if row["branch_id"] == nil {
			return DenyRLS("orders")
		}
		return nil
	})
	ctx := context.Background()
	if _, err := m.Insert(ctx, "orders", Row{"status": "new"}); err == nil {
		t.Fatal("expected policy rejection")
	} else {
		var re *Error
		if !errors.As(err, &re) || re.SQLState() != "42501" {
			t.Errorf("err = %v, want 42501", err)
		}
	}
	if _, err := m.Insert(ctx, "orders", Row{"status": "new", "branch_id": "a"}); err != nil {
		t.Errorf("allowed insert failed: %v", err)
	}
	if got := m.CallCount("insert", "orders"); got != 2 {
		t.Errorf("insert calls = %d, want 2", got)
	}
}

func TestSortNilLast(t *testing.T) {
	rows := []Row{{"id": "a", "v": nil}, {"id": "b", "v": 2}, {"id": "c", "v": 1}}
	sortRows(rows, []Order{{Column: "v", Ascending: true}})
	if got := ids(rows); !sameIDs(got, []string{"c", "b", "a"}) {
		t.Errorf("ascending = %v", got)
	}
	sortRows(rows, []Order{{Column: "v", Ascending: false}})
	if got := ids(rows); !sameIDs(got, []string{"b", "c", "a"}) {
		t.Errorf("descending = %v", got)
	}
}
