package realtime

import (
	"context"
	"strings"
	"testing"
)

func TestFilterMatches(t *testing.T) {
	ev := Event{Type: EventInsert, Schema: "public", Table: "orders"}
	tests := []struct {
		f    Filter
		want bool
	}{
		{Filter{}, true},
		{Filter{Event: EventAll, Table: "orders"}, true},
		{Filter{Event: "insert", Schema: "public", Table: "orders"}, true},
		{Filter{Event: EventUpdate, Table: "orders"}, false},
		{Filter{Table: "chat_messages"}, false},
		{Filter{Schema: "audit"}, false},
	}
	for _, tt := range tests {
		if got := tt.f.Matches(ev); got != tt.want {
			t.Errorf("%+v.Matches(%+v) = %v, want %v", tt.f, ev, got, tt.want)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"insert","table":"staff_notifications","record":{"id":"n1"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventInsert || ev.Schema != "public" || ev.Record["id"] != "n1" {
		t.Errorf("DecodeEvent = %+v", ev)
	}

	for _, bad := range []string{`not json`, `{"table":"orders"}`, `{"type":"UPDATE"}`} {
		if _, err := DecodeEvent([]byte(bad)); err == nil {
			t.Errorf("DecodeEvent(%q) succeeded, want error", bad)
		}
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	ctx := context.Background()
	var got []string
	s1, _ := h.Subscribe(ctx, "c", Filter{Table: "orders"}, func(ev Event) { got = append(got, "orders:"+ev.Type) })
	_, _ = h.Subscribe(ctx, "c", Filter{Event: EventInsert}, func(ev Event) { got = append(got, "insert:"+ev.Table) })

	h.Publish(Event{Type: EventInsert, Schema: "public", Table: "orders"})
	h.Publish(Event{Type: EventUpdate, Schema: "public", Table: "chat_messages"})

	want := []string{"orders:INSERT", "insert:orders"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	s1.Unsubscribe()
	s1.Unsubscribe()
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
	got = nil
	h.Publish(Event{Type: EventInsert, Table: "orders"})
	if len(got) != 1 || got[0] != "insert:orders" {
		t.Errorf("after unsubscribe got %v", got)
	}
}

func TestKafkaGroupIDsAreDistinct(t *testing.T) {
	a := NewKafkaSource(KafkaConfig{Topic: "console.changes"}, nil)
	b := NewKafkaSource(KafkaConfig{Topic: "console.changes"}, nil)
	seen := map[string]bool{}
	for _, id := range []string{
		a.groupID("admin-realtime"),
		a.groupID("admin-realtime"),
		b.groupID("admin-realtime"),
	} {
		if seen[id] {
			t.Fatalf("group id %q reused", id)
		}
		seen[id] = true
		if !strings.HasPrefix(id, "food-console-admin-realtime-") {
			t.Errorf("group id %q lacks prefix", id)
		}
	}
}
