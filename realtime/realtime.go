// Package realtime delivers table change events (insert/update/delete) to
// subscribers. Adapters: Hub (in-process), PGListener (LISTEN/NOTIFY) and
// KafkaSource (change feed topic).
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventAll    = "*"
)

// Event is one row change.
type Event struct {
	Type   string         `json:"type"`
	Schema string         `json:"schema"`
	Table  string         `json:"table"`
	Record map[string]any `json:"record"`
	Old    map[string]any `json:"old_record"`
}

// Filter selects events. Empty fields (and "*" for Event) match anything.
type Filter struct {
	Event  string
	Schema string
	Table  string
}

func (f Filter) Matches(ev Event) bool {
	if f.Event != "" && f.Event != EventAll && !strings.EqualFold(f.Event, ev.Type) {
		return false
	}
	if f.Schema != "" && f.Schema != ev.Schema {
		return false
	}
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	return true
}

type Handler func(Event)

// Subscription is a live registration. Unsubscribe is safe to call more
// than once.
type Subscription interface {
	Unsubscribe()
}

// Subscriber registers handlers for events matching a filter. channel names
// the logical subscription and is used for logging and consumer grouping.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, filter Filter, h Handler) (Subscription, error)
}

// DecodeEvent parses the JSON payload produced by the notify_change trigger
// or the change feed topic.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Type == "" || ev.Table == "" {
		return Event{}, fmt.Errorf("decode change event: missing type or table")
	}
	ev.Type = strings.ToUpper(ev.Type)
	if ev.Schema == "" {
		ev.Schema = "public"
	}
	return ev, nil
}

type cancelSub struct {
	once   sync.Once
	cancel func()
}

func (s *cancelSub) Unsubscribe() {
	s.once.Do(s.cancel)
}
