package notify

import (
	"context"
	"fmt"

	"food-console/realtime"
)

// LiveChannel is the subscription name used for the console's change feed.
const LiveChannel = "admin-realtime"

// Handlers receive console change events. Nil handlers are skipped.
type Handlers struct {
	OnOrders        func(realtime.Event)
	OnMessages      func(realtime.Event)
	OnNotifications func(realtime.Event)
}

// Live is the set of subscriptions opened by Watch.
type Live struct {
	subs []realtime.Subscription
}

// Watch subscribes to order changes, new chat messages and new staff
// notifications. On error any subscription already opened is closed.
func Watch(ctx context.Context, sub realtime.Subscriber, h Handlers) (*Live, error) {
	type binding struct {
		filter realtime.Filter
		fn     func(realtime.Event)
	}
	bindings := []binding{
		{realtime.Filter{Event: realtime.EventAll, Schema: "public", Table: "orders"}, h.OnOrders},
		{realtime.Filter{Event: realtime.EventInsert, Schema: "public", Table: "chat_messages"}, h.OnMessages},
		{realtime.Filter{Event: realtime.EventInsert, Schema: "public", Table: "staff_notifications"}, h.OnNotifications},
	}
	l := &Live{}
	for _, b := range bindings {
		if b.fn == nil {
			continue
		}
		s, err := sub.Subscribe(ctx, LiveChannel, b.filter, b.fn)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("subscribe %s: %w", b.filter.Table, err)
		}
		l.subs = append(l.subs, s)
	}
	return l, nil
}

func (l *Live) Close() {
	for _, s := range l.subs {
		s.Unsubscribe()
	}
	l.subs = nil
}
