package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"food-console/models"
	"food-console/realtime"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func note(id string, minute int, read bool) models.Notification {
	return models.Notification{ID: id, Title: "t" + id, IsRead: read, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

type fakeSource struct {
	mu      sync.Mutex
	pages   [][]models.Notification
	calls   int
	marked  []string
	markAll int
	err     error

	// when set, the first Notifications call signals entered and then
	// blocks until release is closed
	entered chan struct{}
	release chan struct{}
}

func (s *fakeSource) Notifications(ctx context.Context, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	err := s.err
	var page []models.Notification
	if len(s.pages) > 0 {
		i := n - 1
		if i >= len(s.pages) {
			i = len(s.pages) - 1
		}
		page = s.pages[i]
	}
	s.mu.Unlock()

	if n == 1 && s.release != nil {
		close(s.entered)
		<-s.release
	}
	return page, err
}

func (s *fakeSource) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, id)
	return nil
}

func (s *fakeSource) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markAll++
	return 0, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRefreshUnreadIncreased(t *testing.T) {
	first := []models.Notification{
		note("1", 1, true), note("2", 2, false), note("3", 3, true), note("4", 4, false), note("5", 5, true),
	}
	second := append([]models.Notification{note("6", 6, false)}, first...)
	third := []models.Notification{note("6", 6, true), note("2", 2, false), note("4", 4, false)}
	src := &fakeSource{pages: [][]models.Notification{first, second, third}}
	f := NewFeed(src, Options{})
	defer f.Close()

	tests := []struct {
		wantUnread    int
		wantIncreased bool
		wantLen       int
	}{
		{2, true, 5},
		{3, true, 6},
		{2, false, 3},
	}
	for i, tt := range tests {
		snap, err := f.Refresh(context.Background())
		if err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
		if snap.Unread != tt.wantUnread || snap.UnreadIncreased != tt.wantIncreased || len(snap.Items) != tt.wantLen {
			t.Errorf("refresh %d = unread %d increased %v len %d, want %d %v %d",
				i, snap.Unread, snap.UnreadIncreased, len(snap.Items), tt.wantUnread, tt.wantIncreased, tt.wantLen)
		}
	}
}

func TestNormalizeDedupAndOrder(t *testing.T) {
	in := []models.Notification{
		note("a", 1, false),
		note("b", 3, false),
		note("a", 9, true),
		note("d", 3, false),
		note("c", 2, false),
	}
	got := Normalize(in)
	want := []string{"d", "b", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("Normalize len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Normalize[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
	if got[3].IsRead {
		t.Errorf("duplicate should keep first occurrence")
	}
}

func TestRefreshErrorKeepsState(t *testing.T) {
	src := &fakeSource{pages: [][]models.Notification{{note("1", 1, false)}}}
	f := NewFeed(src, Options{})
	defer f.Close()
	if _, err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	src.mu.Lock()
	src.err = errors.New("boom")
	src.mu.Unlock()
	if _, err := f.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if snap := f.Snapshot(); snap.Unread != 1 || len(snap.Items) != 1 {
		t.Errorf("state after failed refresh = %+v", snap)
	}
}

func TestSupersededRefreshDiscarded(t *testing.T) {
	stale := []models.Notification{note("old", 1, false)}
	fresh := []models.Notification{note("new", 2, false), note("old", 1, true)}
	src := &fakeSource{
		pages:   [][]models.Notification{stale, fresh},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := NewFeed(src, Options{})
	defer f.Close()

	done := make(chan Snapshot)
	go func() {
		snap, _ := f.Refresh(context.Background())
		done <- snap
	}()
	<-src.entered

	if _, err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(src.release)
	<-done

	snap := f.Snapshot()
	if len(snap.Items) != 2 || snap.Items[0].ID != "new" {
		t.Errorf("stale refresh overwrote newer result: %+v", snap.Items)
	}
}

func TestPushInsertDebounced(t *testing.T) {
	src := &fakeSource{pages: [][]models.Notification{{note("1", 1, false)}}}
	f := NewFeed(src, Options{Debounce: 20 * time.Millisecond})
	defer f.Close()

	got := make(chan Snapshot, 4)
	f.Subscribe(func(s Snapshot) { got <- s })

	ev := realtime.Event{Type: realtime.EventInsert, Table: "staff_notifications"}
	for i := 0; i < 5; i++ {
		f.OnPushInsert(ev)
	}
	select {
	case s := <-got:
		if s.Unread != 1 {
			t.Errorf("unread = %d, want 1", s.Unread)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push refresh never happened")
	}
	time.Sleep(60 * time.Millisecond)
	if n := src.callCount(); n != 1 {
		t.Errorf("refreshes = %d, want 1", n)
	}
}

func TestCloseCancelsPendingPush(t *testing.T) {
	src := &fakeSource{}
	f := NewFeed(src, Options{Debounce: 20 * time.Millisecond})
	f.OnPushInsert(realtime.Event{})
	f.Close()
	f.OnPushInsert(realtime.Event{})
	time.Sleep(60 * time.Millisecond)
	if n := src.callCount(); n != 0 {
		t.Errorf("refreshes after Close = %d, want 0", n)
	}
}

func TestMarkReadRefreshes(t *testing.T) {
	src := &fakeSource{pages: [][]models.Notification{{note("1", 1, true)}}}
	f := NewFeed(src, Options{})
	defer f.Close()

	if _, err := f.MarkRead(context.Background(), "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.MarkAllRead(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(src.marked) != 1 || src.marked[0] != "1" || src.markAll != 1 {
		t.Errorf("marked = %v, markAll = %d", src.marked, src.markAll)
	}
	if n := src.callCount(); n != 2 {
		t.Errorf("refreshes = %d, want 2", n)
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		name string
		n    models.Notification
		want string
	}{
		{"chat entity", models.Notification{EntityType: "chat", EntityID: "42"}, "chats.html#42"},
		{"chat message entity", models.Notification{EntityType: "chat_message", EntityID: "7"}, "chats.html#7"},
		{"order entity", models.Notification{EntityType: "order", EntityID: "o1"}, "orders.html#o1"},
		{"review entity", models.Notification{EntityType: "review", EntityID: "r1"}, "reviews.html#r1"},
		{"delivery entity", models.Notification{EntityType: "delivery", EntityID: "d1"}, "deliveries.html#d1"},
		{"legacy customer message", models.Notification{Type: TypeCustomerMessage, EntityID: "42"}, "orders.html#42"},
		{"legacy new order", models.Notification{Type: TypeNewOrder, EntityID: "o2"}, "orders.html#o2"},
		{"unknown entity type", models.Notification{EntityType: "coupon", EntityID: "c1"}, "orders.html#c1"},
		{"entity type without id", models.Notification{EntityType: "chat"}, "orders.html"},
		{"nothing", models.Notification{}, "orders.html"},
		{"legacy new order without id", models.Notification{Type: TypeNewOrder}, "orders.html"},
		{"entity type wins over legacy type", models.Notification{Type: TypeCustomerMessage, EntityType: "chat", EntityID: "c3"}, "chats.html#c3"},
		{"unknown entity type with legacy type", models.Notification{Type: TypeCustomerMessage, EntityType: "coupon", EntityID: "o5"}, "orders.html#o5"},
	}
	for _, tt := range tests {
		if got := RouteFor(tt.n).Path(); got != tt.want {
			t.Errorf("%s: RouteFor(%+v) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}

func TestIcon(t *testing.T) {
	tests := []struct {
		n    models.Notification
		want string
	}{
		{models.Notification{Type: TypeNewOrder}, "🧾"},
		{models.Notification{EntityType: "order", EntityID: "o1"}, "🧾"},
		{models.Notification{Type: TypeCustomerMessage}, "💬"},
		{models.Notification{EntityType: "chat_message"}, "💬"},
		{models.Notification{EntityType: "review"}, "🔔"},
	}
	for _, tt := range tests {
		if got := Icon(tt.n); got != tt.want {
			t.Errorf("Icon(%+v) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

type fakeSubscriber struct {
	filters []realtime.Filter
	failOn  string
	closed  int
}

type fakeSub struct{ s *fakeSubscriber }

func (f fakeSub) Unsubscribe() { f.s.closed++ }

func (f *fakeSubscriber) Subscribe(ctx context.Context, channel string, filter realtime.Filter, h realtime.Handler) (realtime.Subscription, error) {
	if filter.Table == f.failOn {
		return nil, errors.New("refused")
	}
	f.filters = append(f.filters, filter)
	return fakeSub{f}, nil
}

func TestWatch(t *testing.T) {
	sub := &fakeSubscriber{}
	noop := func(realtime.Event) {}
	live, err := Watch(context.Background(), sub, Handlers{OnOrders: noop, OnMessages: noop, OnNotifications: noop})
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.filters) != 3 {
		t.Fatalf("subscriptions = %d, want 3", len(sub.filters))
	}
	if sub.filters[0].Event != realtime.EventAll || sub.filters[1].Event != realtime.EventInsert {
		t.Errorf("filters = %+v", sub.filters)
	}
	live.Close()
	if sub.closed != 3 {
		t.Errorf("closed = %d, want 3", sub.closed)
	}

	failing := &fakeSubscriber{failOn: "staff_notifications"}
	if _, err := Watch(context.Background(), failing, Handlers{OnOrders: noop, OnNotifications: noop}); err == nil {
		t.Fatal("expected error")
	}
	if failing.closed != 1 {
		t.Errorf("opened subscriptions not closed on failure: %d", failing.closed)
	}
}

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, m.Text)
	}
	return tgbotapi.Message{}, s.err
}

func TestTelegramRelay(t *testing.T) {
	bot := &fakeSender{}
	r := NewTelegramRelay(bot, 99, nil)

	r.Handle(Snapshot{Items: []models.Notification{note("1", 1, false)}})
	if len(bot.sent) != 0 {
		t.Fatalf("priming snapshot sent %d messages", len(bot.sent))
	}

	r.Handle(Snapshot{Items: []models.Notification{
		{ID: "3", Title: "Chat", EntityType: "chat", EntityID: "c9", CreatedAt: base.Add(3 * time.Minute)},
		{ID: "2", Title: "New order", Type: TypeNewOrder, EntityID: "o7", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "x", Title: "Seen already", IsRead: true, CreatedAt: base},
		note("1", 1, false),
	}})
	want := []string{"🧾 New order\norders.html#o7", "💬 Chat\nchats.html#c9"}
	if len(bot.sent) != len(want) {
		t.Fatalf("sent = %q, want %q", bot.sent, want)
	}
	for i := range want {
		if bot.sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, bot.sent[i], want[i])
		}
	}

	bot.err = errors.New("network")
	r.Handle(Snapshot{Items: []models.Notification{note("4", 4, false)}})
	if len(bot.sent) != 3 {
		t.Errorf("send failure should still attempt delivery, sent = %d", len(bot.sent))
	}
}
