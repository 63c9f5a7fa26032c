// Package notify keeps the staff notification feed: an ordered, deduplicated
// view of staff_notifications with an unread counter, refreshed on demand
// and on push events.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"food-console/models"
	"food-console/realtime"
)

// Source is the backend the feed reads from and marks read through.
// *console.Client satisfies it.
type Source interface {
	Notifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
}

// Snapshot is the feed after a refresh. UnreadIncreased is set when the
// unread count went up compared with the previous adopted refresh.
type Snapshot struct {
	Items           []models.Notification `json:"items"`
	Unread          int                   `json:"unread"`
	UnreadIncreased bool                  `json:"unread_increased"`
}

type Options struct {
	Limit int
	// Debounce coalesces push events that arrive within this window into
	// a single refresh.
	Debounce time.Duration
	Logger   *zap.Logger
}

type Feed struct {
	src      Source
	limit    int
	debounce time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	items      []models.Notification
	unread     int
	lastUnread int
	issued     uint64
	adopted    uint64
	timer      *time.Timer
	subs       []func(Snapshot)
}

func NewFeed(src Source, opts Options) *Feed {
	if opts.Limit <= 0 {
		opts.Limit = 30
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{
		src:      src,
		limit:    opts.Limit,
		debounce: opts.Debounce,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Refresh replaces the working set with the latest page. A result that was
// fetched before a newer, already adopted one is discarded.
func (f *Feed) Refresh(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	f.issued++
	gen := f.issued
	f.mu.Unlock()

	items, err := f.src.Notifications(ctx, f.limit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh notifications: %w", err)
	}
	items = Normalize(items)

	f.mu.Lock()
	if gen < f.adopted {
		snap := f.snapshotLocked(false)
		f.mu.Unlock()
		return snap, nil
	}
	f.adopted = gen
	unread := countUnread(items)
	increased := unread > f.lastUnread
	f.lastUnread = unread
	f.items = items
	f.unread = unread
	snap := f.snapshotLocked(increased)
	subs := make([]func(Snapshot), len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap, nil
}

// OnPushInsert schedules a refresh. Calls arriving while one is already
// scheduled are folded into it.
func (f *Feed) OnPushInsert(ev realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil || f.ctx.Err() != nil {
		return
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		f.mu.Lock()
		f.timer = nil
		f.mu.Unlock()
		if _, err := f.Refresh(f.ctx); err != nil && f.ctx.Err() == nil {
			f.log.Warn("push refresh failed", zap.String("table", ev.Table), zap.Error(err))
		}
	})
}

// MarkRead marks one notification read and then refreshes. Local state is
// only changed by the refresh.
func (f *Feed) MarkRead(ctx context.Context, id string) (Snapshot, error) {
	if err := f.src.MarkNotificationRead(ctx, id); err != nil {
		return Snapshot{}, fmt.Errorf("mark notification read: %w", err)
	}
	return f.Refresh(ctx)
}

func (f *Feed) MarkAllRead(ctx context.Context) (Snapshot, error) {
	if _, err := f.src.MarkAllNotificationsRead(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("mark all notifications read: %w", err)
	}
	return f.Refresh(ctx)
}

// Snapshot returns the current view without fetching.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(false)
}

// Subscribe registers fn to receive every adopted refresh.
func (f *Feed) Subscribe(fn func(Snapshot)) {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
}

// Close stops pending and future push refreshes.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	f.cancel()
}

func (f *Feed) snapshotLocked(increased bool) Snapshot {
	return Snapshot{
		Items:           append([]models.Notification(nil), f.items...),
		Unread:          f.unread,
		UnreadIncreased: increased,
	}
}

// Normalize drops repeated ids, keeping the first occurrence, and orders
// the rest newest first with id as tie-break.
func Normalize(items []models.Notification) []models.Notification {
	seen := make(map[string]bool, len(items))
	out := make([]models.Notification, 0, len(items))
	for _, n := range items {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func countUnread(items []models.Notification) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
