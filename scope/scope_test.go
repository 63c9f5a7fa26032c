package scope

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"food-console/kv"
	"food-console/models"
)

type fakeLister struct {
	branches []models.Branch
	err      error
	calls    int
}

func (f *fakeLister) ListBranches(context.Context) ([]models.Branch, error) {
	f.calls++
	return f.branches, f.err
}

func branches(ids ...string) []models.Branch {
	out := make([]models.Branch, len(ids))
	for i, id := range ids {
		out[i] = models.Branch{ID: id, Name: "Branch " + id, IsActive: true}
	}
	return out
}

type failingStore struct{ kv.Memory }

func (*failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

func newManager(t *testing.T, l BranchLister, stored string) (*Manager, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	if stored != "" {
		_ = store.Set(context.Background(), StorageKey, stored)
	}
	return NewManager(context.Background(), l, store, zaptest.NewLogger(t)), store
}

func TestInitializePolicy(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		stored   string
		profile  string
		branches []models.Branch
		want     string
		allowAll bool
	}{
		{"super defaults to all", RoleSuper, "", "", branches("a", "b"), All, true},
		{"super single branch", RoleSuper, "", "", branches("a"), "a", true},
		{"super keeps stored branch", RoleSuper, "b", "", branches("a", "b"), "b", true},
		{"super keeps stored all", RoleSuper, All, "", branches("a"), All, true},
		{"super stale stored", RoleSuper, "gone", "", branches("a", "b"), All, true},
		{"super stale stored single", RoleSuper, "gone", "", branches("a"), "a", true},
		{"staff keeps all with many", "staff", All, "a", branches("a", "b"), All, true},
		{"staff drops all with one", "staff", All, "a", branches("a"), "a", false},
		{"staff keeps stored branch", "staff", "b", "a", branches("a", "b"), "b", true},
		{"staff profile branch", "staff", "gone", "b", branches("a", "b"), "b", true},
		{"staff first branch", "staff", "", "", branches("c", "d"), "c", true},
		{"staff profile not visible", "staff", "", "zz", branches("c"), "c", false},
		{"staff no branches", "staff", "", "", nil, All, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newManager(t, &fakeLister{branches: tt.branches}, tt.stored)
			got, err := m.Initialize(context.Background(), tt.role, tt.profile)
			if err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			if len(got) != len(tt.branches) {
				t.Errorf("returned %d branches, want %d", len(got), len(tt.branches))
			}
			if m.Current() != tt.want {
				t.Errorf("Current = %q, want %q", m.Current(), tt.want)
			}
			if m.AllowAll() != tt.allowAll {
				t.Errorf("AllowAll = %v, want %v", m.AllowAll(), tt.allowAll)
			}
			if v, _, _ := store.Get(context.Background(), StorageKey); v != tt.want {
				t.Errorf("persisted %q, want %q", v, tt.want)
			}
		})
	}
}

func TestInitializeListErrorKeepsState(t *testing.T) {
	l := &fakeLister{branches: branches("a", "b")}
	m, _ := newManager(t, l, "")
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Select(context.Background(), "b"); err != nil {
		t.Fatal(err)
	}
	l.err = errors.New("offline")
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err == nil {
		t.Fatal("expected error")
	}
	if m.Current() != "b" || len(m.Branches()) != 2 {
		t.Errorf("state changed: %+v", m.State())
	}
}

func TestSelectBroadcastsInOrder(t *testing.T) {
	m, store := newManager(t, &fakeLister{branches: branches("a", "b")}, "")
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err != nil {
		t.Fatal(err)
	}
	var seen []string
	m.Subscribe(func(s State) { seen = append(seen, "first:"+s.Selected) })
	m.Subscribe(func(s State) { seen = append(seen, "second:"+s.Selected) })

	if err := m.Select(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Select(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	want := []string{"first:a", "second:a"}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	if v, _, _ := store.Get(context.Background(), StorageKey); v != "a" {
		t.Errorf("persisted %q", v)
	}
}

func TestSelectRejectsInvalid(t *testing.T) {
	m, _ := newManager(t, &fakeLister{branches: branches("a")}, "")
	if _, err := m.Initialize(context.Background(), "staff", "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Select(context.Background(), "nonexistent-branch"); !errors.Is(err, ErrUnknownBranch) {
		t.Errorf("err = %v, want ErrUnknownBranch", err)
	}
	if err := m.Select(context.Background(), All); !errors.Is(err, ErrAllNotAllowed) {
		t.Errorf("err = %v, want ErrAllNotAllowed", err)
	}
	if m.Current() != "a" {
		t.Errorf("Current = %q", m.Current())
	}
}

func TestStaleSelectionCorrectedOnInitialize(t *testing.T) {
	l := &fakeLister{branches: branches("a", "b")}
	store := kv.NewMemory()
	_ = store.Set(context.Background(), StorageKey, "nonexistent-branch")
	m := NewManager(context.Background(), l, store, nil)
	if m.Current() != "nonexistent-branch" {
		t.Fatalf("rehydrated %q", m.Current())
	}
	if err := m.Select(context.Background(), "nonexistent-branch"); err != nil {
		t.Fatal(err)
	}
	for _, role := range []string{RoleSuper, "staff"} {
		if _, err := m.Initialize(context.Background(), role, ""); err != nil {
			t.Fatal(err)
		}
		if m.Current() == "nonexistent-branch" {
			t.Errorf("%s: stale selection survived initialize", role)
		}
	}
}

func TestRefreshCorrectsRemovedBranch(t *testing.T) {
	l := &fakeLister{branches: branches("a", "b")}
	m, _ := newManager(t, l, "")
	if _, err := m.Initialize(context.Background(), "staff", "b"); err != nil {
		t.Fatal(err)
	}
	if m.Current() != "b" {
		t.Fatalf("Current = %q", m.Current())
	}
	notified := 0
	m.Subscribe(func(State) { notified++ })
	l.branches = branches("a")
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Current() != "a" || m.AllowAll() {
		t.Errorf("after refresh: %+v", m.State())
	}
	if notified != 1 {
		t.Errorf("notified = %d", notified)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	m, _ := newManager(t, &fakeLister{branches: branches("a", "b")}, "")
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err != nil {
		t.Fatal(err)
	}
	calls := 0
	unsub := m.Subscribe(func(State) { calls++ })
	other := 0
	m.Subscribe(func(State) { other++ })
	unsub()
	unsub()
	if err := m.Select(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if calls != 0 || other != 1 {
		t.Errorf("calls=%d other=%d", calls, other)
	}
}

func TestLabel(t *testing.T) {
	m, _ := newManager(t, &fakeLister{branches: branches("a")}, "")
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"":     LabelAll,
		All:    LabelAll,
		"a":    "Branch a",
		"gone": LabelUnknown,
	}
	for id, want := range tests {
		if got := m.Label(id); got != want {
			t.Errorf("Label(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestPersistFailureDoesNotFailSelect(t *testing.T) {
	l := &fakeLister{branches: branches("a", "b")}
	m := NewManager(context.Background(), l, &failingStore{}, zaptest.NewLogger(t))
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Select(context.Background(), "b"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if m.Current() != "b" {
		t.Errorf("Current = %q", m.Current())
	}
}

func TestFirstRunWithoutSavedSelection(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		profile  string
		branches []models.Branch
		want     string
	}{
		{"super one branch", RoleSuper, "", branches("a"), "a"},
		{"super many branches", RoleSuper, "", branches("a", "b"), All},
		{"staff many branches uses profile", "staff", "b", branches("a", "b"), "b"},
		{"staff many branches no profile", "staff", "", branches("c", "d"), "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(context.Background(), &fakeLister{branches: tt.branches}, kv.NewMemory(), nil)
			if m.Current() != All {
				t.Fatalf("before Initialize Current = %q, want %q", m.Current(), All)
			}
			if _, err := m.Initialize(context.Background(), tt.role, tt.profile); err != nil {
				t.Fatal(err)
			}
			if m.Current() != tt.want {
				t.Errorf("Current = %q, want %q", m.Current(), tt.want)
			}
		})
	}
}

// blockingStore holds the first Set until release is closed.
type blockingStore struct {
	*kv.Memory
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Set(ctx context.Context, key, value string) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.Memory.Set(ctx, key, value)
}

func TestConcurrentSelectPersistsLatest(t *testing.T) {
	l := &fakeLister{branches: branches("a", "b", "c")}
	m := NewManager(context.Background(), l, kv.NewMemory(), nil)
	if _, err := m.Initialize(context.Background(), RoleSuper, ""); err != nil {
		t.Fatal(err)
	}
	store := &blockingStore{Memory: kv.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	m.store = store

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = m.Select(context.Background(), "a")
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		_ = m.Select(context.Background(), "b")
	}()
	close(store.release)
	wg.Wait()

	v, _, _ := store.Get(context.Background(), StorageKey)
	if v != m.Current() {
		t.Errorf("persisted %q, current %q", v, m.Current())
	}
}
