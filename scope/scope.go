// Package scope owns the branch selection of one console session: which
// branch (or all of them) list and detail queries are filtered to.
package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"food-console/kv"
	"food-console/models"
)

const (
	// All disables branch filtering.
	All = "all"
	// StorageKey is the key the selection is persisted under.
	StorageKey = "admin_selected_branch"
	// RoleSuper may always select All.
	RoleSuper = models.RoleSuperAdmin

	LabelAll     = "All branches"
	LabelUnknown = "Unknown Branch"
)

var (
	ErrUnknownBranch = errors.New("scope: branch not in visible set")
	ErrAllNotAllowed = errors.New("scope: all branches not allowed for this session")
)

// BranchLister fetches the branches visible to the session.
type BranchLister interface {
	ListBranches(ctx context.Context) ([]models.Branch, error)
}

// State is a snapshot handed to subscribers.
type State struct {
	Selected string          `json:"selected"`
	Branches []models.Branch `json:"branches"`
	AllowAll bool            `json:"allow_all"`
}

type subscriber struct {
	id int
	fn func(State)
}

// Manager is the single writer of the selection. Subscribers are called
// synchronously, in subscription order, after the state is updated.
type Manager struct {
	lister BranchLister
	store  kv.Store
	log    *zap.Logger

	// writeMu orders state changes together with their persistence.
	writeMu sync.Mutex

	mu          sync.Mutex
	selected    string
	hasStored   bool
	branches    []models.Branch
	allowAll    bool
	initialized bool
	role        string
	subs        []subscriber
	nextID      int
}

// NewManager rehydrates the persisted selection. Until Initialize runs the
// branch list is empty and the persisted value (or All when nothing was
// saved) is reported as is.
func NewManager(ctx context.Context, lister BranchLister, store kv.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = kv.NewMemory()
	}
	m := &Manager{lister: lister, store: store, log: log, selected: All, allowAll: true}
	v, ok, err := store.Get(ctx, StorageKey)
	if err != nil {
		log.Warn("load branch selection", zap.Error(err))
	}
	if ok && v != "" {
		m.selected = v
		m.hasStored = true
	}
	return m
}

// Initialize fetches the visible branches and picks the effective selection
// for role. On a fetch error the previous state is kept.
func (m *Manager) Initialize(ctx context.Context, role, profileBranchID string) ([]models.Branch, error) {
	m.writeMu.Lock()
	branches, err := m.lister.ListBranches(ctx)
	if err != nil {
		m.writeMu.Unlock()
		return nil, fmt.Errorf("list branches: %w", err)
	}

	m.mu.Lock()
	m.role = role
	m.branches = append([]models.Branch(nil), branches...)
	m.allowAll = role == RoleSuper || len(branches) > 1
	stored := ""
	if m.hasStored {
		stored = m.selected
	}
	m.selected = m.chooseLocked(stored, role, profileBranchID)
	m.hasStored = true
	m.initialized = true
	state, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, state.Selected)
	m.writeMu.Unlock()
	broadcast(subs, state)
	return append([]models.Branch(nil), branches...), nil
}

// chooseLocked picks the selection for role. An empty stored value means
// nothing was saved.
func (m *Manager) chooseLocked(stored, role, profileBranchID string) string {
	if role == RoleSuper {
		if stored == All || m.hasLocked(stored) {
			return stored
		}
		if len(m.branches) == 1 {
			return m.branches[0].ID
		}
		return All
	}
	if (stored == All && len(m.branches) > 1) || m.hasLocked(stored) {
		return stored
	}
	if profileBranchID != "" && m.hasLocked(profileBranchID) {
		return profileBranchID
	}
	if len(m.branches) > 0 {
		return m.branches[0].ID
	}
	return All
}

// Refresh re-fetches the branch list and corrects a selection that is no
// longer valid. Subscribers are only notified when something changed.
func (m *Manager) Refresh(ctx context.Context) error {
	m.writeMu.Lock()
	branches, err := m.lister.ListBranches(ctx)
	if err != nil {
		m.writeMu.Unlock()
		return fmt.Errorf("list branches: %w", err)
	}
	m.mu.Lock()
	prev := m.selected
	m.branches = append([]models.Branch(nil), branches...)
	m.allowAll = m.role == RoleSuper || len(branches) > 1
	if !m.validLocked(m.selected) {
		if m.allowAll || len(m.branches) == 0 {
			m.selected = All
		} else {
			m.selected = m.branches[0].ID
		}
	}
	state, subs := m.snapshotLocked()
	m.mu.Unlock()

	if state.Selected != prev {
		m.persist(ctx, state.Selected)
	}
	m.writeMu.Unlock()
	broadcast(subs, state)
	return nil
}

// Select changes the selection. Selecting the current value does nothing.
func (m *Manager) Select(ctx context.Context, branchID string) error {
	m.writeMu.Lock()
	m.mu.Lock()
	if branchID == m.selected && m.hasStored {
		m.mu.Unlock()
		m.writeMu.Unlock()
		return nil
	}
	if m.initialized {
		if branchID == All && !m.allowAll {
			m.mu.Unlock()
			m.writeMu.Unlock()
			return ErrAllNotAllowed
		}
		if branchID != All && !m.hasLocked(branchID) {
			m.mu.Unlock()
			m.writeMu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownBranch, branchID)
		}
	}
	m.selected = branchID
	m.hasStored = true
	state, subs := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, branchID)
	m.writeMu.Unlock()
	broadcast(subs, state)
	return nil
}

func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *Manager) Branches() []models.Branch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Branch(nil), m.branches...)
}

func (m *Manager) AllowAll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowAll
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.snapshotLocked()
	return s
}

// Label names branchID for display.
func (m *Manager) Label(branchID string) string {
	if branchID == "" || branchID == All {
		return LabelAll
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.branches {
		if b.ID == branchID {
			return b.Name
		}
	}
	return LabelUnknown
}

// Subscribe registers fn for selection changes. The returned function
// removes it and may be called any number of times.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Manager) hasLocked(id string) bool {
	for _, b := range m.branches {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (m *Manager) validLocked(id string) bool {
	if id == All {
		return m.allowAll
	}
	return m.hasLocked(id)
}

func (m *Manager) snapshotLocked() (State, []func(State)) {
	s := State{
		Selected: m.selected,
		Branches: append([]models.Branch(nil), m.branches...),
		AllowAll: m.allowAll,
	}
	fns := make([]func(State), len(m.subs))
	for i, sub := range m.subs {
		fns[i] = sub.fn
	}
	return s, fns
}

func (m *Manager) persist(ctx context.Context, v string) {
	if err := m.store.Set(ctx, StorageKey, v); err != nil {
		m.log.Warn("persist branch selection", zap.String("branch_id", v), zap.Error(err))
	}
}

func broadcast(fns []func(State), s State) {
	for _, fn := range fns {
		fn(s)
	}
}
