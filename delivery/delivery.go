// Package delivery computes the record changes for a delivery status move.
package delivery

import (
	"time"

	"food-console/models"
	"food-console/remote"
)

type Status string

const (
	Assigned  Status = "assigned"
	PickedUp  Status = "picked_up"
	EnRoute   Status = "en_route"
	Delivered Status = "delivered"
	Cancelled Status = "cancelled"
)

var order = map[Status]int{Assigned: 0, PickedUp: 1, EnRoute: 2, Delivered: 3}

func (s Status) Valid() bool {
	_, ok := order[s]
	return ok || s == Cancelled
}

func (s Status) Terminal() bool {
	return s == Delivered || s == Cancelled
}

func (s Status) Label() string {
	switch s {
	case Assigned:
		return "Assigned"
	case PickedUp:
		return "Picked up"
	case EnRoute:
		return "En route"
	case Delivered:
		return "Delivered"
	case Cancelled:
		return "Cancelled"
	}
	return string(s)
}

// State is the part of a delivery record the lifecycle cares about.
type State struct {
	Status      Status
	AssignedAt  *time.Time
	PickedAt    *time.Time
	DeliveredAt *time.Time
	UpdatedAt   *time.Time
}

func StateOf(d models.Delivery) State {
	return State{
		Status:      Status(d.Status),
		AssignedAt:  d.AssignedAt,
		PickedAt:    d.PickedAt,
		DeliveredAt: d.DeliveredAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Patch holds only the columns a transition writes.
type Patch struct {
	Status      Status
	UpdatedAt   time.Time
	PickedAt    *time.Time
	DeliveredAt *time.Time
}

// Advance moves current to target at now. It does not check that target is a
// legal successor; see ValidTransition. Timestamps already set on current are
// never replaced, and UpdatedAt never moves backwards.
func Advance(current State, target Status, now time.Time) Patch {
	p := Patch{Status: target, UpdatedAt: now}
	if current.UpdatedAt != nil && now.Before(*current.UpdatedAt) {
		p.UpdatedAt = *current.UpdatedAt
	}
	if target == PickedUp && current.PickedAt == nil {
		t := now
		p.PickedAt = &t
	}
	if target == Delivered && current.DeliveredAt == nil {
		t := now
		p.DeliveredAt = &t
	}
	return p
}

// Apply returns s with p written over it.
func Apply(s State, p Patch) State {
	s.Status = p.Status
	u := p.UpdatedAt
	s.UpdatedAt = &u
	if p.PickedAt != nil {
		s.PickedAt = p.PickedAt
	}
	if p.DeliveredAt != nil {
		s.DeliveredAt = p.DeliveredAt
	}
	return s
}

// Row is the update payload for the deliveries table.
func (p Patch) Row() remote.Row {
	row := remote.Row{
		"status":     string(p.Status),
		"updated_at": p.UpdatedAt,
	}
	if p.PickedAt != nil {
		row["picked_at"] = *p.PickedAt
	}
	if p.DeliveredAt != nil {
		row["delivered_at"] = *p.DeliveredAt
	}
	return row
}

// ValidTransition reports whether to may follow from: one step along
// assigned, picked_up, en_route, delivered, or to cancelled from any
// non-terminal state, so picked_at is set on every delivery past pickup.
func ValidTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == Cancelled {
		return true
	}
	return order[to] == order[from]+1
}
