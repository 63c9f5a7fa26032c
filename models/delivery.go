package models

import "time"

// Delivery is the single delivery record of an order (unique on order_id).
type Delivery struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	RiderID     string        `json:"rider_id,omitempty"`
	Status      string        `json:"status"`
	BranchID    string        `json:"branch_id,omitempty"`
	AssignedAt  *time.Time    `json:"assigned_at,omitempty"`
	PickedAt    *time.Time    `json:"picked_at,omitempty"`
	DeliveredAt *time.Time    `json:"delivered_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
	Rider       *RiderSummary `json:"rider,omitempty"`
}

type RiderSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	VehicleType string `json:"vehicle_type,omitempty"`
}
