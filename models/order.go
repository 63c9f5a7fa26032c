package models

import "time"

// Order is a row from the orders table. Orders are created by the storefront;
// the console only reads them and moves their status.
type Order struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	Total           float64        `json:"total"`
	Subtotal        float64        `json:"subtotal"`
	DeliveryFee     float64        `json:"delivery_fee"`
	Discount        float64        `json:"discount"`
	PaymentMethod   string         `json:"payment_method"`
	PaymentStatus   string         `json:"payment_status"`
	Type            string         `json:"type,omitempty"` // "delivery" or "pickup"
	AddressSnapshot map[string]any `json:"address_snapshot,omitempty"`
	BranchID        string         `json:"branch_id,omitempty"`
	UserID          string         `json:"user_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// OrderItem is a name/price snapshot taken when the order was placed.
type OrderItem struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	NameSnapshot   string    `json:"name_snapshot"`
	Price          float64   `json:"price"`
	Qty            int       `json:"qty"`
	AddonsSnapshot []any     `json:"addons_snapshot,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// StatusEvent is one row of order_status_events, appended on every status change.
type StatusEvent struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderDetails struct {
	Order    Order         `json:"order"`
	Items    []OrderItem   `json:"items"`
	Timeline []StatusEvent `json:"timeline"`
	ChatID   string        `json:"chat_id,omitempty"`
}

const (
	OrderStatusPlaced    = "placed"
	OrderStatusAccepted  = "accepted"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusOnTheWay  = "on_the_way"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)
