package models

import "time"

type MenuItem struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BasePrice   float64   `json:"base_price"`
	IsActive    bool      `json:"is_active"`
	IsSoldOut   bool      `json:"is_sold_out"`
	SpiceLevel  int       `json:"spice_level,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	BranchID    string    `json:"branch_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	SortOrder int    `json:"sort_order"`
	BranchID  string `json:"branch_id,omitempty"`
}

// Addon belongs to a menu item (item_id).
type Addon struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	BranchID  string    `json:"branch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Menu is the categories plus items of one scope, categories in sort order.
type Menu struct {
	Categories []Category `json:"categories"`
	Items      []MenuItem `json:"items"`
}
