package models

import "time"

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
	RoleRider      = "rider"
	RoleCustomer   = "customer"
)

// Rider is a profiles row with role=rider. DefaultDeliveryNote only exists
// on schemas that have the default_delivery_note column.
type Rider struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone,omitempty"`
	VehicleType         string     `json:"vehicle_type,omitempty"`
	IsActive            bool       `json:"is_active"`
	BranchID            string     `json:"branch_id,omitempty"`
	DefaultDeliveryNote *string    `json:"default_delivery_note,omitempty"`
	Role                string     `json:"role,omitempty"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
}

type StaffProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	BranchID  string    `json:"branch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type StaffAllowlistEntry struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Address struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Label     string    `json:"label,omitempty"`
	Address   string    `json:"address"`
	Landmark  string    `json:"landmark,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
