package model

import "time"

// DriverStatus defines the duty state of a courier.
type DriverStatus int

const (
	DriverOffDuty DriverStatus = iota
	DriverOnDuty
	DriverBusy
)

// String returns a human-readable representation of the driver status.
func (s DriverStatus) String() string {
	switch s {
	case DriverOffDuty:
		return "off_duty"
	case DriverOnDuty:
		return "on_duty"
	case DriverBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Driver represents a courier able to take delivery and ride orders.
//
// A driver holds at most one active order at a time: Status == DriverBusy
// exactly when CurrentOrder is non-empty.
type Driver struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"` // transport-specific handle, opaque to the core

	Status       DriverStatus `json:"status"`
	CurrentOrder string       `json:"current_order,omitempty"`

	TotalOrders int `json:"total_orders"`
	TodayOrders int `json:"today_orders"`

	LastStatusUpdate time.Time `json:"last_status_update"`
	CreatedAt        time.Time `json:"created_at"`
}

// Dispatchable reports whether the driver can receive a new offer.
func (d Driver) Dispatchable() bool {
	return d.Status == DriverOnDuty && d.CurrentOrder == ""
}
