package model

import "time"

// OrderStatus defines the lifecycle state of an order.
type OrderStatus int

const (
	OrderNew OrderStatus = iota
	OrderPendingQueue // no driver available, waiting for the customer's queue decision
	OrderAwaitingDriver
	OrderAssigned
	OrderPickedUp
	OrderInTransit
	OrderDelivered
	OrderCancelled
)

// String returns a human-readable representation of the order status.
func (s OrderStatus) String() string {
	switch s {
	case OrderNew:
		return "new"
	case OrderPendingQueue:
		return "pending_queue"
	case OrderAwaitingDriver:
		return "awaiting_driver"
	case OrderAssigned:
		return "assigned"
	case OrderPickedUp:
		return "picked_up"
	case OrderInTransit:
		return "in_transit"
	case OrderDelivered:
		return "delivered"
	case OrderCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Active reports whether a driver is working the order.
func (s OrderStatus) Active() bool {
	return s == OrderAssigned || s == OrderPickedUp || s == OrderInTransit
}

// OrderType defines the service category of an order. It affects the payload
// shape only, never the dispatch decision.
type OrderType string

const (
	TypeDelivery OrderType = "delivery"
	TypeRide     OrderType = "ride"
)

// Valid reports whether the order type is one of the known categories.
func (t OrderType) Valid() bool {
	return t == TypeDelivery || t == TypeRide
}

// TimelineEntry records one status transition. Entries are append-only.
type TimelineEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

// Order represents a delivery or ride request.
//
// AssignedDriver is non-empty exactly when Status is Assigned, PickedUp or
// InTransit.
type Order struct {
	Number   string    `json:"number"`
	Type     OrderType `json:"type"`
	Customer string    `json:"customer"` // contact handle for notifications

	Status         OrderStatus `json:"status"`
	AssignedDriver string      `json:"assigned_driver,omitempty"`

	// Payload carries the type-specific order details. The core treats it as
	// opaque text rendered by the notification layer.
	Payload map[string]string `json:"payload,omitempty"`

	Timeline []TimelineEntry `json:"timeline"`

	CreatedAt          time.Time `json:"created_at"`
	AssignedAt         time.Time `json:"assigned_at"`
	CompletedAt        time.Time `json:"completed_at"`
	CancelledAt        time.Time `json:"cancelled_at"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
}

// CanTransition reports whether moving from the current status to next is a
// legal state-machine edge. Cancellation is reachable from every non-terminal
// state.
func (o Order) CanTransition(next OrderStatus) bool {
	if o.Status.Terminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	switch o.Status {
	case OrderNew:
		return next == OrderAwaitingDriver || next == OrderPendingQueue
	case OrderPendingQueue:
		return next == OrderAwaitingDriver
	case OrderAwaitingDriver:
		return next == OrderAssigned
	case OrderAssigned:
		return next == OrderPickedUp || next == OrderInTransit || next == OrderDelivered
	case OrderPickedUp:
		return next == OrderInTransit || next == OrderDelivered
	case OrderInTransit:
		return next == OrderDelivered
	default:
		return false
	}
}
