package events

import (
	"time"

	"github.com/kurirhub/kurir/core/model"
)

// Event is the union of all dispatch events published on the bus.
type Event interface{ Kind() string }

// OfferSent is published when an offer goes out to a driver.
type OfferSent struct {
	OrderNumber string
	DriverID    string
	Attempt     int
	Deadline    time.Time
}

// OfferAccepted is published when a driver takes the offered order.
type OfferAccepted struct {
	OrderNumber string
	DriverID    string
	Latency     time.Duration
}

// OfferRejected is published when a driver explicitly declines an offer.
type OfferRejected struct {
	OrderNumber string
	DriverID    string
}

// OfferExpired is published when the response deadline passes without an
// answer; the rejection is implicit.
type OfferExpired struct {
	OrderNumber string
	DriverID    string
}

// OrderQueued is published when an order enters the waiting queue.
type OrderQueued struct {
	OrderNumber string
	QueueDepth  int
}

// OrderAssigned is published once an order has a driver.
type OrderAssigned struct {
	OrderNumber string
	DriverID    string
}

// OrderDelivered is published when an order reaches its terminal success state.
type OrderDelivered struct {
	OrderNumber string
	DriverID    string
}

// OrderCancelled is published for every cancellation, with the recorded reason.
type OrderCancelled struct {
	OrderNumber string
	Reason      string
	WasAssigned bool
}

// StatusChanged is published for intermediate progress marks (picked up,
// in transit).
type StatusChanged struct {
	OrderNumber string
	Status      model.OrderStatus
}

func (OfferSent) Kind() string      { return "offer_sent" }
func (OfferAccepted) Kind() string  { return "offer_accepted" }
func (OfferRejected) Kind() string  { return "offer_rejected" }
func (OfferExpired) Kind() string   { return "offer_expired" }
func (OrderQueued) Kind() string    { return "order_queued" }
func (OrderAssigned) Kind() string  { return "order_assigned" }
func (OrderDelivered) Kind() string { return "order_delivered" }
func (OrderCancelled) Kind() string { return "order_cancelled" }
func (StatusChanged) Kind() string  { return "status_changed" }
