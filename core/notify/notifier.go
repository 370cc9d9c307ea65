// Package notify defines the capability interface used to reach couriers and
// customers. Implementations live under infra/notify; the dispatcher never
// depends on a concrete transport.
package notify

import (
	"time"

	"github.com/kurirhub/kurir/core/model"
)

// OfferSummary is the payload rendered to a driver when an order is offered.
type OfferSummary struct {
	OrderNumber string            `json:"order_number"`
	OrderType   model.OrderType   `json:"order_type"`
	Payload     map[string]string `json:"payload,omitempty"`
	Deadline    time.Time         `json:"deadline"`
}

// Notifier delivers human-readable messages. Calls may block on the transport;
// the dispatcher always invokes them outside its critical section.
type Notifier interface {
	// OfferToDriver proposes an order to a driver with a response deadline.
	OfferToDriver(contact string, offer OfferSummary, deadline time.Duration) error
	// NotifyDriver sends a free-form message to a driver.
	NotifyDriver(contact, message string) error
	// NotifyCustomer sends a free-form message to a customer.
	NotifyCustomer(contact, message string) error
}
