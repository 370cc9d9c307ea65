// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - OfferSent, OfferAccepted, OfferRejected, OfferExpired: offer lifecycle
//   - OrderQueued, OrderAssigned, OrderDelivered, OrderCancelled: order lifecycle
//   - StatusChanged: intermediate progress marks
package events
