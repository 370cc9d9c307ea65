package dispatch

import "errors"

// ErrOfferAlreadyPending indicates an offer is already outstanding for the
// order. At most one pending offer may exist per order.
var ErrOfferAlreadyPending = errors.New("offer already pending")

// ErrNoPendingOffer indicates the driver has no offer waiting for a response.
var ErrNoPendingOffer = errors.New("no pending offer")

// ErrNoActiveOrder indicates the driver holds no order to progress or complete.
var ErrNoActiveOrder = errors.New("no active order")
