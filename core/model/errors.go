package model

import "errors"

// ErrNotFound indicates an unknown order number or driver ID.
var ErrNotFound = errors.New("not found")

// ErrDuplicateDriver indicates the contact handle is already registered.
var ErrDuplicateDriver = errors.New("driver already registered")

// ErrInvalidTransition indicates a status precondition was violated. No state
// is mutated when it is returned.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAlreadyBusy indicates an assignment to a driver that still holds an order.
var ErrAlreadyBusy = errors.New("driver already busy")

// ErrAlreadyQueued indicates the order is already in the waiting queue.
var ErrAlreadyQueued = errors.New("order already queued")

// ErrInvalidOrder indicates the submitted order fails validation.
var ErrInvalidOrder = errors.New("invalid order")
