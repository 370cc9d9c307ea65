// Package dispatch implements the core logic for matching incoming delivery
// and ride orders to available couriers in real time.
//
// An order is offered to the least-loaded available driver with a response
// deadline. When the driver accepts, the assignment completes; when the driver
// rejects or the deadline passes, the next-ranked driver is tried. When no
// driver is available the order waits in a FIFO queue that is drained as soon
// as courier capacity frees up.
//
// Key components:
//   - Dispatcher: orchestrates the offer, timeout, retry, requeue and drain cycle.
//   - registry.Registry: source of truth for courier availability and load.
//   - orders.Store: order records and the order state machine.
//   - queue.Queue: FIFO waiting list for deferred orders.
//
// The Dispatcher, registry, store and queue form one consistency domain: all
// dispatcher operations and timer callbacks serialize on the dispatcher mutex,
// so two concurrent accepts can never double-assign a driver. Notification
// delivery and metrics recording run outside the critical section.
//
// Timers are armed through the clock.Clock capability, which makes the
// timeout protocol fully deterministic under test with clock.FakeClock.
package dispatch
