package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/events"
	"github.com/kurirhub/kurir/core/logger"
	"github.com/kurirhub/kurir/core/metrics"
	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/notify"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
	"github.com/kurirhub/kurir/internal/eventbus"
)

// pendingOffer links an outstanding order->driver offer to its timeout timer.
// It exists only while the response deadline is armed.
type pendingOffer struct {
	orderNumber string
	driverID    string
	contact     string
	timer       clock.Timer
	sentAt      time.Time
	attempt     int
}

// Dispatcher orchestrates the offer, timeout, retry, requeue and drain cycle.
//
// All exported operations and timer callbacks serialize on mu. The registry,
// store and queue have their own internal locks so read-only consumers can
// query them without entering the dispatch critical section.
type Dispatcher struct {
	registry *registry.Registry
	orders   *orders.Store
	queue    *queue.Queue
	notifier notify.Notifier
	clock    clock.Clock
	logger   logger.Logger
	sink     metrics.MetricsSink
	bus      *eventbus.Bus[events.Event]

	offerTimeout time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingOffer // order number -> offer
	byDriver map[string]string        // driver ID -> order number
	attempts map[string]int           // order number -> offers made so far
	closed   bool
}

// New creates a Dispatcher. offerTimeout defines how long a driver may take to
// answer an offer; if zero, a default of sixty seconds is used.
func New(reg *registry.Registry, store *orders.Store, q *queue.Queue, notifier notify.Notifier, clk clock.Clock, offerTimeout time.Duration, sink metrics.MetricsSink, bus *eventbus.Bus[events.Event], log logger.Logger) (*Dispatcher, error) {
	if reg == nil || store == nil || q == nil || notifier == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to New")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if offerTimeout <= 0 {
		offerTimeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Dispatcher{
		registry:     reg,
		orders:       store,
		queue:        q,
		notifier:     notifier,
		clock:        clk,
		logger:       log,
		sink:         sink,
		bus:          bus,
		offerTimeout: offerTimeout,
		pending:      make(map[string]*pendingOffer),
		byDriver:     make(map[string]string),
		attempts:     make(map[string]int),
	}, nil
}

// Close cancels every outstanding offer timer. It does not mutate order state.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, p := range d.pending {
		p.timer.Stop()
	}
	d.pending = make(map[string]*pendingOffer)
	d.byDriver = make(map[string]string)
	return nil
}

// SubmitOrder creates a new order and immediately tries to dispatch it. When
// no driver is available the order moves to pending_queue and the customer is
// asked whether to wait; the answer arrives via ConfirmQueue or DeclineQueue.
func (d *Dispatcher) SubmitOrder(typ model.OrderType, customer string, payload map[string]string) (model.Order, error) {
	o, err := d.orders.Create(typ, customer, payload)
	if err != nil {
		return model.Order{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tryAssignLocked(o)
}

// tryAssignLocked routes a fresh order to the best available driver, or parks
// it pending the customer's queue decision.
func (d *Dispatcher) tryAssignLocked(o model.Order) (model.Order, error) {
	avail := d.availableLocked()
	if len(avail) == 0 {
		upd, err := d.orders.Transition(o.Number, model.OrderPendingQueue, "no driver available, awaiting queue decision")
		if err != nil {
			return model.Order{}, err
		}
		d.notifyCustomerAsync(o.Customer, fmt.Sprintf("No driver is available for order %s right now. Reply to join the waiting queue or cancel.", o.Number))
		return upd, nil
	}
	upd, err := d.orders.Transition(o.Number, model.OrderAwaitingDriver, "searching for driver")
	if err != nil {
		return model.Order{}, err
	}
	if err := d.offerLocked(avail[0], upd); err != nil {
		return model.Order{}, err
	}
	return d.orders.Get(o.Number)
}

// offerLocked sends a time-bounded offer of the order to the driver and arms
// the response timer. The caller holds mu.
func (d *Dispatcher) offerLocked(drv model.Driver, o model.Order) error {
	if _, ok := d.pending[o.Number]; ok {
		return fmt.Errorf("order %s: %w", o.Number, ErrOfferAlreadyPending)
	}
	if cur, ok := d.byDriver[drv.ID]; ok {
		return fmt.Errorf("driver %s already offered %s: %w", drv.ID, cur, ErrOfferAlreadyPending)
	}
	d.attempts[o.Number]++
	attempt := d.attempts[o.Number]
	now := d.clock.Now()
	deadline := now.Add(d.offerTimeout)

	p := &pendingOffer{
		orderNumber: o.Number,
		driverID:    drv.ID,
		contact:     drv.Contact,
		sentAt:      now,
		attempt:     attempt,
	}
	p.timer = d.clock.AfterFunc(d.offerTimeout, func() {
		d.onOfferTimeout(o.Number, drv.ID)
	})
	d.pending[o.Number] = p
	d.byDriver[drv.ID] = o.Number

	offersSent.Inc()
	d.publish(events.OfferSent{OrderNumber: o.Number, DriverID: drv.ID, Attempt: attempt, Deadline: deadline})
	d.logger.Infof("offering order %s to driver %s (attempt %d)", o.Number, drv.ID, attempt)

	summary := notify.OfferSummary{
		OrderNumber: o.Number,
		OrderType:   o.Type,
		Payload:     o.Payload,
		Deadline:    deadline,
	}
	// Delivery failures do not roll the offer back: the response timer is the
	// safety net for an offer that never reached the driver.
	go func() {
		if err := d.notifier.OfferToDriver(drv.Contact, summary, d.offerTimeout); err != nil {
			d.logger.Errorf("offer notification to %s failed: %v", drv.ID, err)
		}
	}()
	return nil
}

// onOfferTimeout fires when the response deadline passes. A fire that races
// with an accept, reject or cancellation finds the pending offer gone (or
// replaced) and is a no-op.
func (d *Dispatcher) onOfferTimeout(orderNumber, driverID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	p, ok := d.pending[orderNumber]
	if !ok || p.driverID != driverID {
		return
	}
	o, err := d.orders.Get(orderNumber)
	if err != nil || o.Status != model.OrderAwaitingDriver {
		d.clearPendingLocked(p)
		return
	}
	d.clearPendingLocked(p)
	offersResolved.WithLabelValues(string(metrics.OutcomeExpired)).Inc()
	offerLatency.WithLabelValues(string(metrics.OutcomeExpired)).Observe(d.offerTimeout.Seconds())
	d.recordOffer(metrics.OfferResult{
		OrderNumber: orderNumber,
		DriverID:    driverID,
		Outcome:     metrics.OutcomeExpired,
		Attempt:     p.attempt,
		Latency:     d.offerTimeout,
		Time:        d.clock.Now(),
	})
	d.publish(events.OfferExpired{OrderNumber: orderNumber, DriverID: driverID})
	d.logger.Warnf("driver %s did not respond to order %s, trying next", driverID, orderNumber)
	d.tryNextDriverLocked(o, driverID)
}

// tryNextDriverLocked re-ranks the available drivers and offers the order to
// the new head, or enqueues it when nobody is left. The driver who just
// declined or timed out is skipped for this immediate retry only; a later
// capacity event may rank them first again.
func (d *Dispatcher) tryNextDriverLocked(o model.Order, exclude string) {
	avail := d.availableLocked()
	if exclude != "" {
		filtered := avail[:0]
		for _, drv := range avail {
			if drv.ID != exclude {
				filtered = append(filtered, drv)
			}
		}
		avail = filtered
	}
	if len(avail) == 0 {
		if err := d.queue.Enqueue(o.Number); err != nil {
			// Tolerated race with an earlier enqueue.
			d.queue.BumpAttempts(o.Number)
		} else {
			depth := d.queue.Size()
			queueDepth.Set(float64(depth))
			d.recordQueueDepth(depth)
			d.publish(events.OrderQueued{OrderNumber: o.Number, QueueDepth: depth})
			d.notifyCustomerAsync(o.Customer, fmt.Sprintf("All drivers are busy; order %s is queued.", o.Number))
		}
		return
	}
	if err := d.offerLocked(avail[0], o); err != nil {
		d.logger.Errorf("offer for %s failed: %v", o.Number, err)
	}
}

// AcceptOffer resolves the pending offer held by the driver and completes the
// assignment.
func (d *Dispatcher) AcceptOffer(driverID string) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	number, ok := d.byDriver[driverID]
	if !ok {
		return model.Order{}, fmt.Errorf("driver %s: %w", driverID, ErrNoPendingOffer)
	}
	p := d.pending[number]

	drv, err := d.registry.Get(driverID)
	if err != nil {
		return model.Order{}, err
	}
	if !drv.Dispatchable() {
		return model.Order{}, fmt.Errorf("driver %s: %w", driverID, model.ErrAlreadyBusy)
	}

	d.clearPendingLocked(p)
	o, err := d.orders.AssignDriver(number, driverID)
	if err != nil {
		return model.Order{}, err
	}
	if _, err := d.registry.Assign(driverID, number); err != nil {
		return model.Order{}, err
	}

	latency := d.clock.Now().Sub(p.sentAt)
	offersResolved.WithLabelValues(string(metrics.OutcomeAccepted)).Inc()
	offerLatency.WithLabelValues(string(metrics.OutcomeAccepted)).Observe(latency.Seconds())
	d.recordOffer(metrics.OfferResult{
		OrderNumber: number,
		DriverID:    driverID,
		Outcome:     metrics.OutcomeAccepted,
		Attempt:     p.attempt,
		Latency:     latency,
		Time:        d.clock.Now(),
	})
	d.publish(events.OfferAccepted{OrderNumber: number, DriverID: driverID, Latency: latency})
	d.publish(events.OrderAssigned{OrderNumber: number, DriverID: driverID})
	d.logger.Infof("order %s assigned to driver %s", number, driverID)
	d.notifyCustomerAsync(o.Customer, fmt.Sprintf("Driver %s took order %s and is on the way.", drv.Name, number))
	return o, nil
}

// RejectOffer resolves the pending offer as an explicit rejection and moves on
// to the next-ranked driver. The order stays in awaiting_driver.
func (d *Dispatcher) RejectOffer(driverID string) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	number, ok := d.byDriver[driverID]
	if !ok {
		return model.Order{}, fmt.Errorf("driver %s: %w", driverID, ErrNoPendingOffer)
	}
	p := d.pending[number]
	d.clearPendingLocked(p)

	o, err := d.orders.Get(number)
	if err != nil {
		return model.Order{}, err
	}
	latency := d.clock.Now().Sub(p.sentAt)
	offersResolved.WithLabelValues(string(metrics.OutcomeRejected)).Inc()
	offerLatency.WithLabelValues(string(metrics.OutcomeRejected)).Observe(latency.Seconds())
	d.recordOffer(metrics.OfferResult{
		OrderNumber: number,
		DriverID:    driverID,
		Outcome:     metrics.OutcomeRejected,
		Attempt:     p.attempt,
		Latency:     latency,
		Time:        d.clock.Now(),
	})
	d.publish(events.OfferRejected{OrderNumber: number, DriverID: driverID})
	d.logger.Infof("driver %s rejected order %s", driverID, number)
	d.tryNextDriverLocked(o, driverID)
	return d.orders.Get(number)
}

// MarkPickedUp records that the driver collected the goods or passenger.
func (d *Dispatcher) MarkPickedUp(driverID string) (model.Order, error) {
	return d.progress(driverID, model.OrderPickedUp, "picked up by driver")
}

// MarkInTransit records that the driver is under way to the destination.
func (d *Dispatcher) MarkInTransit(driverID string) (model.Order, error) {
	return d.progress(driverID, model.OrderInTransit, "in transit")
}

func (d *Dispatcher) progress(driverID string, next model.OrderStatus, note string) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	drv, err := d.registry.Get(driverID)
	if err != nil {
		return model.Order{}, err
	}
	if drv.CurrentOrder == "" {
		return model.Order{}, fmt.Errorf("driver %s: %w", driverID, ErrNoActiveOrder)
	}
	o, err := d.orders.Transition(drv.CurrentOrder, next, note)
	if err != nil {
		return model.Order{}, err
	}
	d.publish(events.StatusChanged{OrderNumber: o.Number, Status: next})
	return o, nil
}

// CompleteOrder marks the driver's current order delivered, frees the driver
// and gives them first refusal on the queue head.
func (d *Dispatcher) CompleteOrder(driverID string) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	drv, err := d.registry.Get(driverID)
	if err != nil {
		return model.Order{}, err
	}
	if drv.CurrentOrder == "" {
		return model.Order{}, fmt.Errorf("driver %s: %w", driverID, ErrNoActiveOrder)
	}
	number := drv.CurrentOrder
	o, err := d.orders.Transition(number, model.OrderDelivered, "completed by driver")
	if err != nil {
		return model.Order{}, err
	}
	d.orders.ClearDriver(number)
	if _, err := d.registry.Release(driverID); err != nil {
		return model.Order{}, err
	}

	ordersFinished.WithLabelValues(model.OrderDelivered.String()).Inc()
	d.recordOutcome(metrics.OrderOutcomeEvent{
		OrderNumber: number,
		OrderType:   string(o.Type),
		Delivered:   true,
		Duration:    o.CompletedAt.Sub(o.CreatedAt),
		Time:        d.clock.Now(),
	})
	d.publish(events.OrderDelivered{OrderNumber: number, DriverID: driverID})
	d.logger.Infof("order %s delivered by driver %s", number, driverID)
	d.notifyCustomerAsync(o.Customer, fmt.Sprintf("Order %s has been delivered. Thank you!", number))
	d.drainLocked()
	return o, nil
}

// CancelOrder cancels a non-terminal order. Any pending offer timer is cleared
// under the same critical-section entry, so a stale accept after cancellation
// is impossible. An assigned driver is released and the queue drained.
func (d *Dispatcher) CancelOrder(orderNumber, reason string) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, err := d.orders.Get(orderNumber)
	if err != nil {
		return model.Order{}, err
	}
	if p, ok := d.pending[orderNumber]; ok {
		d.clearPendingLocked(p)
		d.notifyDriverAsync(p.contact, fmt.Sprintf("Offer for order %s was withdrawn.", orderNumber))
	}
	o, err := d.orders.Transition(orderNumber, model.OrderCancelled, reason)
	if err != nil {
		return model.Order{}, err
	}
	d.queue.Remove(orderNumber)
	depth := d.queue.Size()
	queueDepth.Set(float64(depth))

	wasAssigned := prev.AssignedDriver != ""
	if wasAssigned {
		d.orders.ClearDriver(orderNumber)
		if _, err := d.registry.Release(prev.AssignedDriver); err != nil {
			return model.Order{}, err
		}
	}

	ordersFinished.WithLabelValues(model.OrderCancelled.String()).Inc()
	d.recordOutcome(metrics.OrderOutcomeEvent{
		OrderNumber: orderNumber,
		OrderType:   string(o.Type),
		Delivered:   false,
		Reason:      reason,
		Time:        d.clock.Now(),
	})
	d.publish(events.OrderCancelled{OrderNumber: orderNumber, Reason: reason, WasAssigned: wasAssigned})
	d.logger.Infof("order %s cancelled: %s", orderNumber, reason)
	d.drainLocked()
	return o, nil
}

// ConfirmQueue records the customer's decision to wait for a driver. The order
// joins the queue tail; if capacity freed up in the meantime it is offered
// right away by the drain pass.
func (d *Dispatcher) ConfirmQueue(orderNumber string) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, err := d.orders.Transition(orderNumber, model.OrderAwaitingDriver, "customer confirmed queue")
	if err != nil {
		return model.Order{}, err
	}
	if err := d.queue.Enqueue(orderNumber); err != nil {
		return model.Order{}, err
	}
	depth := d.queue.Size()
	queueDepth.Set(float64(depth))
	d.recordQueueDepth(depth)
	d.publish(events.OrderQueued{OrderNumber: orderNumber, QueueDepth: depth})
	d.notifyCustomerAsync(o.Customer, fmt.Sprintf("Order %s is queued; we will offer it to the first free driver.", orderNumber))
	d.drainLocked()
	return d.orders.Get(orderNumber)
}

// DeclineQueue cancels an order whose customer chose not to wait.
func (d *Dispatcher) DeclineQueue(orderNumber string) (model.Order, error) {
	return d.CancelOrder(orderNumber, "no driver available, customer declined queue")
}

// DriverOnDuty marks the driver ready for offers and drains the queue.
func (d *Dispatcher) DriverOnDuty(driverID string) (model.Driver, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	drv, err := d.registry.SetStatus(driverID, model.DriverOnDuty)
	if err != nil {
		return model.Driver{}, err
	}
	d.logger.Infof("driver %s on duty", driverID)
	d.drainLocked()
	return drv, nil
}

// DriverOffDuty takes the driver out of the ranking. A driver holding an
// outstanding offer resolves it as a rejection first.
func (d *Dispatcher) DriverOffDuty(driverID string) (model.Driver, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The status change goes first so a failure leaves any outstanding offer
	// armed; once the driver is off duty they cannot be re-ranked and the
	// offer reroutes.
	drv, err := d.registry.SetStatus(driverID, model.DriverOffDuty)
	if err != nil {
		return model.Driver{}, err
	}
	if number, ok := d.byDriver[driverID]; ok {
		d.clearPendingLocked(d.pending[number])
		if o, getErr := d.orders.Get(number); getErr == nil {
			d.publish(events.OfferRejected{OrderNumber: number, DriverID: driverID})
			d.tryNextDriverLocked(o, driverID)
		}
	}
	d.logger.Infof("driver %s off duty", driverID)
	return drv, nil
}

// drainLocked offers queued orders while both queue entries and courier
// capacity remain. Availability is recomputed each iteration: a driver holding
// a fresh pending offer is excluded from the ranking, so the loop terminates.
func (d *Dispatcher) drainLocked() {
	for {
		head, ok := d.queue.PeekHead()
		if !ok {
			return
		}
		avail := d.availableLocked()
		if len(avail) == 0 {
			return
		}
		o, err := d.orders.Get(head.OrderNumber)
		if err != nil || o.Status != model.OrderAwaitingDriver {
			// Stale entry, e.g. cancelled while queued.
			d.queue.Remove(head.OrderNumber)
			continue
		}
		// Offer before dequeueing so a failed offer never loses the order.
		if err := d.offerLocked(avail[0], o); err != nil {
			d.logger.Errorf("drain offer for %s failed: %v", o.Number, err)
			return
		}
		d.queue.Remove(head.OrderNumber)
		depth := d.queue.Size()
		queueDepth.Set(float64(depth))
		d.recordQueueDepth(depth)
	}
}

// availableLocked returns the ranked dispatchable drivers minus those holding
// a pending offer.
func (d *Dispatcher) availableLocked() []model.Driver {
	ranked := d.registry.ListAvailable()
	res := ranked[:0]
	for _, drv := range ranked {
		if _, busy := d.byDriver[drv.ID]; !busy {
			res = append(res, drv)
		}
	}
	return res
}

// clearPendingLocked removes the offer and stops its timer. Both indexes are
// maintained together, so the offer is either fully present or fully gone.
func (d *Dispatcher) clearPendingLocked(p *pendingOffer) {
	if p == nil {
		return
	}
	p.timer.Stop()
	delete(d.pending, p.orderNumber)
	delete(d.byDriver, p.driverID)
}

// PendingOffer reports which driver currently holds the offer for the order.
func (d *Dispatcher) PendingOffer(orderNumber string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[orderNumber]
	if !ok {
		return "", false
	}
	return p.driverID, true
}

// GetOrderStatus returns the current order record.
func (d *Dispatcher) GetOrderStatus(orderNumber string) (model.Order, error) {
	return d.orders.Get(orderNumber)
}

// QueueDepth returns the number of waiting orders.
func (d *Dispatcher) QueueDepth() int {
	return d.queue.Size()
}

// AvailableDriverCount returns the number of drivers that could receive an
// offer right now.
func (d *Dispatcher) AvailableDriverCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.availableLocked())
}

func (d *Dispatcher) publish(e events.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}

func (d *Dispatcher) notifyCustomerAsync(contact, message string) {
	go func() {
		if err := d.notifier.NotifyCustomer(contact, message); err != nil {
			d.logger.Errorf("customer notification failed: %v", err)
		}
	}()
}

func (d *Dispatcher) notifyDriverAsync(contact, message string) {
	go func() {
		if err := d.notifier.NotifyDriver(contact, message); err != nil {
			d.logger.Errorf("driver notification failed: %v", err)
		}
	}()
}

func (d *Dispatcher) recordOffer(res metrics.OfferResult) {
	if d.sink == nil {
		return
	}
	go func() {
		if err := d.sink.RecordOfferResult([]metrics.OfferResult{res}); err != nil {
			d.logger.Errorf("metrics error: %v", err)
		}
	}()
}

func (d *Dispatcher) recordOutcome(ev metrics.OrderOutcomeEvent) {
	rec, ok := d.sink.(metrics.OrderOutcomeRecorder)
	if !ok {
		return
	}
	go func() {
		if err := rec.RecordOrderOutcome(ev); err != nil {
			d.logger.Errorf("metrics error: %v", err)
		}
	}()
}

func (d *Dispatcher) recordQueueDepth(depth int) {
	rec, ok := d.sink.(metrics.QueueDepthRecorder)
	if !ok {
		return
	}
	go func() {
		if err := rec.RecordQueueDepth(depth); err != nil {
			d.logger.Errorf("metrics error: %v", err)
		}
	}()
}
