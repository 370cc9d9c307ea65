// Package registry is the source of truth for courier availability and load.
package registry

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/model"
)

// Registry holds the courier records and their availability state.
//
// A contact index is maintained transactionally with the primary map: an index
// entry exists exactly when the primary entry exists.
type Registry struct {
	mu        sync.RWMutex
	drivers   map[string]*model.Driver
	byContact map[string]string // normalized contact -> driver ID
	clock     clock.Clock
}

// New creates an empty Registry. A nil clock defaults to the real clock.
func New(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Registry{
		drivers:   make(map[string]*model.Driver),
		byContact: make(map[string]string),
		clock:     clk,
	}
}

func normalizeContact(contact string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, contact)
}

// Register adds a new courier. It fails with model.ErrDuplicateDriver when the
// contact handle is already registered.
func (r *Registry) Register(id, name, contact string) (model.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact = normalizeContact(contact)
	if _, ok := r.byContact[contact]; ok {
		return model.Driver{}, fmt.Errorf("register %s: %w", contact, model.ErrDuplicateDriver)
	}
	if _, ok := r.drivers[id]; ok {
		return model.Driver{}, fmt.Errorf("register %s: %w", id, model.ErrDuplicateDriver)
	}
	now := r.clock.Now()
	d := &model.Driver{
		ID:               id,
		Name:             name,
		Contact:          contact,
		Status:           model.DriverOffDuty,
		LastStatusUpdate: now,
		CreatedAt:        now,
	}
	r.drivers[id] = d
	r.byContact[contact] = id
	return *d, nil
}

// Get returns the driver with the given ID.
func (r *Registry) Get(id string) (model.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[id]
	if !ok {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	return *d, nil
}

// GetByContact resolves a driver through the contact index.
func (r *Registry) GetByContact(contact string) (model.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byContact[normalizeContact(contact)]
	if !ok {
		return model.Driver{}, fmt.Errorf("contact %s: %w", contact, model.ErrNotFound)
	}
	return *r.drivers[id], nil
}

// SetStatus toggles a courier between on-duty and off-duty. Going on duty while
// an order is still assigned fails with model.ErrInvalidTransition.
func (r *Registry) SetStatus(id string, status model.DriverStatus) (model.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	if d.CurrentOrder != "" {
		return model.Driver{}, fmt.Errorf("driver %s has active order %s: %w", id, d.CurrentOrder, model.ErrInvalidTransition)
	}
	if status == model.DriverBusy {
		return model.Driver{}, fmt.Errorf("driver %s: busy is set by assignment: %w", id, model.ErrInvalidTransition)
	}
	d.Status = status
	d.LastStatusUpdate = r.clock.Now()
	return *d, nil
}

// Assign marks the driver busy with the given order and bumps the load
// counters.
func (r *Registry) Assign(id, orderNumber string) (model.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	if d.CurrentOrder != "" {
		return model.Driver{}, fmt.Errorf("driver %s holds %s: %w", id, d.CurrentOrder, model.ErrAlreadyBusy)
	}
	d.Status = model.DriverBusy
	d.CurrentOrder = orderNumber
	d.TotalOrders++
	d.TodayOrders++
	d.LastStatusUpdate = r.clock.Now()
	return *d, nil
}

// Release returns a busy driver to on-duty and clears the current order.
func (r *Registry) Release(id string) (model.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	d.Status = model.DriverOnDuty
	d.CurrentOrder = ""
	d.LastStatusUpdate = r.clock.Now()
	return *d, nil
}

// ListAvailable returns the dispatchable drivers ranked least-loaded first:
// ascending today's orders, then ascending total orders, then a random
// tie-break so equally loaded couriers do not starve deterministically. The
// ranking is recomputed on every call.
func (r *Registry) ListAvailable() []model.Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type ranked struct {
		d     model.Driver
		nonce int
	}
	var avail []ranked
	for _, d := range r.drivers {
		if d.Dispatchable() {
			avail = append(avail, ranked{d: *d, nonce: rand.Int()})
		}
	}
	sort.Slice(avail, func(i, j int) bool {
		a, b := avail[i], avail[j]
		if a.d.TodayOrders != b.d.TodayOrders {
			return a.d.TodayOrders < b.d.TodayOrders
		}
		if a.d.TotalOrders != b.d.TotalOrders {
			return a.d.TotalOrders < b.d.TotalOrders
		}
		return a.nonce < b.nonce
	})
	res := make([]model.Driver, len(avail))
	for i, rk := range avail {
		res[i] = rk.d
	}
	return res
}

// List returns all drivers sorted by ID.
func (r *Registry) List() []model.Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]model.Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		res = append(res, *d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// AvailableCount returns the number of dispatchable drivers.
func (r *Registry) AvailableCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, d := range r.drivers {
		if d.Dispatchable() {
			n++
		}
	}
	return n
}

// ResetDailyCounters zeroes today's order count for drivers whose last status
// update predates the current calendar day. Invoked by the daily job.
func (r *Registry) ResetDailyCounters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	reset := 0
	for _, d := range r.drivers {
		if d.LastStatusUpdate.Before(today) && d.TodayOrders != 0 {
			d.TodayOrders = 0
			reset++
		}
	}
	return reset
}

// Export returns a copy of all driver records for snapshotting.
func (r *Registry) Export() []model.Driver {
	return r.List()
}

// Restore replaces the registry contents and rebuilds the contact index.
func (r *Registry) Restore(drivers []model.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = make(map[string]*model.Driver, len(drivers))
	r.byContact = make(map[string]string, len(drivers))
	for i := range drivers {
		d := drivers[i]
		r.drivers[d.ID] = &d
		r.byContact[d.Contact] = d.ID
	}
}
