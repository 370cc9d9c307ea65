// Package orders holds order records and enforces the order state machine.
package orders

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/model"
)

// Store is the in-memory order book. Secondary indexes (customer, active set)
// are maintained transactionally with the primary map.
type Store struct {
	mu         sync.RWMutex
	orders     map[string]*model.Order
	byCustomer map[string][]string
	active     map[string]struct{}
	clock      clock.Clock

	seq     int
	seqDate string // YYYYMMDD of the last issued number
}

// New creates an empty Store. A nil clock defaults to the real clock.
func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Store{
		orders:     make(map[string]*model.Order),
		byCustomer: make(map[string][]string),
		active:     make(map[string]struct{}),
		clock:      clk,
	}
}

// nextNumber issues a date-scoped human-readable order number, e.g.
// KRK-20260829-003. The sequence restarts each calendar day.
func (s *Store) nextNumber(now time.Time) string {
	date := now.Format("20060102")
	if date != s.seqDate {
		s.seqDate = date
		s.seq = 0
	}
	s.seq++
	return fmt.Sprintf("KRK-%s-%03d", date, s.seq)
}

// Create adds a new order in status New with its first timeline entry.
func (s *Store) Create(typ model.OrderType, customer string, payload map[string]string) (model.Order, error) {
	if !typ.Valid() {
		return model.Order{}, fmt.Errorf("order type %q: %w", typ, model.ErrInvalidOrder)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	o := &model.Order{
		Number:    s.nextNumber(now),
		Type:      typ,
		Customer:  customer,
		Status:    model.OrderNew,
		Payload:   payload,
		CreatedAt: now,
		Timeline: []model.TimelineEntry{
			{Status: model.OrderNew, Timestamp: now, Note: "order created"},
		},
	}
	s.orders[o.Number] = o
	s.byCustomer[customer] = append(s.byCustomer[customer], o.Number)
	s.active[o.Number] = struct{}{}
	return *o, nil
}

// Get returns the order with the given number.
func (s *Store) Get(number string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[number]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", number, model.ErrNotFound)
	}
	return *o, nil
}

// Transition moves the order to the next status, appending exactly one
// timeline entry. Illegal edges fail with model.ErrInvalidTransition and leave
// the order untouched.
func (s *Store) Transition(number string, next model.OrderStatus, note string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(number, next, note)
}

func (s *Store) transitionLocked(number string, next model.OrderStatus, note string) (model.Order, error) {
	o, ok := s.orders[number]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", number, model.ErrNotFound)
	}
	if !o.CanTransition(next) {
		return model.Order{}, fmt.Errorf("order %s: %s -> %s: %w", number, o.Status, next, model.ErrInvalidTransition)
	}
	now := s.clock.Now()
	o.Status = next
	o.Timeline = append(o.Timeline, model.TimelineEntry{Status: next, Timestamp: now, Note: note})
	switch next {
	case model.OrderDelivered:
		o.CompletedAt = now
		delete(s.active, number)
	case model.OrderCancelled:
		o.CancelledAt = now
		o.CancellationReason = note
		delete(s.active, number)
	}
	return *o, nil
}

// AssignDriver transitions AwaitingDriver -> Assigned and records the driver.
func (s *Store) AssignDriver(number, driverID string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.transitionLocked(number, model.OrderAssigned, fmt.Sprintf("assigned to driver %s", driverID))
	if err != nil {
		return model.Order{}, err
	}
	rec := s.orders[number]
	rec.AssignedDriver = driverID
	rec.AssignedAt = s.clock.Now()
	return *rec, nil
}

// ClearDriver removes the driver reference, used when an active order is
// cancelled or delivered.
func (s *Store) ClearDriver(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[number]; ok {
		o.AssignedDriver = ""
	}
}

// Active returns the orders that are neither delivered nor cancelled, sorted
// by number.
func (s *Store) Active() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Order, 0, len(s.active))
	for num := range s.active {
		res = append(res, *s.orders[num])
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Number < res[j].Number })
	return res
}

// ByCustomer returns all orders placed by the given customer handle.
func (s *Store) ByCustomer(customer string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nums := s.byCustomer[customer]
	res := make([]model.Order, 0, len(nums))
	for _, num := range nums {
		if o, ok := s.orders[num]; ok {
			res = append(res, *o)
		}
	}
	return res
}

// All returns every stored order sorted by number.
func (s *Store) All() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		res = append(res, *o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Number < res[j].Number })
	return res
}

// PurgeTerminal deletes delivered and cancelled orders created before the
// cutoff. It returns the number of orders removed.
func (s *Store) PurgeTerminal(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for num, o := range s.orders {
		if o.Status.Terminal() && o.CreatedAt.Before(cutoff) {
			delete(s.orders, num)
			delete(s.active, num)
			removed++
		}
	}
	if removed > 0 {
		s.rebuildCustomerIndexLocked()
	}
	return removed
}

func (s *Store) rebuildCustomerIndexLocked() {
	s.byCustomer = make(map[string][]string)
	nums := make([]string, 0, len(s.orders))
	for num := range s.orders {
		nums = append(nums, num)
	}
	sort.Strings(nums)
	for _, num := range nums {
		o := s.orders[num]
		s.byCustomer[o.Customer] = append(s.byCustomer[o.Customer], num)
	}
}

// Export returns all orders plus the number-sequence state for snapshotting.
func (s *Store) Export() ([]model.Order, int, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		res = append(res, *o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Number < res[j].Number })
	return res, s.seq, s.seqDate
}

// Restore replaces the store contents and rebuilds both secondary indexes.
func (s *Store) Restore(orders []model.Order, seq int, seqDate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string]*model.Order, len(orders))
	s.active = make(map[string]struct{}, len(orders))
	for i := range orders {
		o := orders[i]
		s.orders[o.Number] = &o
		if !o.Status.Terminal() {
			s.active[o.Number] = struct{}{}
		}
	}
	s.seq = seq
	s.seqDate = seqDate
	s.rebuildCustomerIndexLocked()
}
