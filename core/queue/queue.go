// Package queue holds orders for which dispatch is deferred until courier
// capacity frees up. Ordering is strictly FIFO on enqueue time.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/model"
)

// Entry wraps a queued order number. The order payload stays in the order
// store; the queue never embeds a copy.
type Entry struct {
	OrderNumber string    `json:"order_number"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	Attempts    int       `json:"attempts"`
}

// Queue is the FIFO waiting list.
type Queue struct {
	mu      sync.RWMutex
	entries []Entry
	clock   clock.Clock
}

// New creates an empty Queue. A nil clock defaults to the real clock.
func New(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Queue{clock: clk}
}

// Enqueue appends the order to the tail. A second enqueue of the same order
// fails with model.ErrAlreadyQueued.
func (q *Queue) Enqueue(orderNumber string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.OrderNumber == orderNumber {
			return fmt.Errorf("enqueue %s: %w", orderNumber, model.ErrAlreadyQueued)
		}
	}
	q.entries = append(q.entries, Entry{OrderNumber: orderNumber, EnqueuedAt: q.clock.Now()})
	return nil
}

// PeekHead returns the oldest entry without removing it.
func (q *Queue) PeekHead() (Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Remove deletes the entry for the given order. Removing an absent order is a
// no-op: removal races are expected and tolerated.
func (q *Queue) Remove(orderNumber string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.OrderNumber == orderNumber {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// BumpAttempts increments the attempt counter for the given order.
func (q *Queue) BumpAttempts(orderNumber string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].OrderNumber == orderNumber {
			q.entries[i].Attempts++
			return
		}
	}
}

// Size returns the number of queued orders.
func (q *Queue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Entries returns a copy of the queue in FIFO order.
func (q *Queue) Entries() []Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	res := make([]Entry, len(q.entries))
	copy(res, q.entries)
	return res
}

// Export returns the queue contents for snapshotting.
func (q *Queue) Export() []Entry {
	return q.Entries()
}

// Restore replaces the queue contents preserving order.
func (q *Queue) Restore(entries []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make([]Entry, len(entries))
	copy(q.entries, entries)
}
