// Package snapshot captures and restores the full engine state so a restart
// does not lose drivers, orders or the waiting queue.
package snapshot

import (
	"time"

	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
)

// Snapshot is the serializable engine state. Pending offers are deliberately
// absent: an offer outstanding at shutdown is treated as expired on restart
// and the order re-enters dispatch from the queue.
type Snapshot struct {
	SavedAt time.Time      `json:"saved_at"`
	Drivers []model.Driver `json:"drivers"`
	Orders  []model.Order  `json:"orders"`
	Seq     int            `json:"seq"`
	SeqDate string         `json:"seq_date"`
	Queue   []queue.Entry  `json:"queue"`
}

// Store persists snapshots between restarts. Implementations live under
// infra/snapshot.
type Store interface {
	// Save persists the snapshot, replacing any previous one.
	Save(s Snapshot) error
	// Load returns the latest snapshot. The boolean is false when no snapshot
	// exists yet, which is not an error.
	Load() (Snapshot, bool, error)
}

// Capture exports the current state of all three components.
func Capture(reg *registry.Registry, store *orders.Store, q *queue.Queue, now time.Time) Snapshot {
	ords, seq, seqDate := store.Export()
	return Snapshot{
		SavedAt: now,
		Drivers: reg.Export(),
		Orders:  ords,
		Seq:     seq,
		SeqDate: seqDate,
		Queue:   q.Export(),
	}
}

// Apply restores a snapshot into the components, rebuilding all secondary
// indexes.
func Apply(s Snapshot, reg *registry.Registry, store *orders.Store, q *queue.Queue) {
	reg.Restore(s.Drivers)
	store.Restore(s.Orders, s.Seq, s.SeqDate)
	q.Restore(s.Queue)
}
