// Package analytics computes aggregate statistics over the order book and the
// courier roster for daily reporting.
package analytics

import (
	"time"

	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/registry"
)

// DailyStats summarizes one calendar day of operations.
type DailyStats struct {
	Date                 string  `json:"date"`
	TotalOrders          int     `json:"total_orders"`
	Delivered            int     `json:"delivered"`
	Cancelled            int     `json:"cancelled"`
	Active               int     `json:"active"`
	CompletionRate       float64 `json:"completion_rate"` // delivered / total, 0 when no orders
	AvgCompletionMinutes float64 `json:"avg_completion_minutes"`
	DriversOnDuty        int     `json:"drivers_on_duty"`
}

// Reporter reads the order store and registry. It never mutates state.
type Reporter struct {
	store *orders.Store
	reg   *registry.Registry
	clock clock.Clock
}

// NewReporter creates a Reporter. A nil clock defaults to the real clock.
func NewReporter(store *orders.Store, reg *registry.Registry, clk clock.Clock) *Reporter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Reporter{store: store, reg: reg, clock: clk}
}

// Today computes stats for the current calendar day.
func (r *Reporter) Today() DailyStats {
	return r.ForDay(r.clock.Now())
}

// ForDay computes stats for the calendar day containing the given time. Orders
// are attributed to the day they were created on.
func (r *Reporter) ForDay(day time.Time) DailyStats {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	stats := DailyStats{Date: start.Format("2006-01-02")}
	var completionSum time.Duration
	for _, o := range r.store.All() {
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case model.OrderDelivered:
			stats.Delivered++
			completionSum += o.CompletedAt.Sub(o.CreatedAt)
		case model.OrderCancelled:
			stats.Cancelled++
		default:
			stats.Active++
		}
	}
	if stats.TotalOrders > 0 {
		stats.CompletionRate = float64(stats.Delivered) / float64(stats.TotalOrders)
	}
	if stats.Delivered > 0 {
		stats.AvgCompletionMinutes = completionSum.Minutes() / float64(stats.Delivered)
	}
	for _, drv := range r.reg.List() {
		if drv.Status != model.DriverOffDuty {
			stats.DriversOnDuty++
		}
	}
	return stats
}
