// Package status exposes read-only dispatch state over HTTP for dashboards
// and support tooling.
package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kurirhub/kurir/core/analytics"
	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
)

// orderView flattens an order for API consumers, rendering enum values as
// strings.
type orderView struct {
	Number         string            `json:"number"`
	Type           model.OrderType   `json:"type"`
	Status         string            `json:"status"`
	AssignedDriver string            `json:"assigned_driver,omitempty"`
	Customer       string            `json:"customer"`
	Payload        map[string]string `json:"payload,omitempty"`
	Timeline       []timelineView    `json:"timeline"`
	CreatedAt      string            `json:"created_at"`
}

type timelineView struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

type driverView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	CurrentOrder string `json:"current_order,omitempty"`
	TodayOrders  int    `json:"today_orders"`
	TotalOrders  int    `json:"total_orders"`
}

func toOrderView(o model.Order) orderView {
	v := orderView{
		Number:         o.Number,
		Type:           o.Type,
		Status:         o.Status.String(),
		AssignedDriver: o.AssignedDriver,
		Customer:       o.Customer,
		Payload:        o.Payload,
		CreatedAt:      o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, e := range o.Timeline {
		v.Timeline = append(v.Timeline, timelineView{
			Status:    e.Status.String(),
			Timestamp: e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Note:      e.Note,
		})
	}
	return v
}

// NewOrderHandler returns an HTTP handler serving GET /api/orders/{number} and
// GET /api/orders (active orders, optionally filtered by customer).
func NewOrderHandler(store *orders.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		number := strings.TrimPrefix(r.URL.Path, "/api/orders")
		number = strings.Trim(number, "/")
		if number != "" {
			o, err := store.Get(number)
			if errors.Is(err, model.ErrNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, toOrderView(o))
			return
		}
		var list []model.Order
		if customer := r.URL.Query().Get("customer"); customer != "" {
			list = store.ByCustomer(customer)
		} else {
			list = store.Active()
		}
		views := make([]orderView, 0, len(list))
		for _, o := range list {
			views = append(views, toOrderView(o))
		}
		writeJSON(w, views)
	})
}

// NewQueueHandler returns an HTTP handler serving GET /api/queue with the
// depth and the FIFO entries.
func NewQueueHandler(q *queue.Queue) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, struct {
			Depth   int           `json:"depth"`
			Entries []queue.Entry `json:"entries"`
		}{Depth: q.Size(), Entries: q.Entries()})
	})
}

// NewDriverHandler returns an HTTP handler serving GET /api/drivers with the
// full courier board.
func NewDriverHandler(reg *registry.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		drivers := reg.List()
		views := make([]driverView, 0, len(drivers))
		for _, d := range drivers {
			views = append(views, driverView{
				ID:           d.ID,
				Name:         d.Name,
				Status:       d.Status.String(),
				CurrentOrder: d.CurrentOrder,
				TodayOrders:  d.TodayOrders,
				TotalOrders:  d.TotalOrders,
			})
		}
		writeJSON(w, views)
	})
}

// NewStatsHandler returns an HTTP handler serving GET /api/stats with today's
// aggregates.
func NewStatsHandler(rep *analytics.Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, rep.Today())
	})
}

// NewMux assembles all status endpoints on one ServeMux.
func NewMux(store *orders.Store, q *queue.Queue, reg *registry.Registry, rep *analytics.Reporter) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/orders", NewOrderHandler(store))
	mux.Handle("/api/orders/", NewOrderHandler(store))
	mux.Handle("/api/queue", NewQueueHandler(q))
	mux.Handle("/api/drivers", NewDriverHandler(reg))
	mux.Handle("/api/stats", NewStatsHandler(rep))
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
