package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurirhub/kurir/core/analytics"
	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
)

type fixture struct {
	store *orders.Store
	q     *queue.Queue
	reg   *registry.Registry
	mux   *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC))
	store := orders.New(clk)
	q := queue.New(clk)
	reg := registry.New(clk)
	rep := analytics.NewReporter(store, reg, clk)
	return &fixture{store: store, q: q, reg: reg, mux: NewMux(store, q, reg, rep)}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOrderHandler_ByNumber(t *testing.T) {
	f := newFixture(t)
	o, err := f.store.Create(model.TypeDelivery, "cust1", map[string]string{"pickup": "Warung A"})
	require.NoError(t, err)

	rec := f.get(t, "/api/orders/"+o.Number)
	require.Equal(t, http.StatusOK, rec.Code)

	var got orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, o.Number, got.Number)
	assert.Equal(t, "new", got.Status)
	assert.Equal(t, "Warung A", got.Payload["pickup"])
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, "new", got.Timeline[0].Status)
}

func TestOrderHandler_NotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/orders/KRK-20260829-999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandler_ActiveList(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(model.TypeDelivery, "cust1", nil)
	require.NoError(t, err)
	done, err := f.store.Create(model.TypeRide, "cust2", nil)
	require.NoError(t, err)
	_, err = f.store.Transition(done.Number, model.OrderCancelled, "x")
	require.NoError(t, err)

	rec := f.get(t, "/api/orders")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1, "terminal orders are excluded from the active list")
}

func TestOrderHandler_CustomerFilter(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(model.TypeDelivery, "cust1", nil)
	require.NoError(t, err)
	_, err = f.store.Create(model.TypeDelivery, "cust2", nil)
	require.NoError(t, err)

	rec := f.get(t, "/api/orders?customer=cust2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "cust2", got[0].Customer)
}

func TestOrderHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQueueHandler(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.q.Enqueue("KRK-20260829-001"))
	require.NoError(t, f.q.Enqueue("KRK-20260829-002"))

	rec := f.get(t, "/api/queue")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Depth   int           `json:"depth"`
		Entries []queue.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Depth)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "KRK-20260829-001", got.Entries[0].OrderNumber)
}

func TestDriverHandler(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.Register("d1", "Budi", "+62 811-1111")
	require.NoError(t, err)
	_, err = f.reg.SetStatus("d1", model.DriverOnDuty)
	require.NoError(t, err)
	_, err = f.reg.Assign("d1", "KRK-20260829-001")
	require.NoError(t, err)

	rec := f.get(t, "/api/drivers")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []driverView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "busy", got[0].Status)
	assert.Equal(t, "KRK-20260829-001", got[0].CurrentOrder)
	assert.Equal(t, 1, got[0].TodayOrders)
}

func TestStatsHandler(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(model.TypeDelivery, "cust1", nil)
	require.NoError(t, err)

	rec := f.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got analytics.DailyStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2026-08-29", got.Date)
	assert.Equal(t, 1, got.TotalOrders)
}
