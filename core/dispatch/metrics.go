package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	offersSent     prometheus.Counter
	offersResolved *prometheus.CounterVec
	offerLatency   *prometheus.HistogramVec
	ordersFinished *prometheus.CounterVec
	queueDepth     prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Gauge) {
	sent := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_offers_sent_total",
			Help: "Number of offers sent to drivers",
		},
	)
	resolved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_offers_resolved_total",
			Help: "Number of offers resolved, by outcome",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_offer_response_seconds",
			Help:    "Time between offer send and driver response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	finished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_orders_finished_total",
			Help: "Number of orders reaching a terminal state",
		},
		[]string{"status"},
	)
	depth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_queue_depth",
			Help: "Number of orders waiting in the queue",
		},
	)
	return sent, resolved, lat, finished, depth
}

func init() {
	offersSent, offersResolved, offerLatency, ordersFinished, queueDepth = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(offersSent, offersResolved, offerLatency, ordersFinished, queueDepth)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	offersSent, offersResolved, offerLatency, ordersFinished, queueDepth = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
