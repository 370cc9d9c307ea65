package metrics

import (
	coremetrics "github.com/kurirhub/kurir/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records dispatch outcomes in Prometheus metrics.
type PromSink struct {
	offers     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDepth prometheus.Gauge
}

// NewPromSink registers sink metrics on the default Prometheus registerer. The
// scrape endpoint is served separately, see StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kurir_offers_total",
		Help: "Total number of resolved driver offers",
	}, []string{"driver_id", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kurir_offer_latency_seconds",
		Help:    "Time between offer send and driver response",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver_id", "outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kurir_orders_total",
		Help: "Total number of orders reaching a terminal state",
	}, []string{"type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kurir_order_duration_seconds",
		Help:    "Time between order creation and delivery",
		Buckets: []float64{60, 300, 600, 1200, 1800, 2700, 3600, 7200},
	}, []string{"type"})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kurir_queue_depth",
		Help: "Number of orders waiting in the queue",
	})

	if err := reg.Register(offers); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			offers = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(outcomes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			outcomes = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(depth); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			depth = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{offers: offers, latency: latency, outcomes: outcomes, duration: duration, queueDepth: depth}, nil
}

// RecordOfferResult increments the counter and latency histogram per result.
func (s *PromSink) RecordOfferResult(results []coremetrics.OfferResult) error {
	for _, r := range results {
		s.offers.WithLabelValues(r.DriverID, string(r.Outcome)).Inc()
		s.latency.WithLabelValues(r.DriverID, string(r.Outcome)).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordOrderOutcome counts terminal orders and observes delivery durations.
func (s *PromSink) RecordOrderOutcome(ev coremetrics.OrderOutcomeEvent) error {
	outcome := "cancelled"
	if ev.Delivered {
		outcome = "delivered"
		s.duration.WithLabelValues(ev.OrderType).Observe(ev.Duration.Seconds())
	}
	s.outcomes.WithLabelValues(ev.OrderType, outcome).Inc()
	return nil
}

// RecordQueueDepth sets the waiting-queue gauge.
func (s *PromSink) RecordQueueDepth(depth int) error {
	s.queueDepth.Set(float64(depth))
	return nil
}
