package metrics

import "time"

// OfferOutcome classifies how an offer was resolved.
type OfferOutcome string

const (
	OutcomeAccepted OfferOutcome = "accepted"
	OutcomeRejected OfferOutcome = "rejected"
	OutcomeExpired  OfferOutcome = "expired"
)

// OfferResult represents a resolved driver offer to be recorded.
type OfferResult struct {
	OrderNumber string
	DriverID    string
	Outcome     OfferOutcome
	Attempt     int
	Latency     time.Duration
	Time        time.Time
}

// MetricsSink records offer results for observability purposes.
type MetricsSink interface {
	RecordOfferResult(results []OfferResult) error
}

// OrderOutcomeEvent captures an order reaching a terminal state.
type OrderOutcomeEvent struct {
	OrderNumber string
	OrderType   string
	Delivered   bool
	Reason      string
	Duration    time.Duration // creation to completion
	Time        time.Time
}

// OrderOutcomeRecorder is implemented by sinks able to record order outcomes.
type OrderOutcomeRecorder interface {
	RecordOrderOutcome(ev OrderOutcomeEvent) error
}

// QueueDepthRecorder is implemented by sinks able to record the waiting-queue
// depth after each change.
type QueueDepthRecorder interface {
	RecordQueueDepth(depth int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOfferResult([]OfferResult) error       { return nil }
func (NopSink) RecordOrderOutcome(OrderOutcomeEvent) error  { return nil }
func (NopSink) RecordQueueDepth(int) error                  { return nil }
