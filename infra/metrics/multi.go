package metrics

import coremetrics "github.com/kurirhub/kurir/core/metrics"

// MultiSink fans dispatch records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOfferResult forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOfferResult(results []coremetrics.OfferResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordOfferResult(results); err != nil {
			return err
		}
	}
	return nil
}

// RecordOrderOutcome forwards outcome events to sinks that support them.
func (m *MultiSink) RecordOrderOutcome(ev coremetrics.OrderOutcomeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.OrderOutcomeRecorder); ok {
			if err := rec.RecordOrderOutcome(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordQueueDepth forwards depth samples to sinks that support them.
func (m *MultiSink) RecordQueueDepth(depth int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.QueueDepthRecorder); ok {
			if err := rec.RecordQueueDepth(depth); err != nil {
				return err
			}
		}
	}
	return nil
}
