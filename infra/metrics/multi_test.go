package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kurirhub/kurir/core/metrics"
)

// recordingSink captures everything forwarded to it.
type recordingSink struct {
	offers   []coremetrics.OfferResult
	outcomes []coremetrics.OrderOutcomeEvent
	depths   []int
	err      error
}

func (r *recordingSink) RecordOfferResult(res []coremetrics.OfferResult) error {
	r.offers = append(r.offers, res...)
	return r.err
}

func (r *recordingSink) RecordOrderOutcome(ev coremetrics.OrderOutcomeEvent) error {
	r.outcomes = append(r.outcomes, ev)
	return r.err
}

func (r *recordingSink) RecordQueueDepth(depth int) error {
	r.depths = append(r.depths, depth)
	return r.err
}

// offerOnlySink implements only the base interface.
type offerOnlySink struct{ offers int }

func (o *offerOnlySink) RecordOfferResult(res []coremetrics.OfferResult) error {
	o.offers += len(res)
	return nil
}

func TestMultiSink_ForwardsToAll(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	require.NoError(t, m.RecordOfferResult([]coremetrics.OfferResult{{DriverID: "d1"}}))
	require.NoError(t, m.RecordOrderOutcome(coremetrics.OrderOutcomeEvent{OrderNumber: "x"}))
	require.NoError(t, m.RecordQueueDepth(3))

	for _, s := range []*recordingSink{a, b} {
		assert.Len(t, s.offers, 1)
		assert.Len(t, s.outcomes, 1)
		assert.Equal(t, []int{3}, s.depths)
	}
}

func TestMultiSink_SkipsUnsupportedRecorders(t *testing.T) {
	base := &offerOnlySink{}
	m := NewMultiSink(base)

	require.NoError(t, m.RecordOfferResult([]coremetrics.OfferResult{{DriverID: "d1"}}))
	require.NoError(t, m.RecordOrderOutcome(coremetrics.OrderOutcomeEvent{}))
	require.NoError(t, m.RecordQueueDepth(1))
	assert.Equal(t, 1, base.offers)
}

func TestMultiSink_FirstError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMultiSink(&recordingSink{err: boom}, &recordingSink{})
	assert.ErrorIs(t, m.RecordOfferResult(nil), boom)
}
