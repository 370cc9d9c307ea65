package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_AdvanceFiresInDeadlineOrder(t *testing.T) {
	clk := NewFake(time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC))

	var fired []string
	clk.AfterFunc(30*time.Second, func() { fired = append(fired, "late") })
	clk.AfterFunc(10*time.Second, func() { fired = append(fired, "early") })
	clk.AfterFunc(2*time.Minute, func() { fired = append(fired, "never") })

	clk.Advance(time.Minute)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, time.Date(2026, 8, 29, 9, 1, 0, 0, time.UTC), clk.Now())
}

func TestFakeClock_StopPreventsFire(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	fired := false
	tm := clk.AfterFunc(time.Second, func() { fired = true })
	require.True(t, tm.Stop())
	assert.False(t, tm.Stop(), "second stop reports already stopped")

	clk.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeClock_TimerArmedDuringCallbackWaitsForNextAdvance(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	rearmed := false
	clk.AfterFunc(time.Second, func() {
		clk.AfterFunc(time.Second, func() { rearmed = true })
	})

	clk.Advance(time.Minute)
	assert.False(t, rearmed, "nested timer must not fire within the same advance")

	clk.Advance(time.Second)
	assert.True(t, rearmed)
}
