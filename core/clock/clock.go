// Package clock abstracts time and timer arming so that timeout-driven logic
// can be tested deterministically with a fake implementation.
package clock

import "time"

// Timer is a handle to a pending callback armed with AfterFunc.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was prevented
	// from running.
	Stop() bool
}

// Clock provides current time and delayed callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock is the default clock backed by the time package.
type RealClock struct{}

// Now returns current time.
func (RealClock) Now() time.Time { return time.Now() }

// AfterFunc arms a real timer.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
