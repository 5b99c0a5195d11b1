// Package clock defines the scheduling capability trials run on. All trial
// callbacks (timers and posted input events) run one at a time, to completion,
// on the scheduler; nothing inside a trial needs a lock.
package clock

import "time"

// Timer is a handle to a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it already ran or was stopped.
	Stop() bool
}

// Scheduler is a single-threaded cooperative event loop.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time
	// AfterFunc runs fn on the scheduler once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Post runs fn on the scheduler as soon as the current callback returns.
	Post(fn func())
}
