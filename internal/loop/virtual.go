package loop

import (
	"container/heap"
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/clock"
)

// Virtual is a manually advanced scheduler. Time only moves inside Advance,
// which fires due timers in (time, scheduling) order. Post runs its callback
// immediately unless a callback is already running, in which case it runs
// right after that callback returns. Virtual is not safe for concurrent use.
type Virtual struct {
	now    time.Time
	timers entryHeap
	queue  []func()
	seq    uint64
	depth  int
}

var _ clock.Scheduler = (*Virtual)(nil)

// NewVirtual returns a virtual scheduler whose clock starts at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time { return v.now }

// AfterFunc schedules fn at Now()+d.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	v.seq++
	e := &entry{when: v.now.Add(d), seq: v.seq, fn: fn}
	heap.Push(&v.timers, e)
	return &virtualTimer{v: v, e: e}
}

// Post runs fn now, or after the running callback.
func (v *Virtual) Post(fn func()) {
	if v.depth > 0 {
		v.queue = append(v.queue, fn)
		return
	}
	v.run(fn)
}

// Advance moves the clock forward by d, firing every timer that becomes due.
func (v *Virtual) Advance(d time.Duration) {
	target := v.now.Add(d)
	for e := v.timers.due(target); e != nil; e = v.timers.due(target) {
		v.now = e.when
		e.fired = true
		v.run(e.fn)
	}
	v.now = target
}

// Pending returns the number of timers that have not fired or been stopped.
func (v *Virtual) Pending() int { return v.timers.Len() }

func (v *Virtual) run(fn func()) {
	v.depth++
	fn()
	v.depth--
	if v.depth > 0 {
		return
	}
	for len(v.queue) > 0 {
		next := v.queue[0]
		v.queue = v.queue[1:]
		v.depth++
		next()
		v.depth--
	}
}

type virtualTimer struct {
	v *Virtual
	e *entry
}

func (t *virtualTimer) Stop() bool {
	if t.e.stopped || t.e.fired {
		return false
	}
	t.e.stopped = true
	t.v.timers.remove(t.e)
	return true
}
