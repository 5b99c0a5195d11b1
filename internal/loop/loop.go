// Package loop provides the single-threaded cooperative schedulers trials run
// on: Loop for real time and Virtual for deterministic tests.
package loop

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/clock"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
)

var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("loop: already running")
)

// Loop runs timers and posted tasks one at a time on the goroutine that
// calls Run. AfterFunc, Post and Timer.Stop are safe from any goroutine.
type Loop struct {
	log gxolog.Logger

	mu     sync.Mutex
	timers entryHeap
	queue  []func()
	seq    uint64

	// wake is signalled whenever new work may change the next deadline.
	wake    chan struct{}
	running atomic.Bool
	done    chan struct{}
}

var _ clock.Scheduler = (*Loop)(nil)

// New creates a loop. It does nothing until Run is called.
func New(log gxolog.Logger) *Loop {
	if log == nil {
		panic("loop.New requires a non-nil logger")
	}
	return &Loop{
		log:  log.With("component", "Loop"),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc schedules fn to run on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	e := &entry{when: time.Now().Add(d), seq: l.seq, fn: fn}
	heap.Push(&l.timers, e)
	l.mu.Unlock()
	l.signal()
	return &loopTimer{l: l, e: e}
}

// Post queues fn to run on the loop after the current callback.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run processes callbacks until ctx is cancelled. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopAlreadyRunning
	}
	defer close(l.done)
	l.log.Debugf("Loop started.")

	for {
		batch, next := l.collect(time.Now())
		for _, fn := range batch {
			l.runTask(fn)
		}
		if len(batch) > 0 {
			continue
		}

		var wait *time.Timer
		var waitC <-chan time.Time
		if next >= 0 {
			wait = time.NewTimer(next)
			waitC = wait.C
		}
		select {
		case <-ctx.Done():
			if wait != nil {
				wait.Stop()
			}
			l.log.Debugf("Loop stopped: %v", ctx.Err())
			return ctx.Err()
		case <-l.wake:
		case <-waitC:
		}
		if wait != nil {
			wait.Stop()
		}
	}
}

// collect gathers every due timer and queued task. next is the delay until
// the following timer, or -1 if none is pending.
func (l *Loop) collect(now time.Time) (batch []func(), next time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for e := l.timers.due(now); e != nil; e = l.timers.due(now) {
		e := e
		batch = append(batch, func() {
			if l.claim(e) {
				e.fn()
			}
		})
	}
	batch = append(batch, l.queue...)
	l.queue = nil
	next = -1
	if l.timers.Len() > 0 {
		next = l.timers[0].when.Sub(now)
		if next < 0 {
			next = 0
		}
	}
	return batch, next
}

// claim marks a popped timer as fired unless it was stopped in the meantime.
func (l *Loop) claim(e *entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.stopped {
		return false
	}
	e.fired = true
	return true
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("Recovered panic in loop callback: %v", fmt.Errorf("%v", r))
		}
	}()
	fn()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type loopTimer struct {
	l *Loop
	e *entry
}

func (t *loopTimer) Stop() bool {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	if t.e.stopped || t.e.fired {
		return false
	}
	t.e.stopped = true
	t.l.timers.remove(t.e)
	return true
}
