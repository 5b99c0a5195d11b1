package loop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/internal/loop"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtual_FiresInOrder(t *testing.T) {
	v := loop.NewVirtual(epoch)
	var got []string
	v.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })
	v.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	v.AfterFunc(20*time.Millisecond, func() { got = append(got, "c") })

	v.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, epoch.Add(15*time.Millisecond), v.Now())

	v.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, v.Pending())
}

func TestVirtual_NowInsideCallback(t *testing.T) {
	v := loop.NewVirtual(epoch)
	var at time.Time
	v.AfterFunc(7*time.Millisecond, func() { at = v.Now() })
	v.Advance(time.Second)
	assert.Equal(t, epoch.Add(7*time.Millisecond), at)
}

func TestVirtual_Stop(t *testing.T) {
	v := loop.NewVirtual(epoch)
	fired := false
	timer := v.AfterFunc(time.Millisecond, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	v.Advance(time.Second)
	assert.False(t, fired)

	ran := v.AfterFunc(time.Millisecond, func() {})
	v.Advance(time.Millisecond)
	assert.False(t, ran.Stop())
}

func TestVirtual_PostInsideCallbackRunsAfter(t *testing.T) {
	v := loop.NewVirtual(epoch)
	var got []string
	v.Post(func() {
		v.Post(func() { got = append(got, "posted") })
		got = append(got, "outer")
	})
	assert.Equal(t, []string{"outer", "posted"}, got)
}

func TestVirtual_TimerScheduledDuringAdvance(t *testing.T) {
	v := loop.NewVirtual(epoch)
	var got []time.Duration
	v.AfterFunc(10*time.Millisecond, func() {
		got = append(got, v.Now().Sub(epoch))
		v.AfterFunc(10*time.Millisecond, func() { got = append(got, v.Now().Sub(epoch)) })
	})
	v.Advance(25 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, got)
}

func runLoop(t *testing.T) (*loop.Loop, context.CancelFunc) {
	t.Helper()
	l := loop.New(logger.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestLoop_PostAndTimers(t *testing.T) {
	l, _ := runLoop(t)
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	l.AfterFunc(20*time.Millisecond, func() {
		mu.Lock()
		got = append(got, "timer")
		mu.Unlock()
		close(done)
	})
	l.Post(func() {
		mu.Lock()
		got = append(got, "post")
		mu.Unlock()
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"post", "timer"}, got)
}

func TestLoop_StopPreventsCallback(t *testing.T) {
	l, _ := runLoop(t)
	fired := make(chan struct{}, 1)
	timer := l.AfterFunc(30*time.Millisecond, func() { fired <- struct{}{} })
	assert.True(t, timer.Stop())

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestLoop_RecoversPanics(t *testing.T) {
	l, _ := runLoop(t)
	ok := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(ok) })
	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("loop died after a panic")
	}
}

func TestLoop_RunTwice(t *testing.T) {
	l, cancel := runLoop(t)
	started := make(chan struct{})
	l.Post(func() { close(started) })
	<-started
	require.ErrorIs(t, l.Run(context.Background()), loop.ErrLoopAlreadyRunning)

	cancel()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
