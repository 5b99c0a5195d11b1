// Package simulate replays the scripted inputs of a session file so a
// session can be piloted without a participant.
package simulate

import (
	"sync"
	"time"

	"github.com/gxo-labs/trialkit/internal/config"
	"github.com/gxo-labs/trialkit/internal/engine"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/clock"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
)

// Injector delivers synthetic input to a surface. surface.Headless and
// surface.Console implement it.
type Injector interface {
	Press(key string) int
	Click(target string) int
}

// Driver is an events.Bus that replays scripts. When a session trial starts
// it schedules that trial's script relative to stimulus onset, and when the
// trial ends it drops whatever part of the script has not run yet. Combine it
// with other buses through a FanoutBus.
type Driver struct {
	sched   clock.Scheduler
	inj     Injector
	scripts [][]config.ScriptedInput
	log     gxolog.Logger

	mu      sync.Mutex
	pending map[string][]clock.Timer
	missed  int
}

// NewDriver creates a driver for session.
func NewDriver(session *config.Session, sched clock.Scheduler, inj Injector, log gxolog.Logger) *Driver {
	if sched == nil || inj == nil || log == nil {
		panic("simulate.NewDriver requires a non-nil scheduler, injector and logger")
	}
	scripts := make([][]config.ScriptedInput, len(session.Trials))
	for i, t := range session.Trials {
		scripts[i] = t.Script
	}
	return &Driver{
		sched:   sched,
		inj:     inj,
		scripts: scripts,
		log:     log.With("component", "SimulateDriver"),
		pending: make(map[string][]clock.Timer),
	}
}

// Emit implements events.Bus.
func (d *Driver) Emit(ev events.Event) {
	switch ev.Type {
	case events.TrialStart:
		d.arm(ev)
	case events.TrialEnd:
		d.disarm(ev.TrialID)
	}
}

// Missed returns how many scripted inputs reached no listener.
func (d *Driver) Missed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.missed
}

func (d *Driver) arm(ev events.Event) {
	idx, ok := ev.Payload[engine.PayloadTrialIndex].(int)
	if !ok || idx < 0 || idx >= len(d.scripts) {
		return
	}
	script := d.scripts[idx]
	if len(script) == 0 {
		return
	}

	timers := make([]clock.Timer, 0, len(script))
	for _, in := range script {
		in := in
		timers = append(timers, d.sched.AfterFunc(time.Duration(in.AtMs)*time.Millisecond, func() {
			d.deliver(ev.TrialID, in)
		}))
	}
	d.mu.Lock()
	d.pending[ev.TrialID] = timers
	d.mu.Unlock()
	d.log.Debugf("Scheduled %d scripted input(s) for trial %d (%s)", len(script), idx, ev.TrialID)
}

func (d *Driver) deliver(trialID string, in config.ScriptedInput) {
	var n int
	if in.Click != "" {
		n = d.inj.Click(in.Click)
	} else {
		n = d.inj.Press(in.Key)
	}
	if n == 0 {
		d.mu.Lock()
		d.missed++
		d.mu.Unlock()
		d.log.Debugf("Scripted input at %dms for trial %s reached no listener", in.AtMs, trialID)
	}
}

func (d *Driver) disarm(trialID string) {
	d.mu.Lock()
	timers := d.pending[trialID]
	delete(d.pending, trialID)
	d.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

var _ events.Bus = (*Driver)(nil)
