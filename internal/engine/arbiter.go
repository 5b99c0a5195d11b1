package engine

import (
	"sort"

	"github.com/gxo-labs/trialkit/internal/keys"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// armArbiter registers the trial's input listeners. Surface callbacks are
// re-posted onto the scheduler so they never interleave with timers.
func (t *trialRun) armArbiter() {
	b := t.task.Bindings()
	onKey := func(ev surface.KeyEvent) {
		t.sched.Post(func() { t.handleKey(ev.Key) })
	}

	switch b.Device {
	case plugin.DeviceMouse:
		ids := make([]string, 0, len(b.Targets))
		for id := range b.Targets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			id, side := id, b.Targets[id]
			t.subs = append(t.subs, t.surf.ListenClick(id, func() {
				t.sched.Post(func() { t.handleClick(id, side) })
			}))
		}
		if t.task.ProbeEnabled() {
			t.subs = append(t.subs, t.surf.ListenKeys(keys.Expand(keys.Space), onKey))
		}
	default:
		t.subs = append(t.subs, t.surf.ListenKeys(listenKeys(b, t.task.ProbeEnabled()), onKey))
	}
}

// listenKeys returns the raw identifiers to subscribe to, or nil for every key.
func listenKeys(b plugin.Bindings, probe bool) []string {
	if b.AnyKey {
		return nil
	}
	primary := make([]string, 0, len(b.Keys)+1)
	for k := range b.Keys {
		primary = append(primary, k)
	}
	sort.Strings(primary)
	if probe {
		primary = append(primary, keys.Space)
	}
	return keys.ExpandAll(primary...)
}

func (t *trialRun) handleKey(raw string) {
	if t.life.ended() {
		return
	}
	key := keys.Normalize(raw)
	b := t.task.Bindings()

	// The probe key only doubles as a response when the task binds it
	// explicitly, even for tasks that accept any key.
	if t.task.ProbeEnabled() && key == keys.Space {
		t.recordProbeResponse()
		if !b.IsBoundKey(key) {
			return
		}
	}
	if !b.IsPrimaryKey(key) {
		return
	}
	if t.state.responded {
		return
	}
	side := ""
	if !b.AnyKey {
		side = b.Keys[key]
	}
	t.respond(key, side)
}

func (t *trialRun) handleClick(id, side string) {
	if t.life.ended() || t.state.responded {
		return
	}
	t.log.Debugf("Click on %s", id)
	t.respond("", side)
}

func (t *trialRun) respond(key, side string) {
	rt := t.elapsed(t.onset)
	t.state.responded = true
	t.state.responseKey = key
	t.state.responseSide = side
	t.state.rt = &rt

	t.emit(events.ResponseAccepted, map[string]interface{}{
		trial.FieldResponseKey:  nullable(key),
		trial.FieldResponseSide: nullable(side),
		PayloadRTMillis:         rt,
	})
	t.terminate(trial.EndResponse)
}
