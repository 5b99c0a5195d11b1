package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
)

const (
	// ProbeMarkerID is the element id of the detection-response marker.
	ProbeMarkerID = "drt-probe"

	probeMinDelay       = 300 * time.Millisecond
	probeMarkerLifetime = 200 * time.Millisecond
)

// ProbeDelay draws the probe onset delay: a whole number of milliseconds,
// uniform in [300, max(300, floor(0.75*trialDuration))].
func ProbeDelay(r *rand.Rand, trialDuration time.Duration) time.Duration {
	lo := int64(probeMinDelay / time.Millisecond)
	hi := int64(math.Floor(0.75 * millis(trialDuration)))
	if hi < lo {
		hi = lo
	}
	return time.Duration(lo+r.Int63n(hi-lo+1)) * time.Millisecond
}

func (t *trialRun) armProbe() {
	if !t.task.ProbeEnabled() {
		return
	}
	delay := ProbeDelay(t.meta.rnd, t.task.Timing().TrialDuration)
	t.timers = append(t.timers, t.sched.AfterFunc(delay, t.probeOnset))
}

func (t *trialRun) probeOnset() {
	if t.life.ended() {
		return
	}
	t.state.probeArmed = true
	t.state.probeOnset = t.sched.Now()
	t.surf.AddElement(surface.Element{
		ID:    ProbeMarkerID,
		Kind:  surface.KindMarker,
		Style: map[string]string{"background-color": "#ff1744"},
	})
	t.state.probeFired = true

	// Cosmetic: not tracked with the trial timers, and removing an element
	// that a later Render already discarded is a no-op.
	surf := t.surf
	t.sched.AfterFunc(probeMarkerLifetime, func() { surf.RemoveElement(ProbeMarkerID) })

	t.emit(events.ProbeOnset, map[string]interface{}{"delay_ms": t.elapsed(t.onset)})
}

// recordProbeResponse stores the probe latency on the first press after onset.
func (t *trialRun) recordProbeResponse() {
	if !t.state.probeArmed || t.state.probeRT != nil {
		return
	}
	rt := t.elapsed(t.state.probeOnset)
	t.state.probeRT = &rt
	t.emit(events.ProbeResponse, map[string]interface{}{PayloadRTMillis: rt})
}
