package engine_test

import (
	"sync"
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

const stubType = "stub-trial"

// stubTask is a two-key task whose timings come straight from the spec.
type stubTask struct {
	timing plugin.Timing
	drt    bool
	scored int
}

func newStubTask(spec trial.Spec) plugin.Task {
	ms := func(k string) time.Duration {
		if v, ok := spec[k].(int); ok {
			return time.Duration(v) * time.Millisecond
		}
		return 0
	}
	drt, _ := spec["drt_enabled"].(bool)
	return &stubTask{
		timing: plugin.Timing{StimulusDuration: ms("stimulus_duration_ms"), TrialDuration: ms("trial_duration_ms")},
		drt:    drt,
	}
}

func (s *stubTask) PluginType() string    { return stubType }
func (s *stubTask) Timing() plugin.Timing { return s.timing }
func (s *stubTask) ProbeEnabled() bool    { return s.drt }
func (s *stubTask) Bindings() plugin.Bindings {
	return plugin.Bindings{Device: plugin.DeviceKeyboard, Keys: map[string]string{"a": "left", "l": "right"}}
}

func (s *stubTask) Present(stage plugin.Stage) {
	stage.Surface().Render(surface.View{Elements: []surface.Element{{ID: "stub", Kind: surface.KindText, Text: "+"}}})
	stage.After(s.timing.StimulusDuration, "offset", func() { stage.Surface().SetText("stub", "") })
}

func (s *stubTask) Score(resp trial.Response) map[string]interface{} {
	s.scored++
	var ok interface{}
	if resp.Responded {
		ok = resp.Side == "left"
	}
	return map[string]interface{}{"correct": ok, "scored": s.scored}
}

// recordingBus keeps every emitted event.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Emit(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBus) types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

func (b *recordingBus) count(t events.EventType) int {
	n := 0
	for _, typ := range b.types() {
		if typ == t {
			n++
		}
	}
	return n
}
